package llm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-pipeline/internal/llm"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  string
		isErr bool
	}{
		{
			"direct JSON",
			`{"invoice_number":"12345"}`,
			`{"invoice_number":"12345"}`,
			false,
		},
		{
			"direct JSON with whitespace",
			"  {\"invoice_number\":\"12345\"}  \n",
			`{"invoice_number":"12345"}`,
			false,
		},
		{
			"markdown fenced JSON",
			"```json\n{\"invoice_number\":\"12345\"}\n```",
			`{"invoice_number":"12345"}`,
			false,
		},
		{
			"fenced without language tag",
			"```\n{\"invoice_number\":\"12345\"}\n```",
			`{"invoice_number":"12345"}`,
			false,
		},
		{
			"prose wrapped",
			"Here is the extracted data:\n{\"invoice_number\":\"12345\"}\nLet me know if you need more.",
			`{"invoice_number":"12345"}`,
			false,
		},
		{
			"no JSON at all",
			"I could not find an invoice in this document.",
			"",
			true,
		},
		{
			"broken JSON",
			`{"invoice_number": `,
			"",
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := llm.ExtractJSON(tt.in)
			if tt.isErr {
				require.ErrorIs(t, err, llm.ErrNoJSON)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

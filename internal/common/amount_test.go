package common_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-pipeline/internal/common"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  float64
		isErr bool
	}{
		{"plain decimal", "1250.00", 1250.00, false},
		{"integer", "19", 19, false},
		{"negative", "-42.50", -42.50, false},
		{"us grouping", "1,250.00", 1250.00, false},
		{"european notation", "1.250,00", 1250.00, false},
		{"european millions", "1.250.000,99", 1250000.99, false},
		{"decimal comma", "199,58", 199.58, false},
		{"euro sign", "€1250.00", 1250.00, false},
		{"currency suffix", "1250.00 EUR", 1250.00, false},
		{"empty", "", 0, true},
		{"words", "about twelve", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := common.ParseAmount(tt.in)
			if tt.isErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestNormalizeAmount(t *testing.T) {
	got, err := common.NormalizeAmount("1.250,00")
	require.NoError(t, err)
	assert.Equal(t, "1250.00", got)

	got, err = common.NormalizeAmount("199,58")
	require.NoError(t, err)
	assert.Equal(t, "199.58", got)

	_, err = common.NormalizeAmount("n/a")
	assert.Error(t, err)
}

package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-pipeline/internal/common"
	"github.com/joseph-ayodele/invoice-pipeline/internal/llm"
	"github.com/joseph-ayodele/invoice-pipeline/internal/llm/openai"
)

func chatResponse(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return string(b)
}

func newTestClient(srv *httptest.Server) *openai.Client {
	return openai.NewClient(openai.Config{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "gpt-4o-mini",
	}, nil)
}

func TestComplete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(chatResponse("  # Invoice 42\n")))
	}))
	t.Cleanup(srv.Close)

	out, err := newTestClient(srv).Complete(context.Background(), llm.CompletionRequest{
		System: "format documents",
		User:   "raw text",
	})
	require.NoError(t, err)
	assert.Equal(t, "# Invoice 42", out)

	assert.Equal(t, "gpt-4o-mini", got["model"])
	assert.NotContains(t, got, "response_format")
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
}

func TestCompleteJSONMode(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(chatResponse(`{"invoice_number":"42"}`)))
	}))
	t.Cleanup(srv.Close)

	out, err := newTestClient(srv).Complete(context.Background(), llm.CompletionRequest{
		System:   "extract",
		User:     "doc",
		JSONMode: true,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"invoice_number":"42"}`, out)

	rf := got["response_format"].(map[string]any)
	assert.Equal(t, "json_object", rf["type"])
}

func TestCompleteStatusClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, true},
		{"bad request", http.StatusBadRequest, false},
		{"unauthorized", http.StatusUnauthorized, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			t.Cleanup(srv.Close)

			_, err := newTestClient(srv).Complete(context.Background(), llm.CompletionRequest{User: "x"})
			require.Error(t, err)
			assert.Equal(t, tt.retryable, common.IsRetryable(err))
		})
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	t.Cleanup(srv.Close)

	_, err := newTestClient(srv).Complete(context.Background(), llm.CompletionRequest{User: "x"})
	require.Error(t, err)
	assert.True(t, common.IsRetryable(err))
}

package common_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-pipeline/internal/common"
)

func validEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AZURE_OCR_ENDPOINT", "https://res.cognitiveservices.azure.com")
	t.Setenv("AZURE_OCR_KEY", "ocr-key")
	t.Setenv("OPENAI_API_KEY", "llm-key")
}

func TestLoadConfigDefaults(t *testing.T) {
	validEnv(t)
	cfg := common.LoadConfig()

	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 3, cfg.Pipeline.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Pipeline.BackoffBase)
	assert.Equal(t, 8*time.Second, cfg.Pipeline.BackoffCap)
	assert.Equal(t, 2*time.Minute, cfg.Pipeline.DocTimeout)
	assert.Equal(t, int64(4), cfg.Pipeline.MaxConcurrent)
	assert.Equal(t, 0.01, cfg.Pipeline.Tolerance)
	assert.False(t, cfg.Pipeline.SaveMarkdown)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigOverrides(t *testing.T) {
	validEnv(t)
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("PIPELINE_MAX_RETRIES", "5")
	t.Setenv("PIPELINE_DOC_TIMEOUT", "30s")
	t.Setenv("PIPELINE_SAVE_MARKDOWN", "true")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg := common.LoadConfig()
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 5, cfg.Pipeline.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.Pipeline.DocTimeout)
	assert.True(t, cfg.Pipeline.SaveMarkdown)
}

func TestLoadConfigIgnoresGarbageValues(t *testing.T) {
	validEnv(t)
	t.Setenv("PIPELINE_MAX_RETRIES", "many")
	t.Setenv("PIPELINE_DOC_TIMEOUT", "soon")

	cfg := common.LoadConfig()
	assert.Equal(t, 3, cfg.Pipeline.MaxRetries)
	assert.Equal(t, 2*time.Minute, cfg.Pipeline.DocTimeout)
}

func TestValidate(t *testing.T) {
	validEnv(t)
	cfg := common.LoadConfig()
	require.NoError(t, cfg.Validate())

	missingOCR := *cfg
	missingOCR.OCR.Endpoint = ""
	assert.Error(t, missingOCR.Validate())

	missingKey := *cfg
	missingKey.LLM.APIKey = ""
	assert.Error(t, missingKey.Validate())

	badPool := *cfg
	badPool.Pipeline.MaxConcurrent = 0
	assert.Error(t, badPool.Validate())
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", common.ParseLogLevel("debug").String())
	assert.Equal(t, "WARN", common.ParseLogLevel("WARN").String())
	assert.Equal(t, "ERROR", common.ParseLogLevel("error").String())
	assert.Equal(t, "INFO", common.ParseLogLevel("anything").String())
}

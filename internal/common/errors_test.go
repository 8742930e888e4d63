package common_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/invoice-pipeline/internal/common"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transient wrapped", common.Transient(errors.New("rate limited")), true},
		{"transient nested", fmt.Errorf("recognize: %w", common.Transient(errors.New("503"))), true},
		{"content loss", fmt.Errorf("%w: tokens [42]", common.ErrContentLoss), true},
		{"schema mismatch", fmt.Errorf("%w: bad shape", common.ErrSchemaMismatch), true},
		{"malformed document", common.ErrMalformedDocument, false},
		{"unsupported format", common.ErrUnsupportedFormat, false},
		{"timeout", common.ErrTimeoutExceeded, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, common.IsRetryable(tt.err))
		})
	}
}

func TestTransientNil(t *testing.T) {
	assert.Nil(t, common.Transient(nil))
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := common.NewAppError("CONFIG_ERROR", "bad config", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "CONFIG_ERROR")
}

package textextract_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-pipeline/constants"
	"github.com/joseph-ayodele/invoice-pipeline/internal/common"
	"github.com/joseph-ayodele/invoice-pipeline/internal/entity"
	"github.com/joseph-ayodele/invoice-pipeline/internal/pipeline/textextract"
)

// stubRecognizer returns a canned result or error and counts invocations.
type stubRecognizer struct {
	raw   entity.RawText
	err   error
	calls int
}

func (s *stubRecognizer) Recognize(_ context.Context, _ []byte, _ string) (entity.RawText, error) {
	s.calls++
	return s.raw, s.err
}

func TestRunPlainTextBypassesOCR(t *testing.T) {
	rec := &stubRecognizer{}
	stage := textextract.NewStage(rec, nil)

	doc := entity.Document{
		MediaType: constants.MediaTypeText,
		Content:   []byte("Rechnung Nr. 12345\r\n\r\nGesamtbetrag: 1.250,00 EUR\n"),
	}
	raw, err := stage.Run(context.Background(), doc)
	require.NoError(t, err)
	assert.Zero(t, rec.calls)
	require.Len(t, raw.Blocks, 2)
	assert.Equal(t, "Rechnung Nr. 12345", raw.Blocks[0].Text)
	assert.Equal(t, "Gesamtbetrag: 1.250,00 EUR", raw.Blocks[1].Text)
	assert.Equal(t, 1, raw.Blocks[0].Page)
}

func TestRunDelegatesToRecognizer(t *testing.T) {
	rec := &stubRecognizer{raw: entity.RawText{Blocks: []entity.Block{{Text: "Invoice 42", Page: 1}}}}
	stage := textextract.NewStage(rec, nil)

	raw, err := stage.Run(context.Background(), entity.Document{MediaType: constants.MediaTypePNG, Content: []byte{0x89}})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, "Invoice 42", raw.Text())
}

func TestRunUnsupportedMediaType(t *testing.T) {
	stage := textextract.NewStage(&stubRecognizer{}, nil)
	_, err := stage.Run(context.Background(), entity.Document{MediaType: "application/zip"})
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
}

func TestRunEmptyRecognition(t *testing.T) {
	stage := textextract.NewStage(&stubRecognizer{}, nil)
	_, err := stage.Run(context.Background(), entity.Document{MediaType: constants.MediaTypeJPEG})
	assert.ErrorIs(t, err, common.ErrMalformedDocument)
}

func TestRunRecognizerErrorsPassThrough(t *testing.T) {
	transient := common.Transient(errors.New("429 too many requests"))
	stage := textextract.NewStage(&stubRecognizer{err: transient}, nil)

	_, err := stage.Run(context.Background(), entity.Document{MediaType: constants.MediaTypePDF})
	require.Error(t, err)
	assert.True(t, common.IsRetryable(err))
}

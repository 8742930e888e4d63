package ingest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-pipeline/constants"
	"github.com/joseph-ayodele/invoice-pipeline/internal/common"
	"github.com/joseph-ayodele/invoice-pipeline/internal/ingest"
)

var (
	pngBytes  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n', 0, 0, 0, 0}
	jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0}
	tiffBytes = []byte("II*\x00rest")
)

func TestFromBytesSniffing(t *testing.T) {
	src := ingest.NewSource(nil)

	tests := []struct {
		name      string
		sourceID  string
		content   []byte
		mediaType string
	}{
		{"png magic wins over extension", "scan.txt", pngBytes, constants.MediaTypePNG},
		{"jpeg magic", "scan.jpg", jpegBytes, constants.MediaTypeJPEG},
		{"tiff little endian magic", "scan.tiff", tiffBytes, constants.MediaTypeTIFF},
		{"tiff big endian magic", "scan.bin", []byte("MM\x00*rest"), constants.MediaTypeTIFF},
		{"extension fallback for text", "invoice.txt", []byte("Rechnung Nr. 12345"), constants.MediaTypeText},
		{"extension case insensitive", "INVOICE.TXT", []byte("hello"), constants.MediaTypeText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := src.FromBytes(tt.sourceID, tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.mediaType, doc.MediaType)
			assert.Equal(t, tt.sourceID, doc.SourcePath)
			assert.Equal(t, tt.content, doc.Content)
			assert.NotEqual(t, doc.ID.String(), "00000000-0000-0000-0000-000000000000")
		})
	}
}

func TestFromBytesUnsupported(t *testing.T) {
	src := ingest.NewSource(nil)

	_, err := src.FromBytes("invoice.docx", []byte("PK\x03\x04 office stuff"))
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)

	_, err = src.FromBytes("noext", []byte("plain bytes"))
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
}

func TestFromBytesEmpty(t *testing.T) {
	src := ingest.NewSource(nil)
	_, err := src.FromBytes("invoice.pdf", nil)
	assert.ErrorIs(t, err, common.ErrMalformedDocument)
}

func TestFromBytesTruncatedPDF(t *testing.T) {
	src := ingest.NewSource(nil)
	_, err := src.FromBytes("invoice.pdf", []byte("%PDF-1.7\nnot actually a pdf"))
	assert.ErrorIs(t, err, common.ErrMalformedDocument)
}

func TestLoadMissingFile(t *testing.T) {
	src := ingest.NewSource(nil)
	_, err := src.Load(filepath.Join(t.TempDir(), "nope.pdf"))
	assert.Error(t, err)
}

func TestLoadText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "invoice.txt")
	require.NoError(t, os.WriteFile(path, []byte("Rechnung Nr. 12345\n"), 0o644))

	src := ingest.NewSource(nil)
	doc, err := src.Load(path)
	require.NoError(t, err)
	assert.Equal(t, constants.MediaTypeText, doc.MediaType)
	assert.Equal(t, path, doc.SourcePath)
}

func TestListSupported(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string][]byte{
		"b.txt":      []byte("text"),
		"a.png":      pngBytes,
		"skip.docx":  []byte("x"),
		"notes":      []byte("x"),
		"upper.JPEG": jpegBytes,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), content, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.pdf"), 0o755))

	paths, err := ingest.ListSupported(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.png"),
		filepath.Join(dir, "b.txt"),
		filepath.Join(dir, "upper.JPEG"),
	}, paths)
}

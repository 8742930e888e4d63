// Package ingest loads documents from disk or byte streams and verifies
// they are structurally fit for the pipeline.
package ingest

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/joseph-ayodele/invoice-pipeline/constants"
	"github.com/joseph-ayodele/invoice-pipeline/internal/common"
	"github.com/joseph-ayodele/invoice-pipeline/internal/entity"
)

// Source loads documents for processing.
type Source struct {
	logger *slog.Logger
}

func NewSource(logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{logger: logger}
}

// Load reads a document from path and returns its immutable representation.
// The media type is resolved from content magic bytes first, then the file
// extension. Unsupported types fail with ErrUnsupportedFormat; PDFs that
// pdfcpu cannot open fail with ErrMalformedDocument.
func (s *Source) Load(path string) (entity.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return entity.Document{}, fmt.Errorf("read document: %w", err)
	}
	doc, err := s.FromBytes(path, content)
	if err != nil {
		return entity.Document{}, err
	}
	s.logger.Debug("ingest.loaded",
		"path", path,
		"media_type", doc.MediaType,
		"bytes", len(content),
		"pages", doc.PageCount,
	)
	return doc, nil
}

// FromBytes builds a Document from raw bytes. sourceID is an identifier for
// reporting, usually the originating path.
func (s *Source) FromBytes(sourceID string, content []byte) (entity.Document, error) {
	if len(content) == 0 {
		return entity.Document{}, common.WrapError(common.ErrMalformedDocument, "empty document")
	}

	mt := sniffMediaType(content)
	if mt == "" {
		mt = constants.MapExtToMediaType(filepath.Ext(sourceID))
	}
	if !constants.IsSupportedMediaType(mt) {
		return entity.Document{}, fmt.Errorf("%w: %s", common.ErrUnsupportedFormat, filepath.Ext(sourceID))
	}

	doc := entity.Document{
		ID:         uuid.New(),
		SourcePath: sourceID,
		MediaType:  mt,
		Content:    content,
	}

	if mt == constants.MediaTypePDF {
		pages, err := pageCount(content)
		if err != nil {
			return entity.Document{}, fmt.Errorf("%w: %v", common.ErrMalformedDocument, err)
		}
		doc.PageCount = pages
	}
	return doc, nil
}

func pageCount(content []byte) (int, error) {
	return api.PageCount(bytes.NewReader(content), nil)
}

// sniffMediaType inspects magic bytes. Returns "" when the content does not
// match a known signature (the extension decides then).
func sniffMediaType(content []byte) string {
	switch {
	case bytes.HasPrefix(content, []byte("%PDF")):
		return constants.MediaTypePDF
	case bytes.HasPrefix(content, []byte{0x89, 'P', 'N', 'G'}):
		return constants.MediaTypePNG
	case bytes.HasPrefix(content, []byte{0xFF, 0xD8, 0xFF}):
		return constants.MediaTypeJPEG
	case bytes.HasPrefix(content, []byte("II*\x00")), bytes.HasPrefix(content, []byte("MM\x00*")):
		return constants.MediaTypeTIFF
	}
	return ""
}

// ListSupported walks dir (non-recursive) and returns the paths of all files
// with a supported extension, in lexical order.
func ListSupported(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if constants.MapExtToMediaType(filepath.Ext(e.Name())) == "" {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}

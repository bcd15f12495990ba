package pdfsplit

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/m-deepasri/noc-validator/internal/core/domain"
)

// Splitter cuts a PDF into page-bounded sub-documents so each remote
// submission stays under the extraction service's page limit. Documents
// at or under the limit pass through untouched.
type Splitter struct {
	conf *model.Configuration
}

func New() *Splitter {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Splitter{conf: conf}
}

func (s *Splitter) Split(pdfBytes []byte, maxPagesPerChunk int) ([]domain.ChunkDescriptor, error) {
	if maxPagesPerChunk <= 0 {
		return nil, fmt.Errorf("page limit per chunk must be positive, got %d", maxPagesPerChunk)
	}

	pages, err := pageCount(pdfBytes)
	if err != nil {
		return nil, domain.WrapError(domain.ErrMalformedDocument, "split document", err)
	}
	if pages == 0 {
		return nil, domain.WrapError(domain.ErrMalformedDocument, "split document", fmt.Errorf("document has no pages"))
	}

	ranges := pageRanges(pages, maxPagesPerChunk)
	if len(ranges) == 1 {
		// One chunk means the original bytes are submitted as-is.
		return []domain.ChunkDescriptor{{Index: 0, PageRange: ranges[0], Payload: pdfBytes}}, nil
	}

	chunks := make([]domain.ChunkDescriptor, len(ranges))
	for i, r := range ranges {
		payload, err := s.extractRange(pdfBytes, r)
		if err != nil {
			return nil, domain.WrapError(domain.ErrMalformedDocument, "split document",
				fmt.Errorf("extract pages %s: %w", r, err))
		}
		chunks[i] = domain.ChunkDescriptor{Index: i, PageRange: r, Payload: payload}
	}
	return chunks, nil
}

func (s *Splitter) extractRange(pdfBytes []byte, r domain.PageRange) ([]byte, error) {
	var out bytes.Buffer
	selection := []string{r.String()}
	if err := api.Trim(bytes.NewReader(pdfBytes), &out, selection, s.conf); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func pageCount(pdfBytes []byte) (int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	if err != nil {
		return 0, fmt.Errorf("parse document: %w", err)
	}
	return reader.NumPage(), nil
}

// pageRanges partitions pages 1..total into consecutive runs of at most
// max pages.
func pageRanges(total, max int) []domain.PageRange {
	var out []domain.PageRange
	for from := 1; from <= total; from += max {
		to := from + max - 1
		if to > total {
			to = total
		}
		out = append(out, domain.PageRange{From: from, To: to})
	}
	return out
}

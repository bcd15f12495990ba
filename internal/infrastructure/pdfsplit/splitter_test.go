package pdfsplit

import (
	"testing"

	"github.com/m-deepasri/noc-validator/internal/core/domain"
)

func TestPageRangesPartition(t *testing.T) {
	cases := []struct {
		name  string
		total int
		max   int
		want  []domain.PageRange
	}{
		{"single page", 1, 10, []domain.PageRange{{From: 1, To: 1}}},
		{"exactly one chunk", 10, 10, []domain.PageRange{{From: 1, To: 10}}},
		{"one page over", 11, 10, []domain.PageRange{{From: 1, To: 10}, {From: 11, To: 11}}},
		{"three chunks", 25, 10, []domain.PageRange{{From: 1, To: 10}, {From: 11, To: 20}, {From: 21, To: 25}}},
		{"max one page", 3, 1, []domain.PageRange{{From: 1, To: 1}, {From: 2, To: 2}, {From: 3, To: 3}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := pageRanges(tc.total, tc.max)
			if len(got) != len(tc.want) {
				t.Fatalf("ranges = %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("range %d = %v, want %v", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestPageRangesCoverEveryPageOnce(t *testing.T) {
	for total := 1; total <= 40; total++ {
		for max := 1; max <= 12; max++ {
			ranges := pageRanges(total, max)
			next := 1
			for _, r := range ranges {
				if r.From != next {
					t.Fatalf("total=%d max=%d: range %v does not continue at page %d", total, max, r, next)
				}
				if r.Pages() > max {
					t.Fatalf("total=%d max=%d: range %v exceeds page limit", total, max, r)
				}
				next = r.To + 1
			}
			if next != total+1 {
				t.Fatalf("total=%d max=%d: coverage ends at %d", total, max, next-1)
			}
		}
	}
}

func TestSplitRejectsGarbageBytes(t *testing.T) {
	_, err := New().Split([]byte("this is not a pdf"), 10)
	if !domain.IsKind(err, domain.ErrMalformedDocument) {
		t.Fatalf("err = %v, want malformed document kind", err)
	}
}

func TestSplitRejectsNonPositivePageLimit(t *testing.T) {
	if _, err := New().Split([]byte("%PDF-1.7"), 0); err == nil {
		t.Fatal("expected error for zero page limit")
	}
}

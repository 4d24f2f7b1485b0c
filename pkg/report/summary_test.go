package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/yumyai/genomeqc/pkg/busco"
)

func TestSummaryWriter(t *testing.T) {
	var buf bytes.Buffer

	sw, err := NewSummaryWriter(&buf)
	if err != nil {
		t.Fatalf("NewSummaryWriter returned error: %v", err)
	}

	stats := busco.Stats{
		Complete:   98.5,
		Single:     97.9,
		Duplicated: 0.6,
		Fragmented: 0.6,
		Missing:    0.9,
		Total:      5991,
	}
	if err := sw.Append("bee1", stats); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}
	// Zero-filled row for a genome whose report was missing.
	if err := sw.Append("bee2", busco.Stats{}); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header + 2 rows, got %d lines", len(lines))
	}

	wantHeader := "GenomeID\tComplete(%)\tSingle(%)\tDuplicated(%)\tFragmented(%)\tMissing(%)\tTotalBUSCO"
	if lines[0] != wantHeader {
		t.Errorf("Header mismatch:\nexpected %q\ngot      %q", wantHeader, lines[0])
	}
	if lines[1] != "bee1\t98.5\t97.9\t0.6\t0.6\t0.9\t5991" {
		t.Errorf("Unexpected first row: %q", lines[1])
	}
	if lines[2] != "bee2\t0.0\t0.0\t0.0\t0.0\t0.0\t0" {
		t.Errorf("Unexpected zero row: %q", lines[2])
	}
}

// Percentage columns always carry a decimal point, matching the report
// format the downstream tooling expects; whole-number stats still round-trip.
func TestSummaryFloatFormat(t *testing.T) {
	var buf bytes.Buffer

	sw, err := NewSummaryWriter(&buf)
	if err != nil {
		t.Fatalf("NewSummaryWriter returned error: %v", err)
	}
	if err := sw.Append("g1", busco.Stats{Complete: 100, Single: 99.95, Total: 255}); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}

	row := strings.Split(strings.TrimSpace(buf.String()), "\n")[1]
	if row != "g1\t100.0\t99.95\t0.0\t0.0\t0.0\t255" {
		t.Errorf("Unexpected row: %q", row)
	}
}

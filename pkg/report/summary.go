package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yumyai/genomeqc/pkg/busco"
)

const summaryHeader = "GenomeID\tComplete(%)\tSingle(%)\tDuplicated(%)\tFragmented(%)\tMissing(%)\tTotalBUSCO"

// SummaryWriter compiles the master summary: exactly one row per genome job,
// appended in manifest order. Single writer only; rows already appended stay
// flushed if the batch later aborts.
type SummaryWriter struct {
	w io.Writer
}

func NewSummaryWriter(w io.Writer) (*SummaryWriter, error) {
	if _, err := fmt.Fprintln(w, summaryHeader); err != nil {
		return nil, fmt.Errorf("failed to write summary header: %w", err)
	}
	return &SummaryWriter{w: w}, nil
}

// Append writes one genome's row. Zero-valued stats are legitimate: a job
// whose report was missing still gets its row.
func (s *SummaryWriter) Append(genomeID string, st busco.Stats) error {
	_, err := fmt.Fprintf(s.w, "%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
		genomeID,
		ftoa(st.Complete), ftoa(st.Single), ftoa(st.Duplicated),
		ftoa(st.Fragmented), ftoa(st.Missing), st.Total)
	if err != nil {
		return fmt.Errorf("failed to append summary row for %s: %w", genomeID, err)
	}
	return nil
}

// Percentages always carry a decimal point in the summary, so zero-filled
// stats render as 0.0 and a parsed 98.5 stays 98.5.
func ftoa(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

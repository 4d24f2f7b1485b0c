package report

import (
	"fmt"
	"io"
	"strings"
)

// The twelve standard tabular alignment columns.
const hitFields = "qseqid\tsseqid\tpident\tlength\tmismatch\tgapopen\tqstart\tqend\tsstart\tsend\tevalue\tbitscore"

// HitSchema selects the output shape of the compiled contamination table.
// Label, when non-empty, inserts a contaminant column after the genome id;
// Header toggles the leading column-name line.
type HitSchema struct {
	Label  string
	Header bool
}

// HitWriter merges per-genome alignment hits into one compiled table, each
// line prefixed with the genome it came from.
type HitWriter struct {
	w      io.Writer
	schema HitSchema
}

func NewHitWriter(w io.Writer, schema HitSchema) (*HitWriter, error) {
	hw := &HitWriter{w: w, schema: schema}
	if !schema.Header {
		return hw, nil
	}

	cols := []string{"GenomeID"}
	if schema.Label != "" {
		cols = append(cols, "Contaminant")
	}
	cols = append(cols, hitFields)
	if _, err := fmt.Fprintln(w, strings.Join(cols, "\t")); err != nil {
		return nil, fmt.Errorf("failed to write hit header: %w", err)
	}
	return hw, nil
}

// Append writes one raw alignment line under the given genome id.
func (h *HitWriter) Append(genomeID, hitLine string) error {
	var err error
	if h.schema.Label != "" {
		_, err = fmt.Fprintf(h.w, "%s\t%s\t%s\n", genomeID, h.schema.Label, hitLine)
	} else {
		_, err = fmt.Fprintf(h.w, "%s\t%s\n", genomeID, hitLine)
	}
	if err != nil {
		return fmt.Errorf("failed to append hit for %s: %w", genomeID, err)
	}
	return nil
}

package pident

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Dist is the percent-identity distribution over one hit table: hit counts
// keyed by the integer floor of the identity value, plus the number of
// distinct queries that had at least one surviving hit.
type Dist struct {
	Counts  map[int]int
	Queries int
}

// Aggregate makes a single pass over a tabular alignment table (qseqid,
// sseqid, pident, ...). Blank lines and '#' comments are skipped; lines with
// fewer than three fields or a non-numeric identity are dropped with a
// warning. Identity values are not range-checked: anything outside [0,100]
// buckets by the same floor rule.
func Aggregate(r io.Reader, log *zap.Logger) (Dist, error) {
	counts := make(map[int]int)
	queries := make(map[string]struct{})

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		cols := strings.Split(line, "\t")
		if len(cols) < 3 {
			log.Warn("Skipping malformed hit line", zap.String("line", line))
			continue
		}

		ident, err := strconv.ParseFloat(strings.TrimSpace(cols[2]), 64)
		if err != nil {
			log.Warn("Skipping hit with non-numeric identity", zap.String("pident", cols[2]))
			continue
		}

		counts[int(math.Floor(ident))]++
		queries[cols[0]] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return Dist{}, fmt.Errorf("failed to read hit table: %w", err)
	}

	return Dist{Counts: counts, Queries: len(queries)}, nil
}

// WriteHist renders the histogram, floor keys ascending.
func (d Dist) WriteHist(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "pident\tcount"); err != nil {
		return err
	}
	for _, k := range d.sortedKeys() {
		if _, err := fmt.Fprintf(w, "%d\t%d\n", k, d.Counts[k]); err != nil {
			return err
		}
	}
	return nil
}

// WriteCumulative renders the cumulative distribution, thresholds
// descending. The running total at a threshold T counts every surviving hit
// with identity >= T.
func (d Dist) WriteCumulative(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "pident_threshold\tcumulative_hits"); err != nil {
		return err
	}
	keys := d.sortedKeys()
	total := 0
	for i := len(keys) - 1; i >= 0; i-- {
		total += d.Counts[keys[i]]
		if _, err := fmt.Fprintf(w, ">=%d\t%d\n", keys[i], total); err != nil {
			return err
		}
	}
	return nil
}

func (d Dist) sortedKeys() []int {
	keys := make([]int, 0, len(d.Counts))
	for k := range d.Counts {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

package manifest

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// Minimum column counts for the two pipeline flavours.
const (
	QCColumns     = 3 // GenomeID GenomeFasta ProteinsFaa [OutputPrefix]
	ScreenColumns = 2 // GenomeID GenomeFasta
)

// Job is one genome entry from the batch manifest. Immutable once read.
type Job struct {
	ID          string
	GenomePath  string
	ProteinPath string
	OutPrefix   string
}

// Read parses a genome manifest into jobs, preserving file order.
// Blank lines and lines starting with '#' are ignored. A line with fewer
// than minCols fields is skipped with a warning; it produces no job.
func Read(path string, minCols int, log *zap.Logger) ([]Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open genome manifest: %w", err)
	}
	defer f.Close()

	var jobs []Job
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) < minCols {
			log.Warn("Skipping manifest line with too few columns",
				zap.String("line", line),
				zap.Int("want", minCols),
				zap.Int("got", len(parts)))
			continue
		}

		job := Job{
			ID:         parts[0],
			GenomePath: parts[1],
		}
		if len(parts) > 2 {
			job.ProteinPath = parts[2]
		}
		if len(parts) > 3 {
			job.OutPrefix = parts[3]
		} else {
			job.OutPrefix = job.ID
		}

		jobs = append(jobs, job)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read genome manifest: %w", err)
	}

	return jobs, nil
}

package busco

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Stats holds the completeness percentages from one short summary report.
// The zero value stands in whenever the report is missing or unparsable.
type Stats struct {
	Complete   float64
	Single     float64
	Duplicated float64
	Fragmented float64
	Missing    float64
	Total      int
}

// The one-line completeness summary is a fixed text contract:
//
//	C:98.5%[S:97.9%,D:0.6%],F:0.6%,M:0.9%,n:5991
var summaryPattern = regexp.MustCompile(`C:([\d.]+)%\[S:([\d.]+)%,D:([\d.]+)%\],F:([\d.]+)%,M:([\d.]+)%,n:(\d+)`)

// SummaryPath locates the short summary written by the completeness stage
// for the given output prefix.
func SummaryPath(workDir, prefix string) string {
	return filepath.Join(workDir, "run_"+prefix, fmt.Sprintf("short_summary_%s.txt", prefix))
}

// ParseShortSummary extracts completeness stats from a report file. A
// missing file, a read error, or a report with no matching line all yield
// zero stats and a warning; none of them aborts the batch.
func ParseShortSummary(path string, log *zap.Logger) Stats {
	f, err := os.Open(path)
	if err != nil {
		log.Warn("BUSCO summary file not found", zap.String("path", path))
		return Stats{}
	}
	defer f.Close()

	return parseSummary(f, path, log)
}

func parseSummary(r io.Reader, path string, log *zap.Logger) Stats {
	var stats Stats

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "C:") || !strings.Contains(line, "S:") ||
			!strings.Contains(line, "D:") || !strings.Contains(line, "n:") {
			continue
		}

		match := summaryPattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}

		stats.Complete = atof(match[1])
		stats.Single = atof(match[2])
		stats.Duplicated = atof(match[3])
		stats.Fragmented = atof(match[4])
		stats.Missing = atof(match[5])
		stats.Total, _ = strconv.Atoi(match[6])
	}

	if err := scanner.Err(); err != nil {
		log.Warn("Failed reading BUSCO summary", zap.String("path", path), zap.Error(err))
		return Stats{}
	}

	if stats == (Stats{}) {
		log.Warn("No completeness line matched in summary", zap.String("path", path))
	}

	return stats
}

// The pattern already guarantees a well-formed float.
func atof(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

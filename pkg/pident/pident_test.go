package pident

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestAggregate(t *testing.T) {

	tests := []struct {
		name        string
		input       string
		wantCounts  map[int]int
		wantQueries int
	}{
		{
			name: "BasicDistribution",
			input: "q1\ts\t91.2\t100\t5\t1\t1\t100\t1\t100\t1e-30\t200\n" +
				"q1\ts\t85.0\t100\t5\t1\t1\t100\t1\t100\t1e-30\t200\n" +
				"q2\ts\t100.0\t100\t0\t0\t1\t100\t1\t100\t1e-50\t300\n",
			wantCounts:  map[int]int{85: 1, 91: 1, 100: 1},
			wantQueries: 2,
		},
		{
			name:        "CommentsAndBlanksSkipped",
			input:       "# a comment\n\nq1\ts\t50.5\n",
			wantCounts:  map[int]int{50: 1},
			wantQueries: 1,
		},
		{
			name:        "TooFewFieldsSkipped",
			input:       "q1\ts\nq2\ts\t60.0\n",
			wantCounts:  map[int]int{60: 1},
			wantQueries: 1,
		},
		{
			name:        "NonNumericIdentitySkipped",
			input:       "q1\ts\tnot_a_number\nq2\ts\t60.0\n",
			wantCounts:  map[int]int{60: 1},
			wantQueries: 1,
		},
		{
			name:        "NoRangeCheck",
			input:       "q1\ts\t120.5\nq2\ts\t-3.2\n",
			wantCounts:  map[int]int{120: 1, -4: 1},
			wantQueries: 2,
		},
		{
			name:        "AllMalformed",
			input:       "junk\n# only comments\nq1\n",
			wantCounts:  map[int]int{},
			wantQueries: 0,
		},
		{
			name:        "Empty",
			input:       "",
			wantCounts:  map[int]int{},
			wantQueries: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dist, err := Aggregate(strings.NewReader(tt.input), zap.NewNop())
			if err != nil {
				t.Fatalf("Aggregate returned error: %v", err)
			}

			if len(dist.Counts) != len(tt.wantCounts) {
				t.Fatalf("Expected %d buckets, got %d: %v", len(tt.wantCounts), len(dist.Counts), dist.Counts)
			}
			for k, v := range tt.wantCounts {
				if dist.Counts[k] != v {
					t.Errorf("Bucket %d: expected %d, got %d", k, v, dist.Counts[k])
				}
			}
			if dist.Queries != tt.wantQueries {
				t.Errorf("Expected %d distinct queries, got %d", tt.wantQueries, dist.Queries)
			}
		})
	}
}

// The histogram total must equal the number of lines that survive the
// skip/parse filters.
func TestAggregateCountsSurvivingLines(t *testing.T) {
	input := "q1\ts\t91.2\n" +
		"q1\ts\t85.0\n" +
		"# comment\n" +
		"broken line\n" +
		"q3\ts\tNaN-ish\n" + // strconv would accept "NaN"; this one fails
		"q2\ts\t85.9\n"

	dist, err := Aggregate(strings.NewReader(input), zap.NewNop())
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}

	total := 0
	for _, c := range dist.Counts {
		total += c
	}
	if total != 3 {
		t.Errorf("Expected 3 surviving hits, got %d (%v)", total, dist.Counts)
	}
}

func TestWriteHist(t *testing.T) {
	dist := Dist{Counts: map[int]int{100: 1, 85: 1, 91: 1}}

	var buf bytes.Buffer
	if err := dist.WriteHist(&buf); err != nil {
		t.Fatalf("WriteHist returned error: %v", err)
	}

	want := "pident\tcount\n85\t1\n91\t1\n100\t1\n"
	if buf.String() != want {
		t.Errorf("Expected:\n%q\ngot:\n%q", want, buf.String())
	}
}

func TestWriteCumulative(t *testing.T) {
	dist := Dist{Counts: map[int]int{100: 1, 85: 1, 91: 1}}

	var buf bytes.Buffer
	if err := dist.WriteCumulative(&buf); err != nil {
		t.Fatalf("WriteCumulative returned error: %v", err)
	}

	want := "pident_threshold\tcumulative_hits\n>=100\t1\n>=91\t2\n>=85\t3\n"
	if buf.String() != want {
		t.Errorf("Expected:\n%q\ngot:\n%q", want, buf.String())
	}
}

// Read in descending threshold order, the cumulative counts never decrease,
// and the value at the top threshold equals that bucket's own count.
func TestCumulativeMonotone(t *testing.T) {
	dist := Dist{Counts: map[int]int{10: 3, 40: 1, 70: 2, 99: 5}}

	var buf bytes.Buffer
	if err := dist.WriteCumulative(&buf); err != nil {
		t.Fatalf("WriteCumulative returned error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[1] != ">=99\t5" {
		t.Errorf("Top threshold should carry its own count, got %q", lines[1])
	}

	prev := 0
	for _, line := range lines[1:] {
		parts := strings.Split(line, "\t")
		if len(parts) != 2 {
			t.Fatalf("Unparsable cumulative line %q", line)
		}
		cum, err := strconv.Atoi(parts[1])
		if err != nil {
			t.Fatalf("Unparsable cumulative count in %q: %v", line, err)
		}
		if cum < prev {
			t.Errorf("Cumulative count decreased at %s: %d < %d", parts[0], cum, prev)
		}
		prev = cum
	}
}

package evaluation

import (
	"sort"
	"time"
)

// Summary aggregates evaluations of one pipeline (value type).
type Summary struct {
	Pipeline     string        `json:"pipeline"`
	Count        int64         `json:"count"`
	ErrorCount   int64         `json:"error_count"`
	AvgDuration  time.Duration `json:"avg_duration_ns"`
	MaxDuration  time.Duration `json:"max_duration_ns"`
	FirstStarted time.Time     `json:"first_started"`
	LastStarted  time.Time     `json:"last_started"`
}

// ErrorRate returns the failed share of evaluations, 0 when empty.
func (s Summary) ErrorRate() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.ErrorCount) / float64(s.Count)
}

// Aggregate combines records of any pipelines into one summary.
// This is a PURE function.
func Aggregate(pipeline string, records []Record) Summary {
	s := Summary{Pipeline: pipeline}
	var total time.Duration
	for _, r := range records {
		s.Count++
		if r.Failed() {
			s.ErrorCount++
		}
		total += r.Duration
		if r.Duration > s.MaxDuration {
			s.MaxDuration = r.Duration
		}
		if s.FirstStarted.IsZero() || r.StartedAt.Before(s.FirstStarted) {
			s.FirstStarted = r.StartedAt
		}
		if r.StartedAt.After(s.LastStarted) {
			s.LastStarted = r.StartedAt
		}
	}
	if s.Count > 0 {
		s.AvgDuration = total / time.Duration(s.Count)
	}
	return s
}

// SummarizeByPipeline groups records by pipeline name and aggregates each
// group. The result is sorted by pipeline name.
// This is a PURE function.
func SummarizeByPipeline(records []Record) []Summary {
	groups := make(map[string][]Record)
	for _, r := range records {
		groups[r.Pipeline] = append(groups[r.Pipeline], r)
	}
	out := make([]Summary, 0, len(groups))
	for name, rs := range groups {
		out = append(out, Aggregate(name, rs))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pipeline < out[j].Pipeline })
	return out
}

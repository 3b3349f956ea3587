package evaluation_test

import (
	"testing"
	"time"

	"github.com/artpar/pipekit/domain/evaluation"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestAggregate(t *testing.T) {
	records := []evaluation.Record{
		{Pipeline: "slug", Status: evaluation.StatusOK, Duration: 10 * time.Millisecond, StartedAt: t0.Add(time.Minute)},
		{Pipeline: "slug", Status: evaluation.StatusFailed, Duration: 30 * time.Millisecond, StartedAt: t0},
		{Pipeline: "slug", Status: evaluation.StatusOK, Duration: 20 * time.Millisecond, StartedAt: t0.Add(2 * time.Minute)},
	}

	s := evaluation.Aggregate("slug", records)

	if s.Count != 3 {
		t.Errorf("Count = %d, want 3", s.Count)
	}
	if s.ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, want 1", s.ErrorCount)
	}
	if s.AvgDuration != 20*time.Millisecond {
		t.Errorf("AvgDuration = %v, want 20ms", s.AvgDuration)
	}
	if s.MaxDuration != 30*time.Millisecond {
		t.Errorf("MaxDuration = %v, want 30ms", s.MaxDuration)
	}
	if !s.FirstStarted.Equal(t0) || !s.LastStarted.Equal(t0.Add(2*time.Minute)) {
		t.Errorf("bounds = %v..%v", s.FirstStarted, s.LastStarted)
	}
	if rate := s.ErrorRate(); rate < 0.333 || rate > 0.334 {
		t.Errorf("ErrorRate() = %f", rate)
	}
}

func TestAggregate_Empty(t *testing.T) {
	s := evaluation.Aggregate("x", nil)
	if s.Count != 0 || s.AvgDuration != 0 || s.ErrorRate() != 0 {
		t.Errorf("empty summary = %+v", s)
	}
}

func TestSummarizeByPipeline(t *testing.T) {
	records := []evaluation.Record{
		{Pipeline: "b", Status: evaluation.StatusOK},
		{Pipeline: "a", Status: evaluation.StatusOK},
		{Pipeline: "b", Status: evaluation.StatusFailed},
	}
	got := evaluation.SummarizeByPipeline(records)
	if len(got) != 2 || got[0].Pipeline != "a" || got[1].Count != 2 {
		t.Errorf("SummarizeByPipeline() = %+v", got)
	}
}

func TestFilter(t *testing.T) {
	r := evaluation.Record{Pipeline: "slug", Status: evaluation.StatusFailed, StartedAt: t0}
	tests := []struct {
		name   string
		filter evaluation.Filter
		want   bool
	}{
		{"empty", evaluation.Filter{}, true},
		{"pipeline", evaluation.Filter{Pipeline: "slug"}, true},
		{"other pipeline", evaluation.Filter{Pipeline: "code"}, false},
		{"status", evaluation.Filter{Status: evaluation.StatusOK}, false},
		{"since before", evaluation.Filter{Since: t0.Add(-time.Second)}, true},
		{"since after", evaluation.Filter{Since: t0.Add(time.Second)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(r); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
	if (evaluation.Filter{}).EffectiveLimit() != evaluation.DefaultLimit {
		t.Error("zero limit should use the default")
	}
}

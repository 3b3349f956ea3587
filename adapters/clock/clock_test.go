package clock_test

import (
	"testing"
	"time"

	"github.com/artpar/pipekit/adapters/clock"
)

var t0 = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func TestReal_Now(t *testing.T) {
	before := time.Now()
	got := clock.Real{}.Now()
	after := time.Now()
	if got.Before(before) || got.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", got, before, after)
	}
}

func TestFake(t *testing.T) {
	c := clock.NewFake(t0)
	if !c.Now().Equal(t0) || !c.Now().Equal(t0) {
		t.Fatal("fake clock should not move on its own")
	}
	c.Advance(time.Hour)
	if got := c.Now(); !got.Equal(t0.Add(time.Hour)) {
		t.Errorf("after Advance Now() = %v", got)
	}
	c.Set(t0)
	if got := c.Now(); !got.Equal(t0) {
		t.Errorf("after Set Now() = %v", got)
	}
}

func TestStepping(t *testing.T) {
	c := clock.NewStepping(t0, 5*time.Millisecond)
	start := c.Now()
	end := c.Now()
	if got := end.Sub(start); got != 5*time.Millisecond {
		t.Errorf("elapsed = %v, want 5ms", got)
	}
}

package util

import (
	"bytes"
	"strings"
	"testing"

	"golang.org/x/time/rate"
)

func TestProgress_NilIsNoop(t *testing.T) {
	var p *Progress
	p.Step(1, 10)
	p.Finish()
}

func TestProgress_StepAndFinish(t *testing.T) {
	var buf bytes.Buffer
	p := &Progress{
		out:     &buf,
		message: "computing statistics...",
		limiter: rate.NewLimiter(rate.Inf, 1),
	}

	p.Step(5, 10)
	if !strings.Contains(buf.String(), "computing statistics... 50.0%") {
		t.Errorf("output = %q, want 50.0%%", buf.String())
	}

	p.Step(10, 10)
	if !strings.Contains(buf.String(), "100.0%") {
		t.Errorf("output = %q, want 100.0%%", buf.String())
	}

	p.Finish()
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("Finish did not terminate the line")
	}
}

func TestProgress_Throttled(t *testing.T) {
	var buf bytes.Buffer
	p := &Progress{
		out:     &buf,
		message: "m",
		limiter: rate.NewLimiter(1, 1), // one repaint, then throttled
	}

	p.Step(1, 100)
	first := buf.Len()
	if first == 0 {
		t.Fatal("first step printed nothing")
	}

	p.Step(2, 100)
	if buf.Len() != first {
		t.Error("throttled step still painted")
	}

	// The final step always paints, throttle or not.
	p.Step(100, 100)
	if buf.Len() == first {
		t.Error("final step was throttled away")
	}
}

func TestProgress_ZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	p := &Progress{out: &buf, message: "m", limiter: rate.NewLimiter(rate.Inf, 1)}
	p.Step(0, 0)
	if buf.Len() != 0 {
		t.Errorf("zero-total step painted %q", buf.String())
	}
}

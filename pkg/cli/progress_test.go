package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestProgressReporterDrawsBarAndCounts(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgressReporter(buf)

	p.Start(100)
	p.Update(50)
	p.Finish()

	out := buf.String()
	if !strings.Contains(out, "50/100") {
		t.Errorf("expected midpoint count in output, got %q", out)
	}
	if !strings.Contains(out, "100/100") {
		t.Errorf("expected final count in output, got %q", out)
	}
	if !strings.Contains(out, "[") || !strings.Contains(out, "]") {
		t.Errorf("expected a bracketed bar, got %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("Finish must terminate the line")
	}
}

func TestProgressReporterZeroTotalIsQuiet(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgressReporter(buf)

	p.Start(0)
	p.Update(0)
	p.Finish()

	if strings.Contains(buf.String(), "[") {
		t.Errorf("no bar should render with zero total, got %q", buf.String())
	}
}

func TestProgressReporterConcurrentUpdates(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgressReporter(buf)

	p.Start(1000)
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func(base int64) {
			for j := int64(0); j < 100; j++ {
				p.Update(base*100 + j)
			}
			done <- struct{}{}
		}(int64(i))
	}
	for i := 0; i < 10; i++ {
		<-done
	}
	p.Finish()

	if buf.Len() == 0 {
		t.Error("expected progress output")
	}
}

func TestNewProgressReporterNilWriter(t *testing.T) {
	p := NewProgressReporter(nil)
	if p == nil {
		t.Fatal("NewProgressReporter(nil) returned nil")
	}
}

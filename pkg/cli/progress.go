package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// progressBarWidth is the character width of the rendered bar.
const progressBarWidth = 30

// ProgressReporter renders a single-line progress bar for long-running
// operations such as the benchmark command. It redraws in place with a
// carriage return, so it expects a terminal-like writer. Safe for concurrent
// Update calls.
type ProgressReporter struct {
	mu      sync.Mutex
	total   int64
	current int64
	started time.Time
	w       io.Writer
}

// NewProgressReporter creates a reporter writing to w. A nil w means
// os.Stdout.
func NewProgressReporter(w io.Writer) *ProgressReporter {
	if w == nil {
		w = os.Stdout
	}
	return &ProgressReporter{w: w}
}

// Start resets the reporter for a run of total items and draws the empty bar.
func (p *ProgressReporter) Start(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.current = 0
	p.started = time.Now()
	p.draw()
}

// Update moves the bar to current.
func (p *ProgressReporter) Update(current int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = current
	p.draw()
}

// Finish fills the bar and terminates the line.
func (p *ProgressReporter) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = p.total
	p.draw()
	fmt.Fprintln(p.w)
}

// draw renders one frame. Callers hold p.mu.
func (p *ProgressReporter) draw() {
	if p.total <= 0 {
		return
	}

	fraction := float64(p.current) / float64(p.total)
	filled := int(fraction * progressBarWidth)
	if filled > progressBarWidth {
		filled = progressBarWidth
	}

	bar := strings.Repeat("=", filled)
	if filled < progressBarWidth {
		bar += ">" + strings.Repeat(" ", progressBarWidth-filled-1)
	}

	elapsed := time.Since(p.started)
	rate := float64(p.current) / elapsed.Seconds()

	fmt.Fprintf(p.w, "\r[%s] %3.0f%%  %d/%d  %.1f req/s  %s",
		bar, fraction*100, p.current, p.total, rate, elapsed.Round(time.Second))
}

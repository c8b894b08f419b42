package tui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// StatusWriter keeps one spinning line on a terminal while files are
// written, counting entries and bytes as they are reported.
type StatusWriter struct {
	w     io.Writer
	label string
	start time.Time

	mu      sync.Mutex
	entries int
	bytes   int64
	last    string
	done    chan struct{}
	stopped bool
}

// NewStatusWriter starts redrawing "<label>: N files, SIZE" on w every 100ms
// until Stop is called.
func NewStatusWriter(w io.Writer, label string) *StatusWriter {
	sw := &StatusWriter{
		w:     w,
		label: label,
		start: time.Now(),
		done:  make(chan struct{}),
	}
	go sw.loop()
	return sw
}

// Entry records one written file of size bytes.
func (sw *StatusWriter) Entry(name string, size int64) {
	sw.mu.Lock()
	sw.entries++
	sw.bytes += size
	sw.last = name
	sw.mu.Unlock()
}

// Counts returns the entries and bytes recorded so far.
func (sw *StatusWriter) Counts() (int, int64) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.entries, sw.bytes
}

// Stop clears the line. Later calls do nothing.
func (sw *StatusWriter) Stop() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.stopped {
		return
	}
	sw.stopped = true
	close(sw.done)
	fmt.Fprint(sw.w, "\r\033[K")
}

func (sw *StatusWriter) loop() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for tick := 0; ; tick++ {
		select {
		case <-sw.done:
			return
		case <-ticker.C:
		}
		sw.mu.Lock()
		if !sw.stopped {
			fmt.Fprintf(sw.w, "\r\033[K%s %s", spinnerFrames[tick%len(spinnerFrames)], sw.line())
		}
		sw.mu.Unlock()
	}
}

// line renders the status text; callers hold mu.
func (sw *StatusWriter) line() string {
	text := fmt.Sprintf("%s: %d files, %s (%s)", sw.label, sw.entries, formatSize(sw.bytes), formatElapsed(time.Since(sw.start)))
	if sw.last != "" {
		text += " " + HelpStyle.Render(sw.last)
	}
	return text
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1f GiB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%d B", n)
}

func formatElapsed(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < 10*time.Second:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}

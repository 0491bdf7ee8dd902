package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// writerIsTTY returns true if the given writer exposes an Fd() method
// (e.g. *os.File) and that fd is a terminal. Falls back to false for
// plain io.Writer values such as *bytes.Buffer.
func writerIsTTY(w io.Writer) bool {
	type fder interface {
		Fd() uintptr
	}
	if f, ok := w.(fder); ok {
		return isatty.IsTerminal(f.Fd())
	}
	return false
}

// DownloadBar displays byte-level download progress with percentage and
// a human-readable size. Example:
// [=========>          ] 45% (2.1 MB / 4.7 MB) Downloading loom 1.3.0
type DownloadBar struct {
	total       int64
	current     int64
	description string
	width       int
	mu          sync.Mutex
	writer      io.Writer
}

// NewDownloadBar creates a progress bar sized for a download of total
// bytes. A total of 0 means the size is unknown; the bar then shows only
// the byte count.
func NewDownloadBar(total int64, description string) *DownloadBar {
	return &DownloadBar{
		total:       total,
		description: description,
		width:       40,
		writer:      os.Stdout,
	}
}

// SetWriter sets the output writer (useful for testing).
func (p *DownloadBar) SetWriter(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writer = w
}

// Update sets the current byte counts and redraws the bar. It matches the
// signature the updater feeds progress into, so a bar's Update can be
// passed straight through.
func (p *DownloadBar) Update(read, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if total > 0 {
		p.total = total
	}
	p.current = read
	if p.total > 0 && p.current > p.total {
		p.current = p.total
	}

	p.render()
}

// Finish completes the bar and moves to a new line.
func (p *DownloadBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	alreadyDone := p.total > 0 && p.current == p.total
	if p.total > 0 {
		p.current = p.total
	}

	if writerIsTTY(p.writer) {
		p.render()
		fmt.Fprintln(p.writer)
	} else if !alreadyDone {
		p.render()
	}
}

// render draws the bar (must be called with lock held).
func (p *DownloadBar) render() {
	if p.total <= 0 {
		// Unknown size: byte count only.
		line := fmt.Sprintf("%s %s", p.description, formatSize(p.current))
		if writerIsTTY(p.writer) {
			fmt.Fprintf(p.writer, "\r%s", line)
		} else {
			fmt.Fprintf(p.writer, "%s\n", line)
		}
		return
	}

	percentage := int((p.current * 100) / p.total)
	filled := int((p.current * int64(p.width)) / p.total)

	var bar strings.Builder
	bar.WriteString("[")
	for i := 0; i < p.width; i++ {
		switch {
		case i < filled:
			bar.WriteString("=")
		case i == filled && percentage < 100:
			bar.WriteString(">")
		default:
			bar.WriteString(" ")
		}
	}
	bar.WriteString("]")

	line := fmt.Sprintf("%s %3d%% (%s / %s) %s",
		bar.String(), percentage, formatSize(p.current), formatSize(p.total), p.description)

	if writerIsTTY(p.writer) {
		fmt.Fprintf(p.writer, "\r%s", line)
	} else if percentage == 100 {
		// Non-TTY (logs, CI): only the final line is worth keeping.
		fmt.Fprintf(p.writer, "%s\n", line)
	}
}

// Spinner displays an animated indicator for operations with no known
// duration, like the ledger query.
type Spinner struct {
	message string
	frames  []string
	frame   int
	writer  io.Writer
	ticker  *time.Ticker
	done    chan struct{}
	running bool
	mu      sync.Mutex
}

// NewSpinner creates and starts a spinner with the given message.
func NewSpinner(message string) *Spinner {
	s := &Spinner{
		message: message,
		frames:  []string{"|", "/", "-", "\\"},
		writer:  os.Stdout,
		done:    make(chan struct{}),
	}
	s.start()
	return s
}

func (s *Spinner) start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true

	if !writerIsTTY(s.writer) {
		// Non-TTY: print the message once, no animation.
		fmt.Fprintf(s.writer, "%s...\n", s.message)
		return
	}

	s.ticker = time.NewTicker(100 * time.Millisecond)
	go func() {
		for {
			select {
			case <-s.done:
				return
			case <-s.ticker.C:
				s.mu.Lock()
				if s.running {
					fmt.Fprintf(s.writer, "\r%s %s", s.frames[s.frame], s.message)
					s.frame = (s.frame + 1) % len(s.frames)
				}
				s.mu.Unlock()
			}
		}
	}()
}

// Stop stops the spinner animation and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.done)

	if writerIsTTY(s.writer) {
		fmt.Fprintf(s.writer, "\r%s\r", strings.Repeat(" ", len(s.message)+4))
	}
}

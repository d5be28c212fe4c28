package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/a11ytester/a11ytester/pkg/duration"
)

// Spinner holds spinner animation frames.
type Spinner struct {
	Frames   []string
	Interval time.Duration
}

var (
	dotsSpinner = Spinner{
		Frames:   []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		Interval: duration.SpinnerFrame,
	}
	lineSpinner = Spinner{
		Frames:   []string{"-", "\\", "|", "/"},
		Interval: duration.SpinnerFrame,
	}
)

// DefaultSpinner returns a braille-dot spinner on Unicode terminals,
// ASCII line spinner (-\|/) otherwise.
func DefaultSpinner() Spinner {
	if UnicodeTerminal() {
		return dotsSpinner
	}
	return lineSpinner
}

// StartSpinner animates message on w until the returned stop function is
// called. When w is not a terminal the message is printed once and nothing
// animates. stop is idempotent and clears the spinner line.
func StartSpinner(w io.Writer, message string) (stop func()) {
	if !IsTerminal(w) {
		fmt.Fprintf(w, "  %s %s\n", SpinnerStyle.Render("*"), message)
		return func() {}
	}

	sp := DefaultSpinner()
	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		ticker := time.NewTicker(sp.Interval)
		defer ticker.Stop()
		for i := 0; ; i++ {
			fmt.Fprintf(w, "\r  %s %s", SpinnerStyle.Render(sp.Frames[i%len(sp.Frames)]), message)
			select {
			case <-done:
				fmt.Fprint(w, "\r\033[K")
				return
			case <-ticker.C:
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-finished
		})
	}
}

package main

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

// spinner animates a status line while an exploit runs. It only draws on a
// terminal; elsewhere Start and Stop do nothing.
type spinner struct {
	out      io.Writer
	enabled  bool
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func newSpinner(out io.Writer) *spinner {
	enabled := false
	if f, ok := out.(*os.File); ok {
		enabled = term.IsTerminal(int(f.Fd()))
	}
	return &spinner{out: out, enabled: enabled, interval: 120 * time.Millisecond}
}

// Start draws msg with an animated frame until Stop is called
func (s *spinner) Start(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled || s.stop != nil {
		return
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(msg, s.stop, s.done)
}

func (s *spinner) loop(msg string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	started := time.Now()
	for i := 0; ; i++ {
		fmt.Fprintf(s.out, "\r%s %s (%s)", spinnerFrames[i%len(spinnerFrames)], msg, time.Since(started).Truncate(time.Second))
		select {
		case <-stop:
			fmt.Fprint(s.out, "\r\033[K")
			return
		case <-ticker.C:
		}
	}
}

// Stop clears the status line and waits for the animation to finish
func (s *spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil {
		return
	}

	close(s.stop)
	<-s.done
	s.stop, s.done = nil, nil
}

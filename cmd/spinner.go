package cmd

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/mouncefik/nbgen/utils/pipeline"
)

// Spinner shows pipeline progress on a terminal. Each step replaces the
// previous one, which is marked done.
type Spinner struct {
	out      io.Writer
	chars    []string
	index    int
	message  string
	stop     chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
	failed   bool
	disabled bool
}

func NewSpinner(out io.Writer) *Spinner {
	return &Spinner{
		out:   out,
		chars: []string{"|", "/", "-", "\\"},
	}
}

// Disable prevents the spinner from animating; steps are still printed
func (s *Spinner) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disabled = true
}

// WriteProgress implements pipeline.ProgressWriter
func (s *Spinner) WriteProgress(update pipeline.ProgressUpdate) error {
	switch update.Type {
	case pipeline.ProgressStep:
		s.Stop()
		s.Start(update.Message)
	case pipeline.ProgressComplete:
		s.Stop()
		fmt.Fprintln(s.out, update.Message)
	case pipeline.ProgressError:
		s.fail()
	}
	return nil
}

func (s *Spinner) Start(message string) {
	s.mu.Lock()
	s.message = message
	if s.disabled {
		fmt.Fprintf(s.out, "%s...\n", message)
		s.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	s.stop = stop
	s.running = true
	s.failed = false
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			s.mu.Lock()
			fmt.Fprintf(s.out, "\r%s... %s", s.message, s.chars[s.index])
			s.index = (s.index + 1) % len(s.chars)
			s.mu.Unlock()

			select {
			case <-stop:
				s.mu.Lock()
				status := "Done!"
				if s.failed {
					status = "Failed"
				}
				fmt.Fprintf(s.out, "\r%s... %s     \n", s.message, status)
				s.mu.Unlock()
				return
			case <-ticker.C:
			}
		}
	}()
}

func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stop)
	s.running = false
	s.mu.Unlock()
	s.wg.Wait()
}

// fail ends the current step without marking it done
func (s *Spinner) fail() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.failed = true
	close(s.stop)
	s.mu.Unlock()
	s.wg.Wait()
}

package pipeline

import "context"

// ProgressType represents different types of progress updates
type ProgressType int

const (
	ProgressStep ProgressType = iota
	ProgressComplete
	ProgressError
)

// ProgressUpdate represents a progress update from the pipeline
type ProgressUpdate struct {
	Type    ProgressType
	Stage   Stage
	Message string
	Error   error
}

// ProgressWriter is an interface for handling progress updates
type ProgressWriter interface {
	WriteProgress(update ProgressUpdate) error
}

// channelProgressWriter implements ProgressWriter by sending updates to a channel
type channelProgressWriter struct {
	ch chan<- ProgressUpdate
}

func NewChannelProgressWriter(ch chan<- ProgressUpdate) ProgressWriter {
	return &channelProgressWriter{ch: ch}
}

func (w *channelProgressWriter) WriteProgress(update ProgressUpdate) error {
	w.ch <- update
	return nil
}

// contextProgressWriter drops updates once its context is done, so a
// reader that has gone away cannot block the pipeline
type contextProgressWriter struct {
	ctx context.Context
	ch  chan<- ProgressUpdate
}

// NewContextProgressWriter sends updates to ch until ctx is done
func NewContextProgressWriter(ctx context.Context, ch chan<- ProgressUpdate) ProgressWriter {
	return &contextProgressWriter{ctx: ctx, ch: ch}
}

func (w *contextProgressWriter) WriteProgress(update ProgressUpdate) error {
	select {
	case w.ch <- update:
		return nil
	case <-w.ctx.Done():
		return w.ctx.Err()
	}
}

type nopProgressWriter struct{}

func (nopProgressWriter) WriteProgress(ProgressUpdate) error { return nil }

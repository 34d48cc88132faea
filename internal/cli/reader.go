package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// ErrInputCancelled is returned when input is canceled by context.
var ErrInputCancelled = errors.New("input canceled")

// LineReader reads lines from an input stream without blocking past
// context cancellation. A canceled read leaves its goroutine running;
// the line it eventually reads is parked and handed to the next call
// rather than dropped.
type LineReader struct {
	reader  *bufio.Reader
	pending chan readResult
	readMu  sync.Mutex
}

type readResult struct {
	err   error
	value string
}

// NewLineReader wraps an input stream in a context-aware line reader.
func NewLineReader(reader io.Reader) *LineReader {
	if reader == nil {
		panic("reader cannot be nil")
	}
	return &LineReader{
		reader:  bufio.NewReader(reader),
		pending: make(chan readResult, 1),
	}
}

// ReadLine reads one line, trimmed of surrounding whitespace. When the
// context is canceled first it returns ErrInputCancelled.
func (r *LineReader) ReadLine(ctx context.Context) (string, error) {
	// A read abandoned by an earlier cancellation may have parked its
	// line already; deliver it before touching the stream again.
	select {
	case res := <-r.pending:
		return strings.TrimSpace(res.value), res.err
	default:
	}

	go func() {
		// readMu serializes stream access across abandoned goroutines.
		r.readMu.Lock()
		defer r.readMu.Unlock()
		value, err := r.reader.ReadString('\n')
		r.pending <- readResult{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case res := <-r.pending:
		return strings.TrimSpace(res.value), res.err
	}
}

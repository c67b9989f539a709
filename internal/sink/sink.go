// Package sink delivers unit results produced by a batch run.
package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ahrav/go-adhere/internal/domain"
)

// ErrClosed is returned when writing to a closed sink.
var ErrClosed = errors.New("sink closed")

// ResultSink receives unit results as a batch produces them. Write may be
// called from several goroutines; implementations serialize internally.
type ResultSink interface {
	Write(ctx context.Context, res domain.UnitResult) error
	Close() error
}

// JSONLSink writes one JSON document per line.
type JSONLSink struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closer io.Closer
	enc    *json.Encoder
}

// NewJSONLSink wraps w. If w is an io.Closer, Close closes it after flushing.
func NewJSONLSink(w io.Writer) *JSONLSink {
	bw := bufio.NewWriter(w)
	s := &JSONLSink{w: bw, enc: json.NewEncoder(bw)}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// Write implements ResultSink.
func (s *JSONLSink) Write(ctx context.Context, res domain.UnitResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(res); err != nil {
		return fmt.Errorf("encode result %s/%s/%d: %w", res.PatientID, res.ConfigID, res.WindowIndex, err)
	}
	return nil
}

// Close flushes buffered lines.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("flush results: %w", err)
	}
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// MemorySink keeps results in memory, mainly for tests and small runs.
type MemorySink struct {
	mu      sync.Mutex
	results []domain.UnitResult
	closed  bool
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink { return &MemorySink{} }

// Write implements ResultSink.
func (m *MemorySink) Write(_ context.Context, res domain.UnitResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.results = append(m.results, res)
	return nil
}

// Close implements ResultSink.
func (m *MemorySink) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Results returns a copy of everything written so far.
func (m *MemorySink) Results() []domain.UnitResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.UnitResult(nil), m.results...)
}

// Multi fans every result out to each sink in order. The first error stops
// the fan-out for that result.
type Multi []ResultSink

// Write implements ResultSink.
func (m Multi) Write(ctx context.Context, res domain.UnitResult) error {
	for _, s := range m {
		if err := s.Write(ctx, res); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink and returns the first error.
func (m Multi) Close() error {
	var first error
	for _, s := range m {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

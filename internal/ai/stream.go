package ai

import (
	"context"
	"errors"
	"io"
	"strings"
)

// Stream is a finite, non-restartable sequence of cumulative text
// snapshots. Cancellation of ctx is noticed at the next chunk boundary
// and reported as ErrCancelled.
//
//	for s.Next() {
//		show(s.Text())
//	}
//	err := s.Err()
type Stream struct {
	ctx   context.Context
	recv  func() (string, error)
	close func()

	text strings.Builder
	err  error
	done bool
}

// NewStream wraps recv, which returns the next text delta and io.EOF at
// the end. closeFn may be nil.
func NewStream(ctx context.Context, recv func() (string, error), closeFn func()) *Stream {
	return &Stream{ctx: ctx, recv: recv, close: closeFn}
}

func (s *Stream) Next() bool {
	for !s.done {
		if s.ctx.Err() != nil {
			s.finish(ErrCancelled)
			return false
		}
		delta, err := s.recv()
		if s.ctx.Err() != nil {
			s.finish(ErrCancelled)
			return false
		}
		if errors.Is(err, io.EOF) {
			s.finish(nil)
			return false
		}
		if err != nil {
			s.finish(wrapRemote(err))
			return false
		}
		if delta == "" {
			continue
		}
		s.text.WriteString(delta)
		return true
	}
	return false
}

// Text returns everything received so far.
func (s *Stream) Text() string {
	return s.text.String()
}

func (s *Stream) Err() error {
	return s.err
}

func (s *Stream) Close() {
	if s.close != nil {
		s.close()
		s.close = nil
	}
	s.done = true
}

func (s *Stream) finish(err error) {
	s.err = err
	s.done = true
	if s.close != nil {
		s.close()
		s.close = nil
	}
}

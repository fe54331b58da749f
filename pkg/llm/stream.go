package llm

import (
	"errors"
	"io"
	"strings"
)

// CompletionResult is the fully accumulated assistant reply.
type CompletionResult struct {
	Text string

	// Fallback is set when Text is the fixed apology rather than a reply.
	Fallback bool

	// Partial is set when a stream ended early and Text holds what arrived.
	Partial bool
}

// Stream is a lazy, finite, non-restartable sequence of reply fragments.
// Iterate it like a bufio.Scanner:
//
//	for s.Next() {
//		use(s.Fragment())
//	}
//	err := s.Err()
//
// Cancelling the context the stream was opened with, or calling Close, ends it.
type Stream struct {
	recv     func() (string, error)
	closer   func() error
	fragment string
	err      error
	done     bool
	closed   bool
	fallback bool
}

// NewStream wraps recv, which returns io.EOF once the sequence is exhausted.
// closer may be nil.
func NewStream(recv func() (string, error), closer func() error) *Stream {
	return &Stream{recv: recv, closer: closer}
}

// StaticStream yields fragments in order.
func StaticStream(fragments ...string) *Stream {
	i := 0
	return NewStream(func() (string, error) {
		if i >= len(fragments) {
			return "", io.EOF
		}
		f := fragments[i]
		i++
		return f, nil
	}, nil)
}

// FallbackStream yields text once and reports Fallback.
func FallbackStream(text string) *Stream {
	s := StaticStream(text)
	s.fallback = true
	return s
}

// Next advances to the next fragment. It returns false at the end of the
// sequence or on the first error.
func (s *Stream) Next() bool {
	if s.done || s.closed {
		return false
	}

	f, err := s.recv()
	if err != nil {
		s.done = true
		if !errors.Is(err, io.EOF) {
			s.err = err
		}
		s.fragment = ""
		return false
	}

	s.fragment = f
	return true
}

// Fragment returns the fragment produced by the last call to Next.
func (s *Stream) Fragment() string {
	return s.fragment
}

// Err returns the error that ended the stream, or nil if it ran to completion.
func (s *Stream) Err() error {
	return s.err
}

// Fallback reports whether the stream carries the fallback message.
func (s *Stream) Fallback() bool {
	return s.fallback
}

// Close releases the underlying connection. It is safe to call more than once.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.closer != nil {
		return s.closer()
	}
	return nil
}

// Accumulate folds s into a single string, calling onFragment (if non-nil)
// for every non-empty fragment in order. It closes s and returns the
// accumulated text along with the error that ended the stream, if any.
func Accumulate(s *Stream, onFragment func(string)) (string, error) {
	defer s.Close()

	var b strings.Builder
	for s.Next() {
		f := s.Fragment()
		if f == "" {
			continue
		}
		b.WriteString(f)
		if onFragment != nil {
			onFragment(f)
		}
	}

	return b.String(), s.Err()
}

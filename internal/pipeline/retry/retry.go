// Package retry classifies failures into transient and terminal and
// provides the bounded backoff loop the syncer wraps around stream I/O.
// Store failures inside a pipeline run are never retried here: the run
// aborts and the submission is re-attempted whole.
package retry

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"
)

type Class string

const (
	ClassTerminal  Class = "terminal"
	ClassTransient Class = "transient"
)

type Decision struct {
	Class  Class
	Reason string
}

func (d Decision) IsTransient() bool {
	return d.Class == ClassTransient
}

type classifiedError struct {
	err   error
	class Class
}

func (e *classifiedError) Error() string { return e.err.Error() }
func (e *classifiedError) Unwrap() error { return e.err }

// Transient marks err as retryable regardless of its shape.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{err: err, class: ClassTransient}
}

// Terminal marks err as not retryable regardless of its shape.
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{err: err, class: ClassTerminal}
}

// Classify decides whether err is worth retrying. Unknown errors default
// to terminal: retrying what we do not understand hides corruption.
func Classify(err error) Decision {
	if err == nil {
		return Decision{Class: ClassTerminal, Reason: "nil_error"}
	}

	var marked *classifiedError
	if errors.As(err, &marked) {
		return Decision{Class: marked.class, Reason: "explicit"}
	}

	if errors.Is(err, context.Canceled) {
		return Decision{Class: ClassTerminal, Reason: "context_canceled"}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Decision{Class: ClassTransient, Reason: "context_deadline_exceeded"}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Decision{Class: ClassTransient, Reason: "net_timeout"}
	}

	lower := strings.ToLower(err.Error())
	if containsAny(lower, transientMessageTokens) {
		return Decision{Class: ClassTransient, Reason: "message_transient"}
	}

	return Decision{Class: ClassTerminal, Reason: "unknown_terminal_default"}
}

func containsAny(msg string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(msg, token) {
			return true
		}
	}
	return false
}

var transientMessageTokens = []string{
	"timeout",
	"timed out",
	"temporar",
	"unavailable",
	"connection reset",
	"connection refused",
	"broken pipe",
	"econnreset",
	"econnrefused",
	"too many requests",
	"loading the dataset in memory",
	"server closed idle connection",
}

// Backoff configures Do's retry loop.
type Backoff struct {
	MaxAttempts int           // 0 means retry until the context ends
	Initial     time.Duration // first delay, doubled each attempt
	Max         time.Duration // delay cap
}

func (b Backoff) withDefaults() Backoff {
	if b.Initial <= 0 {
		b.Initial = 250 * time.Millisecond
	}
	if b.Max <= 0 {
		b.Max = 30 * time.Second
	}
	return b
}

// Do runs fn until it succeeds, fails terminally, exhausts MaxAttempts,
// or the context ends. The last error is returned.
func Do(ctx context.Context, b Backoff, fn func(ctx context.Context) error) error {
	b = b.withDefaults()
	delay := b.Initial

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !Classify(err).IsTransient() {
			return err
		}
		if b.MaxAttempts > 0 && attempt >= b.MaxAttempts {
			return err
		}

		select {
		case <-ctx.Done():
			return errors.Join(ctx.Err(), err)
		case <-time.After(delay):
		}

		delay *= 2
		if delay > b.Max {
			delay = b.Max
		}
	}
}

//go:build linux

package process_linux

import (
	"runtime"

	"remotemem/text_encoding"
)

var (
	// DefaultAsyncLimit is the default number of asynchronous executions that
	// may wait on the tracer at once.
	//
	// It is overridden by the WithAsyncLimit() option.
	DefaultAsyncLimit = runtime.GOMAXPROCS(0)

	// DefaultTracerQueue is the default number of ptrace requests buffered
	// ahead of the tracer goroutine.
	//
	// It is overridden by the WithTracerQueue() option.
	DefaultTracerQueue = 16

	// DefaultTextEncoding is the encoding used by string writes that do not
	// name one.
	//
	// It is overridden by the WithDefaultEncoding() option.
	DefaultTextEncoding = text_encoding.UTF8
)

// Option configures a LinuxProcess.
type Option func(*options)

type options struct {
	asyncLimit  int
	tracerQueue int
	encoding    text_encoding.Encoding
}

func newOptions(opts []Option) options {
	o := options{
		asyncLimit:  DefaultAsyncLimit,
		tracerQueue: DefaultTracerQueue,
		encoding:    DefaultTextEncoding,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithAsyncLimit bounds concurrent asynchronous executions. Zero or negative
// means no bound.
func WithAsyncLimit(n int) Option {
	return func(o *options) {
		o.asyncLimit = n
	}
}

// WithTracerQueue sets how many ptrace requests may be queued.
func WithTracerQueue(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.tracerQueue = n
		}
	}
}

// WithDefaultEncoding sets the encoding used by string writes that do not name
// one.
func WithDefaultEncoding(enc text_encoding.Encoding) Option {
	return func(o *options) {
		o.encoding = enc
	}
}

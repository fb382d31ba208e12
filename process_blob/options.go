package process_blob

import (
	"runtime"

	"remotemem/text_encoding"
)

var (
	// DefaultAsyncLimit is the default number of asynchronous executions that
	// run at once.
	//
	// It is overridden by the WithAsyncLimit() option.
	DefaultAsyncLimit = runtime.GOMAXPROCS(0)

	// DefaultTextEncoding is the encoding used by string writes that do not
	// name one.
	//
	// It is overridden by the WithDefaultEncoding() option.
	DefaultTextEncoding = text_encoding.UTF8
)

// Option configures an in-memory process.
type Option func(*options)

type options struct {
	pid        int
	name       string
	running    bool
	asyncLimit int
	encoding   text_encoding.Encoding
}

func newOptions(opts []Option) options {
	o := options{
		running:    true,
		asyncLimit: DefaultAsyncLimit,
		encoding:   DefaultTextEncoding,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithPID sets the process ID reported by GetPID.
func WithPID(pid int) Option {
	return func(o *options) {
		o.pid = pid
	}
}

// WithName sets the process name.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithRunning sets whether the process starts out running.
func WithRunning(running bool) Option {
	return func(o *options) {
		o.running = running
	}
}

// WithAsyncLimit bounds concurrent asynchronous executions. Zero or negative
// means no bound.
func WithAsyncLimit(n int) Option {
	return func(o *options) {
		o.asyncLimit = n
	}
}

// WithDefaultEncoding sets the encoding used by string writes that do not name
// one.
func WithDefaultEncoding(enc text_encoding.Encoding) Option {
	return func(o *options) {
		o.encoding = enc
	}
}

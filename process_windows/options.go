//go:build windows

package process_windows

import (
	"runtime"

	"remotemem/text_encoding"
)

var (
	// DefaultAsyncLimit is the default number of remote threads started by
	// ExecuteAsync that may run at once.
	//
	// It is overridden by the WithAsyncLimit() option.
	DefaultAsyncLimit = runtime.GOMAXPROCS(0)

	// DefaultTextEncoding is the encoding used by string writes that do not
	// name one. Windows APIs are UTF-16 throughout.
	//
	// It is overridden by the WithDefaultEncoding() option.
	DefaultTextEncoding = text_encoding.UTF16LE
)

// Option configures a WindowsProcess.
type Option func(*options)

type options struct {
	asyncLimit int
	encoding   text_encoding.Encoding
}

func newOptions(opts []Option) options {
	o := options{
		asyncLimit: DefaultAsyncLimit,
		encoding:   DefaultTextEncoding,
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

// WithDefaultEncoding sets the encoding used by string writes that do not name
// one.
func WithDefaultEncoding(enc text_encoding.Encoding) Option {
	return func(o *options) {
		o.encoding = enc
	}
}

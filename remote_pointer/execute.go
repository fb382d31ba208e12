package remote_pointer

import (
	"context"

	"remotemem/future"
	"remotemem/process"
)

// Execute calls the code at the pointer's base address with the platform's
// default calling convention and blocks until it returns.
func Execute[T process.Scalar](ctx context.Context, p RemotePointer, args ...process.Argument) (T, error) {
	return ExecuteWith[T](ctx, p, process.CallingConventionDefault, args...)
}

// ExecuteWith is Execute with an explicit calling convention.
func ExecuteWith[T process.Scalar](ctx context.Context, p RemotePointer, cc process.CallingConvention, args ...process.Argument) (T, error) {
	var zero T
	proc, err := p.open()
	if err != nil {
		return zero, err
	}
	r, err := proc.Executor().Execute(ctx, p.base, cc, args)
	if err != nil {
		return zero, err
	}
	return process.DecodeResult[T](r), nil
}

// ExecuteAsync starts the call and returns immediately. The future resolves to
// what Execute would have returned. Concurrent calls are not ordered.
func ExecuteAsync[T process.Scalar](ctx context.Context, p RemotePointer, args ...process.Argument) *future.Future[T] {
	return ExecuteAsyncWith[T](ctx, p, process.CallingConventionDefault, args...)
}

func ExecuteAsyncWith[T process.Scalar](ctx context.Context, p RemotePointer, cc process.CallingConvention, args ...process.Argument) *future.Future[T] {
	proc, err := p.open()
	if err != nil {
		var zero T
		return future.Resolved(zero, err)
	}
	f := proc.Executor().ExecuteAsync(ctx, p.base, cc, args)
	return future.Then(f, func(r process.Result) (T, error) {
		return process.DecodeResult[T](r), nil
	})
}

// Call executes the code at the base address and returns the raw
// address-sized result.
func (p RemotePointer) Call(ctx context.Context, args ...process.Argument) (process.ProcessMemoryAddress, error) {
	return p.CallWith(ctx, process.CallingConventionDefault, args...)
}

func (p RemotePointer) CallWith(ctx context.Context, cc process.CallingConvention, args ...process.Argument) (process.ProcessMemoryAddress, error) {
	proc, err := p.open()
	if err != nil {
		return 0, err
	}
	r, err := proc.Executor().Execute(ctx, p.base, cc, args)
	if err != nil {
		return 0, err
	}
	return r.Address(), nil
}

func (p RemotePointer) CallAsync(ctx context.Context, args ...process.Argument) *future.Future[process.ProcessMemoryAddress] {
	return p.CallAsyncWith(ctx, process.CallingConventionDefault, args...)
}

func (p RemotePointer) CallAsyncWith(ctx context.Context, cc process.CallingConvention, args ...process.Argument) *future.Future[process.ProcessMemoryAddress] {
	proc, err := p.open()
	if err != nil {
		return future.Resolved[process.ProcessMemoryAddress](0, err)
	}
	f := proc.Executor().ExecuteAsync(ctx, p.base, cc, args)
	return future.Then(f, func(r process.Result) (process.ProcessMemoryAddress, error) {
		return r.Address(), nil
	})
}

//go:build linux

package process_linux

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sys/unix"

	"remotemem/process"
)

// tracer owns every ptrace request made against one process. The kernel ties
// a tracee to the thread that attached, so all requests run on a single
// goroutine locked to its OS thread.
type tracer struct {
	pid      int
	log      *logger.Logger
	requests chan func()
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newTracer(pid int, queue int, log *logger.Logger) *tracer {
	t := &tracer{
		pid:      pid,
		log:      log,
		requests: make(chan func(), queue),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go t.loop()
	return t
}

func (t *tracer) loop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(t.done)

	for {
		select {
		case req := <-t.requests:
			req()
		case <-t.quit:
			return
		}
	}
}

func (t *tracer) stop() {
	t.stopOnce.Do(func() {
		close(t.quit)
	})
	<-t.done
}

// do runs fn on the tracer thread. ctx bounds only the wait for the tracer;
// once fn starts it runs to completion.
func (t *tracer) do(ctx context.Context, fn func() error) error {
	errc := make(chan error, 1)
	req := func() { errc <- fn() }

	select {
	case t.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return process.ErrProcessNotOpen
	}

	select {
	case err := <-errc:
		return err
	case <-t.done:
		// the loop may have taken req just before quitting
		select {
		case err := <-errc:
			return err
		default:
			return process.ErrProcessNotOpen
		}
	}
}

// attach stops the main thread of the process and waits for the stop.
// Called on the tracer thread.
func (t *tracer) attach() error {
	if err := unix.PtraceAttach(t.pid); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return fmt.Errorf("ptrace attach %d: %w", t.pid, process.ErrProcessNotRunning)
		}
		return fmt.Errorf("ptrace attach %d: %w", t.pid, err)
	}

	for {
		ws, err := t.wait()
		if err != nil {
			return err
		}
		if ws.StopSignal() == unix.SIGSTOP {
			return nil
		}
		// a different signal arrived first; deliver it and keep waiting
		t.log.Debugln("attach: passing signal", ws.StopSignal())
		if err := unix.PtraceCont(t.pid, int(ws.StopSignal())); err != nil {
			return fmt.Errorf("ptrace cont %d: %w", t.pid, err)
		}
	}
}

func (t *tracer) detach() error {
	if err := unix.PtraceDetach(t.pid); err != nil {
		return fmt.Errorf("ptrace detach %d: %w", t.pid, err)
	}
	return nil
}

// wait returns the next stop of the tracee. Exit and death by signal are
// reported as process.ErrProcessNotRunning.
func (t *tracer) wait() (unix.WaitStatus, error) {
	var ws unix.WaitStatus
	for {
		_, err := unix.Wait4(t.pid, &ws, unix.WALL, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return ws, fmt.Errorf("wait4 %d: %w", t.pid, err)
		}
		break
	}

	switch {
	case ws.Exited():
		return ws, fmt.Errorf("%w: exited with status %d", process.ErrProcessNotRunning, ws.ExitStatus())
	case ws.Signaled():
		return ws, fmt.Errorf("%w: killed by %s", process.ErrProcessNotRunning, ws.Signal())
	}
	return ws, nil
}

// resumeUntil continues the tracee until it stops with one of the given
// signals. Other signals are delivered to the tracee. The final stop status
// is returned.
func (t *tracer) resumeUntil(want ...unix.Signal) (unix.WaitStatus, error) {
	sig := 0
	for {
		if err := unix.PtraceCont(t.pid, sig); err != nil {
			return 0, fmt.Errorf("ptrace cont %d: %w", t.pid, err)
		}

		ws, err := t.wait()
		if err != nil {
			return ws, err
		}

		stop := ws.StopSignal()
		for _, w := range want {
			if stop == w {
				return ws, nil
			}
		}

		t.log.Warn("tracee stopped by ", stop, " while running injected code, delivering it")
		sig = int(stop)
	}
}

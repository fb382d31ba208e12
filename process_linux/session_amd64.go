//go:build linux && amd64

package process_linux

import (
	"fmt"
	"unsafe"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"

	"remotemem/process"
)

// user_fpregs_struct from <sys/user.h>
type fpregs struct {
	Cwd      uint16
	Swd      uint16
	Ftw      uint16
	Fop      uint16
	Rip      uint64
	Rdp      uint64
	Mxcsr    uint32
	MxcrMask uint32
	StSpace  [32]uint32
	XmmSpace [64]uint32
	Padding  [24]uint32
}

func (f *fpregs) xmm(i int) uint64 {
	return uint64(f.XmmSpace[4*i]) | uint64(f.XmmSpace[4*i+1])<<32
}

func (f *fpregs) setXMM(i int, v uint64) {
	f.XmmSpace[4*i] = uint32(v)
	f.XmmSpace[4*i+1] = uint32(v >> 32)
	f.XmmSpace[4*i+2] = 0
	f.XmmSpace[4*i+3] = 0
}

func ptraceFPRegs(req int, pid int, f *fpregs) error {
	_, _, errno := unix.Syscall6(unix.SYS_PTRACE, uintptr(req), uintptr(pid), 0, uintptr(unsafe.Pointer(f)), 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// syscall; int3
var syscallTrap = []byte{0x0f, 0x05, 0xcc}

// session is one attach of the tracee with its registers saved. end restores
// them and detaches.
type session struct {
	t    *tracer
	regs unix.PtraceRegs
	fp   fpregs
}

func (t *tracer) begin() (*session, error) {
	if err := t.attach(); err != nil {
		return nil, err
	}

	s := &session{t: t}
	if err := unix.PtraceGetRegs(t.pid, &s.regs); err != nil {
		return nil, multierr.Append(fmt.Errorf("ptrace getregs: %w", err), t.detach())
	}
	if err := ptraceFPRegs(unix.PTRACE_GETFPREGS, t.pid, &s.fp); err != nil {
		return nil, multierr.Append(fmt.Errorf("ptrace getfpregs: %w", err), t.detach())
	}
	return s, nil
}

func (s *session) end() error {
	var err error
	if rerr := unix.PtraceSetRegs(s.t.pid, &s.regs); rerr != nil {
		err = multierr.Append(err, fmt.Errorf("restore registers: %w", rerr))
	}
	if rerr := ptraceFPRegs(unix.PTRACE_SETFPREGS, s.t.pid, &s.fp); rerr != nil {
		err = multierr.Append(err, fmt.Errorf("restore fp registers: %w", rerr))
	}
	return multierr.Append(err, s.t.detach())
}

// syscall makes the tracee execute system call nr by placing a syscall
// instruction at its current rip. The original code is put back before
// returning.
func (s *session) syscall(nr uint64, args ...uint64) (ret uint64, err error) {
	pid := s.t.pid
	rip := uintptr(s.regs.Rip)

	orig := make([]byte, 8)
	if _, err := unix.PtracePeekData(pid, rip, orig); err != nil {
		return 0, fmt.Errorf("ptrace peek %#x: %w", rip, err)
	}

	patched := append([]byte(nil), orig...)
	copy(patched, syscallTrap)
	if _, err := unix.PtracePokeData(pid, rip, patched); err != nil {
		return 0, fmt.Errorf("ptrace poke %#x: %w", rip, err)
	}
	defer func() {
		if _, perr := unix.PtracePokeData(pid, rip, orig); perr != nil {
			err = multierr.Append(err, fmt.Errorf("restore code at %#x: %w", rip, perr))
		}
	}()

	regs := s.regs
	regs.Orig_rax = ^uint64(0)
	regs.Rax = nr
	argRegs := []*uint64{&regs.Rdi, &regs.Rsi, &regs.Rdx, &regs.R10, &regs.R8, &regs.R9}
	for i, a := range args {
		*argRegs[i] = a
	}
	if err := unix.PtraceSetRegs(pid, &regs); err != nil {
		return 0, fmt.Errorf("ptrace setregs: %w", err)
	}

	if _, err := s.t.resumeUntil(unix.SIGTRAP); err != nil {
		return 0, err
	}

	var out unix.PtraceRegs
	if err := unix.PtraceGetRegs(pid, &out); err != nil {
		return 0, fmt.Errorf("ptrace getregs: %w", err)
	}

	if r := int64(out.Rax); r < 0 && r > -4096 {
		return 0, unix.Errno(-r)
	}
	return out.Rax, nil
}

func (s *session) mmap(size uint64) (uint64, error) {
	return s.syscall(unix.SYS_MMAP, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS, ^uint64(0), 0)
}

func (s *session) munmap(addr, size uint64) error {
	_, err := s.syscall(unix.SYS_MUNMAP, addr, size)
	return err
}

// call runs the function at addr with System V argument passing. The function
// returns to address 0, which faults and hands control back to the tracer.
func (s *session) call(addr process.ProcessMemoryAddress, cc process.CallingConvention, args []process.Argument) (result process.Result, err error) {
	if !supportedConvention(cc) {
		return result, fmt.Errorf("%w: %s on linux/amd64", process.ErrUnsupportedCallingConvention, cc)
	}

	pid := s.t.pid
	args = append([]process.Argument(nil), args...)

	for i, a := range args {
		if a.Kind != process.ArgumentAggregate {
			continue
		}
		if len(a.Data) == 0 {
			args[i] = process.Pointer(0)
			continue
		}

		_, size := pageAlign(0, uint64(len(a.Data)))
		mem, merr := s.mmap(size)
		if merr != nil {
			return result, fmt.Errorf("allocate argument %d: %w", i, merr)
		}
		defer func() {
			err = multierr.Append(err, s.munmap(mem, size))
		}()

		if _, werr := process_vm_writev(process.ProcessID(pid), a.Data, process.ProcessMemoryAddress(mem)); werr != nil {
			return result, fmt.Errorf("copy argument %d: %w", i, werr)
		}
		args[i] = process.Pointer(process.ProcessMemoryAddress(mem))
	}

	layout, err := layoutCall(args)
	if err != nil {
		return result, err
	}

	regs := s.regs
	entry, image := stackFrame(regs.Rsp, layout.stack)
	if _, err := process_vm_writev(process.ProcessID(pid), image, process.ProcessMemoryAddress(entry)); err != nil {
		return result, fmt.Errorf("write call frame at %#x: %w", entry, err)
	}

	regs.Orig_rax = ^uint64(0)
	regs.Rip = uint64(addr)
	regs.Rsp = entry
	regs.Rax = uint64(len(layout.floats)) // vector register count for variadic callees
	intRegs := []*uint64{&regs.Rdi, &regs.Rsi, &regs.Rdx, &regs.Rcx, &regs.R8, &regs.R9}
	for i, v := range layout.ints {
		*intRegs[i] = v
	}

	fp := s.fp
	for i, v := range layout.floats {
		fp.setXMM(i, v)
	}
	if err := ptraceFPRegs(unix.PTRACE_SETFPREGS, pid, &fp); err != nil {
		return result, fmt.Errorf("ptrace setfpregs: %w", err)
	}
	if err := unix.PtraceSetRegs(pid, &regs); err != nil {
		return result, fmt.Errorf("ptrace setregs: %w", err)
	}

	s.t.log.Debugln("call", addr, "args", args, "rsp", fmt.Sprintf("%#x", entry))

	if _, err := s.t.resumeUntil(unix.SIGSEGV, unix.SIGBUS, unix.SIGILL, unix.SIGTRAP); err != nil {
		return result, err
	}

	var out unix.PtraceRegs
	if err := unix.PtraceGetRegs(pid, &out); err != nil {
		return result, fmt.Errorf("ptrace getregs: %w", err)
	}
	if out.Rip != 0 {
		return result, fmt.Errorf("%w: code at %s faulted at rip %#x", process.ErrExecutionFailed, addr, out.Rip)
	}

	var outFP fpregs
	if err := ptraceFPRegs(unix.PTRACE_GETFPREGS, pid, &outFP); err != nil {
		return result, fmt.Errorf("ptrace getfpregs: %w", err)
	}

	return process.Result{Integer: out.Rax, Float: outFP.xmm(0)}, nil
}

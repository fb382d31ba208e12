package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/urfave/cli"

	"remotemem/process"
	"remotemem/process_blob"
	"remotemem/remote_pointer"
)

const (
	exactArgs = iota
	minArgs
)

func checkArgs(c *cli.Context, expected, checkType int) error {
	var err error
	cmdName := c.Command.Name
	switch checkType {
	case exactArgs:
		if c.NArg() != expected {
			err = fmt.Errorf("%s: %q requires exactly %d argument(s)", os.Args[0], cmdName, expected)
		}
	case minArgs:
		if c.NArg() < expected {
			err = fmt.Errorf("%s: %q requires a minimum of %d argument(s)", os.Args[0], cmdName, expected)
		}
	}

	if err != nil {
		fmt.Printf("Incorrect Usage.\n\n")
		_ = cli.ShowCommandHelp(c, cmdName)
	}
	return err
}

// openTarget opens the process named by the global flags. A dump opened with
// --from is not running, so only memory reads and writes work on it.
func openTarget(c *cli.Context) (process.Process, error) {
	if from := c.GlobalString("from"); from != "" {
		m, err := process_blob.Load(from)
		if err != nil {
			return nil, err
		}
		return m, nil
	}

	pid, name := c.GlobalInt("pid"), c.GlobalString("name")
	if pid == 0 && name == "" {
		return nil, fmt.Errorf("one of --pid, --name or --from is required")
	}
	return openProcess(pid, name)
}

// withPointer opens the target and runs fn with a pointer to the address in
// the first argument.
func withPointer(c *cli.Context, fn func(p remote_pointer.RemotePointer) error) error {
	addr, err := parseAddress(c.Args().First())
	if err != nil {
		return err
	}

	proc, err := openTarget(c)
	if err != nil {
		return err
	}
	defer proc.Close()

	return fn(remote_pointer.New(proc, addr))
}

func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func parseAddress(s string) (process.ProcessMemoryAddress, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return process.ProcessMemoryAddress(v), nil
}

func parseOffset(s string) (remote_pointer.Offset, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid offset %q: %w", s, err)
	}
	return remote_pointer.Offset(v), nil
}

func parseOffsets(args []string) ([]remote_pointer.Offset, error) {
	offsets := make([]remote_pointer.Offset, 0, len(args))
	for _, s := range args {
		off, err := parseOffset(s)
		if err != nil {
			return nil, err
		}
		offsets = append(offsets, off)
	}
	return offsets, nil
}

func parseConvention(name string) (process.CallingConvention, error) {
	if name == "" {
		return process.CallingConventionDefault, nil
	}
	for cc := process.CallingConventionDefault; cc <= process.CallingConventionWin64; cc++ {
		if cc.String() == name {
			return cc, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", process.ErrUnsupportedCallingConvention, name)
}

// parseArgument reads one call argument. Plain numbers are 64-bit integers,
// numbers with a '.' are float64, and the prefixes f32:, p: and s: select a
// float32, a pointer or a NUL terminated string passed by reference.
func parseArgument(s string) (process.Argument, error) {
	switch {
	case strings.HasPrefix(s, "s:"):
		return process.Aggregate(append([]byte(s[2:]), 0)), nil
	case strings.HasPrefix(s, "p:"):
		addr, err := parseAddress(s[2:])
		if err != nil {
			return process.Argument{}, err
		}
		return process.Pointer(addr), nil
	case strings.HasPrefix(s, "f32:"):
		v, err := strconv.ParseFloat(s[4:], 32)
		if err != nil {
			return process.Argument{}, fmt.Errorf("invalid float32 %q: %w", s, err)
		}
		return process.Float32(float32(v)), nil
	case strings.Contains(s, "."):
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return process.Argument{}, fmt.Errorf("invalid float64 %q: %w", s, err)
		}
		return process.Float64(v), nil
	}

	if v, err := strconv.ParseInt(s, 0, 64); err == nil {
		return process.Int64(v), nil
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return process.Argument{}, fmt.Errorf("invalid integer %q: %w", s, err)
	}
	return process.Uint64(v), nil
}

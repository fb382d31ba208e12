//go:build linux

package process_linux

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"golang.org/x/sys/unix"

	"remotemem/process"
)

var ErrNoMatch = errors.New("no process matches")

// Match is a live process whose name matched a lookup.
type Match struct {
	PID       process.ProcessID
	Comm      string
	Exe       string // empty when /proc/<pid>/exe is unreadable
	StartTime uint64
}

func (m *Match) matches(name string) bool {
	return m.Comm == name || (m.Exe != "" && filepath.Base(m.Exe) == name)
}

// ListByName returns every live process whose comm or executable basename is
// name, ordered by PID. The calling process is never listed.
func ListByName(name string) ([]*Match, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrNoMatch)
	}

	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, fmt.Errorf("read /proc: %w", err)
	}

	self := os.Getpid()
	var out []*Match

	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil || !e.IsDir() || pid == self {
			continue
		}

		st, err := readStat(pid)
		if err != nil || !st.State.IsAlive() {
			continue // gone since ReadDir, or a zombie
		}

		m := &Match{PID: process.ProcessID(pid), Comm: st.Comm, StartTime: st.StartTime}
		m.Exe, _ = os.Readlink(filepath.Join("/proc", e.Name(), "exe"))
		if m.matches(name) {
			out = append(out, m)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out, nil
}

// OneByName returns the lowest-PID match for name.
func OneByName(name string) (*Match, error) {
	ms, err := ListByName(name)
	if err != nil {
		return nil, err
	}
	if len(ms) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoMatch, name)
	}
	return ms[0], nil
}

// procExists reports whether pid names a process we can see, falling back to
// signal 0 when /proc is not conclusive.
func procExists(pid int) bool {
	if pid <= 0 {
		return false
	}
	if _, err := os.Stat(filepath.Join("/proc", strconv.Itoa(pid))); err == nil {
		return true
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// SPDX-FileCopyrightText: 2023 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

// Package mockup provides a simulated GPIO chip, using the Linux gpio-mockup
// kernel module, standing in for the board header when testing the register
// select and bit bashed bus lines.
//
// Loading the module requires root and a kernel with gpio-mockup available.
package mockup

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"sync"

	"golang.org/x/sys/unix"
)

const dbgfsRoot = "/sys/kernel/debug/gpio-mockup/"

// Chip is a simulated GPIO chip.
type Chip struct {
	Name      string
	Label     string
	Lines     int
	DevPath   string
	DbgfsPath string

	mu     sync.Mutex
	closed bool
}

// New loads the gpio-mockup module with a single chip with the given number
// of lines.
//
// Any existing gpio-mockup setup is removed, so only one Chip may exist on a
// system at any time.
func New(lines int) (*Chip, error) {
	if lines <= 0 {
		return nil, unix.EINVAL
	}
	if err := IsSupported(); err != nil {
		return nil, err
	}
	exec.Command("rmmod", "gpio-mockup").Run()

	um, err := newUdevMonitor()
	if err != nil {
		return nil, fmt.Errorf("failed to start udev monitor: %w", err)
	}
	defer um.Close()

	cmd := exec.Command("modprobe", "gpio-mockup",
		fmt.Sprintf("gpio_mockup_ranges=-1,%d", lines))
	if err = cmd.Run(); err != nil {
		return nil, fmt.Errorf("failed to load gpio-mockup: %w", err)
	}
	if err = unix.Access(dbgfsRoot, unix.R_OK|unix.W_OK); err != nil {
		exec.Command("rmmod", "gpio-mockup").Run()
		return nil, err
	}
	c, err := um.chip(lines)
	if err != nil {
		exec.Command("rmmod", "gpio-mockup").Run()
		return nil, err
	}
	return c, nil
}

// Close unloads the gpio-mockup module, removing the chip.
func (c *Chip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return exec.Command("rmmod", "gpio-mockup").Run()
}

// Level returns the level of the line, as driven by an output request or
// pulled by the simulator.
func (c *Chip) Level(offset int) (int, error) {
	if offset < 0 || offset >= c.Lines {
		return 0, ErrorIndexRange{offset, c.Lines}
	}
	v, err := os.ReadFile(c.DbgfsPath + strconv.Itoa(offset))
	if err != nil {
		return 0, err
	}
	if len(v) > 0 && v[0] == '1' {
		return 1, nil
	}
	return 0, nil
}

// Pull sets the simulated external pull on the line.
//
// The pull determines the level read from a line requested as an input.
func (c *Chip) Pull(offset int, high bool) error {
	if offset < 0 || offset >= c.Lines {
		return ErrorIndexRange{offset, c.Lines}
	}
	f, err := os.OpenFile(c.DbgfsPath+strconv.Itoa(offset), os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	v := []byte{'0'}
	if high {
		v[0] = '1'
	}
	_, err = f.Write(v)
	return err
}

// IsSupported returns an error if the running kernel cannot host the
// simulator.
func IsSupported() error {
	if os.Geteuid() != 0 {
		return ErrPermission
	}
	return CheckKernelVersion(Version{5, 10, 0})
}

// KernelVersion returns the running kernel version.
func KernelVersion() (Version, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return nil, err
	}
	release := unix.ByteSliceToString(uts.Release[:])
	vers := versionRegexp.FindStringSubmatch(release)
	if len(vers) != 4 {
		return nil, fmt.Errorf("can't parse kernel release: %s", release)
	}
	v := Version{0, 0, 0}
	for i, vf := range vers[1:] {
		n, err := strconv.ParseUint(vf, 10, 8)
		if err != nil {
			return nil, err
		}
		v[i] = byte(n)
	}
	return v, nil
}

var versionRegexp = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)`)

// CheckKernelVersion returns an error if the kernel version is less than min.
func CheckKernelVersion(min Version) error {
	kv, err := KernelVersion()
	if err != nil {
		return err
	}
	if bytes.Compare(kv, min) < 0 {
		return ErrorBadVersion{Need: min, Have: kv}
	}
	return nil
}

// Version is a kernel version, Major, Minor, Patch.
type Version []byte

func (v Version) String() string {
	if len(v) == 0 {
		return ""
	}
	vstr := strconv.Itoa(int(v[0]))
	for _, f := range v[1:] {
		vstr += "." + strconv.Itoa(int(f))
	}
	return vstr
}

// ErrPermission indicates the simulator cannot be loaded by a non-root user.
var ErrPermission = fmt.Errorf("gpio-mockup requires root: %w", os.ErrPermission)

// ErrorIndexRange indicates the requested line is not on the chip.
type ErrorIndexRange struct {
	Req   int
	Limit int
}

func (e ErrorIndexRange) Error() string {
	return fmt.Sprintf("line %d out of range, chip has %d lines", e.Req, e.Limit)
}

// ErrorBadVersion indicates the kernel version is insufficient.
type ErrorBadVersion struct {
	Need Version
	Have Version
}

func (e ErrorBadVersion) Error() string {
	return fmt.Sprintf("require kernel %s or later, but running %s", e.Need, e.Have)
}

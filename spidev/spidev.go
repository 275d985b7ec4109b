// SPDX-FileCopyrightText: 2023 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

// Package spidev provides access to SPI peripherals through the Linux spidev
// character devices, e.g. /dev/spidev0.1.
//
// Each Device is a single chip select on a bus, opened with a fixed SPI mode,
// word size and clock speed. Exchanges are full duplex and synchronous.
package spidev

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Device is an open spidev character device.
type Device struct {
	mu    sync.Mutex
	f     *os.File
	name  string
	mode  uint8
	bits  uint8
	speed uint32
}

// DefaultSpeed is the clock rate used unless overridden by WithSpeed.
const DefaultSpeed = 3932160

// Open opens the named spidev device and configures it for the given mode.
//
// The name may be a full path or the device name, e.g. "spidev0.1".
func Open(name string, mode uint8, options ...Option) (*Device, error) {
	d := Device{
		name:  nameToPath(name),
		mode:  mode,
		bits:  8,
		speed: DefaultSpeed,
	}
	for _, option := range options {
		option(&d)
	}
	f, err := os.OpenFile(d.name, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	fd := f.Fd()
	if err = setU8(fd, wrModeIoctl, d.mode); err != nil {
		f.Close()
		return nil, fmt.Errorf("setting write mode: %w", err)
	}
	if err = getU8(fd, rdModeIoctl, &d.mode); err != nil {
		f.Close()
		return nil, fmt.Errorf("setting read mode: %w", err)
	}
	if err = setU8(fd, wrBitsIoctl, d.bits); err != nil {
		f.Close()
		return nil, fmt.Errorf("setting write bits: %w", err)
	}
	if err = getU8(fd, rdBitsIoctl, &d.bits); err != nil {
		f.Close()
		return nil, fmt.Errorf("setting read bits: %w", err)
	}
	if err = setU32(fd, wrSpeedIoctl, d.speed); err != nil {
		f.Close()
		return nil, fmt.Errorf("setting write speed: %w", err)
	}
	if err = getU32(fd, rdSpeedIoctl, &d.speed); err != nil {
		f.Close()
		return nil, fmt.Errorf("setting read speed: %w", err)
	}
	d.f = f
	return &d, nil
}

// Close releases the device.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return ErrClosed
	}
	err := d.f.Close()
	d.f = nil
	return err
}

// Name returns the path of the device.
func (d *Device) Name() string {
	return d.name
}

// Mode returns the SPI mode the device was configured with.
func (d *Device) Mode() uint8 {
	return d.mode
}

// Speed returns the clock rate the device was configured with.
func (d *Device) Speed() uint32 {
	return d.speed
}

// Tx performs a single full duplex exchange.
//
// The w and r buffers must be the same length, as every byte written clocks
// in a byte read. A nil r discards the read bytes.
func (d *Device) Tx(w, r []byte) error {
	if len(w) == 0 {
		return nil
	}
	if r == nil {
		r = make([]byte, len(w))
	}
	if len(r) != len(w) {
		return ErrLength
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return ErrClosed
	}
	tr := transfer{
		txBuf:       uint64(uintptr(unsafe.Pointer(&w[0]))),
		rxBuf:       uint64(uintptr(unsafe.Pointer(&r[0]))),
		length:      uint32(len(w)),
		speedHz:     d.speed,
		bitsPerWord: d.bits,
	}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL,
		d.f.Fd(),
		uintptr(messageIoctl),
		uintptr(unsafe.Pointer(&tr)))
	runtime.KeepAlive(w)
	runtime.KeepAlive(r)
	if errno != 0 {
		return errno
	}
	return nil
}

// Transfer exchanges a single byte.
func (d *Device) Transfer(b byte) (byte, error) {
	var r [1]byte
	err := d.Tx([]byte{b}, r[:])
	return r[0], err
}

// Option modifies the configuration applied when a Device is opened.
type Option func(*Device)

// WithSpeed sets the maximum clock rate, in Hz.
func WithSpeed(hz uint32) Option {
	return func(d *Device) {
		d.speed = hz
	}
}

// WithBitsPerWord sets the word size.
func WithBitsPerWord(bits uint8) Option {
	return func(d *Device) {
		d.bits = bits
	}
}

var (
	// ErrClosed indicates the device is closed.
	ErrClosed = errors.New("device closed")

	// ErrLength indicates the read and write buffers differ in length.
	ErrLength = errors.New("read and write buffers differ in length")
)

// transfer mirrors struct spi_ioc_transfer.
type transfer struct {
	txBuf          uint64
	rxBuf          uint64
	length         uint32
	speedHz        uint32
	delayUsecs     uint16
	bitsPerWord    uint8
	csChange       uint8
	txNbits        uint8
	rxNbits        uint8
	wordDelayUsecs uint8
	pad            uint8
}

const spiMagic = 'k'

var (
	messageIoctl ioctl
	rdModeIoctl  ioctl
	wrModeIoctl  ioctl
	rdBitsIoctl  ioctl
	wrBitsIoctl  ioctl
	rdSpeedIoctl ioctl
	wrSpeedIoctl ioctl
)

func init() {
	var tr transfer
	messageIoctl = iow(spiMagic, 0, unsafe.Sizeof(tr))
	var u8 uint8
	rdModeIoctl = ior(spiMagic, 1, unsafe.Sizeof(u8))
	wrModeIoctl = iow(spiMagic, 1, unsafe.Sizeof(u8))
	rdBitsIoctl = ior(spiMagic, 3, unsafe.Sizeof(u8))
	wrBitsIoctl = iow(spiMagic, 3, unsafe.Sizeof(u8))
	var u32 uint32
	rdSpeedIoctl = ior(spiMagic, 4, unsafe.Sizeof(u32))
	wrSpeedIoctl = iow(spiMagic, 4, unsafe.Sizeof(u32))
}

func setU8(fd uintptr, op ioctl, v uint8) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL,
		fd,
		uintptr(op),
		uintptr(unsafe.Pointer(&v)))
	if errno != 0 {
		return errno
	}
	return nil
}

func getU8(fd uintptr, op ioctl, v *uint8) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL,
		fd,
		uintptr(op),
		uintptr(unsafe.Pointer(v)))
	if errno != 0 {
		return errno
	}
	return nil
}

func setU32(fd uintptr, op ioctl, v uint32) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL,
		fd,
		uintptr(op),
		uintptr(unsafe.Pointer(&v)))
	if errno != 0 {
		return errno
	}
	return nil
}

func getU32(fd uintptr, op ioctl, v *uint32) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL,
		fd,
		uintptr(op),
		uintptr(unsafe.Pointer(v)))
	if errno != 0 {
		return errno
	}
	return nil
}

func nameToPath(name string) string {
	if strings.HasPrefix(name, "/dev/") {
		return name
	}
	return "/dev/" + name
}

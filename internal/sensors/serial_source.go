// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	serial "github.com/jacobsa/go-serial/serial"
)

const (
	DefaultSerialPort   = "/dev/ttyUSB0"
	DefaultBaudRate     = 115200
	DefaultPollInterval = 100 * time.Millisecond
)

// SerialSource reads firmware log lines from the microcontroller's UART.
type SerialSource struct {
	name  string
	port  io.ReadWriteCloser
	lines *lineReader

	closeOnce sync.Once
	closeErr  error
}

// OpenSerial opens portName 8N1. Reads return after pollInterval (rounded up
// to the driver's 100ms resolution) even when no byte arrived.
func OpenSerial(portName string, baudRate int, pollInterval time.Duration) (*SerialSource, error) {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	deciseconds := (pollInterval + 99*time.Millisecond) / (100 * time.Millisecond)

	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       0,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: uint(deciseconds * 100),
	}

	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", portName, err)
	}

	return &SerialSource{
		name:  portName,
		port:  port,
		lines: newLineReader(port, deciseconds*100*time.Millisecond),
	}, nil
}

// ReadLine returns the next line, ErrNoData after an idle poll interval, or an
// ErrSourceClosed-wrapped error if the port failed.
func (s *SerialSource) ReadLine(ctx context.Context) (string, error) {
	return s.lines.next(ctx)
}

// Name returns the port path.
func (s *SerialSource) Name() string {
	return s.name
}

// Close releases the port. It is safe to call more than once.
func (s *SerialSource) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.port.Close()
	})
	return s.closeErr
}

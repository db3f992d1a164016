// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const (
	maxLineLength = 4096

	// hungUpReads is how many consecutive empty reads returning well before
	// the poll interval mark a port whose device has gone away.
	hungUpReads = 20
)

var (
	// ErrNoData means the poll interval elapsed without a complete line.
	ErrNoData = errors.New("no telemetry within poll interval")

	// ErrSourceClosed means the underlying stream failed (e.g. the serial
	// adapter was unplugged). It is fatal to the control loop.
	ErrSourceClosed = errors.New("telemetry source closed")
)

// LineSource yields telemetry lines one at a time. ReadLine returns ErrNoData
// when nothing arrived within its poll interval, io.EOF when a finite stream
// is exhausted, and an ErrSourceClosed-wrapped error on failure.
type LineSource interface {
	ReadLine(ctx context.Context) (string, error)
	Close() error
}

// lineReader splits a byte stream into lines without blocking longer than a
// single Read of the underlying reader.
//
// With a zero idleWait, io.EOF ends the stream. Otherwise the reader is a
// serial port whose timed reads report an empty poll as io.EOF; such a read
// that returns in under half of idleWait did not wait at all.
type lineReader struct {
	r        io.Reader
	buf      []byte
	pending  []byte
	idleWait time.Duration
	fastEOFs int
}

func newLineReader(r io.Reader, idleWait time.Duration) *lineReader {
	return &lineReader{r: r, buf: make([]byte, 256), idleWait: idleWait}
}

func (l *lineReader) next(ctx context.Context) (string, error) {
	for {
		if i := bytes.IndexByte(l.pending, '\n'); i >= 0 {
			line := string(l.pending[:i])
			l.pending = append(l.pending[:0], l.pending[i+1:]...)
			return strings.TrimRight(line, "\r"), nil
		}
		if len(l.pending) > maxLineLength {
			line := string(l.pending)
			l.pending = l.pending[:0]
			return line, nil
		}

		if err := ctx.Err(); err != nil {
			return "", err
		}

		start := time.Now()
		n, err := l.r.Read(l.buf)
		l.pending = append(l.pending, l.buf[:n]...)

		if n > 0 {
			l.fastEOFs = 0
		}

		switch {
		case err == nil && n == 0:
			return "", ErrNoData
		case err == nil:
			continue
		case errors.Is(err, io.EOF) && l.idleWait > 0:
			if n > 0 {
				continue
			}
			if time.Since(start) >= l.idleWait/2 {
				l.fastEOFs = 0
				return "", ErrNoData
			}
			l.fastEOFs++
			if l.fastEOFs >= hungUpReads {
				return "", fmt.Errorf("%w: port reports end of file without waiting", ErrSourceClosed)
			}
			return "", ErrNoData
		case errors.Is(err, io.EOF):
			if len(l.pending) > 0 {
				line := string(l.pending)
				l.pending = l.pending[:0]
				return strings.TrimRight(line, "\r"), nil
			}
			return "", io.EOF
		default:
			return "", fmt.Errorf("%w: %w", ErrSourceClosed, err)
		}
	}
}

// ReplaySource reads telemetry previously captured to a file, or any other
// finite stream.
type ReplaySource struct {
	lines  *lineReader
	closer io.Closer
}

// NewReplaySource reads lines from r. If r is an io.Closer it is closed by Close.
func NewReplaySource(r io.Reader) *ReplaySource {
	s := &ReplaySource{lines: newLineReader(r, 0)}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// OpenReplay opens a capture file.
func OpenReplay(path string) (*ReplaySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening replay file: %w", err)
	}
	return NewReplaySource(f), nil
}

func (s *ReplaySource) ReadLine(ctx context.Context) (string, error) {
	return s.lines.next(ctx)
}

func (s *ReplaySource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

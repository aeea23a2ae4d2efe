// Package logger provides line-capped log files.
package logger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LogRotator is a log file that never grows much beyond maxLines lines.
// Once twice the cap has been written, the file is rewritten with only the
// most recent maxLines lines.
type LogRotator struct {
	file   *os.File
	buffer *RingBuffer
	path   string
	mu     sync.Mutex
}

// NewLogRotator opens path for appending and caps it at maxLines.
func NewLogRotator(path string, maxLines int) (*LogRotator, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cannot open log file %s: %w", path, err)
	}

	return &LogRotator{
		file:   file,
		buffer: NewRingBuffer(maxLines),
		path:   path,
	}, nil
}

// Write implements io.Writer.
func (w *LogRotator) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	if err != nil {
		return n, err
	}

	for line := range strings.SplitSeq(strings.TrimRight(string(p), "\n"), "\n") {
		if line != "" {
			w.buffer.Add(line)
		}
	}

	if w.buffer.totalSeen >= w.buffer.capacity*2 {
		if err := w.rotate(); err != nil {
			return n, fmt.Errorf("failed to rotate log file: %w", err)
		}
		w.buffer.totalSeen = w.buffer.size
	}

	return n, nil
}

// Sync flushes the file to disk.
func (w *LogRotator) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Sync()
}

// Close closes the underlying file.
func (w *LogRotator) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// rotate replaces the file with the buffered lines.
func (w *LogRotator) rotate() error {
	lines := w.buffer.Lines()
	if len(lines) == 0 {
		return nil
	}

	temp, err := os.CreateTemp(filepath.Dir(w.path), "temp-log-")
	if err != nil {
		return err
	}
	tempPath := temp.Name()

	_, err = temp.WriteString(strings.Join(lines, "\n") + "\n")
	if err == nil {
		err = temp.Sync()
	}
	if closeErr := temp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tempPath)
		return err
	}

	_ = w.file.Close()

	// Windows refuses to rename over an existing file
	_ = os.Remove(w.path)

	if err := os.Rename(tempPath, w.path); err != nil {
		return errors.Join(err, w.reopen())
	}

	return w.reopen()
}

func (w *LogRotator) reopen() error {
	file, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w.file = file
	return nil
}

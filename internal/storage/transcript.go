package storage

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

const transcriptFile = "transcript.jsonl"

var (
	ErrWriterClosed = errors.New("transcript writer is closed")
	ErrBufferFull   = errors.New("transcript buffer full")
)

// TranscriptWriter appends committed records as JSON lines to
// <baseDir>/<YYYY-MM-DD>/transcript.jsonl. Writes are queued and never block.
type TranscriptWriter struct {
	baseDir   string
	maxSizeMB int

	writeCh chan any
	done    chan struct{}
	wg      sync.WaitGroup

	mu          sync.Mutex
	closed      bool
	currentDate string
	logger      *lumberjack.Logger
	now         func() time.Time
}

// NewTranscriptWriter starts a writer with room for bufferSize queued records.
func NewTranscriptWriter(baseDir string, bufferSize, maxSizeMB int) *TranscriptWriter {
	if bufferSize < 1 {
		bufferSize = 1024
	}
	w := &TranscriptWriter{
		baseDir:   baseDir,
		maxSizeMB: maxSizeMB,
		writeCh:   make(chan any, bufferSize),
		done:      make(chan struct{}),
		now:       time.Now,
	}

	w.wg.Add(1)
	go w.writeLoop()

	return w
}

// Write queues a record. A full buffer drops the record.
func (w *TranscriptWriter) Write(record any) error {
	select {
	case <-w.done:
		return ErrWriterClosed
	default:
	}
	select {
	case w.writeCh <- record:
		return nil
	default:
		slog.Warn("transcript buffer full, dropping record", "dir", w.baseDir)
		return ErrBufferFull
	}
}

// Close flushes queued records and closes the current file.
func (w *TranscriptWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.done)
	w.wg.Wait()

	// Drain what was queued before done closed.
	for {
		select {
		case record := <-w.writeCh:
			w.writeRecord(record)
		default:
			w.mu.Lock()
			defer w.mu.Unlock()
			if w.logger != nil {
				return w.logger.Close()
			}
			return nil
		}
	}
}

func (w *TranscriptWriter) writeLoop() {
	defer w.wg.Done()

	for {
		select {
		case record := <-w.writeCh:
			w.writeRecord(record)
		case <-w.done:
			return
		}
	}
}

func (w *TranscriptWriter) writeRecord(record any) {
	data, err := json.Marshal(record)
	if err != nil {
		slog.Error("failed to marshal transcript record", "error", err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	date := w.now().UTC().Format("2006-01-02")
	if w.logger == nil || date != w.currentDate {
		if err := w.rotateForDate(date); err != nil {
			slog.Error("failed to open transcript file", "error", err, "date", date)
			return
		}
	}

	if _, err := w.logger.Write(append(data, '\n')); err != nil {
		slog.Error("failed to write transcript record", "error", err)
	}
}

func (w *TranscriptWriter) rotateForDate(date string) error {
	if w.logger != nil {
		_ = w.logger.Close()
		w.logger = nil
	}

	dir := filepath.Join(w.baseDir, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	filename := filepath.Join(dir, transcriptFile)
	w.logger = &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    w.maxSizeMB,
		MaxBackups: 100,
		MaxAge:     30,
		LocalTime:  false,
	}
	w.currentDate = date
	slog.Info("opened transcript file", "file", filename)
	return nil
}

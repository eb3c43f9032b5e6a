// Package agentlog is the category audit log: one plain text line per event,
// appended to a file per day.
package agentlog

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"

	"stock-agents/internal/interfaces"
	"stock-agents/internal/logger"
)

const (
	defaultCategory = "APP"
	filePrefix      = "llm-requests-"
	fileExt         = ".txt"
	timeLayout      = "2006-01-02 15:04:05.000"
)

// Writer appends "<time> [CATEGORY] message" lines to <dir>/llm-requests-<day>.txt.
// Write never fails the caller; the first I/O error is reported through slog.
type Writer struct {
	dir  string
	now  func() time.Time
	core zapcore.Core
	file *dailyFile

	warnOnce sync.Once
}

var _ interfaces.LogWriter = (*Writer)(nil)

type Option func(*Writer)

// WithClock overrides the clock used for line timestamps and file names.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) { w.now = now }
}

func New(dir string, opts ...Option) *Writer {
	w := &Writer{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(w)
	}
	w.file = &dailyFile{dir: dir, now: w.now}

	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "T",
		MessageKey:       "M",
		EncodeTime:       zapcore.TimeEncoderOfLayout(timeLayout),
		ConsoleSeparator: " ",
		LineEnding:       zapcore.DefaultLineEnding,
	})
	w.core = zapcore.NewCore(enc, zapcore.AddSync(w.file), zapcore.DebugLevel)
	return w
}

func (w *Writer) Write(category, message string) {
	category = strings.TrimSpace(category)
	if category == "" {
		category = defaultCategory
	}
	entry := zapcore.Entry{
		Level:   zapcore.InfoLevel,
		Time:    w.now(),
		Message: "[" + category + "] " + message,
	}
	if err := w.core.Write(entry, nil); err != nil {
		w.warnOnce.Do(func() {
			logger.Warn(context.Background(), "Audit log write failed", "dir", w.dir, "error", err)
		})
	}
}

// Close releases the current day's file.
func (w *Writer) Close() error {
	return w.file.Close()
}

// Path returns the file a line written at t lands in.
func (w *Writer) Path(t time.Time) string {
	return dailyPath(w.dir, t)
}

func dailyPath(dir string, t time.Time) string {
	return filepath.Join(dir, filePrefix+t.Format("2006-01-02")+fileExt)
}

// dailyFile is a write target that switches files when the day changes.
type dailyFile struct {
	dir string
	now func() time.Time

	mu   sync.Mutex
	path string
	f    *os.File
}

func (d *dailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	path := dailyPath(d.dir, d.now())
	if d.f == nil || path != d.path {
		if d.f != nil {
			_ = d.f.Close()
			d.f = nil
		}
		if err := os.MkdirAll(d.dir, 0o755); err != nil {
			return 0, err
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return 0, err
		}
		d.f, d.path = f, path
	}
	return d.f.Write(p)
}

func (d *dailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}

// CompressOlder gzips audit files last modified more than retentionDays ago
// and removes the originals. Non-positive retention disables it.
func CompressOlder(dir string, retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != fileExt {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := gzipFile(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("compress %s: %w", e.Name(), err)
		}
	}
	return nil
}

func gzipFile(path string) error {
	gz := path + ".gz"
	if _, err := os.Stat(gz); err == nil {
		return os.Remove(path)
	}

	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(gz, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	_, copyErr := io.Copy(gw, in)
	closeErr := gw.Close()
	fileErr := out.Close()
	if err := firstErr(copyErr, closeErr, fileErr); err != nil {
		_ = os.Remove(gz)
		return err
	}
	return os.Remove(path)
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

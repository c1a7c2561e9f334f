package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"unicode/utf8"

	"travis-log-fetch/src/logger"
	"travis-log-fetch/src/logtemplate"
	"travis-log-fetch/src/provider"
)

// ErrDecode reports log text that is not valid UTF-8.
var ErrDecode = errors.New("log is not valid UTF-8")

// LogOpener opens the log text of a job.
type LogOpener func(ctx context.Context, jobID int64) (io.ReadCloser, error)

// Result describes one WriteJobLog call.
type Result struct {
	Path    string
	Bytes   int64
	Skipped bool
}

// Writer stores job logs under a root directory.
type Writer struct {
	root     string
	template *logtemplate.Template
	log      logger.Logger
	remove   func(name string) error
}

// NewWriter creates a writer for root.
func NewWriter(root string, template *logtemplate.Template, log logger.Logger) *Writer {
	return &Writer{root: root, template: template, log: log, remove: os.Remove}
}

// PathFor returns the file a job's log is stored in.
func (w *Writer) PathFor(job *provider.Job) string {
	rel := w.template.Format(logtemplate.Values{
		Slug:   job.Slug,
		Number: job.Number,
		State:  job.State,
	})
	return filepath.Join(w.root, filepath.FromSlash(rel))
}

// WriteJobLog stores the log of job. A file modified at or after the job
// finished is left alone. If the log is not valid UTF-8 the partial file is
// removed and an error wrapping ErrDecode is returned.
func (w *Writer) WriteJobLog(ctx context.Context, job *provider.Job, open LogOpener) (Result, error) {
	path := w.PathFor(job)
	result := Result{Path: path}

	if job.FinishedAt != nil {
		if info, err := os.Stat(path); err == nil && !info.ModTime().Before(*job.FinishedAt) {
			w.log.Debug("%s is up to date", path)
			result.Skipped = true
			return result, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return result, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	body, err := open(ctx, job.ID)
	if err != nil {
		return result, fmt.Errorf("failed to fetch log of job %d: %w", job.ID, err)
	}
	defer body.Close()

	f, err := os.Create(path)
	if err != nil {
		return result, fmt.Errorf("failed to create %s: %w", path, err)
	}

	uw := &utf8Writer{w: f}
	n, err := io.Copy(uw, body)
	if err == nil {
		err = uw.finish()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if errors.Is(err, ErrDecode) {
			w.log.Warn("%v while storing job %d into %s", err, job.ID, path)
		}
		if rmErr := w.remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			w.log.Error("partial log %s left on disk: %v", path, rmErr)
			err = errors.Join(err, fmt.Errorf("failed to remove partial file: %w", rmErr))
		}
		return result, fmt.Errorf("failed to write %s: %w", path, err)
	}

	result.Bytes = n
	w.log.Info("wrote %s with %d bytes", path, n)
	return result, nil
}

// utf8Writer passes bytes through while validating them as UTF-8. A rune
// split across two writes is carried over to the next one.
type utf8Writer struct {
	w       io.Writer
	pending []byte
}

func (u *utf8Writer) Write(p []byte) (int, error) {
	buf := append(u.pending, p...)

	// Hold back an incomplete rune at the end of the buffer.
	valid := len(buf)
	for i := len(buf) - 1; i >= 0 && i >= len(buf)-utf8.UTFMax; i-- {
		if utf8.RuneStart(buf[i]) {
			if !utf8.FullRune(buf[i:]) {
				valid = i
			}
			break
		}
	}

	if !utf8.Valid(buf[:valid]) {
		return 0, ErrDecode
	}
	if _, err := u.w.Write(buf[:valid]); err != nil {
		return 0, err
	}
	u.pending = append([]byte(nil), buf[valid:]...)
	return len(p), nil
}

// finish reports a rune left incomplete at the end of the stream.
func (u *utf8Writer) finish() error {
	if len(u.pending) > 0 {
		return ErrDecode
	}
	return nil
}

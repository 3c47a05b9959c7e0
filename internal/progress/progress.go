package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/Ning0612/prscatalog/internal/logger"
)

// Reporter receives events while files are copied onto a partition
type Reporter interface {
	// SetTotal announces how many files and bytes the copy will move
	SetTotal(totalFiles int, totalBytes int64)
	// Start begins tracking one file
	Start(path string, totalBytes int64)
	// Update reports bytes copied so far for the current file
	Update(bytesTransferred int64)
	// Complete marks the current file as copied
	Complete()
	// Error reports a failure on the current file
	Error(err error)
}

// Update is a snapshot handed to a Callback
type Update struct {
	Type           UpdateType
	CurrentFile    string
	CurrentBytes   int64
	CurrentTotal   int64
	FilesCompleted int
	FilesTotal     int
	BytesCompleted int64
	BytesTotal     int64
	Error          error
}

// UpdateType indicates the type of progress update
type UpdateType int

const (
	UpdateStart UpdateType = iota
	UpdateProgress
	UpdateComplete
	UpdateError
)

// Callback receives progress updates
type Callback func(update Update)

// CallbackReporter tracks totals and forwards every event to a callback
type CallbackReporter struct {
	callback Callback

	mu             sync.Mutex
	current        string
	currentTotal   int64
	filesTotal     int
	bytesTotal     int64
	filesCompleted int
	bytesCompleted int64
}

// NewCallbackReporter creates a new CallbackReporter
func NewCallbackReporter(callback Callback) *CallbackReporter {
	return &CallbackReporter{callback: callback}
}

// SetTotal sets the total number of files and bytes to copy
func (r *CallbackReporter) SetTotal(totalFiles int, totalBytes int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filesTotal = totalFiles
	r.bytesTotal = totalBytes
}

// Start begins tracking a new file
func (r *CallbackReporter) Start(path string, totalBytes int64) {
	r.emit(func() Update {
		r.current = path
		r.currentTotal = totalBytes
		return r.snapshot(UpdateStart, 0)
	})
}

// Update reports progress on the current file
func (r *CallbackReporter) Update(bytesTransferred int64) {
	r.emit(func() Update {
		u := r.snapshot(UpdateProgress, bytesTransferred)
		u.BytesCompleted += bytesTransferred
		return u
	})
}

// Complete marks the current file as done
func (r *CallbackReporter) Complete() {
	r.emit(func() Update {
		r.filesCompleted++
		r.bytesCompleted += r.currentTotal
		return r.snapshot(UpdateComplete, r.currentTotal)
	})
}

// Error reports an error on the current file
func (r *CallbackReporter) Error(err error) {
	r.emit(func() Update {
		u := r.snapshot(UpdateError, 0)
		u.Error = err
		return u
	})
}

// emit builds the update under the lock and calls back outside it
func (r *CallbackReporter) emit(build func() Update) {
	r.mu.Lock()
	update := build()
	callback := r.callback
	r.mu.Unlock()

	if callback != nil {
		callback(update)
	}
}

func (r *CallbackReporter) snapshot(t UpdateType, current int64) Update {
	return Update{
		Type:           t,
		CurrentFile:    r.current,
		CurrentBytes:   current,
		CurrentTotal:   r.currentTotal,
		FilesCompleted: r.filesCompleted,
		FilesTotal:     r.filesTotal,
		BytesCompleted: r.bytesCompleted,
		BytesTotal:     r.bytesTotal,
	}
}

// NewLogReporter logs one line per copied file
func NewLogReporter(log logger.Logger) *CallbackReporter {
	return NewCallbackReporter(func(u Update) {
		switch u.Type {
		case UpdateComplete:
			log.Info("copied",
				"path", u.CurrentFile,
				"size", FormatBytes(u.CurrentTotal),
				"file", fmt.Sprintf("%d/%d", u.FilesCompleted, u.FilesTotal),
			)
		case UpdateError:
			log.Error("copy failed", "path", u.CurrentFile, "error", u.Error)
		}
	})
}

// ProgressReader wraps an io.Reader to track read progress
type ProgressReader struct {
	reader      io.Reader
	reporter    Reporter
	transferred int64
}

// NewProgressReader creates a new progress-tracking reader
func NewProgressReader(r io.Reader, reporter Reporter) *ProgressReader {
	return &ProgressReader{reader: r, reporter: reporter}
}

// Read implements io.Reader
func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.transferred += int64(n)
		if pr.reporter != nil {
			pr.reporter.Update(pr.transferred)
		}
	}
	return n, err
}

// NullReporter is a no-op reporter
type NullReporter struct{}

func (NullReporter) SetTotal(totalFiles int, totalBytes int64) {}
func (NullReporter) Start(path string, totalBytes int64)       {}
func (NullReporter) Update(bytesTransferred int64)             {}
func (NullReporter) Complete()                                 {}
func (NullReporter) Error(err error)                           {}

// FormatBytes formats bytes into human-readable string
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

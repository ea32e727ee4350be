// Package uploadtypes provides shared type definitions for the upload module.
package uploadtypes

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Status is the lifecycle status of an upload task.
type Status string

// Task statuses. Queued is initial; Success, Error and Cancelled are terminal.
const (
	// StatusQueued means the task waits for a free slot
	StatusQueued Status = "queued"

	// StatusUploading means an attempt (or a backoff wait between attempts) is in progress
	StatusUploading Status = "uploading"

	// StatusSuccess means the transport reported an outcome
	StatusSuccess Status = "success"

	// StatusError means every attempt allowed by the retry budget failed
	StatusError Status = "error"

	// StatusCancelled means the task was cancelled by the caller
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether no further transition can leave s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusError, StatusCancelled:
		return true
	default:
		return false
	}
}

// Payload is a re-readable source of upload bytes.
// Open is called once per attempt, so implementations must be able to
// produce the full content more than once.
type Payload interface {
	// Name is the natural file name of the payload
	Name() string

	// Size is the payload size in bytes, or -1 if unknown
	Size() int64

	// ContentType is the MIME type of the payload
	ContentType() string

	// Open returns a fresh reader positioned at the start of the content
	Open() (io.ReadCloser, error)
}

// Intent describes what the caller wants uploaded.
// It is immutable for the lifetime of the task created from it.
type Intent struct {
	// File is the binary payload
	File Payload

	// Folder is the destination folder path
	Folder string

	// FileName overrides File.Name() when set
	FileName string

	// Metadata is free-form metadata forwarded to the backend
	Metadata map[string]string
}

// Name returns the explicit file name, falling back to the payload's name.
func (i *Intent) Name() string {
	if i == nil {
		return ""
	}
	if i.FileName != "" {
		return i.FileName
	}
	if i.File == nil {
		return ""
	}
	return i.File.Name()
}

// Outcome is the result of a successful upload attempt.
type Outcome struct {
	// URL is where the uploaded object can be fetched
	URL string `json:"url"`

	// Provider identifies the backend (e.g. "s3", "cloudinary")
	Provider string `json:"provider"`

	// Key is the backend-assigned object key, if any
	Key string `json:"key,omitempty"`
}

// State is the externally observable snapshot of a task.
type State struct {
	// ID is assigned once at task creation
	ID string `json:"id"`

	// Progress is a percentage in [0,100]; 100 only on success
	Progress int `json:"progress"`

	// Status is the lifecycle status
	Status Status `json:"status"`

	// Error is set only when Status is StatusError
	Error string `json:"error,omitempty"`

	// Response is set only when Status is StatusSuccess
	Response *Outcome `json:"response,omitempty"`
}

// Clone returns a deep copy of the snapshot.
func (s State) Clone() State {
	if s.Response != nil {
		resp := *s.Response
		s.Response = &resp
	}
	return s
}

// ProgressFunc receives upload progress as an integer percentage.
type ProgressFunc func(percent int)

// Transport performs a single upload attempt against one backend.
//
// The context is the cancellation token for the attempt: it is cancelled
// when the owning task is cancelled, and implementations must fail promptly
// once that happens. progress may be invoked zero or more times.
type Transport interface {
	Upload(ctx context.Context, intent *Intent, progress ProgressFunc) (*Outcome, error)
}

// TransportFunc adapts an ordinary function to the Transport interface.
type TransportFunc func(ctx context.Context, intent *Intent, progress ProgressFunc) (*Outcome, error)

// Upload calls f(ctx, intent, progress).
func (f TransportFunc) Upload(ctx context.Context, intent *Intent, progress ProgressFunc) (*Outcome, error) {
	return f(ctx, intent, progress)
}

// Configuration types for functional options

// TaskConfig holds the retry policy of a single task.
type TaskConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	Logger     *slog.Logger
}

// ManagerConfig holds configuration for the upload manager.
type ManagerConfig struct {
	Concurrency int
	MaxRetries  int
	BaseDelay   time.Duration
	Logger      *slog.Logger
	Registerer  prometheus.Registerer // nil disables metrics
	Namespace   string
}

// Option is a functional option for configuring the upload manager.
type (
	Option func(*ManagerConfig)
	// TaskOption is a functional option for configuring a single upload task.
	TaskOption func(*TaskConfig)
)

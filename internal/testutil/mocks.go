// Package testutil provides test utilities and mocks for upload tests.
// This package is internal and should only be used for testing within the upload module.
package testutil

import (
	"bytes"
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/input-output-hk/catalyst-forge-libs/upload/uploadtypes"
)

// MockTransport is a mock implementation of uploadtypes.Transport.
// Behavior is customized through UploadFunc; every call is counted.
type MockTransport struct {
	UploadFunc func(ctx context.Context, intent *uploadtypes.Intent, progress uploadtypes.ProgressFunc) (*uploadtypes.Outcome, error)

	calls    atomic.Int32
	inflight atomic.Int32
	peak     atomic.Int32
}

// Upload records the call and delegates to UploadFunc.
// Without UploadFunc it reports full progress and succeeds.
func (m *MockTransport) Upload(
	ctx context.Context,
	intent *uploadtypes.Intent,
	progress uploadtypes.ProgressFunc,
) (*uploadtypes.Outcome, error) {
	m.calls.Add(1)
	n := m.inflight.Add(1)
	defer m.inflight.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, intent, progress)
	}
	progress(100)
	return &uploadtypes.Outcome{URL: "https://cdn.example.com/" + intent.Name(), Provider: "mock"}, nil
}

// Calls returns the number of Upload calls made so far.
func (m *MockTransport) Calls() int {
	return int(m.calls.Load())
}

// Peak returns the highest number of Upload calls that were in flight at once.
func (m *MockTransport) Peak() int {
	return int(m.peak.Load())
}

// StubPayload is an in-memory uploadtypes.Payload.
type StubPayload struct {
	FileName string
	Type     string
	Data     []byte

	// OpenErr, when set, is returned by Open
	OpenErr error

	mu    sync.Mutex
	opens int
}

// NewStubPayload returns a payload named name holding data.
func NewStubPayload(name string, data []byte) *StubPayload {
	return &StubPayload{FileName: name, Type: "application/octet-stream", Data: data}
}

// Name returns the payload file name.
func (p *StubPayload) Name() string { return p.FileName }

// Size returns the payload length.
func (p *StubPayload) Size() int64 { return int64(len(p.Data)) }

// ContentType returns the payload MIME type.
func (p *StubPayload) ContentType() string { return p.Type }

// Open returns a fresh reader over the payload bytes.
func (p *StubPayload) Open() (io.ReadCloser, error) {
	p.mu.Lock()
	p.opens++
	p.mu.Unlock()
	if p.OpenErr != nil {
		return nil, p.OpenErr
	}
	return io.NopCloser(bytes.NewReader(p.Data)), nil
}

// Opens returns how many times Open was called.
func (p *StubPayload) Opens() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opens
}

// NewIntent returns an intent for a small stub payload named name.
func NewIntent(name string) *uploadtypes.Intent {
	return &uploadtypes.Intent{File: NewStubPayload(name, []byte("hello world"))}
}

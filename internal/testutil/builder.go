// Package testutil provides a builder for creating mock transports.
package testutil

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/input-output-hk/catalyst-forge-libs/upload/uploadtypes"
)

// ErrMockUpload is the default error returned by failing mock attempts.
var ErrMockUpload = errors.New("mock upload failed")

// TransportBuilder provides a fluent interface for building MockTransport instances.
type TransportBuilder struct {
	failures int
	failErr  error
	outcome  *uploadtypes.Outcome
	progress []int
	gate     <-chan struct{}
	block    bool
}

// NewTransportBuilder creates a builder whose transport succeeds on the first attempt.
func NewTransportBuilder() *TransportBuilder {
	return &TransportBuilder{
		failErr: ErrMockUpload,
		outcome: &uploadtypes.Outcome{URL: "https://cdn.example.com/object", Provider: "mock"},
	}
}

// WithFailures makes the first n attempts fail with err (ErrMockUpload if nil).
// Negative n fails every attempt.
func (b *TransportBuilder) WithFailures(n int, err error) *TransportBuilder {
	b.failures = n
	if err != nil {
		b.failErr = err
	}
	return b
}

// WithOutcome sets the outcome of a successful attempt.
func (b *TransportBuilder) WithOutcome(outcome *uploadtypes.Outcome) *TransportBuilder {
	b.outcome = outcome
	return b
}

// WithProgress makes every attempt report the given percentages before finishing.
func (b *TransportBuilder) WithProgress(steps ...int) *TransportBuilder {
	b.progress = steps
	return b
}

// WithGate holds every attempt until gate is closed or the context is done.
func (b *TransportBuilder) WithGate(gate <-chan struct{}) *TransportBuilder {
	b.gate = gate
	return b
}

// WithBlocking makes every attempt block until its context is done.
func (b *TransportBuilder) WithBlocking() *TransportBuilder {
	b.block = true
	return b
}

// Build returns the configured MockTransport.
func (b *TransportBuilder) Build() *MockTransport {
	var attempt atomic.Int32
	cfg := *b

	return &MockTransport{
		UploadFunc: func(
			ctx context.Context,
			_ *uploadtypes.Intent,
			progress uploadtypes.ProgressFunc,
		) (*uploadtypes.Outcome, error) {
			n := int(attempt.Add(1))

			for _, p := range cfg.progress {
				progress(p)
			}

			if cfg.block {
				<-ctx.Done()
				return nil, ctx.Err()
			}
			if cfg.gate != nil {
				select {
				case <-cfg.gate:
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}

			if cfg.failures < 0 || n <= cfg.failures {
				return nil, cfg.failErr
			}
			out := *cfg.outcome
			return &out, nil
		},
	}
}

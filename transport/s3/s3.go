// Package s3 uploads to S3 through presigned PUT URLs.
//
// Each attempt asks a presign.Presigner for a fresh target and streams the
// payload to it with a single HTTP PUT, reporting progress as the body is sent.
package s3

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/input-output-hk/catalyst-forge-libs/upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/upload/internal/progress"
	"github.com/input-output-hk/catalyst-forge-libs/upload/presign"
	"github.com/input-output-hk/catalyst-forge-libs/upload/uploadtypes"
)

// Provider is reported in every Outcome produced by this transport.
const Provider = "s3"

// Transport implements uploadtypes.Transport for presigned S3 uploads.
type Transport struct {
	presigner presign.Presigner
	http      *http.Client
	publicURL string
	logger    *slog.Logger
}

// Option configures a Transport.
type Option func(*Transport)

// WithHTTPClient sets the client used for the PUT request.
func WithHTTPClient(hc *http.Client) Option {
	return func(t *Transport) {
		if hc != nil {
			t.http = hc
		}
	}
}

// WithPublicURL sets the base URL used when the presigner returns no public URL.
func WithPublicURL(base string) Option {
	return func(t *Transport) {
		t.publicURL = base
	}
}

// WithLogger configures structured logging for the transport.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// New returns a Transport that obtains upload targets from p.
//
// Example:
//
//	t := s3.New(presign.NewClient("https://api.example.com"))
//	m, err := upload.New(t)
func New(p presign.Presigner, opts ...Option) *Transport {
	t := &Transport{
		presigner: p,
		http:      http.DefaultClient,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Upload performs one presign-then-PUT attempt.
func (t *Transport) Upload(
	ctx context.Context,
	intent *uploadtypes.Intent,
	report uploadtypes.ProgressFunc,
) (*uploadtypes.Outcome, error) {
	target, err := t.presigner.Presign(ctx, &presign.Request{
		FileName:    intent.Name(),
		ContentType: intent.File.ContentType(),
		Folder:      intent.Folder,
		Metadata:    intent.Metadata,
	})
	if err != nil {
		return nil, err
	}

	body, err := intent.File.Open()
	if err != nil {
		return nil, errors.NewError("upload", err).WithKey(target.Key)
	}
	defer body.Close()

	req, err := newPutRequest(ctx, target, intent.File, body, report)
	if err != nil {
		return nil, errors.NewError("upload", err).WithKey(target.Key)
	}

	t.logger.Debug("uploading to presigned URL",
		slog.String("key", target.Key),
		slog.Int64("size", intent.File.Size()),
	)

	resp, err := t.http.Do(req)
	if err != nil {
		return nil, errors.NewError("upload", err).WithKey(target.Key)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.NewError("upload",
			fmt.Errorf("%w: %s", errors.ErrUnexpectedStatus, resp.Status)).WithKey(target.Key)
	}

	return &uploadtypes.Outcome{
		URL:      t.objectURL(target),
		Provider: Provider,
		Key:      target.Key,
	}, nil
}

func newPutRequest(
	ctx context.Context,
	target *presign.Result,
	file uploadtypes.Payload,
	body io.Reader,
	report uploadtypes.ProgressFunc,
) (*http.Request, error) {
	size := file.Size()

	var reqBody io.Reader = http.NoBody
	if size != 0 {
		reqBody = progress.NewReader(body, size, report)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target.UploadURL, reqBody)
	if err != nil {
		return nil, err
	}
	if size > 0 {
		req.ContentLength = size
	}

	req.Header.Set("Content-Type", file.ContentType())
	for name, value := range target.Headers {
		req.Header.Set(name, value)
	}
	return req, nil
}

// objectURL prefers the presigner's public URL, then the configured base,
// then the upload URL without its signature.
func (t *Transport) objectURL(target *presign.Result) string {
	if target.PublicURL != "" {
		return target.PublicURL
	}
	if u := presign.PublicURL(t.publicURL, target.Key); u != "" {
		return u
	}
	u, err := url.Parse(target.UploadURL)
	if err != nil {
		return target.UploadURL
	}
	u.RawQuery = ""
	return u.String()
}

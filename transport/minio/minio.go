// Package minio uploads to S3-compatible storage with minio-go.
package minio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/input-output-hk/catalyst-forge-libs/upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/upload/internal/progress"
	"github.com/input-output-hk/catalyst-forge-libs/upload/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/upload/presign"
	"github.com/input-output-hk/catalyst-forge-libs/upload/uploadtypes"
)

// Provider is reported in every Outcome produced by this transport.
const Provider = "minio"

// ObjectPutter is the subset of *minio.Client the transport needs.
type ObjectPutter interface {
	PutObject(
		ctx context.Context,
		bucketName, objectName string,
		reader io.Reader,
		objectSize int64,
		opts minio.PutObjectOptions,
	) (minio.UploadInfo, error)
}

// Config describes a MinIO (or other S3-compatible) endpoint.
type Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	UseSSL          bool   `mapstructure:"use_ssl"`

	// PublicURL defaults to <scheme>://<endpoint>/<bucket>
	PublicURL string `mapstructure:"public_url"`
}

// Transport implements uploadtypes.Transport with PutObject.
type Transport struct {
	client    ObjectPutter
	bucket    string
	publicURL string
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Transport.
type Option func(*Transport)

// WithPublicURL sets the base URL objects are served from.
func WithPublicURL(base string) Option {
	return func(t *Transport) {
		t.publicURL = base
	}
}

// WithClock overrides the time source used to build object keys.
func WithClock(now func() time.Time) Option {
	return func(t *Transport) {
		if now != nil {
			t.now = now
		}
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

// New returns a Transport writing to bucket through client.
func New(client ObjectPutter, bucket string, opts ...Option) (*Transport, error) {
	if client == nil {
		return nil, errors.NewError("newTransport", errors.ErrInvalidInput).
			WithMessage("client cannot be nil")
	}
	if bucket == "" {
		return nil, errors.NewError("newTransport", errors.ErrInvalidInput).
			WithMessage("bucket cannot be empty")
	}

	t := &Transport{
		client: client,
		bucket: bucket,
		now:    time.Now,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// NewFromConfig creates a minio client for cfg and wraps it in a Transport.
func NewFromConfig(cfg Config, opts ...Option) (*Transport, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.NewError("newTransport", err)
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = fmt.Sprintf("%s/%s", client.EndpointURL().String(), cfg.Bucket)
	}
	return New(client, cfg.Bucket, append([]Option{WithPublicURL(publicURL)}, opts...)...)
}

// Upload stores the payload under <folder>/<unix-ms>-<name>.
func (t *Transport) Upload(
	ctx context.Context,
	intent *uploadtypes.Intent,
	report uploadtypes.ProgressFunc,
) (*uploadtypes.Outcome, error) {
	key := presign.ObjectKey(intent.Folder, intent.Name(), t.now())
	if err := validation.ValidateObjectKey(key); err != nil {
		return nil, err
	}

	body, err := intent.File.Open()
	if err != nil {
		return nil, errors.NewError("upload", err).WithKey(key)
	}
	defer body.Close()

	size := intent.File.Size()
	info, err := t.client.PutObject(ctx, t.bucket, key, body, size, minio.PutObjectOptions{
		ContentType:  intent.File.ContentType(),
		UserMetadata: intent.Metadata,
		Progress:     progress.NewSink(size, report),
	})
	if err != nil {
		return nil, errors.NewError("upload", err).WithKey(key)
	}

	t.logger.Debug("object stored",
		slog.String("bucket", info.Bucket),
		slog.String("key", info.Key),
		slog.Int64("size", info.Size),
	)

	url := presign.PublicURL(t.publicURL, key)
	if url == "" {
		url = info.Location
	}
	return &uploadtypes.Outcome{URL: url, Provider: Provider, Key: key}, nil
}

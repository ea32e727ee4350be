package presign

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/input-output-hk/catalyst-forge-libs/upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/upload/internal/validation"
)

// PresignAPI is the subset of *s3.PresignClient the service needs.
type PresignAPI interface {
	PresignPutObject(
		ctx context.Context,
		params *s3.PutObjectInput,
		optFns ...func(*s3.PresignOptions),
	) (*v4.PresignedHTTPRequest, error)
}

// Config describes the bucket and credentials a Service signs for.
type Config struct {
	// Bucket receives the uploads
	Bucket string `mapstructure:"bucket"`

	// PublicURL is the base URL objects are served from
	PublicURL string `mapstructure:"public_url"`

	// Region defaults to us-east-1
	Region string `mapstructure:"region"`

	// AccessKeyID and SecretAccessKey select static credentials;
	// when empty the default credential chain is used
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`

	// Endpoint overrides the S3 endpoint (LocalStack, MinIO, ...)
	Endpoint string `mapstructure:"endpoint"`

	// UsePathStyle forces path-style addressing
	UsePathStyle bool `mapstructure:"use_path_style"`

	// Expires is the URL lifetime; DefaultExpires when zero
	Expires time.Duration `mapstructure:"expires"`
}

// Service signs PUT URLs for one bucket.
type Service struct {
	api       PresignAPI
	bucket    string
	publicURL string
	expires   time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewService creates a Service that signs through api for bucket.
func NewService(api PresignAPI, bucket, publicURL string, opts ...Option) (*Service, error) {
	if api == nil {
		return nil, errors.NewError("newService", errors.ErrInvalidInput).
			WithMessage("presign client cannot be nil")
	}
	if bucket == "" {
		return nil, errors.NewError("newService", errors.ErrInvalidInput).
			WithMessage("bucket cannot be empty")
	}

	s := &Service{
		api:       api,
		bucket:    bucket,
		publicURL: publicURL,
		expires:   DefaultExpires,
		now:       time.Now,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewServiceFromConfig builds the AWS presign client described by cfg.
//
// Example:
//
//	svc, err := presign.NewServiceFromConfig(ctx, presign.Config{
//	    Bucket:    "media",
//	    PublicURL: "https://media.example.com",
//	    Region:    "eu-central-1",
//	})
func NewServiceFromConfig(ctx context.Context, cfg Config, opts ...Option) (*Service, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.NewError("newService", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	if cfg.Expires > 0 {
		opts = append([]Option{WithExpires(cfg.Expires)}, opts...)
	}
	return NewService(s3.NewPresignClient(client), cfg.Bucket, cfg.PublicURL, opts...)
}

// Presign validates req and returns a signed PUT target for it.
// Metadata is signed as x-amz-meta-* headers, which the uploader must send.
func (s *Service) Presign(ctx context.Context, req *Request) (*Result, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	key := ObjectKey(req.Folder, req.FileName, s.now())
	if err := validation.ValidateObjectKey(key); err != nil {
		return nil, err
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(req.ContentType),
	}
	if len(req.Metadata) > 0 {
		input.Metadata = req.Metadata
	}

	signed, err := s.api.PresignPutObject(ctx, input, s3.WithPresignExpires(s.expires))
	if err != nil {
		var apiErr smithy.APIError
		if stderrors.As(err, &apiErr) {
			s.logger.Warn("presign rejected",
				slog.String("key", key),
				slog.String("code", apiErr.ErrorCode()),
				slog.String("message", apiErr.ErrorMessage()),
			)
		}
		return nil, errors.NewError("presign", fmt.Errorf("%w: %w", errors.ErrPresign, err)).WithKey(key)
	}

	s.logger.Debug("issued presigned upload",
		slog.String("bucket", s.bucket),
		slog.String("key", key),
		slog.Duration("expires", s.expires),
	)

	return &Result{
		UploadURL: signed.URL,
		Key:       key,
		PublicURL: PublicURL(s.publicURL, key),
		Headers:   signedHeaders(signed.SignedHeader),
	}, nil
}

func validateRequest(req *Request) error {
	if req == nil || req.FileName == "" || req.ContentType == "" {
		return errors.NewError("presign", errors.ErrInvalidInput).
			WithMessage("fileName and contentType are required")
	}
	if err := validation.ValidateFileName(req.FileName); err != nil {
		return err
	}
	if err := validation.ValidateFolder(req.Folder); err != nil {
		return err
	}
	if err := validation.ValidateContentType(req.ContentType); err != nil {
		return err
	}
	return validation.ValidateMetadata(req.Metadata)
}

// signedHeaders flattens the headers the client must replay. Host is set by
// the HTTP client itself.
func signedHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		if len(values) == 0 || http.CanonicalHeaderKey(name) == "Host" {
			continue
		}
		out[http.CanonicalHeaderKey(name)] = values[0]
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Package cloudinary uploads to Cloudinary with unsigned upload presets.
package cloudinary

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"slices"
	"strings"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/upload/internal/progress"
	"github.com/input-output-hk/catalyst-forge-libs/upload/uploadtypes"
)

// Provider is reported in every Outcome produced by this transport.
const Provider = "cloudinary"

// DefaultBaseURL is the Cloudinary upload API root.
const DefaultBaseURL = "https://api.cloudinary.com/v1_1"

// maxResponseBody bounds how much of an API response is decoded.
const maxResponseBody = 1 << 20

// Config selects the cloud and unsigned upload preset.
type Config struct {
	CloudName    string `mapstructure:"cloud_name"`
	UploadPreset string `mapstructure:"upload_preset"`

	// BaseURL defaults to DefaultBaseURL
	BaseURL string `mapstructure:"base_url"`
}

// Transport implements uploadtypes.Transport for Cloudinary.
type Transport struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// Option configures a Transport.
type Option func(*Transport)

// WithHTTPClient sets the client used for upload requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(t *Transport) {
		if hc != nil {
			t.http = hc
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

// New returns a Transport for cfg.
func New(cfg Config, opts ...Option) (*Transport, error) {
	if cfg.CloudName == "" || cfg.UploadPreset == "" {
		return nil, errors.NewError("newTransport", errors.ErrInvalidInput).
			WithMessage("cloud name and upload preset are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	t := &Transport{
		cfg:    cfg,
		http:   &http.Client{Timeout: 10 * time.Minute},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload posts the payload as multipart form data.
func (t *Transport) Upload(
	ctx context.Context,
	intent *uploadtypes.Intent,
	report uploadtypes.ProgressFunc,
) (*uploadtypes.Outcome, error) {
	body, err := intent.File.Open()
	if err != nil {
		return nil, errors.NewError("upload", err)
	}

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		defer body.Close()
		pw.CloseWithError(t.writeForm(form, intent, body, report))
	}()

	endpoint := fmt.Sprintf("%s/%s/upload", t.cfg.BaseURL, t.cfg.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		pr.CloseWithError(err)
		return nil, errors.NewError("upload", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return nil, errors.NewError("upload", err)
	}
	defer resp.Body.Close()

	var out uploadResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&out)

	if resp.StatusCode != http.StatusOK || decodeErr != nil || out.SecureURL == "" {
		msg := resp.Status
		if out.Error != nil && out.Error.Message != "" {
			msg = fmt.Sprintf("%s: %s", resp.Status, out.Error.Message)
		}
		if resp.StatusCode == http.StatusOK {
			return nil, errors.NewError("upload", fmt.Errorf("cloudinary response has no secure_url"))
		}
		return nil, errors.NewError("upload", fmt.Errorf("%w: %s", errors.ErrUnexpectedStatus, msg))
	}

	t.logger.Debug("cloudinary upload complete",
		slog.String("public_id", out.PublicID),
		slog.String("url", out.SecureURL),
	)

	return &uploadtypes.Outcome{URL: out.SecureURL, Provider: Provider, Key: out.PublicID}, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func (t *Transport) writeForm(
	form *multipart.Writer,
	intent *uploadtypes.Intent,
	body io.Reader,
	report uploadtypes.ProgressFunc,
) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(intent.Name())))
	header.Set("Content-Type", intent.File.ContentType())

	part, err := form.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, progress.NewReader(body, intent.File.Size(), report)); err != nil {
		return err
	}

	if err := form.WriteField("upload_preset", t.cfg.UploadPreset); err != nil {
		return err
	}
	if intent.Folder != "" {
		if err := form.WriteField("folder", intent.Folder); err != nil {
			return err
		}
	}
	if len(intent.Metadata) > 0 {
		if err := form.WriteField("context", encodeContext(intent.Metadata)); err != nil {
			return err
		}
	}
	return form.Close()
}

// encodeContext renders metadata as Cloudinary contextual metadata: k=v pairs
// joined by "|", with "=" and "|" escaped.
func encodeContext(metadata map[string]string) string {
	escaper := strings.NewReplacer("=", `\=`, "|", `\|`)
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, escaper.Replace(k)+"="+escaper.Replace(metadata[k]))
	}
	return strings.Join(pairs, "|")
}

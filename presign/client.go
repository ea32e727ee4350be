package presign

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/upload/errors"
)

// maxErrorBody bounds how much of a failed response is read for its message.
const maxErrorBody = 4 << 10

// Client requests presigned targets from a remote presign endpoint.
type Client struct {
	baseURL string
	route   string
	http    *http.Client
}

// NewClient returns a Client for the endpoint served under baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		route:   Route,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wireResult also accepts signedUrl, the field name some presign servers use.
type wireResult struct {
	Result
	SignedURL string `json:"signedUrl"`
}

// Presign posts req to the endpoint and decodes its answer.
func (c *Client) Presign(ctx context.Context, req *Request) (*Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.NewError("presign", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.route, bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewError("presign", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, errors.NewError("presign", fmt.Errorf("%w: %w", errors.ErrPresign, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.NewError("presign", fmt.Errorf("%w: %w: %d %s",
			errors.ErrPresign, errors.ErrUnexpectedStatus, resp.StatusCode, errorMessage(resp.Body)))
	}

	var out wireResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.NewError("presign", fmt.Errorf("%w: decode response: %w", errors.ErrPresign, err))
	}
	if out.UploadURL == "" {
		out.UploadURL = out.SignedURL
	}
	if out.UploadURL == "" {
		return nil, errors.NewError("presign", fmt.Errorf("%w: response has no upload URL", errors.ErrPresign))
	}

	result := out.Result
	return &result, nil
}

// errorMessage extracts {"error": "..."} from a failed response, falling back
// to the raw body.
func errorMessage(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(data))
}

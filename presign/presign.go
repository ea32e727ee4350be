// Package presign issues short-lived URLs that let clients PUT an object
// straight into an S3 bucket.
//
// Service signs URLs with the AWS SDK, Handler exposes a Service over HTTP
// and Client calls such an endpoint. Client and Service both implement
// Presigner, so the S3 transport can sign locally or remotely.
package presign

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Route is the path the presign endpoint is served at.
const Route = "/api/s3/presign-upload"

// DefaultFolder is used when a request does not name a folder.
const DefaultFolder = "uploads"

// DefaultExpires is how long a presigned URL stays valid.
const DefaultExpires = 300 * time.Second

// Request asks for a presigned upload URL.
type Request struct {
	FileName    string            `json:"fileName"`
	ContentType string            `json:"contentType"`
	Folder      string            `json:"folder,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Result is a presigned upload target.
type Result struct {
	// UploadURL accepts a single HTTP PUT of the object body
	UploadURL string `json:"uploadUrl"`

	// Key is the object key the upload will be stored under
	Key string `json:"key"`

	// PublicURL is where the object can be fetched once uploaded
	PublicURL string `json:"publicUrl"`

	// Headers must be sent with the PUT because they are part of the signature
	Headers map[string]string `json:"headers,omitempty"`
}

// Presigner issues presigned upload targets.
type Presigner interface {
	Presign(ctx context.Context, req *Request) (*Result, error)
}

// PresignerFunc adapts an ordinary function to the Presigner interface.
type PresignerFunc func(ctx context.Context, req *Request) (*Result, error)

// Presign calls f(ctx, req).
func (f PresignerFunc) Presign(ctx context.Context, req *Request) (*Result, error) {
	return f(ctx, req)
}

// ObjectKey builds the object key for fileName: <folder>/<unix-ms>-<fileName>.
// An empty folder becomes DefaultFolder.
func ObjectKey(folder, fileName string, now time.Time) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		folder = DefaultFolder
	}
	return fmt.Sprintf("%s/%d-%s", folder, now.UnixMilli(), fileName)
}

// PublicURL joins base and key with exactly one slash.
func PublicURL(base, key string) string {
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}

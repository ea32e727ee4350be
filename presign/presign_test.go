package presign

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/upload/errors"
)

var fixedNow = time.UnixMilli(1700000000123)

// fakePresignAPI records the last input and presign options.
type fakePresignAPI struct {
	input   *s3.PutObjectInput
	options s3.PresignOptions
	err     error
}

func (f *fakePresignAPI) PresignPutObject(
	_ context.Context,
	params *s3.PutObjectInput,
	optFns ...func(*s3.PresignOptions),
) (*v4.PresignedHTTPRequest, error) {
	f.input = params
	for _, fn := range optFns {
		fn(&f.options)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &v4.PresignedHTTPRequest{
		URL:    "https://media.s3.amazonaws.com/" + aws.ToString(params.Key) + "?X-Amz-Signature=abc",
		Method: http.MethodPut,
		SignedHeader: http.Header{
			"Host":         {"media.s3.amazonaws.com"},
			"Content-Type": {aws.ToString(params.ContentType)},
		},
	}, nil
}

func TestObjectKey(t *testing.T) {
	tests := []struct {
		name   string
		folder string
		file   string
		want   string
	}{
		{name: "default folder", folder: "", file: "a.png", want: "uploads/1700000000123-a.png"},
		{name: "custom folder", folder: "avatars", file: "me.jpg", want: "avatars/1700000000123-me.jpg"},
		{name: "nested folder with slashes", folder: "/users/42/", file: "doc.pdf", want: "users/42/1700000000123-doc.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ObjectKey(tt.folder, tt.file, fixedNow))
		})
	}
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/uploads/a.png", PublicURL("https://cdn.example.com/", "uploads/a.png"))
	assert.Equal(t, "https://cdn.example.com/uploads/a.png", PublicURL("https://cdn.example.com", "/uploads/a.png"))
	assert.Empty(t, PublicURL("", "uploads/a.png"))
}

func TestNewService_Validation(t *testing.T) {
	_, err := NewService(nil, "bucket", "")
	assert.True(t, errors.IsInvalidInput(err))

	_, err = NewService(&fakePresignAPI{}, "", "")
	assert.True(t, errors.IsInvalidInput(err))
}

func TestService_Presign(t *testing.T) {
	api := &fakePresignAPI{}
	svc, err := NewService(api, "media", "https://cdn.example.com",
		WithClock(func() time.Time { return fixedNow }),
	)
	require.NoError(t, err)

	res, err := svc.Presign(context.Background(), &Request{
		FileName:    "a.png",
		ContentType: "image/png",
		Folder:      "avatars",
		Metadata:    map[string]string{"owner": "u1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "avatars/1700000000123-a.png", res.Key)
	assert.Equal(t, "https://cdn.example.com/avatars/1700000000123-a.png", res.PublicURL)
	assert.True(t, strings.HasPrefix(res.UploadURL, "https://media.s3.amazonaws.com/avatars/"))
	assert.Equal(t, map[string]string{"Content-Type": "image/png"}, res.Headers)

	assert.Equal(t, "media", aws.ToString(api.input.Bucket))
	assert.Equal(t, res.Key, aws.ToString(api.input.Key))
	assert.Equal(t, "image/png", aws.ToString(api.input.ContentType))
	assert.Equal(t, map[string]string{"owner": "u1"}, api.input.Metadata)
	assert.Equal(t, DefaultExpires, api.options.Expires)
}

func TestService_PresignExpires(t *testing.T) {
	api := &fakePresignAPI{}
	svc, err := NewService(api, "media", "", WithExpires(time.Minute), WithExpires(-time.Second))
	require.NoError(t, err)

	_, err = svc.Presign(context.Background(), &Request{FileName: "a.txt", ContentType: "text/plain"})
	require.NoError(t, err)
	assert.Equal(t, time.Minute, api.options.Expires)
}

func TestService_PresignErrors(t *testing.T) {
	tests := []struct {
		name    string
		req     *Request
		apiErr  error
		wantErr error
	}{
		{name: "nil request", req: nil, wantErr: errors.ErrInvalidInput},
		{name: "missing file name", req: &Request{ContentType: "image/png"}, wantErr: errors.ErrInvalidInput},
		{name: "missing content type", req: &Request{FileName: "a.png"}, wantErr: errors.ErrInvalidInput},
		{name: "file name with slash", req: &Request{FileName: "a/b.png", ContentType: "image/png"}, wantErr: errors.ErrInvalidInput},
		{name: "folder traversal", req: &Request{FileName: "a.png", ContentType: "image/png", Folder: "../x"}, wantErr: errors.ErrInvalidInput},
		{name: "bad content type", req: &Request{FileName: "a.png", ContentType: "png"}, wantErr: errors.ErrInvalidInput},
		{
			name:    "signer failure",
			req:     &Request{FileName: "a.png", ContentType: "image/png"},
			apiErr:  stderrors.New("no credentials"),
			wantErr: errors.ErrPresign,
		},
		{
			name:    "api error",
			req:     &Request{FileName: "a.png", ContentType: "image/png"},
			apiErr:  &smithy.GenericAPIError{Code: "AccessDenied", Message: "Access denied"},
			wantErr: errors.ErrPresign,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewService(&fakePresignAPI{err: tt.apiErr}, "media", "")
			require.NoError(t, err)

			res, err := svc.Presign(context.Background(), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, res)

			var apiErr smithy.APIError
			if stderrors.As(tt.apiErr, &apiErr) {
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, "AccessDenied", apiErr.ErrorCode())
			}
		})
	}
}

func TestService_PresignWithSDK(t *testing.T) {
	client := s3.New(s3.Options{
		Region:       "us-east-1",
		Credentials:  credentials.NewStaticCredentialsProvider("AKIDEXAMPLE", "SECRET", ""),
		BaseEndpoint: aws.String("http://localhost:4566"),
		UsePathStyle: true,
	})
	svc, err := NewService(s3.NewPresignClient(client), "media", "http://localhost:4566/media",
		WithClock(func() time.Time { return fixedNow }),
	)
	require.NoError(t, err)

	res, err := svc.Presign(context.Background(), &Request{FileName: "a.png", ContentType: "image/png"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.UploadURL, "http://localhost:4566/media/uploads/1700000000123-a.png?"), res.UploadURL)
	assert.Contains(t, res.UploadURL, "X-Amz-Expires=300")
	assert.Contains(t, res.UploadURL, "X-Amz-Signature=")
	assert.Equal(t, "http://localhost:4566/media/uploads/1700000000123-a.png", res.PublicURL)
}

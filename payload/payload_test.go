package payload

import (
	"encoding/base64"
	"io"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/upload/errors"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func readAll(t *testing.T, open func() (io.ReadCloser, error)) string {
	t.Helper()
	rc, err := open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestFromBytes(t *testing.T) {
	tests := []struct {
		name        string
		fileName    string
		data        []byte
		contentType string
		want        string
	}{
		{name: "explicit type", fileName: "a.bin", data: []byte("x"), contentType: "image/webp", want: "image/webp"},
		{name: "sniffed png", fileName: "noext", data: pngHeader, want: "image/png"},
		{name: "sniffed text", fileName: "notes", data: []byte("hello world"), want: "text/plain; charset=utf-8"},
		{name: "extension fallback", fileName: "data.json", data: []byte{0x00, 0x01, 0x02}, want: "application/json"},
		{name: "unknown", fileName: "blob.zzzz", data: []byte{0x00, 0x01, 0x02}, want: DefaultContentType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := FromBytes(tt.fileName, tt.data, tt.contentType)
			assert.Equal(t, tt.fileName, p.Name())
			assert.Equal(t, int64(len(tt.data)), p.Size())
			assert.Equal(t, tt.want, p.ContentType())
		})
	}
}

func TestBytes_OpenIsRepeatable(t *testing.T) {
	p := FromBytes("a.txt", []byte("hello"), "text/plain")
	assert.Equal(t, "hello", readAll(t, p.Open))
	assert.Equal(t, "hello", readAll(t, p.Open))
}

func TestFromFile(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "images/logo.png", pngHeader, 0o644))
	require.NoError(t, util.WriteFile(fs, "docs/readme.md", []byte("# Title\n"), 0o644))
	require.NoError(t, fs.MkdirAll("empty", 0o755))

	t.Run("png", func(t *testing.T) {
		p, err := FromFile(fs, "images/logo.png")
		require.NoError(t, err)
		assert.Equal(t, "logo.png", p.Name())
		assert.Equal(t, "images/logo.png", p.Path())
		assert.Equal(t, int64(len(pngHeader)), p.Size())
		assert.Equal(t, "image/png", p.ContentType())
		assert.Equal(t, string(pngHeader), readAll(t, p.Open))
		assert.Equal(t, string(pngHeader), readAll(t, p.Open))
	})

	t.Run("missing", func(t *testing.T) {
		_, err := FromFile(fs, "nope.txt")
		require.Error(t, err)
		var uerr *errors.Error
		require.ErrorAs(t, err, &uerr)
		assert.Equal(t, "nope.txt", uerr.Key)
	})

	t.Run("directory", func(t *testing.T) {
		_, err := FromFile(fs, "empty")
		require.Error(t, err)
		assert.True(t, errors.IsInvalidInput(err))
	})

	t.Run("removed after creation", func(t *testing.T) {
		p, err := FromFile(fs, "docs/readme.md")
		require.NoError(t, err)
		require.NoError(t, fs.Remove("docs/readme.md"))
		_, err = p.Open()
		assert.Error(t, err)
	})
}

func TestFromDataURL(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("hello"))

	tests := []struct {
		name     string
		url      string
		wantType string
		wantData string
		wantErr  bool
	}{
		{name: "base64 jpeg", url: "data:image/jpeg;base64," + encoded, wantType: "image/jpeg", wantData: "hello"},
		{name: "missing type defaults to png", url: "data:;base64," + encoded, wantType: DefaultDataURLType, wantData: "hello"},
		{name: "plain text", url: "data:text/plain,hello%20world", wantType: "text/plain", wantData: "hello world"},
		{name: "no comma", url: "data:image/png;base64", wantErr: true},
		{name: "not a data url", url: "https://example.com/a.png,x", wantErr: true},
		{name: "bad base64", url: "data:image/png;base64,!!!", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := FromDataURL("image", tt.url)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsInvalidInput(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "image", p.Name())
			assert.Equal(t, tt.wantType, p.ContentType())
			assert.Equal(t, tt.wantData, string(p.Data()))
		})
	}
}

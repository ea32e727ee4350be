package payload

import (
	"encoding/base64"
	"net/url"
	"strings"

	"github.com/input-output-hk/catalyst-forge-libs/upload/errors"
)

// DefaultDataURLType is the MIME type assumed when a data URL does not declare one.
const DefaultDataURLType = "image/png"

// FromDataURL decodes a data URL ("data:<mime>;base64,<data>") into an
// in-memory payload named name.
func FromDataURL(name, dataURL string) (*Bytes, error) {
	header, body, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(header, "data:") {
		return nil, errors.NewError("fromDataURL", errors.ErrInvalidInput).
			WithMessage("malformed data URL")
	}

	params := strings.Split(strings.TrimPrefix(header, "data:"), ";")
	contentType := strings.TrimSpace(params[0])
	if contentType == "" {
		contentType = DefaultDataURLType
	}

	encoded := false
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			encoded = true
		}
	}

	var (
		data []byte
		err  error
	)
	if encoded {
		data, err = base64.StdEncoding.DecodeString(body)
	} else {
		var s string
		s, err = url.PathUnescape(body)
		data = []byte(s)
	}
	if err != nil {
		return nil, errors.NewError("fromDataURL", errors.ErrInvalidInput).
			WithMessage("invalid data URL payload: " + err.Error())
	}

	return &Bytes{name: name, contentType: contentType, data: data}, nil
}

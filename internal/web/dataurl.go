package web

import (
	"encoding/base64"
	"errors"
	"strings"
)

// DecodeDataURL decodes a base64 "data:<mime>;base64,<payload>" URL. A bare
// base64 payload is accepted with an empty MIME type.
func DecodeDataURL(s string) (data []byte, mimeType string, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, "", errors.New("image is empty")
	}

	payload := s
	if strings.HasPrefix(s, "data:") {
		meta, rest, ok := strings.Cut(s[len("data:"):], ",")
		if !ok {
			return nil, "", errors.New("malformed data URL")
		}
		params := strings.Split(meta, ";")
		if params[len(params)-1] != "base64" {
			return nil, "", errors.New("data URL must be base64 encoded")
		}
		mimeType = params[0]
		payload = rest
	}

	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, "", errors.New("image is not valid base64")
		}
	}
	return data, mimeType, nil
}

// Package datauri converts between uploaded images and the
// data:<mime>;base64,<payload> strings used for display and transport.
package datauri

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

var pattern = regexp.MustCompile(`^data:(.+);base64,(.+)$`)

// Image is a decoded data URI. Payload stays base64 encoded.
type Image struct {
	MIMEType string
	Payload  string
}

// Bytes returns the raw image bytes.
func (i Image) Bytes() ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(i.Payload)
	if err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}
	return b, nil
}

// String re-encodes the image as a data URI.
func (i Image) String() string {
	return "data:" + i.MIMEType + ";base64," + i.Payload
}

// Decode splits a data URI into mime type and payload. It reports false for
// anything that does not have the data:<mime>;base64,<payload> shape.
func Decode(s string) (Image, bool) {
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return Image{}, false
	}
	return Image{MIMEType: m[1], Payload: m[2]}, true
}

// Encode builds a data URI from raw bytes. An empty mimeType is sniffed from
// the content.
func Encode(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return Image{MIMEType: mimeType, Payload: base64.StdEncoding.EncodeToString(data)}.String()
}

// IsImage returns true if mimeType names an image format.
func IsImage(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}

// IsImageURI reports whether uri is a well-formed base64 data URI carrying an
// image.
func IsImageURI(uri string) bool {
	img, ok := Decode(uri)
	return ok && IsImage(img.MIMEType)
}

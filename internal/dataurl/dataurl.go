// Package dataurl converts image bytes to and from base64 data-URLs.
package dataurl

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

const fallbackMIME = "application/octet-stream"

var ErrNotDataURL = errors.New("not a base64 data url")

// Encode returns "data:<mime>;base64,<payload>".
func Encode(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = fallbackMIME
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Decode splits a data-URL into its payload bytes and MIME type.
func Decode(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, "", ErrNotDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", ErrNotDataURL
	}
	mimeType, enc, _ := strings.Cut(meta, ";")
	if enc != "base64" {
		return nil, "", ErrNotDataURL
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", err
	}
	return data, mimeType, nil
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8). The stdlib sniffer has no WebP signature.
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// DetectMIME picks a MIME type for data. Sniffed image types win, then the
// type the client declared, then application/octet-stream. Nothing is
// rejected here.
func DetectMIME(data []byte, declared string) string {
	if isWebP(data) {
		return "image/webp"
	}
	if len(data) > 0 {
		if sniffed := http.DetectContentType(data); strings.HasPrefix(sniffed, "image/") {
			return sniffed
		}
	}
	if declared = strings.TrimSpace(declared); declared != "" {
		return declared
	}
	return fallbackMIME
}

package lightx

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const DefaultMaxUploadBytes int64 = 5 * 1024 * 1024

// DefaultContentTypes is the upload allow-list.
var DefaultContentTypes = []string{"image/jpeg", "image/png"}

// Asset is a byte source for upload: either a local file or an in-memory
// buffer. An empty ContentType is sniffed from the leading bytes.
type Asset struct {
	Path        string
	Data        []byte
	ContentType string
	Name        string
}

// FromFile references a local file.
func FromFile(path, contentType string) Asset {
	return Asset{Path: path, ContentType: contentType, Name: filepath.Base(path)}
}

// FromBytes references an in-memory buffer.
func FromBytes(data []byte, contentType string) Asset {
	return Asset{Data: data, ContentType: contentType}
}

// Label names the asset in logs and errors.
func (a Asset) Label() string {
	switch {
	case a.Name != "":
		return a.Name
	case a.Path != "":
		return filepath.Base(a.Path)
	default:
		return fmt.Sprintf("buffer[%d]", len(a.Data))
	}
}

// preparedAsset is an asset whose size and type have been checked locally.
type preparedAsset struct {
	label       string
	data        []byte
	contentType string
}

// prepare enforces the size ceiling and the content-type allow-list without
// touching the network. For files the size is taken from stat before reading.
func (a Asset) prepare(maxBytes int64, allowed []string) (preparedAsset, error) {
	label := a.Label()
	var data []byte
	switch {
	case a.Path != "":
		info, err := os.Stat(a.Path)
		if err != nil {
			return preparedAsset{}, &Error{Kind: ErrInvalidParams, Op: "read asset", Message: label, Err: err}
		}
		if info.IsDir() {
			return preparedAsset{}, &Error{Kind: ErrInvalidParams, Op: "read asset", Message: label + " is a directory"}
		}
		if info.Size() > maxBytes {
			return preparedAsset{}, sizeExceeded(label, info.Size(), maxBytes)
		}
		data, err = os.ReadFile(a.Path)
		if err != nil {
			return preparedAsset{}, &Error{Kind: ErrInvalidParams, Op: "read asset", Message: label, Err: err}
		}
		// the file may have grown between stat and read
		if int64(len(data)) > maxBytes {
			return preparedAsset{}, sizeExceeded(label, int64(len(data)), maxBytes)
		}
	case len(a.Data) > 0:
		if int64(len(a.Data)) > maxBytes {
			return preparedAsset{}, sizeExceeded(label, int64(len(a.Data)), maxBytes)
		}
		data = a.Data
	default:
		return preparedAsset{}, &Error{Kind: ErrInvalidParams, Op: "read asset", Message: "asset has no path or data"}
	}

	contentType := NormalizeContentType(a.ContentType)
	if contentType == "" {
		contentType = NormalizeContentType(mimetype.Detect(data).String())
	}
	if !contains(allowed, contentType) {
		return preparedAsset{}, &Error{
			Kind:    ErrUnsupportedContentType,
			Op:      "read asset",
			Message: fmt.Sprintf("%s has type %q, allowed: %s", label, contentType, strings.Join(allowed, ", ")),
		}
	}
	return preparedAsset{label: label, data: data, contentType: contentType}, nil
}

func sizeExceeded(label string, size, limit int64) error {
	return &Error{
		Kind:    ErrSizeExceeded,
		Op:      "read asset",
		Message: fmt.Sprintf("%s is %d bytes, limit %d", label, size, limit),
	}
}

// NormalizeContentType lower-cases a MIME type, drops parameters and folds
// the common image/jpg alias.
func NormalizeContentType(ct string) string {
	ct, _, _ = strings.Cut(ct, ";")
	ct = strings.ToLower(strings.TrimSpace(ct))
	if ct == "image/jpg" || ct == "image/pjpeg" {
		return "image/jpeg"
	}
	return ct
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

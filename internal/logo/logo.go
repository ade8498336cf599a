package logo

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

const placeholderBaseURL = "https://ui-avatars.com/api/"

var ErrTooLarge = errors.New("logo file is too large")

// Placeholder is the generated avatar used for clubs registered without a logo
func Placeholder(name string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
	return placeholderBaseURL + "?name=" + escaped + "&background=3b82f6&color=fff"
}

// Converter turns an uploaded logo file into the reference stored on a club
type Converter interface {
	Convert(ctx context.Context, contentType string, r io.Reader) (string, error)
}

const DefaultMaxBytes = 2 << 20

// DataURIConverter embeds the file bytes in a data: URI
type DataURIConverter struct {
	MaxBytes int64
}

func (c DataURIConverter) Convert(_ context.Context, contentType string, r io.Reader) (string, error) {
	data, err := readLimited(r, c.MaxBytes)
	if err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// ObjectStoreConverter uploads the file and references it by public URL
type ObjectStoreConverter struct {
	Uploader FileUploader
	Prefix   string
	MaxBytes int64
}

func (c ObjectStoreConverter) Convert(ctx context.Context, contentType string, r io.Reader) (string, error) {
	data, err := readLimited(r, c.MaxBytes)
	if err != nil {
		return "", err
	}

	key := c.Prefix + uuid.NewString() + extensionFor(contentType)
	result, err := c.Uploader.Upload(ctx, key, contentType, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to store logo: %w", err)
	}
	return result.Location, nil
}

func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read logo: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

func extensionFor(contentType string) string {
	exts, err := mime.ExtensionsByType(contentType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return exts[0]
}

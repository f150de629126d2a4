package main

import (
	"bufio"
	"encoding/json"
	"io"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/richardartoul/assetcache/pkg/asset"
)

// AssetInfo describes one indexed asset.
type AssetInfo struct {
	Kind         string
	URL          string
	Key          string
	RefreshedAt  time.Time
	ExpiresAt    time.Time
	LifetimeDays int
	Expired      bool `json:",omitempty"`
}

func describe(a asset.Asset) AssetInfo {
	return AssetInfo{
		Kind:         a.Kind(),
		URL:          a.URL(),
		Key:          a.Key(),
		RefreshedAt:  a.RefreshedAt(),
		ExpiresAt:    a.ExpiresAt(),
		LifetimeDays: a.LifetimeDays(),
		Expired:      a.IsExpired(),
	}
}

// Response is the single JSON line printed by every command.
type Response struct {
	Success bool
	Err     string       `json:",omitempty"`
	Asset   *AssetInfo   `json:",omitempty"`
	Assets  []AssetInfo  `json:",omitempty"`
	Removed int          `json:",omitempty"`
	Text    string       `json:",omitempty"`
	Size    int          `json:",omitempty"`
	Path    string       `json:",omitempty"`
	Bounds  *ImageBounds `json:",omitempty"`
}

type ImageBounds struct {
	Width  int
	Height int
}

// ResponseWriter writes responses as newline terminated JSON.
type ResponseWriter struct {
	writer *bufio.Writer
}

func NewResponseWriter(w io.Writer) *ResponseWriter {
	return &ResponseWriter{writer: bufio.NewWriter(w)}
}

// Send writes resp and flushes it.
func (rw *ResponseWriter) Send(resp Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return errors.Wrap(err, "failed to marshal response")
	}

	if _, err := rw.writer.Write(data); err != nil {
		return errors.Wrap(err, "failed to write response")
	}

	if err := rw.writer.WriteByte('\n'); err != nil {
		return errors.Wrap(err, "failed to write newline")
	}

	return rw.writer.Flush()
}

// SendError writes a failure response carrying err.
func (rw *ResponseWriter) SendError(err error) error {
	return rw.Send(Response{Err: err.Error()})
}

// Package netx contains HTTP helpers that do not belong to a single API client.
package netx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
)

// MaxResponseBytes caps how much of a response body is read into memory.
const MaxResponseBytes = 4 << 20

// FilePart is a single file attached to a multipart form.
type FilePart struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// EncodeMultipart builds a multipart/form-data body holding fields and then
// file. It returns the body and its Content-Type (with boundary).
func EncodeMultipart(fields map[string]string, file FilePart) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.Field, file.Name))
	ct := file.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// PostMultipart sends fields and file to url as multipart/form-data with the
// given extra headers. It returns the status code and the (capped) body; a
// non-2xx status is not treated as an error here.
func PostMultipart(ctx context.Context, client *http.Client, url string, headers map[string]string, fields map[string]string, file FilePart) (int, []byte, error) {
	body, contentType, err := EncodeMultipart(fields, file)
	if err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", contentType)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, b, nil
}

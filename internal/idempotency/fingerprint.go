package idempotency

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
)

// fingerprintPart is one element of the canonical list that is hashed.
// Absent elements are left out rather than zero-filled.
type fingerprintPart struct {
	Kind string      `json:"kind"`
	Body []byte      `json:"body,omitempty"`
	Form [][2]string `json:"form,omitempty"`
	Path string      `json:"path,omitempty"`
}

// Fingerprint returns the lowercase hex SHA-256 of the request's body, form
// fields (in their original order) and path. The body is buffered into r so
// the handler and later calls can read it again.
func Fingerprint(r *http.Request) (string, error) {
	body, err := BufferBody(r)
	if err != nil {
		return "", err
	}

	parts := make([]fingerprintPart, 0, 3)
	if len(body) > 0 {
		parts = append(parts, fingerprintPart{Kind: "body", Body: body})
	}
	if form := formFields(r.Header.Get("Content-Type"), body); len(form) > 0 {
		parts = append(parts, fingerprintPart{Kind: "form", Form: form})
	}
	if r.URL != nil && r.URL.Path != "" {
		parts = append(parts, fingerprintPart{Kind: "path", Path: r.URL.Path})
	}

	canonical, err := json.Marshal(parts)
	if err != nil {
		return "", fmt.Errorf("encode fingerprint input: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// BufferBody reads the whole request body once and replaces r.Body (and
// r.GetBody) with in-memory readers over the same bytes.
func BufferBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}

	body, err := io.ReadAll(r.Body)
	_ = r.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}

	r.Body = io.NopCloser(bytes.NewReader(body))
	r.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	return body, nil
}

// formFields returns key/value pairs of a form-encoded body in wire order.
// Parsing is best effort: the raw body is hashed as well, so a malformed form
// still yields a deterministic fingerprint.
func formFields(contentType string, body []byte) [][2]string {
	if contentType == "" || len(body) == 0 {
		return nil
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil
	}

	switch mediaType {
	case "application/x-www-form-urlencoded":
		return urlEncodedFields(string(body))
	case "multipart/form-data":
		return multipartFields(body, params["boundary"])
	default:
		return nil
	}
}

func urlEncodedFields(raw string) [][2]string {
	var fields [][2]string
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		if uk, err := url.QueryUnescape(k); err == nil {
			k = uk
		}
		if uv, err := url.QueryUnescape(v); err == nil {
			v = uv
		}
		fields = append(fields, [2]string{k, v})
	}
	return fields
}

// multipartFields keeps value parts as-is and reduces file parts to their
// file name and content digest.
func multipartFields(body []byte, boundary string) [][2]string {
	if boundary == "" {
		return nil
	}

	var fields [][2]string
	mr := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		part, err := mr.NextPart()
		if err != nil {
			return fields
		}
		content, err := io.ReadAll(part)
		_ = part.Close()
		if err != nil {
			return fields
		}

		value := string(content)
		if name := part.FileName(); name != "" {
			sum := sha256.Sum256(content)
			value = "file:" + name + ":" + hex.EncodeToString(sum[:])
		}
		fields = append(fields, [2]string{part.FormName(), value})
	}
}

package gateway

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
)

// DefaultTextFieldKey names the text part of a PATCH upload when the
// caller gives no field key.
const DefaultTextFieldKey = "imageKey"

// fileFieldKeys is the form field the uploaded file is sent under, per verb.
var fileFieldKeys = map[string]string{
	"GET":    "file",
	"POST":   "image",
	"PUT":    "image",
	"PATCH":  "data",
	"DELETE": "file",
}

// FileFieldKey returns the form field used for file uploads with method.
func FileFieldKey(method string) string {
	if k, ok := fileFieldKeys[method]; ok {
		return k
	}
	return "file"
}

// ImageContentType derives the MIME type of an upload from its extension,
// kept in its original case. A path without one is sent as
// application/octet-stream.
func ImageContentType(path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "application/octet-stream"
	}
	return "image/" + ext
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// buildMultipart encodes the upload form for method. PATCH adds a text/html
// part named textKey carrying textValue.
func buildMultipart(method, filePath, textKey, textValue string) ([]byte, string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload file: %w", err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(FileFieldKey(method)), quoteEscaper.Replace(filepath.Base(filePath))))
	h.Set("Content-Type", ImageContentType(filePath))
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("failed to write file part: %w", err)
	}

	if method == "PATCH" {
		if textKey == "" {
			textKey = DefaultTextFieldKey
		}
		th := make(textproto.MIMEHeader)
		th.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"`, quoteEscaper.Replace(textKey)))
		th.Set("Content-Type", "text/html")
		tp, err := w.CreatePart(th)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create text part: %w", err)
		}
		if _, err := tp.Write([]byte(textValue)); err != nil {
			return nil, "", fmt.Errorf("failed to write text part: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart form: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

package httpclient

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
)

// MultipartBody is a multipart/form-data entity. Use it as a template body;
// the adapter encodes it and sets the Content-Type with its boundary, which
// overrides any content type the template declares.
//
// Parts keep the order they were added in. File parts are opened on every
// encode, so a retried exchange sends the same entity again.
type MultipartBody struct {
	parts []formPart
}

type formPart struct {
	name  string
	value string
	file  *FilePart
}

// FilePart is one uploaded file.
type FilePart struct {
	// FileName is reported to the server. Its extension picks the part's
	// content type when ContentType is empty.
	FileName    string
	ContentType string
	// Data is sent when Open is nil.
	Data []byte
	// Open returns the content for one encode. The reader is closed after use.
	Open func() (io.ReadCloser, error)
}

// NewMultipartBody returns an empty form.
func NewMultipartBody() *MultipartBody {
	return &MultipartBody{}
}

// Field appends a plain form field.
func (m *MultipartBody) Field(name, value string) *MultipartBody {
	m.parts = append(m.parts, formPart{name: name, value: value})
	return m
}

// File appends a file part under the form field name.
func (m *MultipartBody) File(name string, f FilePart) *MultipartBody {
	m.parts = append(m.parts, formPart{name: name, file: &f})
	return m
}

// LocalFile appends the file at path, read lazily on every encode.
func (m *MultipartBody) LocalFile(name, path string) *MultipartBody {
	return m.File(name, FilePart{
		FileName: filepath.Base(path),
		Open:     func() (io.ReadCloser, error) { return os.Open(path) },
	})
}

// Len returns the number of parts.
func (m *MultipartBody) Len() int {
	return len(m.parts)
}

// encode writes the whole form into memory and returns it with the
// Content-Type header value.
func (m *MultipartBody) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range m.parts {
		if p.file == nil {
			if err := w.WriteField(p.name, p.value); err != nil {
				return nil, "", err
			}
			continue
		}
		if err := writeFile(w, p.name, p.file); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func writeFile(w *multipart.Writer, name string, f *FilePart) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     name,
		"filename": f.FileName,
	}))
	header.Set("Content-Type", f.contentType())
	part, err := w.CreatePart(header)
	if err != nil {
		return err
	}

	if f.Open == nil {
		_, err = part.Write(f.Data)
		return err
	}
	r, err := f.Open()
	if err != nil {
		return err
	}
	defer r.Close()
	_, err = io.Copy(part, r)
	return err
}

func (f *FilePart) contentType() string {
	if f.ContentType != "" {
		return f.ContentType
	}
	if ct := mime.TypeByExtension(filepath.Ext(f.FileName)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

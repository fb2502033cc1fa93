package httpclient

import (
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/kbukum/crudkit/crud"
	"github.com/kbukum/crudkit/template"
)

type part struct {
	name, fileName, contentType, data string
}

func readParts(t *testing.T, r io.Reader, contentType string) []part {
	t.Helper()
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "multipart/form-data" {
		t.Fatalf("unexpected content type %q: %v", contentType, err)
	}
	var parts []part
	mr := multipart.NewReader(r, params["boundary"])
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			return parts
		}
		if err != nil {
			t.Fatalf("NextPart error: %v", err)
		}
		data, _ := io.ReadAll(p)
		parts = append(parts, part{p.FormName(), p.FileName(), p.Header.Get("Content-Type"), string(data)})
	}
}

func TestMultipartBody_KeepsOrder(t *testing.T) {
	body := NewMultipartBody().
		Field("name", "desk").
		File("photo", FilePart{FileName: "desk.png", Data: []byte("png")}).
		File("manual", FilePart{FileName: "manual.bin", ContentType: "application/x-manual", Data: []byte("m")}).
		Field("owner", "ops")

	r, ct, err := body.encode()
	if err != nil {
		t.Fatalf("encode() error: %v", err)
	}
	got := readParts(t, r, ct)
	want := []part{
		{"name", "", "", "desk"},
		{"photo", "desk.png", "image/png", "png"},
		{"manual", "manual.bin", "application/x-manual", "m"},
		{"owner", "", "", "ops"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d parts, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("part %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestMultipartBody_LocalFileReopensPerEncode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asset.json")
	if err := os.WriteFile(path, []byte(`{"id":1}`), 0o600); err != nil {
		t.Fatal(err)
	}
	body := NewMultipartBody().LocalFile("asset", path)

	for i := 0; i < 2; i++ {
		r, ct, err := body.encode()
		if err != nil {
			t.Fatalf("encode %d: %v", i, err)
		}
		parts := readParts(t, r, ct)
		if len(parts) != 1 || parts[0].data != `{"id":1}` || parts[0].fileName != "asset.json" {
			t.Errorf("encode %d produced %+v", i, parts)
		}
	}
}

func TestMultipartBody_MissingFile(t *testing.T) {
	body := NewMultipartBody().LocalFile("asset", filepath.Join(t.TempDir(), "missing"))
	if _, _, err := body.encode(); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestAdapter_Execute_Multipart(t *testing.T) {
	var contentType string
	var fields map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fields = map[string]string{"name": r.FormValue("name")}
		if f, h, err := r.FormFile("photo"); err == nil {
			data, _ := io.ReadAll(f)
			_ = f.Close()
			fields[h.Filename] = string(data)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	a, err := New(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	body := NewMultipartBody().Field("name", "desk").File("photo", FilePart{FileName: "desk.png", Data: []byte("png")})
	resp, err := a.Execute(t.Context(), crud.Request{
		Method:  http.MethodPut,
		Address: "/assets/desk",
		// A declared JSON content type must not replace the multipart boundary.
		Template: template.NewBuilder().ContentType(template.JSON).Body(body).MustBuild(),
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	defer resp.Close()

	if resp.StatusCode() != http.StatusCreated {
		t.Fatalf("status = %d, content type %q", resp.StatusCode(), contentType)
	}
	if fields["name"] != "desk" || fields["desk.png"] != "png" {
		t.Errorf("server saw %v", fields)
	}
}

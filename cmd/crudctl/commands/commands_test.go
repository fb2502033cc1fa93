package commands_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/kbukum/crudkit/cmd/crudctl/commands"
	"github.com/kbukum/crudkit/crud"
	"github.com/kbukum/crudkit/crudtest"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := commands.NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func startServer(t *testing.T) (*crudtest.Server, string) {
	t.Helper()
	s := crudtest.NewServer()
	srv := s.Start()
	t.Cleanup(srv.Close)
	return s, srv.URL
}

func TestNewRootCommand(t *testing.T) {
	cmd := commands.NewRootCommand()
	assert.Equal(t, "crudctl", cmd.Use)

	names := make([]string, 0, len(cmd.Commands()))
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"get", "put", "post", "delete", "version"}, names)

	for _, flag := range []string{"config", "base-url", "header", "accept", "content-type", "fail-on", "retries", "timeout", "output", "token", "verbose"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "missing flag %s", flag)
	}
	assert.Equal(t, "table", cmd.PersistentFlags().Lookup("output").DefValue)
	assert.Equal(t, "0", cmd.PersistentFlags().Lookup("retries").DefValue)
}

func TestGet_JSONOutput(t *testing.T) {
	s, url := startServer(t)
	a := s.Put(crudtest.Asset{Name: "lamp", Tags: []string{"office"}})
	cfg := writeConfig(t, "name: crudctl\n")

	out, err := execute(t, "get", url+"/assets/"+a.ID, "--config", cfg, "-o", "json")
	require.NoError(t, err)

	var result commands.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, http.StatusOK, result.Status)
	assert.Equal(t, `"`+a.ID+`"`, result.Headers["Etag"])
	body, ok := result.Body.(map[string]any)
	require.True(t, ok, "expected a structured body, got %T", result.Body)
	assert.Equal(t, "lamp", body["name"])
}

func TestPut_CreatesAsset(t *testing.T) {
	s, url := startServer(t)
	cfg := writeConfig(t, "name: crudctl\n")

	out, err := execute(t, "put", "/assets/desk-1", "--config", cfg, "--base-url", url, "-d", `{"name":"desk"}`, "-o", "yaml")
	require.NoError(t, err)

	var result commands.Result
	require.NoError(t, yaml.Unmarshal([]byte(out), &result))
	assert.Equal(t, http.StatusCreated, result.Status)

	stored, ok := s.Lookup("desk-1")
	require.True(t, ok)
	assert.Equal(t, "desk", stored.Name)

	reqs := s.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPut, reqs[0].Method)
	assert.Equal(t, "application/json", reqs[0].Header.Get("Content-Type"))
}

func TestPost_ReadsDataFile(t *testing.T) {
	s, url := startServer(t)
	a := s.Put(crudtest.Asset{Name: "chair"})
	cfg := writeConfig(t, "name: crudctl\n")
	data := filepath.Join(t.TempDir(), "patch.json")
	require.NoError(t, os.WriteFile(data, []byte(`{"name":"stool"}`), 0o600))

	out, err := execute(t, "post", "/assets/"+a.ID, "--config", cfg, "--base-url", url, "-d", "@"+data)
	require.NoError(t, err)
	assert.Contains(t, out, "200 OK")
	assert.Contains(t, out, `"name": "stool"`)

	stored, _ := s.Lookup(a.ID)
	assert.Equal(t, "stool", stored.Name)
}

func TestDelete_FailOnNonSuccess(t *testing.T) {
	_, url := startServer(t)
	cfg := writeConfig(t, "name: crudctl\n")

	_, err := execute(t, "delete", "/assets/missing", "--config", cfg, "--base-url", url, "--fail-on", "non-success")
	require.Error(t, err)

	var se *crud.StatusError
	require.True(t, errors.As(err, &se), "expected a status error, got %v", err)
	assert.Equal(t, http.StatusNotFound, se.Status)
}

func TestDelete_NoFailureSetPrintsStatus(t *testing.T) {
	_, url := startServer(t)
	cfg := writeConfig(t, "name: crudctl\n")

	out, err := execute(t, "delete", "/assets/missing", "--config", cfg, "--base-url", url, "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": 404`)
}

func TestRetries_RecoverServerError(t *testing.T) {
	s, url := startServer(t)
	a := s.Put(crudtest.Asset{Name: "lamp"})
	s.FailNext(http.StatusServiceUnavailable)
	cfg := writeConfig(t, "name: crudctl\nretry:\n  initial_backoff: 1ms\n")

	out, err := execute(t, "get", "/assets/"+a.ID, "--config", cfg, "--base-url", url, "--fail-on", "server", "--retries", "2", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": 200`)
	assert.Len(t, s.Requests(), 2)
}

func TestHeaderAndAcceptFlags(t *testing.T) {
	s, url := startServer(t)
	a := s.Put(crudtest.Asset{Name: "lamp"})
	cfg := writeConfig(t, "name: crudctl\n")

	_, err := execute(t, "get", "/assets/"+a.ID, "--config", cfg, "--base-url", url,
		"-H", "X-Team=assets", "-H", "X-Trace: 42", "--accept", "application/json", "--token", "secret")
	require.NoError(t, err)

	reqs := s.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "assets", reqs[0].Header.Get("X-Team"))
	assert.Equal(t, "42", reqs[0].Header.Get("X-Trace"))
	assert.Equal(t, "application/json", reqs[0].Header.Get("Accept"))
	assert.Equal(t, "Bearer secret", reqs[0].Header.Get("Authorization"))
	assert.NotEmpty(t, reqs[0].Header.Get("X-Request-ID"))
}

func TestConfigFileDefaults(t *testing.T) {
	s, url := startServer(t)
	a := s.Put(crudtest.Asset{Name: "lamp"})
	cfg := writeConfig(t, `name: inventory
client:
  base_url: `+url+`
  timeout: 5s
defaults:
  accept: [application/json]
  headers:
    X-Team: from-config
`)

	_, err := execute(t, "get", "/assets/"+a.ID, "--config", cfg)
	require.NoError(t, err)

	reqs := s.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "from-config", reqs[0].Header.Get("X-Team"))
	assert.Equal(t, "application/json", reqs[0].Header.Get("Accept"))
}

func TestInvalidFlags(t *testing.T) {
	cfg := writeConfig(t, "name: crudctl\n")

	tests := []struct {
		name string
		args []string
	}{
		{"output", []string{"get", "http://localhost/x", "--config", cfg, "-o", "xml"}},
		{"retries", []string{"get", "http://localhost/x", "--config", cfg, "--retries", "-1"}},
		{"fail-on", []string{"get", "http://localhost/x", "--config", cfg, "--fail-on", "teapot"}},
		{"header", []string{"get", "http://localhost/x", "--config", cfg, "-H", "novalue"}},
		{"accept", []string{"get", "http://localhost/x", "--config", cfg, "--accept", "not a type"}},
		{"base-url", []string{"get", "/x", "--config", cfg, "--base-url", "localhost:8080"}},
		{"args", []string{"get", "--config", cfg}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version", "-o", "json")
	require.NoError(t, err)

	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Contains(t, info, "version")
	assert.Contains(t, info, "platform")

	out, err = execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "crudctl ")
}

func TestPut_MultipartForm(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusUnsupportedMediaType)
			return
		}
		got = map[string]string{"name": r.FormValue("name")}
		if f, h, err := r.FormFile("photo"); err == nil {
			data, _ := io.ReadAll(f)
			_ = f.Close()
			got[h.Filename] = string(data)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	photo := filepath.Join(t.TempDir(), "desk.png")
	require.NoError(t, os.WriteFile(photo, []byte("png"), 0o600))
	cfg := writeConfig(t, "name: crudctl\n")

	out, err := execute(t, "put", "/assets/desk", "--config", cfg, "--base-url", srv.URL,
		"-F", "name=desk", "-F", "photo=@"+photo)
	require.NoError(t, err)
	assert.Contains(t, out, "204 No Content")
	assert.Equal(t, map[string]string{"name": "desk", "desk.png": "png"}, got)
}

func TestPut_DataAndFormExclusive(t *testing.T) {
	cfg := writeConfig(t, "name: crudctl\n")
	_, err := execute(t, "put", "http://localhost/x", "--config", cfg, "-d", "{}", "-F", "a=b")
	assert.Error(t, err)

	_, err = execute(t, "put", "http://localhost/x", "--config", cfg, "-F", "novalue")
	assert.Error(t, err)
}

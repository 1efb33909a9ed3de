package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testClient(t *testing.T, owner string, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := newClient(srv.Client(), "token", owner)
	base, err := url.Parse(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	c.client.BaseURL = base
	return c
}

func TestCreateRepositoryUser(t *testing.T) {
	var gotPath string
	var body map[string]any
	c := testClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"name":"demo","html_url":"https://github.com/me/demo","clone_url":"https://github.com/me/demo.git"}`))
	})

	repo, err := c.CreateRepository(context.Background(), "demo", "hello", false)
	if err != nil {
		t.Fatalf("CreateRepository: %v", err)
	}
	if gotPath != "/user/repos" {
		t.Errorf("path = %q, want /user/repos", gotPath)
	}
	if body["name"] != "demo" {
		t.Errorf("body name = %v", body["name"])
	}
	if repo.GetHTMLURL() != "https://github.com/me/demo" {
		t.Errorf("html url = %q", repo.GetHTMLURL())
	}
}

func TestCreateRepositoryOrgNotFound(t *testing.T) {
	c := testClient(t, "acme", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orgs/acme/repos" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Not Found"}`))
	})

	_, err := c.CreateRepository(context.Background(), "demo", "", false)
	if err == nil || !strings.Contains(err.Error(), `"acme"`) {
		t.Fatalf("err = %v, want organization error", err)
	}
}

func TestWriteFilesToDirectory(t *testing.T) {
	dir := t.TempDir()
	err := WriteFilesToDirectory(dir, map[string]string{
		"hello.py":      "print('hi')",
		"../escape.txt": "nope",
	})
	if err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "hello.py"))
	if err != nil || string(data) != "print('hi')" {
		t.Errorf("hello.py = %q, %v", data, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.txt")); err != nil {
		t.Errorf("expected path to be flattened into dir: %v", err)
	}
}

func TestEnabled(t *testing.T) {
	var nilClient *Client
	if nilClient.Enabled() {
		t.Error("nil client reported enabled")
	}
	if NewClient("", "").Enabled() {
		t.Error("client without token reported enabled")
	}
	if !NewClient("t", "").Enabled() {
		t.Error("client with token reported disabled")
	}
}

package blob

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPStorePut(t *testing.T) {
	var gotKey, gotContentType string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		gotKey = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		json.NewEncoder(w).Encode(putResponse{
			URL:      "http://store/jobs/j1/metadata.json",
			Pathname: "jobs/j1/metadata.json",
		})
	}))
	defer srv.Close()

	store := NewHTTPStore(HTTPStoreConfig{BaseURL: srv.URL})
	url, err := store.Put(context.Background(), "jobs/j1/metadata.json", []byte(`{"id":"j1"}`), "application/json")
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if url != "http://store/jobs/j1/metadata.json" {
		t.Errorf("url = %s", url)
	}
	if gotKey != "/jobs/j1/metadata.json" {
		t.Errorf("key = %s", gotKey)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %s", gotContentType)
	}
	if string(gotBody) != `{"id":"j1"}` {
		t.Errorf("body = %s", gotBody)
	}
}

func TestHTTPStoreList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("prefix"); got != "jobs/j1/" {
			t.Errorf("prefix = %s", got)
		}
		json.NewEncoder(w).Encode(listResponse{Blobs: []Object{
			{Key: "jobs/j1/metadata.json", URL: "http://store/jobs/j1/metadata.json"},
			{Key: "jobs/j1/chapters/0.json", URL: "http://store/jobs/j1/chapters/0.json"},
		}})
	}))
	defer srv.Close()

	store := NewHTTPStore(HTTPStoreConfig{BaseURL: srv.URL})
	objs, err := store.List(context.Background(), "jobs/j1/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(objs) != 2 {
		t.Fatalf("len = %d, want 2", len(objs))
	}
	if objs[0].Key != "jobs/j1/metadata.json" {
		t.Errorf("key = %s", objs[0].Key)
	}
}

func TestHTTPStoreServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := NewHTTPStore(HTTPStoreConfig{BaseURL: srv.URL})
	_, err := store.List(context.Background(), "jobs/")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("error = %v, want ErrStoreUnavailable", err)
	}
}

func TestHTTPStoreGetNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	store := NewHTTPStore(HTTPStoreConfig{BaseURL: srv.URL})
	_, err := store.Get(context.Background(), srv.URL+"/missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestHTTPStoreAuthHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sekrit" {
			t.Errorf("authorization = %q", got)
		}
		json.NewEncoder(w).Encode(listResponse{})
	}))
	defer srv.Close()

	store := NewHTTPStore(HTTPStoreConfig{BaseURL: srv.URL, Token: "sekrit"})
	if _, err := store.List(context.Background(), ""); err != nil {
		t.Fatalf("List() error = %v", err)
	}
}

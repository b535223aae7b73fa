package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPStore talks to a blob gateway over HTTP.
//
// The gateway exposes a small REST surface:
//
//	PUT    {base}/{key}            write object, returns {"url","pathname"}
//	GET    {base}?prefix={p}       list objects, returns {"blobs":[...]}
//	GET    {url}                   read object content
//	DELETE {base}?url={url}        delete object
type HTTPStore struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// HTTPStoreConfig configures an HTTPStore.
type HTTPStoreConfig struct {
	BaseURL string
	Token   string        // optional bearer token
	Timeout time.Duration // default 30s
}

// NewHTTPStore creates a blob gateway client.
func NewHTTPStore(cfg HTTPStoreConfig) *HTTPStore {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPStore{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type putResponse struct {
	URL      string `json:"url"`
	Pathname string `json:"pathname"`
}

type listResponse struct {
	Blobs []Object `json:"blobs"`
}

// Put writes data under key and returns the stored object's URL.
func (s *HTTPStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.baseURL+"/"+key, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	s.authorize(req)

	body, err := s.do(req)
	if err != nil {
		return "", err
	}

	var pr putResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return "", fmt.Errorf("failed to decode put response: %w", err)
	}
	if pr.URL == "" {
		return "", fmt.Errorf("put response missing url for key %s", key)
	}
	return pr.URL, nil
}

// List returns all objects under prefix.
func (s *HTTPStore) List(ctx context.Context, prefix string) ([]Object, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.baseURL+"?prefix="+url.QueryEscape(prefix), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	s.authorize(req)

	body, err := s.do(req)
	if err != nil {
		return nil, err
	}

	var lr listResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, fmt.Errorf("failed to decode list response: %w", err)
	}
	return lr.Blobs, nil
}

// Get reads an object's content by URL.
func (s *HTTPStore) Get(ctx context.Context, objectURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, objectURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	s.authorize(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, objectURL)
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status %d", ErrStoreUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get failed (status %d): %s", resp.StatusCode, objectURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return body, nil
}

// Delete removes an object by URL.
func (s *HTTPStore) Delete(ctx context.Context, objectURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		s.baseURL+"?url="+url.QueryEscape(objectURL), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	s.authorize(req)

	_, err = s.do(req)
	return err
}

func (s *HTTPStore) authorize(req *http.Request) {
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
}

// do executes a gateway request and reads the full response body.
// 5xx and transport faults surface as ErrStoreUnavailable.
func (s *HTTPStore) do(req *http.Request) ([]byte, error) {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrStoreUnavailable, resp.StatusCode, string(body))
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("blob gateway error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}

package integrations

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

	"github.com/yair/conference-portal/pkg/domain"
)

// BlobClient talks to a Vercel Blob style object store over HTTP.
type BlobClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type BlobConfig struct {
	BaseURL string
	Token   string
}

func NewBlobClient(config BlobConfig) (*BlobClient, error) {
	if config.Token == "" {
		return nil, fmt.Errorf("blob token is required")
	}
	if config.BaseURL == "" {
		return nil, fmt.Errorf("blob base URL is required")
	}

	return &BlobClient{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		token:   config.Token,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

type blobPutResponse struct {
	URL      string `json:"url"`
	Pathname string `json:"pathname"`
}

type blobListResponse struct {
	Blobs   []domain.BlobInfo `json:"blobs"`
	HasMore bool              `json:"hasMore"`
	Cursor  string            `json:"cursor"`
}

func (c *BlobClient) do(ctx context.Context, method, target string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: blob %s: %v", domain.ErrExternalAPIFailure, method, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, domain.ErrBlobNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: blob %s failed: status %d", domain.ErrExternalAPIFailure, method, resp.StatusCode)
	}
	return resp, nil
}

// Put uploads data under key and returns the object's URL.
func (c *BlobClient) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	resp, err := c.do(ctx, http.MethodPut, c.baseURL+"/"+strings.TrimLeft(key, "/"), bytes.NewReader(data), contentType)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out blobPutResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode put response: %w", err)
	}
	return out.URL, nil
}

// List returns every object under prefix, following pagination cursors.
func (c *BlobClient) List(ctx context.Context, prefix string) ([]domain.BlobInfo, error) {
	var all []domain.BlobInfo
	cursor := ""

	for {
		params := url.Values{}
		if prefix != "" {
			params.Set("prefix", prefix)
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}
		target := c.baseURL
		if len(params) > 0 {
			target += "?" + params.Encode()
		}

		resp, err := c.do(ctx, http.MethodGet, target, nil, "")
		if err != nil {
			return nil, err
		}

		var page blobListResponse
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to decode list response: %w", err)
		}

		all = append(all, page.Blobs...)
		if !page.HasMore || page.Cursor == "" {
			return all, nil
		}
		cursor = page.Cursor
	}
}

func (c *BlobClient) Get(ctx context.Context, blobURL string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, blobURL, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return data, nil
}

func (c *BlobClient) Delete(ctx context.Context, blobURL string) error {
	body, err := json.Marshal(map[string][]string{"urls": {blobURL}})
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, http.MethodPost, c.baseURL+"/delete", bytes.NewReader(body), "application/json")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

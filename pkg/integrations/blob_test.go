package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/yair/conference-portal/pkg/domain"
)

// fakeBlobServer is an in-memory stand-in for the blob HTTP API. Listing
// returns one object per page to exercise cursor handling.
type fakeBlobServer struct {
	mu      sync.Mutex
	objects map[string][]byte
	server  *httptest.Server
}

func newFakeBlobServer(t *testing.T) *fakeBlobServer {
	t.Helper()
	f := &fakeBlobServer{objects: make(map[string][]byte)}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeBlobServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer test-token" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/")
	switch {
	case r.Method == http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.objects[path] = data
		json.NewEncoder(w).Encode(blobPutResponse{URL: f.server.URL + "/" + path, Pathname: path})

	case r.Method == http.MethodPost && path == "delete":
		var req struct {
			URLs []string `json:"urls"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		for _, u := range req.URLs {
			delete(f.objects, strings.TrimPrefix(u, f.server.URL+"/"))
		}
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodGet && path == "":
		prefix := r.URL.Query().Get("prefix")
		var keys []string
		for k := range f.objects {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)

		start := 0
		if c := r.URL.Query().Get("cursor"); c != "" {
			for i, k := range keys {
				if k == c {
					start = i
				}
			}
		}
		page := blobListResponse{}
		if start < len(keys) {
			k := keys[start]
			page.Blobs = []domain.BlobInfo{{Pathname: k, URL: f.server.URL + "/" + k}}
			if start+1 < len(keys) {
				page.HasMore = true
				page.Cursor = keys[start+1]
			}
		}
		json.NewEncoder(w).Encode(page)

	case r.Method == http.MethodGet:
		data, ok := f.objects[path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(data)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestNewBlobClient(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		if _, err := NewBlobClient(BlobConfig{BaseURL: "http://example.com"}); err == nil {
			t.Error("expected error for missing token")
		}
	})

	t.Run("missing base URL", func(t *testing.T) {
		if _, err := NewBlobClient(BlobConfig{Token: "t"}); err == nil {
			t.Error("expected error for missing base URL")
		}
	})
}

func TestBlobClient(t *testing.T) {
	ctx := context.Background()
	fake := newFakeBlobServer(t)

	client, err := NewBlobClient(BlobConfig{BaseURL: fake.server.URL + "/", Token: "test-token"})
	if err != nil {
		t.Fatal(err)
	}

	var firstURL string
	t.Run("put and get", func(t *testing.T) {
		firstURL, err = client.Put(ctx, "interests/a.json", []byte(`{"email":"a@corp.com"}`), "application/json")
		if err != nil {
			t.Fatalf("put failed: %v", err)
		}

		data, err := client.Get(ctx, firstURL)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if string(data) != `{"email":"a@corp.com"}` {
			t.Errorf("unexpected body %s", data)
		}
	})

	t.Run("list follows cursors", func(t *testing.T) {
		for _, key := range []string{"interests/b.json", "interests/c.json", "other/x.json"} {
			if _, err := client.Put(ctx, key, []byte("{}"), "application/json"); err != nil {
				t.Fatal(err)
			}
		}

		blobs, err := client.List(ctx, "interests/")
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(blobs) != 3 {
			t.Fatalf("expected 3 blobs across pages, got %d: %+v", len(blobs), blobs)
		}
		if blobs[0].Pathname != "interests/a.json" {
			t.Errorf("unexpected first blob %+v", blobs[0])
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := client.Delete(ctx, firstURL); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if _, err := client.Get(ctx, firstURL); !errors.Is(err, domain.ErrBlobNotFound) {
			t.Errorf("expected ErrBlobNotFound after delete, got %v", err)
		}
	})

	t.Run("bad token", func(t *testing.T) {
		bad, _ := NewBlobClient(BlobConfig{BaseURL: fake.server.URL, Token: "nope"})
		if _, err := bad.List(ctx, ""); !errors.Is(err, domain.ErrExternalAPIFailure) {
			t.Errorf("expected ErrExternalAPIFailure, got %v", err)
		}
	})
}

package filestore

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDetectAllowList(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		mime string
		ok   bool
	}{
		{"pdf", []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n"), "application/pdf", true},
		{"png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), "image/png", true},
		{"jpeg", []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00"), "image/jpeg", true},
		{"text", []byte("Patient follow-up notes\n"), "text/plain", true},
		{"csv as text", []byte("name,score\nAsha,1\nBen,0\n"), "text/plain", true},
		{"json as text", []byte(`{"note":"follow up next week"}`), "text/plain", true},
		{"html stored as text", []byte("<html><body><script>alert(1)</script></body></html>"), "text/plain", true},
		{"gif", []byte("GIF89a\x01\x00\x01\x00"), "", false},
		{"zip", []byte("PK\x03\x04\x14\x00\x00\x00\x08\x00"), "", false},
	}
	for _, tc := range cases {
		got, err := Detect(tc.data)
		if tc.ok {
			if err != nil {
				t.Fatalf("%s: unexpected error %v", tc.name, err)
			}
			if got.MIME != tc.mime {
				t.Fatalf("%s: expected %s, got %s", tc.name, tc.mime, got.MIME)
			}
			if got.MIME == "text/plain" && got.Extension != ".txt" {
				t.Fatalf("%s: expected text content saved as .txt, got %q", tc.name, got.Extension)
			}
			continue
		}
		if !errors.Is(err, ErrUnsupportedType) {
			t.Fatalf("%s: expected ErrUnsupportedType, got %v", tc.name, err)
		}
	}
}

func TestCheckSize(t *testing.T) {
	if err := CheckSize(MaxUploadBytes, 0); err != nil {
		t.Fatalf("expected limit to be inclusive, got %v", err)
	}
	if err := CheckSize(MaxUploadBytes+1, 0); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if err := CheckSize(11, 10); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected custom limit to apply, got %v", err)
	}
}

func TestLocalUploadServeDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocal(dir, "http://localhost:8080/files/")
	if err != nil {
		t.Fatalf("new local: %v", err)
	}
	ctx := context.Background()

	url, err := store.Upload(ctx, "reviews/s1/k1/a.txt", strings.NewReader("hello"), "text/plain")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if url != "http://localhost:8080/files/reviews/s1/k1/a.txt" {
		t.Fatalf("unexpected url %s", url)
	}
	data, err := os.ReadFile(filepath.Join(dir, "reviews", "s1", "k1", "a.txt"))
	if err != nil || string(data) != "hello" {
		t.Fatalf("expected file on disk, got %q %v", data, err)
	}

	req := httptest.NewRequest(http.MethodGet, "/files/reviews/s1/k1/a.txt", nil)
	rec := httptest.NewRecorder()
	store.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !bytes.Equal(rec.Body.Bytes(), []byte("hello")) {
		t.Fatalf("expected served file, got %d %q", rec.Code, rec.Body.String())
	}

	if err := store.Delete(ctx, url); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, url); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if err := store.Delete(ctx, "https://elsewhere.example/x.txt"); !errors.Is(err, ErrForeignURL) {
		t.Fatalf("expected ErrForeignURL, got %v", err)
	}
}

func TestLocalRejectsTraversal(t *testing.T) {
	store, err := NewLocal(t.TempDir(), "")
	if err != nil {
		t.Fatalf("new local: %v", err)
	}
	if _, err := store.Upload(context.Background(), "../escape.txt", strings.NewReader("x"), "text/plain"); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
	if _, err := store.Upload(context.Background(), "", strings.NewReader("x"), "text/plain"); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("expected ErrEmptyKey, got %v", err)
	}
}

func TestMapHTTPStatus(t *testing.T) {
	if MapHTTPStatus(ErrNotFound) != http.StatusNotFound {
		t.Fatalf("expected 404")
	}
	if MapHTTPStatus(ErrTooLarge) != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413")
	}
	if MapHTTPStatus(errors.New("boom")) != http.StatusInternalServerError {
		t.Fatalf("expected 500")
	}
}

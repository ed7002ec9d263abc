package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
)

func payloadHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	})
}

func TestCompressBrotliPreferred(t *testing.T) {
	body := strings.Repeat(`{"force":[0.1,0.2,0.3]},`, 100)
	handler := Compress(payloadHandler(body))

	r := httptest.NewRequest(http.MethodGet, "/api/runs/x/forces", nil)
	r.Header.Set("Accept-Encoding", "gzip, br")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if enc := w.Header().Get("Content-Encoding"); enc != "br" {
		t.Fatalf("expected brotli encoding, got %q", enc)
	}

	decoded, err := io.ReadAll(brotli.NewReader(w.Body))
	if err != nil {
		t.Fatalf("failed to decode brotli body: %v", err)
	}
	if string(decoded) != body {
		t.Error("decoded body does not match original")
	}
}

func TestCompressGzipFallback(t *testing.T) {
	body := strings.Repeat(`{"force":[0.1,0.2,0.3]},`, 100)
	handler := Compress(payloadHandler(body))

	r := httptest.NewRequest(http.MethodGet, "/api/runs/x/forces", nil)
	r.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if enc := w.Header().Get("Content-Encoding"); enc != "gzip" {
		t.Fatalf("expected gzip encoding, got %q", enc)
	}

	gr, err := gzip.NewReader(w.Body)
	if err != nil {
		t.Fatalf("failed to open gzip reader: %v", err)
	}
	decoded, err := io.ReadAll(gr)
	if err != nil {
		t.Fatalf("failed to decode gzip body: %v", err)
	}
	if string(decoded) != body {
		t.Error("decoded body does not match original")
	}
}

func TestCompressIdentity(t *testing.T) {
	body := `{"status":"ok"}`
	handler := Compress(payloadHandler(body))

	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if enc := w.Header().Get("Content-Encoding"); enc != "" {
		t.Fatalf("expected no encoding, got %q", enc)
	}
	if w.Body.String() != body {
		t.Error("body should pass through unchanged")
	}
}

// A websocket handshake carries Accept-Encoding, but the upgrader needs the
// raw ResponseWriter to hijack the connection; compression must step aside.
func TestCompressSkipsUpgradeRequests(t *testing.T) {
	var sawWrapped bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawWrapped = w.(*compressResponseWriter)
		w.WriteHeader(http.StatusSwitchingProtocols)
	})
	handler := Compress(inner)

	r := httptest.NewRequest(http.MethodGet, "/api/runs/x/ws", nil)
	r.Header.Set("Accept-Encoding", "gzip, deflate, br")
	r.Header.Set("Connection", "Upgrade")
	r.Header.Set("Upgrade", "websocket")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if sawWrapped {
		t.Error("upgrade request must reach the handler with the raw ResponseWriter")
	}
	if enc := w.Header().Get("Content-Encoding"); enc != "" {
		t.Errorf("upgrade response must not carry Content-Encoding, got %q", enc)
	}
}

func BenchmarkCompressBrotli(b *testing.B) {
	body := strings.Repeat(`{"force":[0.123456789,0.234567891,0.345678912]},`, 1000)
	handler := Compress(payloadHandler(body))

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r := httptest.NewRequest(http.MethodGet, "/api/runs/x/forces", nil)
		r.Header.Set("Accept-Encoding", "br")
		w := httptest.NewRecorder()
		w.Body = &bytes.Buffer{}
		handler.ServeHTTP(w, r)
	}
}

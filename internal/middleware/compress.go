package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
)

// compressResponseWriter routes the body through a compressing writer while
// headers still go to the underlying ResponseWriter.
type compressResponseWriter struct {
	io.Writer
	http.ResponseWriter
	wroteHeader bool
}

func (w *compressResponseWriter) WriteHeader(status int) {
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *compressResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.Writer.Write(b)
}

var (
	gzipPool = sync.Pool{
		New: func() interface{} { return gzip.NewWriter(io.Discard) },
	}
	brotliPool = sync.Pool{
		New: func() interface{} { return brotli.NewWriterLevel(io.Discard, brotli.DefaultCompression) },
	}
)

// Compress negotiates a content encoding with the client. Brotli is
// preferred when accepted, then gzip; force payloads are large JSON arrays
// and compress well either way.
//
// Protocol upgrades (the websocket progress stream) bypass compression:
// wrapping the ResponseWriter would hide http.Hijacker from the upgrader,
// and browsers send Accept-Encoding on the handshake request.
func Compress(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Upgrade") != "" {
			next.ServeHTTP(w, r)
			return
		}

		accept := r.Header.Get("Accept-Encoding")
		switch {
		case strings.Contains(accept, "br"):
			bw := brotliPool.Get().(*brotli.Writer)
			defer brotliPool.Put(bw)
			bw.Reset(w)
			defer bw.Close()

			w.Header().Set("Content-Encoding", "br")
			w.Header().Del("Content-Length")
			next.ServeHTTP(&compressResponseWriter{Writer: bw, ResponseWriter: w}, r)

		case strings.Contains(accept, "gzip"):
			gz := gzipPool.Get().(*gzip.Writer)
			defer gzipPool.Put(gz)
			gz.Reset(w)
			defer gz.Close()

			w.Header().Set("Content-Encoding", "gzip")
			w.Header().Del("Content-Length")
			next.ServeHTTP(&compressResponseWriter{Writer: gz, ResponseWriter: w}, r)

		default:
			next.ServeHTTP(w, r)
		}
	})
}

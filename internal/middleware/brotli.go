package middleware

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// BrotliConfig tunes response compression.
type BrotliConfig struct {
	Quality   int
	MinLength int
}

// DefaultBrotliConfig compresses bodies of 1 KiB and up at the default level.
var DefaultBrotliConfig = BrotliConfig{
	Quality:   brotli.DefaultCompression,
	MinLength: 1024,
}

// brotliWriter holds the whole body so the encoding can be chosen once the
// size is known. A handler that flushes is streaming; from then on writes go
// straight to the client uncompressed.
type brotliWriter struct {
	gin.ResponseWriter
	body      bytes.Buffer
	streaming bool
}

func (bw *brotliWriter) Write(data []byte) (int, error) {
	if bw.streaming {
		return bw.ResponseWriter.Write(data)
	}
	return bw.body.Write(data)
}

func (bw *brotliWriter) WriteString(s string) (int, error) {
	if bw.streaming {
		return bw.ResponseWriter.WriteString(s)
	}
	return bw.body.WriteString(s)
}

func (bw *brotliWriter) Flush() {
	if !bw.streaming {
		bw.streaming = true
		if bw.body.Len() > 0 {
			_, _ = bw.ResponseWriter.Write(bw.body.Bytes())
			bw.body.Reset()
		}
	}
	bw.ResponseWriter.Flush()
}

// Brotli compresses responses for clients that accept "br".
func Brotli() gin.HandlerFunc {
	return BrotliWithConfig(DefaultBrotliConfig)
}

// BrotliWithConfig is Brotli with explicit settings.
func BrotliWithConfig(cfg BrotliConfig) gin.HandlerFunc {
	if cfg.Quality < brotli.BestSpeed || cfg.Quality > brotli.BestCompression {
		cfg.Quality = brotli.DefaultCompression
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = DefaultBrotliConfig.MinLength
	}

	return func(c *gin.Context) {
		if isStreaming(c.Request) || !acceptsBrotli(c.Request) {
			c.Next()
			return
		}

		original := c.Writer
		bw := &brotliWriter{ResponseWriter: original}
		c.Writer = bw
		c.Next()
		c.Writer = original
		if bw.streaming {
			return
		}

		original.Header().Add("Vary", "Accept-Encoding")
		body := bw.body.Bytes()
		if len(body) < cfg.MinLength || original.Header().Get("Content-Encoding") != "" {
			_, _ = original.Write(body)
			return
		}

		var compressed bytes.Buffer
		zw := brotli.NewWriterLevel(&compressed, cfg.Quality)
		if _, err := zw.Write(body); err != nil {
			_ = c.Error(err)
			_, _ = original.Write(body)
			return
		}
		if err := zw.Close(); err != nil {
			_ = c.Error(err)
			_, _ = original.Write(body)
			return
		}

		original.Header().Set("Content-Encoding", "br")
		original.Header().Set("Content-Length", strconv.Itoa(compressed.Len()))
		_, _ = original.Write(compressed.Bytes())
	}
}

// isStreaming reports requests whose responses must not be buffered.
func isStreaming(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		return true
	}
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

func acceptsBrotli(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(enc), ";")
		if strings.EqualFold(name, "br") {
			return true
		}
	}
	return false
}

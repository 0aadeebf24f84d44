package middleware

import (
	"bufio"
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compressingRouter(body string) *gin.Engine {
	r := gin.New()
	r.Use(Brotli(), NoStore())
	r.GET("/payload", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte(body))
	})
	return r
}

func TestBrotli_CompressesLargeBodies(t *testing.T) {
	body := `{"data":"` + strings.Repeat("exam ", 1000) + `"}`
	r := compressingRouter(body)

	req := httptest.NewRequest(http.MethodGet, "/payload", nil)
	req.Header.Set("Accept-Encoding", "gzip, br;q=0.9")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "br", rec.Header().Get("Content-Encoding"))
	assert.Equal(t, "Accept-Encoding", rec.Header().Get("Vary"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Less(t, rec.Body.Len(), len(body))

	plain, err := io.ReadAll(brotli.NewReader(bytes.NewReader(rec.Body.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, body, string(plain))
}

func TestBrotli_PassesThrough(t *testing.T) {
	large := strings.Repeat("x", 4096)

	tests := []struct {
		name   string
		body   string
		accept string
		header map[string]string
	}{
		{"small body", `{"ok":true}`, "br", nil},
		{"client without br", large, "gzip", nil},
		{"event stream", large, "br", map[string]string{"Accept": "text/event-stream"}},
		{"websocket upgrade", large, "br", map[string]string{"Upgrade": "websocket"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := compressingRouter(tt.body)
			req := httptest.NewRequest(http.MethodGet, "/payload", nil)
			req.Header.Set("Accept-Encoding", tt.accept)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Empty(t, rec.Header().Get("Content-Encoding"))
			assert.Equal(t, tt.body, rec.Body.String())
		})
	}
}

func TestBrotli_FlushedStreamIsNotBuffered(t *testing.T) {
	release := make(chan struct{})
	r := gin.New()
	r.Use(Brotli())
	r.GET("/monitor", func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "text/event-stream")
		_, _ = c.Writer.WriteString("event: snapshot\ndata: " + strings.Repeat("s", 2048) + "\n\n")
		c.Writer.Flush()
		<-release
		_, _ = c.Writer.WriteString("event: exam\ndata: {}\n\n")
		c.Writer.Flush()
	})
	srv := httptest.NewServer(r)
	defer srv.Close()
	defer close(release)

	// No Accept: text/event-stream, so only the flush reveals the stream.
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/monitor", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "br")
	resp, err := http.DefaultTransport.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Empty(t, resp.Header.Get("Content-Encoding"))
	first, err := bufio.NewReader(resp.Body).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: snapshot\n", first)
}

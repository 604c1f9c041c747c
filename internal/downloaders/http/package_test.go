package splithttp

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/tanq16/splitfetch/internal/utils"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type requestLog struct {
	heads  atomic.Int32
	gets   atomic.Int32
	mu     sync.Mutex
	ranges []string
}

func (l *requestLog) record(r *http.Request) {
	switch r.Method {
	case http.MethodHead:
		l.heads.Add(1)
	case http.MethodGet:
		l.gets.Add(1)
	}
	if rg := r.Header.Get("Range"); rg != "" {
		l.mu.Lock()
		l.ranges = append(l.ranges, rg)
		l.mu.Unlock()
	}
}

func (l *requestLog) rangeList() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.ranges...)
}

func (l *requestLog) total() int32 {
	return l.heads.Load() + l.gets.Load()
}

// newRangeServer serves data with full byte-range support.
func newRangeServer(t *testing.T, data []byte) (*httptest.Server, *requestLog) {
	t.Helper()
	reqs := &requestLog{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqs.record(r)
		w.Header().Set("Accept-Ranges", "bytes")
		http.ServeContent(w, r, "file.bin", time.Time{}, bytes.NewReader(data))
	}))
	t.Cleanup(server.Close)
	return server, reqs
}

// newPlainServer ignores Range headers and never advertises range support.
func newPlainServer(t *testing.T, data []byte) (*httptest.Server, *requestLog) {
	t.Helper()
	reqs := &requestLog{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqs.record(r)
		w.Header().Set("Accept-Ranges", "none")
		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			w.Write(data)
		}
	}))
	t.Cleanup(server.Close)
	return server, reqs
}

func newTestClient(t *testing.T) *utils.HTTPClient {
	t.Helper()
	client := utils.NewHTTPClient(utils.HTTPClientConfig{Timeout: 10 * time.Second})
	t.Cleanup(client.CloseIdleConnections)
	return client
}

func testPayload(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte((i*31 + i/251) % 256)
	}
	return data
}

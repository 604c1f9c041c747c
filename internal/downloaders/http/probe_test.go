package splithttp

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tanq16/splitfetch/internal/utils"
)

func TestProbeRangeServer(t *testing.T) {
	server, reqs := newRangeServer(t, testPayload(1000))
	meta, err := Probe(context.Background(), newTestClient(t), server.URL+"/file.bin", nil)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if !meta.SupportsRanges {
		t.Error("expected range support")
	}
	if meta.TotalSize != 1000 {
		t.Errorf("expected size 1000, got %d", meta.TotalSize)
	}
	if reqs.heads.Load() != 1 || reqs.gets.Load() != 0 {
		t.Errorf("expected a single HEAD, got %d HEAD and %d GET", reqs.heads.Load(), reqs.gets.Load())
	}
}

func TestProbeHeaders(t *testing.T) {
	tests := []struct {
		name         string
		acceptRanges string
		length       string
		wantRanges   bool
		wantSize     uint64
	}{
		{"bytes with length", "bytes", "2048", true, 2048},
		{"no accept-ranges", "", "2048", false, 2048},
		{"accept-ranges none", "none", "2048", false, 2048},
		{"missing length", "bytes", "", true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.acceptRanges != "" {
					w.Header().Set("Accept-Ranges", tt.acceptRanges)
				}
				if tt.length != "" {
					w.Header().Set("Content-Length", tt.length)
				}
			}))
			defer server.Close()
			meta, err := Probe(context.Background(), newTestClient(t), server.URL+"/f", nil)
			if err != nil {
				t.Fatalf("Probe: %v", err)
			}
			if meta.SupportsRanges != tt.wantRanges {
				t.Errorf("expected ranges=%v, got %v", tt.wantRanges, meta.SupportsRanges)
			}
			if meta.TotalSize != tt.wantSize {
				t.Errorf("expected size %d, got %d", tt.wantSize, meta.TotalSize)
			}
		})
	}
}

func TestProbeErrorStatusFallsBack(t *testing.T) {
	for _, status := range []int{
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusNotFound,
		http.StatusMethodNotAllowed,
		http.StatusInternalServerError,
		http.StatusNotImplemented,
	} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Accept-Ranges", "bytes")
				w.Header().Set("Content-Length", "4096")
				w.WriteHeader(status)
			}))
			defer server.Close()
			meta, err := Probe(context.Background(), newTestClient(t), server.URL+"/f", nil)
			if err != nil {
				t.Fatalf("Probe: %v", err)
			}
			if meta != (utils.ResourceMeta{}) {
				t.Errorf("expected empty meta, got %+v", meta)
			}
		})
	}
}

func TestProbeSendsJobHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Accept-Ranges", "bytes")
		w.Header().Set("Content-Length", "512")
	}))
	defer server.Close()
	meta, err := Probe(context.Background(), newTestClient(t), server.URL+"/f", []string{"Authorization: Bearer abc"})
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if !meta.SupportsRanges || meta.TotalSize != 512 {
		t.Errorf("expected authorized metadata, got %+v", meta)
	}
}

// net/http rejects a malformed Content-Length before the body is handed
// over, so such a server fails the probe instead of reporting size 0.
func TestProbeMalformedLength(t *testing.T) {
	for _, length := range []string{"lots", "-5"} {
		t.Run(length, func(t *testing.T) {
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			if err != nil {
				t.Fatal(err)
			}
			defer ln.Close()
			done := make(chan struct{})
			go func() {
				defer close(done)
				conn, err := ln.Accept()
				if err != nil {
					return
				}
				defer conn.Close()
				bufio.NewReader(conn).ReadString('\n')
				fmt.Fprintf(conn, "HTTP/1.1 200 OK\r\nAccept-Ranges: bytes\r\nContent-Length: %s\r\nConnection: close\r\n\r\n", length)
			}()
			_, err = Probe(context.Background(), newTestClient(t), "http://"+ln.Addr().String()+"/f", nil)
			<-done
			if !utils.IsKind(err, utils.KindTransport) {
				t.Fatalf("expected transport error, got %v", err)
			}
		})
	}
}

func TestProbeUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL + "/f"
	server.Close()
	_, err := Probe(context.Background(), newTestClient(t), url, nil)
	if !utils.IsKind(err, utils.KindTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

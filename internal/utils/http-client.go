package utils

import (
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

type HTTPClientConfig struct {
	Timeout        time.Duration
	KATimeout      time.Duration
	ProxyURL       string
	ProxyUsername  string
	ProxyPassword  string
	UserAgent      string
	BearerToken    string
	HighThreadMode bool // advanced socket options for high concurrency
}

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPClient is shared by every job and fragment of a run; it is not
// mutated after construction.
type HTTPClient struct {
	client *http.Client
	config HTTPClientConfig
}

func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	if cfg.KATimeout == 0 {
		cfg.KATimeout = 90 * time.Second
	}
	transport := &http.Transport{
		IdleConnTimeout:     cfg.KATimeout,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		DisableCompression:  true,
		MaxConnsPerHost:     0,
	}
	if cfg.HighThreadMode {
		transport.DialContext = (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
			Control: func(network, address string, c syscall.RawConn) error {
				return c.Control(func(fd uintptr) {
					setSocketOptions(fd)
				})
			},
		}).DialContext
	}
	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			log.Error().Err(err).Str("proxy", cfg.ProxyURL).Msg("Invalid proxy URL, proceeding without proxy")
		} else {
			if cfg.ProxyUsername != "" {
				if cfg.ProxyPassword != "" {
					proxyURL.User = url.UserPassword(cfg.ProxyUsername, cfg.ProxyPassword)
				} else {
					proxyURL.User = url.User(cfg.ProxyUsername)
				}
			}
			transport.Proxy = http.ProxyURL(proxyURL)
			log.Debug().Str("proxy", proxyURL.Redacted()).Msg("Using proxy for connections")
		}
	}
	var rt http.RoundTripper = transport
	if cfg.BearerToken != "" {
		rt = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.BearerToken, TokenType: "Bearer"}),
			Base:   transport,
		}
	}
	// Timeout 0 leaves request deadlines to the transport and the caller's context
	return &HTTPClient{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: rt,
		},
		config: cfg,
	}
}

func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		if c.config.UserAgent != "" {
			req.Header.Set("User-Agent", c.config.UserAgent)
		} else {
			req.Header.Set("User-Agent", ToolUserAgent)
		}
	}
	return c.client.Do(req)
}

// CloseIdleConnections releases pooled connections once a run is over.
func (c *HTTPClient) CloseIdleConnections() {
	c.client.CloseIdleConnections()
}

// ApplyHeaders adds every well-formed "Name: Value" entry on the request.
// Entries without a colon are dropped rather than rejected.
func ApplyHeaders(req *http.Request, headers []string) {
	for _, h := range ParseHeaderArgs(headers) {
		req.Header.Add(h.Name, h.Value)
	}
}

package yandex

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// fakeUpstream emulates the API, storage and CDN hosts on one TLS server.
type fakeUpstream struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	hits     map[string]int
	requests []*http.Request
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()
	up := &fakeUpstream{
		t:      t,
		routes: make(map[string]http.HandlerFunc),
		hits:   make(map[string]int),
	}
	up.server = httptest.NewTLSServer(http.HandlerFunc(up.serve))
	t.Cleanup(up.server.Close)
	return up
}

func (u *fakeUpstream) serve(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	u.hits[r.URL.Path]++
	u.requests = append(u.requests, r.Clone(r.Context()))
	handler, ok := u.routes[r.URL.Path]
	u.mu.Unlock()

	if !ok {
		u.t.Errorf("unexpected request %s", r.URL.String())
		http.NotFound(w, r)
		return
	}
	handler(w, r)
}

func (u *fakeUpstream) handle(path string, h http.HandlerFunc) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.routes[path] = h
}

// handleJSON serves body with the request id echoed back.
func (u *fakeUpstream) handleJSON(path, body string) {
	u.handle(path, jsonResponder(body))
}

func (u *fakeUpstream) hitCount(path string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.hits[path]
}

func (u *fakeUpstream) totalHits() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	total := 0
	for _, n := range u.hits {
		total += n
	}
	return total
}

func (u *fakeUpstream) lastRequest(path string) *http.Request {
	u.mu.Lock()
	defer u.mu.Unlock()
	for i := len(u.requests) - 1; i >= 0; i-- {
		if u.requests[i].URL.Path == path {
			return u.requests[i]
		}
	}
	return nil
}

// host returns the host:port of the server, usable as a storage host.
func (u *fakeUpstream) host() string {
	return strings.TrimPrefix(u.server.URL, "https://")
}

func (u *fakeUpstream) endpoints() Endpoints {
	return Endpoints{
		API:          u.server.URL + "/api/",
		ProxyAPI:     u.server.URL + "/proxy-api/",
		Web:          defaultWebOrigin,
		Storage:      u.server.URL + "/storage/",
		ProxyStorage: u.server.URL + "/proxy-storage/",
	}
}

func jsonResponder(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerRequestID, r.Header.Get(headerRequestID))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func testConfig(up *fakeUpstream) Config {
	cfg := DefaultConfig()
	cfg.Token = "test-token"
	cfg.Timeout = 5 * time.Second
	cfg.Endpoints = up.endpoints()
	return cfg
}

type testEnv struct {
	up       *fakeUpstream
	client   *Client
	platform *Platform
	metrics  *Metrics
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()
	up := newFakeUpstream(t)
	cfg := testConfig(up)
	if mutate != nil {
		mutate(&cfg)
	}
	metrics, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	client := NewClient(cfg, up.server.Client(), nil, metrics)
	return &testEnv{
		up:       up,
		client:   client,
		platform: NewPlatform(cfg, client, nil),
		metrics:  metrics,
	}
}

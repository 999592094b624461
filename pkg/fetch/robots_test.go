package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/adithyagurusai/media-extractor/pkg/config"
)

func newTestRobotsHandler(cfg *config.AppConfig) *RobotsHandler {
	log := testLogger()
	fetcher := NewFetcher(testClient(), cfg, log)
	limiter := NewRateLimiter(0, log)
	return NewRobotsHandler(fetcher, limiter, cfg, logrus.NewEntry(log))
}

func TestRobots_DisabledGateAllowsEverything(t *testing.T) {
	fetches := &atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		w.Write([]byte("User-agent: *\nDisallow: /"))
	}))
	t.Cleanup(server.Close)

	cfg := testConfig(1)
	cfg.RespectRobots = false
	rh := newTestRobotsHandler(cfg)

	if !rh.Allowed(context.Background(), server.URL+"/anything") {
		t.Error("disabled gate must allow everything")
	}
	if fetches.Load() != 0 {
		t.Error("disabled gate must never fetch robots.txt")
	}
}

func TestRobots_DisallowedPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("User-agent: *\nDisallow: /private/"))
	}))
	t.Cleanup(server.Close)

	cfg := testConfig(1)
	cfg.RespectRobots = true
	rh := newTestRobotsHandler(cfg)

	if rh.Allowed(context.Background(), server.URL+"/private/card.jpg") {
		t.Error("expected /private/ to be disallowed")
	}
	if !rh.Allowed(context.Background(), server.URL+"/public/card.jpg") {
		t.Error("expected /public/ to be allowed")
	}
}

func TestRobots_FetchFailureAllows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(server.Close)

	cfg := testConfig(0)
	cfg.RespectRobots = true
	rh := newTestRobotsHandler(cfg)

	if !rh.Allowed(context.Background(), server.URL+"/card.jpg") {
		t.Error("missing robots.txt must allow access")
	}
}

func TestRobots_CachesPerHost(t *testing.T) {
	fetches := &atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fetches.Add(1)
		}
		w.Write([]byte("User-agent: *\nAllow: /"))
	}))
	t.Cleanup(server.Close)

	cfg := testConfig(0)
	cfg.RespectRobots = true
	rh := newTestRobotsHandler(cfg)

	rh.Allowed(context.Background(), server.URL+"/a.jpg")
	rh.Allowed(context.Background(), server.URL+"/b.jpg")
	rh.Allowed(context.Background(), server.URL+"/c.jpg")

	if fetches.Load() != 1 {
		t.Errorf("robots.txt fetched %d times, want 1 (cached)", fetches.Load())
	}
}

package transmission

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/seriarr/seriarr/internal/config"
	"github.com/sirupsen/logrus"
)

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := &config.Config{
		Transmission: config.TransmissionConfig{
			URL:       url,
			Username:  "user",
			Password:  "pass",
			SSLVerify: true,
		},
	}
	client, err := NewClient(cfg, logger)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func TestConnectHandshake(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(sessionHeader) == "" {
			w.Header().Set(sessionHeader, "token-123")
			w.WriteHeader(http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if client.sessionID != "token-123" {
		t.Errorf("sessionID = %q, want token-123", client.sessionID)
	}
}

func TestConnectRejectsOtherStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if err := client.Connect(context.Background()); err == nil {
		t.Fatal("expected an error for a 401 response")
	}
}

func TestGuardBeforeConnect(t *testing.T) {
	client := newTestClient(t, "http://localhost:9091/transmission/rpc")

	if _, err := client.AddTorrent(context.Background(), "/downloads", "http://x/t"); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("AddTorrent before Connect: err = %v, want ErrNotAuthenticated", err)
	}
	if _, err := client.GetAllTorrents(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("GetAllTorrents before Connect: err = %v, want ErrNotAuthenticated", err)
	}
}

func rpcServer(t *testing.T, handler func(method string, w http.ResponseWriter)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Header().Set(sessionHeader, "token-123")
			w.WriteHeader(http.StatusConflict)
			return
		}
		if r.Header.Get(sessionHeader) != "token-123" {
			w.Header().Set(sessionHeader, "token-123")
			w.WriteHeader(http.StatusConflict)
			return
		}

		var req struct {
			Method string `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode RPC request: %v", err)
		}
		handler(req.Method, w)
	}))
}

func TestAddTorrent(t *testing.T) {
	server := rpcServer(t, func(method string, w http.ResponseWriter) {
		if method != "torrent-add" {
			t.Errorf("method = %q, want torrent-add", method)
		}
		io.WriteString(w, `{"result":"success","arguments":{"torrent-added":{"id":7,"name":"Show - 04.mkv","hashString":"abc"}}}`)
	})
	defer server.Close()

	client := newTestClient(t, server.URL)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	accepted, err := client.AddTorrent(context.Background(), "/server/Show", "http://remote/download?tid=7")
	if err != nil {
		t.Fatalf("AddTorrent failed: %v", err)
	}
	if !accepted {
		t.Error("expected the torrent to be accepted")
	}
}

func TestAddTorrentDuplicateIsNotAccepted(t *testing.T) {
	server := rpcServer(t, func(method string, w http.ResponseWriter) {
		io.WriteString(w, `{"result":"success","arguments":{"torrent-duplicate":{"id":7,"name":"Show - 04.mkv","hashString":"abc"}}}`)
	})
	defer server.Close()

	client := newTestClient(t, server.URL)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	accepted, err := client.AddTorrent(context.Background(), "/server/Show", "http://remote/download?tid=7")
	if err != nil {
		t.Fatalf("AddTorrent failed: %v", err)
	}
	if accepted {
		t.Error("a duplicate must not count as accepted")
	}
}

func TestGetAllTorrents(t *testing.T) {
	server := rpcServer(t, func(method string, w http.ResponseWriter) {
		if method != "torrent-get" {
			t.Errorf("method = %q, want torrent-get", method)
		}
		io.WriteString(w, `{"result":"success","arguments":{"torrents":[{"name":"Show - 04.mkv"},{"name":"other.iso"}]}}`)
	})
	defer server.Close()

	client := newTestClient(t, server.URL)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	names, err := client.GetAllTorrents(context.Background())
	if err != nil {
		t.Fatalf("GetAllTorrents failed: %v", err)
	}
	if len(names) != 2 || names[0] != "Show - 04.mkv" || names[1] != "other.iso" {
		t.Errorf("unexpected names: %v", names)
	}
}

func TestGetAllTorrentsEmpty(t *testing.T) {
	server := rpcServer(t, func(method string, w http.ResponseWriter) {
		io.WriteString(w, `{"result":"success","arguments":{"torrents":[]}}`)
	})
	defer server.Close()

	client := newTestClient(t, server.URL)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	names, err := client.GetAllTorrents(context.Background())
	if err != nil {
		t.Fatalf("GetAllTorrents failed: %v", err)
	}
	if names != nil {
		t.Errorf("expected nil for an empty queue, got %v", names)
	}
}

func TestSessionRefreshOnConflict(t *testing.T) {
	// the server rotates the session between Connect and the RPC call
	rotated := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Header().Set(sessionHeader, "stale-token")
			w.WriteHeader(http.StatusConflict)
			return
		}
		if r.Header.Get(sessionHeader) != "fresh-token" {
			rotated = true
			w.Header().Set(sessionHeader, "fresh-token")
			w.WriteHeader(http.StatusConflict)
			return
		}
		io.WriteString(w, `{"result":"success","arguments":{"torrents":[]}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if _, err := client.GetAllTorrents(context.Background()); err != nil {
		t.Fatalf("GetAllTorrents failed: %v", err)
	}
	if !rotated {
		t.Error("the test server never rotated the session")
	}
	if client.sessionID != "fresh-token" {
		t.Errorf("sessionID = %q, want fresh-token", client.sessionID)
	}
}

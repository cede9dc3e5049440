package transmission

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/seriarr/seriarr/internal/config"
	"github.com/sirupsen/logrus"
)

const sessionHeader = "X-Transmission-Session-Id"

// ErrNotAuthenticated is returned by every RPC method until Connect has
// established a session with the server.
var ErrNotAuthenticated = errors.New("no session established with transmission")

// Client talks to a Transmission server's RPC API.
type Client struct {
	url        string
	username   string
	password   string
	sessionID  string
	connected  bool
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a new Transmission client.
func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if cfg.Transmission.URL == "" {
		return nil, fmt.Errorf("transmission URL is required")
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	if !cfg.Transmission.SSLVerify {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &Client{
		url:        cfg.Transmission.URL,
		username:   cfg.Transmission.Username,
		password:   cfg.Transmission.Password,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Connect performs the CSRF handshake: the server answers the first request
// with 409 and a session header that must accompany every RPC call.
func (c *Client) Connect(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// server runs without CSRF protection
		c.connected = true
		return nil
	case http.StatusConflict:
		token := resp.Header.Get(sessionHeader)
		if token == "" {
			return fmt.Errorf("server returned 409 without a %s header", sessionHeader)
		}
		c.sessionID = token
		c.connected = true
		c.logger.Debug("Transmission session established")
		return nil
	default:
		return fmt.Errorf("unable to connect to server: status %d", resp.StatusCode)
	}
}

// checkSession guards every RPC method; Connect must have run first.
func (c *Client) checkSession() error {
	if !c.connected {
		return ErrNotAuthenticated
	}
	return nil
}

type rpcRequest struct {
	Method    string      `json:"method"`
	Arguments interface{} `json:"arguments"`
}

type addArguments struct {
	DownloadDir string `json:"download-dir"`
	Filename    string `json:"filename"`
}

type torrentInfo struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	HashString string `json:"hashString"`
}

type addResponse struct {
	Result    string `json:"result"`
	Arguments struct {
		TorrentAdded     *torrentInfo `json:"torrent-added"`
		TorrentDuplicate *torrentInfo `json:"torrent-duplicate"`
	} `json:"arguments"`
}

type listResponse struct {
	Result    string `json:"result"`
	Arguments struct {
		Torrents []struct {
			Name string `json:"name"`
		} `json:"torrents"`
	} `json:"arguments"`
}

// post sends one RPC request. The server rotates sessions over time, so a
// 409 mid-session refreshes the token and retries once.
func (c *Client) post(ctx context.Context, body interface{}, result interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	send := func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(jsonData))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.SetBasicAuth(c.username, c.password)
		req.Header.Set("Content-Type", "application/json")
		if c.sessionID != "" {
			req.Header.Set(sessionHeader, c.sessionID)
		}
		return c.httpClient.Do(req)
	}

	resp, err := send()
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode == http.StatusConflict {
		token := resp.Header.Get(sessionHeader)
		resp.Body.Close()
		if token == "" {
			return fmt.Errorf("server returned 409 without a %s header", sessionHeader)
		}
		c.sessionID = token
		c.logger.Debug("Transmission session refreshed")
		resp, err = send()
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// AddTorrent queues torrentURL for download into directory. The boolean
// reports whether the server actually added it; a duplicate is not an add.
func (c *Client) AddTorrent(ctx context.Context, directory, torrentURL string) (bool, error) {
	if err := c.checkSession(); err != nil {
		return false, err
	}

	var result addResponse
	body := rpcRequest{
		Method: "torrent-add",
		Arguments: addArguments{
			DownloadDir: directory,
			Filename:    torrentURL,
		},
	}
	if err := c.post(ctx, body, &result); err != nil {
		return false, fmt.Errorf("unable to add torrent: %w", err)
	}

	if result.Arguments.TorrentAdded == nil {
		if result.Arguments.TorrentDuplicate != nil {
			c.logger.WithField("name", result.Arguments.TorrentDuplicate.Name).Debug("Torrent already known to server")
		}
		return false, nil
	}

	c.logger.WithFields(logrus.Fields{
		"name":      result.Arguments.TorrentAdded.Name,
		"directory": directory,
	}).Info("Torrent added")

	return true, nil
}

// GetAllTorrents returns the names of every torrent the server knows about,
// queued or finished. Most of them belong to other things than our series.
func (c *Client) GetAllTorrents(ctx context.Context) ([]string, error) {
	if err := c.checkSession(); err != nil {
		return nil, err
	}

	var result listResponse
	body := rpcRequest{
		Method: "torrent-get",
		Arguments: map[string]interface{}{
			"fields": []string{"name"},
		},
	}
	if err := c.post(ctx, body, &result); err != nil {
		return nil, fmt.Errorf("unable to get torrents: %w", err)
	}

	if len(result.Arguments.Torrents) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(result.Arguments.Torrents))
	for _, torrent := range result.Arguments.Torrents {
		names = append(names, torrent.Name)
	}
	return names, nil
}

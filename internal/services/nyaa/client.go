package nyaa

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/seriarr/seriarr/internal/config"
	"github.com/sirupsen/logrus"
)

// On an exact search hit the site redirects to the torrent page, whose URL
// carries the torrent ID.
var tidRegex = regexp.MustCompile(`tid=(\d+)`)

// Client talks to the NyaaTorrent website.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a new Nyaa client.
func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if cfg.Nyaa.URL == "" {
		return nil, fmt.Errorf("nyaa URL is required")
	}

	base, err := url.Parse(cfg.Nyaa.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid nyaa URL: %w", err)
	}

	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}, nil
}

// GetIDFromName resolves a rendered search name to a torrent ID. An empty
// ID with a nil error means the name is unknown upstream: a normal negative
// result, distinct from the resolver failing.
func (c *Client) GetIDFromName(ctx context.Context, name string) (string, error) {
	searchURL := *c.baseURL
	params := url.Values{}
	params.Set("page", "search")
	params.Set("term", asciiOnly(name))
	searchURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unable to connect to server: status %d", resp.StatusCode)
	}

	// resp.Request points at the last request in the redirect chain
	matches := tidRegex.FindStringSubmatch(resp.Request.URL.String())
	if matches == nil {
		c.logger.WithField("name", name).Debug("No torrent found for name")
		return "", nil
	}

	c.logger.WithFields(logrus.Fields{
		"name": name,
		"tid":  matches[1],
	}).Debug("Resolved torrent ID")

	return matches[1], nil
}

// GetURLFromID renders the download URL for a torrent ID.
func (c *Client) GetURLFromID(id string) string {
	downloadURL := *c.baseURL
	params := url.Values{}
	params.Set("page", "download")
	params.Set("tid", id)
	downloadURL.RawQuery = params.Encode()
	return downloadURL.String()
}

// asciiOnly drops non-ASCII runes; the search endpoint chokes on them.
func asciiOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < utf8.RuneSelf {
			b.WriteRune(r)
		}
	}
	return b.String()
}

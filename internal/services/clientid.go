package services

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/net/html"
)

const (
	soundcloudAssetTimeout = 2 * time.Second
	defaultClientIDTTL     = 30 * time.Minute
)

var clientIDPattern = regexp.MustCompile(`,client_id:"([^"]+)"`)

// ClientIDManager scrapes and caches the public api-v2 client id embedded in SoundCloud's web bundle.
//
// The id is taken from the last crossorigin script on the home page and kept for a fixed window.
type ClientIDManager struct {
	mu      sync.Mutex
	homeURL string
	client  *http.Client
	ttl     time.Duration
	now     func() time.Time
	id      string
	expiry  time.Time
}

// NewClientIDManager creates a ClientIDManager scraping homeURL. A nil client uses the asset timeout.
func NewClientIDManager(homeURL string, client *http.Client, ttl time.Duration) *ClientIDManager {
	if client == nil {
		client = newHTTPClient(soundcloudAssetTimeout, nil)
	}
	if ttl <= 0 {
		ttl = defaultClientIDTTL
	}
	return &ClientIDManager{homeURL: homeURL, client: client, ttl: ttl, now: time.Now}
}

// Get returns the cached client id, scraping a new one once the window has passed.
func (m *ClientIDManager) Get(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.id != "" && m.now().Before(m.expiry) {
		return m.id, nil
	}

	id, err := m.scrape(ctx)
	if err != nil {
		return "", err
	}
	m.id = id
	m.expiry = m.now().Add(m.ttl)
	return id, nil
}

// Invalidate drops the cached id.
func (m *ClientIDManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = ""
	m.expiry = time.Time{}
}

func (m *ClientIDManager) scrape(ctx context.Context) (string, error) {
	page, err := m.get(ctx, m.homeURL)
	if err != nil {
		return "", errors.Wrap(err, "failed to fetch soundcloud home page")
	}

	scripts := crossOriginScripts(page)
	if len(scripts) == 0 {
		return "", errors.New("no crossorigin script found on soundcloud home page")
	}

	assetURL, err := resolveURL(m.homeURL, scripts[len(scripts)-1])
	if err != nil {
		return "", err
	}

	asset, err := m.get(ctx, assetURL)
	if err != nil {
		return "", errors.Wrap(err, "failed to fetch soundcloud script asset")
	}

	match := clientIDPattern.FindStringSubmatch(asset)
	if match == nil {
		return "", errors.Newf("no client id in script %s", assetURL)
	}
	return match[1], nil
}

func (m *ClientIDManager) get(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if classifyStatus(resp.StatusCode) != statusOK {
		return "", errors.Newf("status %d from %s", resp.StatusCode, target)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// crossOriginScripts returns the src of every <script crossorigin src=...> in document order.
func crossOriginScripts(doc string) []string {
	var srcs []string
	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return srcs
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data != "script" {
				continue
			}
			var src string
			crossOrigin := false
			for _, attr := range tok.Attr {
				switch attr.Key {
				case "crossorigin":
					crossOrigin = true
				case "src":
					src = attr.Val
				}
			}
			if crossOrigin && src != "" {
				srcs = append(srcs, src)
			}
		}
	}
}

func resolveURL(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", errors.Wrap(err, "invalid base url")
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", errors.Wrapf(err, "invalid script url %s", ref)
	}
	return b.ResolveReference(r).String(), nil
}

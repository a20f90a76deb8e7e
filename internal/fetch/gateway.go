// Package fetch is the outbound gateway: every crawl request leaves through
// it, wearing a rotated user agent, the process session cookie and the proxy
// authorization signature, routed via the currently selected egress node.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/moviegraph/crawler/internal/catalog"
	"github.com/moviegraph/crawler/internal/metrics"
)

const defaultTimeout = 10 * time.Second

// Gateway implements catalog.Fetcher over net/http.
type Gateway struct {
	client   *http.Client
	identity Identity
	registry *NodeRegistry
	logger   *zap.Logger
}

// NewGateway constructs a Gateway. The transport resolves its proxy from the
// registry on every request, so control-API rotations take effect without
// restarting in-flight stages.
func NewGateway(identity Identity, registry *NodeRegistry, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	transport := &http.Transport{
		Proxy: func(*http.Request) (*url.URL, error) {
			node, ok := registry.Current()
			if !ok || node.ProxyURL == "" {
				return nil, nil
			}
			proxy, err := url.Parse(node.ProxyURL)
			if err != nil {
				return nil, fmt.Errorf("parse proxy url for node %s: %w", node.ID, err)
			}
			return proxy, nil
		},
		MaxIdleConnsPerHost: 16,
	}
	return &Gateway{
		client:   &http.Client{Transport: transport},
		identity: identity,
		registry: registry,
		logger:   logger,
	}
}

// Fetch issues the request with the per-call timeout and identity headers
// and returns the raw body. Non-2xx statuses become errors whose messages
// carry the status code for the classifier.
func (g *Gateway) Fetch(ctx context.Context, req catalog.FetchRequest) ([]byte, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", req.URL, err)
	}
	httpReq.Header.Set("User-Agent", UserAgent())
	httpReq.Header.Set("Referer", g.identity.Referer)
	httpReq.Header.Set("Cookie", g.identity.Cookie)
	httpReq.Header.Set("Proxy-Authorization", g.identity.ProxyAuthorization())

	start := time.Now()
	resp, err := g.client.Do(httpReq)
	if err != nil {
		metrics.ObserveFetch(httpReq.URL.Hostname(), "error", time.Since(start))
		return nil, fmt.Errorf("fetch %s: %w", req.URL, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read side close

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ObserveFetch(httpReq.URL.Hostname(), "error", time.Since(start))
		return nil, fmt.Errorf("fetch %s: status %d", req.URL, resp.StatusCode)
	}
	metrics.ObserveFetch(httpReq.URL.Hostname(), "ok", time.Since(start))
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body %s: %w", req.URL, err)
	}
	g.logger.Debug("fetched",
		zap.String("url", req.URL),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return body, nil
}

package network

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"gateway-dashboard/src/logger"
	"gateway-dashboard/src/models"
)

// maxErrorBody bounds how much of a failing response is echoed into errors.
const maxErrorBody = 200

type AsyncNetworkManager struct {
	Config *models.MConfig
	Client *http.Client
	Logger *logger.Logger

	// sem bounds in-flight requests across every caller
	sem chan struct{}
}

// -----------------------------------------------------------------------------

func NewAsyncNetworkManager(cfg *models.MConfig, log *logger.Logger) *AsyncNetworkManager {
	limit := cfg.Network.ConcurrentRequests
	if limit <= 0 {
		limit = 1
	}
	nm := &AsyncNetworkManager{
		Config: cfg,
		Logger: log,
		sem:    make(chan struct{}, limit),
	}
	nm.Client = nm.createClient()
	return nm
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) createClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if proxyStr := nm.Config.Network.Proxy; proxyStr != "" {
		proxyURL, err := url.Parse(FormatProxy(proxyStr))
		if err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		} else {
			nm.Logger.Warning("Ignoring invalid proxy %q: %v", proxyStr, err)
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   time.Duration(nm.Config.Network.RequestTimeout) * time.Second,
	}
}

// -----------------------------------------------------------------------------

// Get performs a single GET request.
func (nm *AsyncNetworkManager) Get(urlStr string, params map[string]string) ([]byte, error) {
	reqUrl, err := url.Parse(urlStr)
	if err != nil {
		return nil, err
	}

	q := reqUrl.Query()
	for k, v := range params {
		q.Add(k, v)
	}
	reqUrl.RawQuery = q.Encode()

	req, err := http.NewRequest(http.MethodGet, reqUrl.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	return nm.do(req)
}

// -----------------------------------------------------------------------------

// PostJSON performs a single JSON POST request.
func (nm *AsyncNetworkManager) PostJSON(urlStr string, body interface{}) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, urlStr, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return nm.do(req)
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) do(req *http.Request) ([]byte, error) {
	req.Header.Set("User-Agent", nm.Config.Network.UserAgent)

	nm.sem <- struct{}{}
	defer func() { <-nm.sem }()

	start := time.Now()
	resp, err := nm.Client.Do(req)
	if err != nil {
		nm.Logger.Debug("%s %s failed: %v", req.Method, req.URL.Host, err)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	nm.Logger.Debug("%s %s%s -> %d in %s", req.Method, req.URL.Host, req.URL.Path, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, Truncate(string(body), maxErrorBody))
	}

	return body, nil
}

// -----------------------------------------------------------------------------

// FormatProxy ensures the proxy has a scheme.
func FormatProxy(proxyStr string) string {
	if !strings.Contains(proxyStr, "://") {
		return "http://" + proxyStr
	}
	return proxyStr
}

// -----------------------------------------------------------------------------

// Truncate shortens s to at most n bytes, marking the cut. The cut never
// splits a UTF-8 sequence.
func Truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

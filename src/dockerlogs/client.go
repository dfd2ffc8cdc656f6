package dockerlogs

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gateway-dashboard/src/helpers"
	"gateway-dashboard/src/logger"
	"gateway-dashboard/src/models"
	"gateway-dashboard/src/network"
)

const (
	maxErrorBody   = 200
	maxLogBody     = 16 * 1024 * 1024
	defaultTail    = 200
	requestTimeout = 15 * time.Second
)

// Client talks to the container runtime API, over its unix socket when one is
// configured and over TCP otherwise.
type Client struct {
	Config *models.MDockerConfig
	Logger *logger.Logger
	HTTP   *http.Client

	baseURL string
}

// -----------------------------------------------------------------------------

func NewClient(cfg *models.MDockerConfig, log *logger.Logger) *Client {
	c := &Client{
		Config: cfg,
		Logger: log,
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Socket != "" {
		socket := cfg.Socket
		transport.Proxy = nil
		transport.DialContext = func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socket)
		}
		c.baseURL = "http://docker"
	} else {
		c.baseURL = normalizeHost(cfg.Host)
	}

	if v := strings.TrimPrefix(cfg.APIVersion, "v"); v != "" {
		c.baseURL += "/v" + v
	}

	c.HTTP = &http.Client{Transport: transport, Timeout: requestTimeout}
	return c
}

// -----------------------------------------------------------------------------

// FetchLogs returns the demultiplexed tail of a container's logs. With
// timestamps on, each line's RFC3339Nano prefix is moved into Timestamp.
func (c *Client) FetchLogs(ctx context.Context, container string, opts models.MLogOptions) ([]models.MLogLine, error) {
	if container == "" {
		return nil, helpers.NewInvalidRequest("container name is required")
	}

	tail := opts.Tail
	if tail <= 0 {
		tail = c.Config.DefaultTail
	}
	if tail <= 0 {
		tail = defaultTail
	}

	q := url.Values{}
	q.Set("stdout", "1")
	q.Set("stderr", "1")
	q.Set("tail", strconv.Itoa(tail))
	q.Set("timestamps", "1")
	if opts.Since != "" {
		q.Set("since", opts.Since)
	}

	reqURL := fmt.Sprintf("%s/containers/%s/logs?%s", c.baseURL, url.PathEscape(container), q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, helpers.NewUpstreamFetchError("container logs for "+container, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLogBody))
	if err != nil {
		return nil, helpers.NewUpstreamFetchError("container logs for "+container, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, helpers.NewUpstreamFetchError("container logs for "+container,
			fmt.Errorf("bad status %d: %s", resp.StatusCode, network.Truncate(string(body), maxErrorBody)))
	}

	lines := Parse(body)
	for i := range lines {
		lines[i].Timestamp, lines[i].Text = splitTimestamp(lines[i].Text)
	}

	c.Logger.Debug("Fetched %d log lines for %s (tail=%d)", len(lines), container, tail)
	return lines, nil
}

// -----------------------------------------------------------------------------

func splitTimestamp(text string) (string, string) {
	prefix, rest, ok := strings.Cut(text, " ")
	if !ok {
		return "", text
	}
	if _, err := time.Parse(time.RFC3339Nano, prefix); err != nil {
		return "", text
	}
	return prefix, rest
}

// -----------------------------------------------------------------------------

func normalizeHost(host string) string {
	host = strings.TrimRight(host, "/")
	switch {
	case host == "":
		return "http://127.0.0.1:2375"
	case strings.HasPrefix(host, "tcp://"):
		return "http://" + strings.TrimPrefix(host, "tcp://")
	case strings.Contains(host, "://"):
		return host
	}
	return "http://" + host
}

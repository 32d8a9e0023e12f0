package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Iron-Ham/agentboard/internal/logging"
	"github.com/Iron-Ham/agentboard/internal/util"
)

// DefaultPath is the directory endpoint path.
const DefaultPath = "/api/collaborators"

const maxDirectoryBytes = 1 << 20

// Client fetches the roster from the backend directory endpoint.
type Client struct {
	BaseURL        string
	Path           string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	Logger         *logging.Logger
}

// Lookup performs the directory request and builds the roster.
func (c *Client) Lookup(ctx context.Context) (Roster, error) {
	path := c.Path
	if path == "" {
		path = DefaultPath
	}
	endpoint, err := util.EndpointURL(c.BaseURL, path)
	if err != nil {
		return Roster{}, err
	}

	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Roster{}, fmt.Errorf("create directory request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return Roster{}, fmt.Errorf("request directory: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return Roster{}, fmt.Errorf("request directory: status %d", resp.StatusCode)
	}

	var dir Directory
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxDirectoryBytes)).Decode(&dir); err != nil {
		return Roster{}, fmt.Errorf("decode directory response: %w", err)
	}

	r, skipped := Build(dir)
	for _, d := range skipped {
		c.logger().Warn("skipping collaborator without id", "name", d.Name)
	}
	return r, nil
}

// Fetch is Lookup for callers that treat the roster as optional: on failure
// it logs and returns an empty roster.
func (c *Client) Fetch(ctx context.Context) Roster {
	r, err := c.Lookup(ctx)
	if err != nil {
		c.logger().Error("failed to fetch roster", "error", err)
		return Roster{}
	}
	c.logger().Debug("roster loaded", "agents", r.Len())
	return r
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) logger() *logging.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return logging.NopLogger()
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	timeout := c.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

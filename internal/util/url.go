package util

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// EndpointURL resolves path against the backend base URL. The base must be an
// absolute http or https URL; ws and wss are accepted and kept as-is.
func EndpointURL(baseURL, path string) (string, error) {
	if strings.TrimSpace(baseURL) == "" {
		return "", errors.New("backend base url is required")
	}
	if path == "" {
		return "", errors.New("endpoint path is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse backend base url: %w", err)
	}
	switch parsed.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return "", fmt.Errorf("backend base url must use http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", errors.New("backend base url host is required")
	}

	endpoint, err := parsed.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse endpoint path %q: %w", path, err)
	}
	return endpoint.String(), nil
}

// WebSocketURL converts an http(s) URL to its ws(s) equivalent.
func WebSocketURL(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported url scheme %q", parsed.Scheme)
	}
	return parsed.String(), nil
}

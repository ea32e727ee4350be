package presign

import (
	"log/slog"
	"net/http"
	"time"
)

// Option configures a Service.
type Option func(*Service)

// WithExpires sets how long issued URLs stay valid. Non-positive values are ignored.
func WithExpires(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.expires = d
		}
	}
}

// WithClock overrides the time source used to build object keys.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger configures structured logging for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used to reach the presign endpoint.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRoute overrides the endpoint path. Default is Route.
func WithRoute(route string) ClientOption {
	return func(c *Client) {
		if route != "" {
			c.route = route
		}
	}
}

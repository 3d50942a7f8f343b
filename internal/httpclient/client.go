// Package httpclient builds the outbound HTTP clients used for gateway
// calls. The CLI talks to whatever RPC URL the user configured, localhost
// included. The hosted viewer server fetches on behalf of browser clients,
// so its client refuses private and loopback targets outright.
package httpclient

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lumenweave/lumen/errors"
)

// Client wraps http.Client with URL validation.
type Client struct {
	*http.Client
	allowedSchemes []string
	blockPrivateIP bool
	maxRedirects   int
}

// New returns a client suitable for CLI use: scheme allowlist and a
// redirect cap, but private and loopback addresses permitted (local
// gateways are the common case during contract development).
func New(timeout time.Duration) *Client {
	return build(timeout, false)
}

// NewHardened returns a client for server-side fetching: additionally
// blocks loopback, private, and link-local targets at both the URL and
// the dialer (DNS rebinding does not get around the dial check).
func NewHardened(timeout time.Duration) *Client {
	return build(timeout, true)
}

func build(timeout time.Duration, blockPrivateIP bool) *Client {
	c := &Client{
		Client: &http.Client{
			Timeout: timeout,
		},
		allowedSchemes: []string{"http", "https"},
		blockPrivateIP: blockPrivateIP,
		maxRedirects:   5,
	}

	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= c.maxRedirects {
			return errors.Newf("stopped after %d redirects", c.maxRedirects)
		}
		if err := c.validateURL(req.URL); err != nil {
			return errors.Wrap(err, "redirect blocked")
		}
		return nil
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if blockPrivateIP {
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, _, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, errors.Wrap(err, "invalid address")
			}
			ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to resolve host %q", host)
			}
			for _, ip := range ips {
				if isForbiddenIP(ip) {
					return nil, errors.Newf("private address blocked: %s", ip)
				}
			}
			return dialer.DialContext(ctx, network, addr)
		}
	}

	c.Transport = transport
	return c
}

// ValidateURL parses and validates a URL string before a request is built.
func (c *Client) ValidateURL(urlStr string) (*url.URL, error) {
	u, err := url.Parse(urlStr)
	if err != nil {
		return nil, errors.Wrap(err, "invalid URL")
	}
	if err := c.validateURL(u); err != nil {
		return nil, err
	}
	return u, nil
}

func (c *Client) validateURL(u *url.URL) error {
	scheme := strings.ToLower(u.Scheme)
	allowed := false
	for _, s := range c.allowedSchemes {
		if scheme == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return errors.Newf("scheme %q not allowed (allowed: %v)", scheme, c.allowedSchemes)
	}

	if u.User != nil {
		// http://evil.com@localhost/ style confusion
		return errors.New("URL must not carry userinfo")
	}

	hostname := u.Hostname()
	if hostname == "" {
		return errors.New("URL missing hostname")
	}

	if c.blockPrivateIP {
		if isLocalhostName(hostname) {
			return errors.New("localhost access blocked")
		}
		if ip := net.ParseIP(hostname); ip != nil && isForbiddenIP(ip) {
			return errors.Newf("private address blocked: %s", hostname)
		}
	}

	return nil
}

func isLocalhostName(hostname string) bool {
	h := strings.ToLower(hostname)
	return h == "localhost" || strings.HasSuffix(h, ".localhost")
}

func isForbiddenIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified()
}

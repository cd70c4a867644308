package httpiface

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"tiktok-auth-bridge/internal/pkg/httpx"
	"tiktok-auth-bridge/internal/pkg/metrics"
)

const (
	avatarCacheControl = "public, max-age=300"
	avatarMaxBytes     = 5 << 20
)

// DefaultAvatarHosts are the CDN domains TikTok serves avatars from.
var DefaultAvatarHosts = []string{"tiktokcdn.com", "tiktokcdn-us.com", "ibyteimg.com"}

var errForbiddenAddress = errors.New("destination address not allowed")

// AvatarProxy re-serves TikTok CDN avatars, which refuse hotlinked requests
// from the app's web views. Only hosts under AllowedHosts are fetched.
type AvatarProxy struct {
	HTTP    *http.Client
	Metrics *metrics.Metrics
	// AllowedHosts holds domain suffixes; nil means DefaultAvatarHosts.
	AllowedHosts []string
}

// NewAvatarProxy returns a proxy whose client refuses to dial loopback,
// private and link-local addresses, whatever a CDN name resolves to.
func NewAvatarProxy(timeout time.Duration, m *metrics.Metrics) *AvatarProxy {
	return &AvatarProxy{HTTP: publicOnlyClient(timeout), Metrics: m}
}

func publicOnlyClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: timeout, Control: dialPublicOnly}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.Proxy = nil
	tr.DialContext = dialer.DialContext
	return &http.Client{Timeout: timeout, Transport: tr}
}

// dialPublicOnly runs after name resolution, on the address actually dialed.
func dialPublicOnly(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast() {
		return fmt.Errorf("%w: %s", errForbiddenAddress, address)
	}
	return nil
}

func (p *AvatarProxy) client() *http.Client {
	if p.HTTP != nil {
		return p.HTTP
	}
	return publicOnlyClient(15 * time.Second)
}

func (p *AvatarProxy) allowed(host string) bool {
	suffixes := p.AllowedHosts
	if suffixes == nil {
		suffixes = DefaultAvatarHosts
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for _, s := range suffixes {
		if host == s || strings.HasSuffix(host, "."+s) {
			return true
		}
	}
	return false
}

func (p *AvatarProxy) Serve(c echo.Context) error {
	src := c.QueryParam("src")
	if src == "" {
		return httpx.JSONError(c, http.StatusBadRequest, "missing_src", nil)
	}
	u, err := url.Parse(src)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return httpx.JSONError(c, http.StatusBadRequest, "invalid_src", nil)
	}
	if !p.allowed(u.Hostname()) {
		c.Logger().Warnf("avatar host not allowed: %s", u.Hostname())
		p.Metrics.ObserveAvatar("rejected")
		return httpx.JSONError(c, http.StatusBadRequest, "disallowed_src", nil)
	}

	req, err := http.NewRequestWithContext(c.Request().Context(), http.MethodGet, u.String(), nil)
	if err != nil {
		return httpx.JSONError(c, http.StatusBadRequest, "invalid_src", nil)
	}
	req.Header.Set(echo.HeaderAccept, "image/*")

	resp, err := p.client().Do(req)
	if err != nil {
		c.Logger().Warnf("avatar fetch failed: %v", err)
		p.Metrics.ObserveAvatar("error")
		return httpx.JSONError(c, http.StatusBadGateway, "avatar_fetch_failed", nil)
	}
	defer resp.Body.Close()
	p.Metrics.ObserveAvatar(strconv.Itoa(resp.StatusCode/100) + "xx")

	ct := resp.Header.Get(echo.HeaderContentType)
	if ct == "" {
		ct = echo.MIMEOctetStream
	}
	c.Response().Header().Set("Cache-Control", avatarCacheControl)
	return c.Stream(resp.StatusCode, ct, io.LimitReader(resp.Body, avatarMaxBytes))
}

package oauth

import (
	"strings"
)

const (
	SignInCallbackPath  = "/auth/tiktok"
	ConnectCallbackPath = "/auth/connect/tiktok"
)

// RedirectResolver derives the redirect_uri sent to TikTok. TikTok compares it
// byte for byte with the value used on the authorize request, so both the
// login redirect and the code exchange must go through the same resolver.
type RedirectResolver struct {
	// BasePath is the public mount prefix of the routes (e.g. "/api" on Vercel).
	BasePath string
	// Static, when set, maps a callback path to a fixed configured URI.
	Static map[string]string
}

// RequestInfo carries the request attributes the resolver looks at.
type RequestInfo struct {
	ForwardedProto string
	Proto          string
	ForwardedHost  string
	Host           string
}

func (r RedirectResolver) Resolve(req RequestInfo, path string) string {
	if uri := r.Static[path]; uri != "" {
		return uri
	}
	scheme := firstValue(req.ForwardedProto)
	if scheme == "" {
		scheme = req.Proto
	}
	if scheme == "" {
		scheme = "https"
	}
	host := firstValue(req.ForwardedHost)
	if host == "" {
		host = req.Host
	}
	return scheme + "://" + host + joinPath(r.BasePath, path)
}

// firstValue takes the first entry of a comma separated proxy header.
func firstValue(h string) string {
	if i := strings.IndexByte(h, ','); i >= 0 {
		h = h[:i]
	}
	return strings.TrimSpace(h)
}

func joinPath(base, path string) string {
	base = strings.TrimRight(base, "/")
	if base != "" && !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

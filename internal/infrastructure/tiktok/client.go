package tiktok

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	doauth "tiktok-auth-bridge/internal/domain/oauth"
)

const (
	AuthEndpoint  = "https://www.tiktok.com/v2/auth/authorize/"
	TokenEndpoint = "https://open.tiktokapis.com/v2/oauth/token/"
	UserInfoURL   = "https://open.tiktokapis.com/v2/user/info/"

	// DefaultTimeout bounds every upstream call.
	DefaultTimeout = 15 * time.Second
)

// UserInfoFields is the field set requested from the user-info endpoint.
var UserInfoFields = []string{
	"open_id",
	"display_name",
	"avatar_url",
	"follower_count",
	"following_count",
	"likes_count",
	"video_count",
}

type Client struct {
	ClientKey    string
	ClientSecret string
	HTTP         *http.Client

	// Optional overrides, used by tests.
	TokenURL    string
	UserInfoURL string
	Timeout     time.Duration
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: c.timeout()}
}

func (c *Client) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

func (c *Client) tokenURL() string {
	if c.TokenURL != "" {
		return c.TokenURL
	}
	return TokenEndpoint
}

func (c *Client) userInfoURL() string {
	if c.UserInfoURL != "" {
		return c.UserInfoURL
	}
	return UserInfoURL
}

func (c *Client) Ready() error {
	switch {
	case c.ClientKey == "":
		return fmt.Errorf("%w: TIKTOK_CLIENT_KEY", doauth.ErrMissingConfiguration)
	case c.ClientSecret == "":
		return fmt.Errorf("%w: TIKTOK_CLIENT_SECRET", doauth.ErrMissingConfiguration)
	}
	return nil
}

// AuthURL builds the TikTok v2 authorization URL. TikTok identifies the app by
// client_key rather than client_id, so it is added as an extra parameter.
func (c *Client) AuthURL(state, redirectURI, scope string) string {
	cfg := oauth2.Config{
		ClientID:    c.ClientKey,
		RedirectURL: redirectURI,
		Endpoint:    oauth2.Endpoint{AuthURL: AuthEndpoint, TokenURL: c.tokenURL()},
	}
	opts := []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("client_key", c.ClientKey)}
	// TikTok wants comma separated scopes; oauth2.Config would join them with spaces.
	if scope != "" {
		opts = append(opts, oauth2.SetAuthURLParam("scope", scope))
	}
	return cfg.AuthCodeURL(state, opts...)
}

// ExchangeCode trades an authorization code for a token pair. Codes are
// single use, so failures are never retried.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (doauth.TikTokTokens, error) {
	if err := c.Ready(); err != nil {
		return doauth.TikTokTokens{}, err
	}
	form := url.Values{}
	form.Set("client_key", c.ClientKey)
	form.Set("client_secret", c.ClientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	// must match the redirect_uri of the authorize request
	form.Set("redirect_uri", redirectURI)
	return c.postToken(ctx, "token exchange", form)
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (doauth.TikTokTokens, error) {
	if err := c.Ready(); err != nil {
		return doauth.TikTokTokens{}, err
	}
	form := url.Values{}
	form.Set("client_key", c.ClientKey)
	form.Set("client_secret", c.ClientSecret)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return c.postToken(ctx, "token refresh", form)
}

func (c *Client) postToken(ctx context.Context, op string, form url.Values) (doauth.TikTokTokens, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL(), strings.NewReader(form.Encode()))
	if err != nil {
		return doauth.TikTokTokens{}, fmt.Errorf("%w: %s: %v", doauth.ErrUpstreamAuth, op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	status, body, err := c.do(req, 1<<20)
	if err != nil {
		return doauth.TikTokTokens{}, upstreamError(op, err)
	}

	tokens, ok := decodeTokens(body)
	if !ok {
		return doauth.TikTokTokens{}, fmt.Errorf("%w: %s failed: status=%d body=%s", doauth.ErrUpstreamAuth, op, status, trunc(body, 2048))
	}
	return tokens, nil
}

// FetchUserInfo loads the profile behind accessToken.
func (c *Client) FetchUserInfo(ctx context.Context, accessToken string) (doauth.TikTokProfile, error) {
	if accessToken == "" {
		return doauth.TikTokProfile{}, fmt.Errorf("%w: missing access token", doauth.ErrUpstreamAuth)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	q := url.Values{}
	q.Set("fields", strings.Join(UserInfoFields, ","))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL()+"?"+q.Encode(), nil)
	if err != nil {
		return doauth.TikTokProfile{}, fmt.Errorf("%w: user info: %v", doauth.ErrUpstreamAuth, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	status, body, err := c.do(req, 2<<20)
	if err != nil {
		return doauth.TikTokProfile{}, upstreamError("user info", err)
	}
	if status < 200 || status >= 300 {
		return doauth.TikTokProfile{}, fmt.Errorf("%w: user info failed: status=%d body=%s", doauth.ErrUpstreamAuth, status, trunc(body, 2048))
	}
	profile, err := extractProfile(body)
	if err != nil {
		return doauth.TikTokProfile{}, fmt.Errorf("%w: user info: %v", doauth.ErrUpstreamAuth, err)
	}
	return profile, nil
}

func (c *Client) do(req *http.Request, limit int64) (int, []byte, error) {
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

// decodeTokens accepts both the flat v2 body and the {"data": {...}} wrapper.
// Anything without an access_token is a failure.
func decodeTokens(body []byte) (doauth.TikTokTokens, bool) {
	var flat doauth.TikTokTokens
	if err := json.Unmarshal(body, &flat); err != nil {
		return doauth.TikTokTokens{}, false
	}
	if flat.AccessToken != "" {
		return flat, true
	}
	var wrapped struct {
		Data *doauth.TikTokTokens `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil || wrapped.Data == nil || wrapped.Data.AccessToken == "" {
		return doauth.TikTokTokens{}, false
	}
	return *wrapped.Data, true
}

func upstreamError(op string, err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %s: %v", doauth.ErrUpstreamTimeout, op, err)
	}
	return fmt.Errorf("%w: %s: %v", doauth.ErrUpstreamAuth, op, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func trunc(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

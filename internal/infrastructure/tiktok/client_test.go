package tiktok

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	doauth "tiktok-auth-bridge/internal/domain/oauth"
)

func newTestClient(srv *httptest.Server) *Client {
	return &Client{
		ClientKey:    "key",
		ClientSecret: "secret",
		HTTP:         srv.Client(),
		TokenURL:     srv.URL + "/v2/oauth/token/",
		UserInfoURL:  srv.URL + "/v2/user/info/",
	}
}

func TestClient_ExchangeCode(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"act.1","expires_in":86400,"open_id":"abc123","refresh_expires_in":31536000,"refresh_token":"rft.1","scope":"user.info.basic","token_type":"Bearer"}`)
	}))
	defer srv.Close()

	got, err := newTestClient(srv).ExchangeCode(context.Background(), "the-code", "https://cb/api/auth/tiktok")
	require.NoError(t, err)
	assert.Equal(t, doauth.TikTokTokens{
		AccessToken:      "act.1",
		RefreshToken:     "rft.1",
		ExpiresIn:        86400,
		RefreshExpiresIn: 31536000,
		Scope:            "user.info.basic",
		TokenType:        "Bearer",
		OpenID:           "abc123",
	}, got)

	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "the-code", form.Get("code"))
	assert.Equal(t, "key", form.Get("client_key"))
	assert.Equal(t, "secret", form.Get("client_secret"))
	assert.Equal(t, "https://cb/api/auth/tiktok", form.Get("redirect_uri"))
}

func TestClient_ExchangeCode_DataEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":{"access_token":"act.2","refresh_token":"rft.2","expires_in":10}}`)
	}))
	defer srv.Close()

	got, err := newTestClient(srv).ExchangeCode(context.Background(), "c", "https://cb")
	require.NoError(t, err)
	assert.Equal(t, "act.2", got.AccessToken)
	assert.Equal(t, int64(10), got.ExpiresIn)
}

func TestClient_ExchangeCode_NoAccessToken(t *testing.T) {
	bodies := map[string]struct {
		status int
		body   string
	}{
		"oauth error":      {http.StatusBadRequest, `{"error":"invalid_grant","error_description":"Authorization code is expired.","log_id":"x"}`},
		"ok without token": {http.StatusOK, `{"scope":"user.info.basic"}`},
		"empty data":       {http.StatusOK, `{"data":{}}`},
		"not json":         {http.StatusBadGateway, `<html>bad gateway</html>`},
		"empty":            {http.StatusOK, ``},
		"null":             {http.StatusOK, `null`},
	}
	for name, tc := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			got, err := newTestClient(srv).ExchangeCode(context.Background(), "c", "https://cb")
			require.ErrorIs(t, err, doauth.ErrUpstreamAuth)
			assert.NotErrorIs(t, err, doauth.ErrUpstreamTimeout)
			assert.Contains(t, err.Error(), tc.body)
			assert.Equal(t, doauth.TikTokTokens{}, got)
		})
	}
}

func TestClient_ExchangeCode_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := newTestClient(srv)
	c.Timeout = 50 * time.Millisecond
	_, err := c.ExchangeCode(context.Background(), "c", "https://cb")
	require.ErrorIs(t, err, doauth.ErrUpstreamTimeout)
	assert.NotErrorIs(t, err, doauth.ErrUpstreamAuth)
}

func TestClient_ExchangeCode_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c := newTestClient(srv)
	srv.Close()

	_, err := c.ExchangeCode(context.Background(), "c", "https://cb")
	assert.ErrorIs(t, err, doauth.ErrUpstreamAuth)
}

func TestClient_MissingConfiguration(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer srv.Close()

	c := newTestClient(srv)
	c.ClientSecret = ""
	_, err := c.ExchangeCode(context.Background(), "c", "https://cb")
	assert.ErrorIs(t, err, doauth.ErrMissingConfiguration)
	_, err = c.Refresh(context.Background(), "r")
	assert.ErrorIs(t, err, doauth.ErrMissingConfiguration)
	assert.False(t, called)
}

func TestClient_Refresh(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		if form.Get("refresh_token") == "bad" {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":"invalid_grant"}`)
			return
		}
		io.WriteString(w, `{"access_token":"act.3","refresh_token":"rft.3","expires_in":86400}`)
	}))
	defer srv.Close()

	c := newTestClient(srv)
	got, err := c.Refresh(context.Background(), "rft.2")
	require.NoError(t, err)
	assert.Equal(t, "act.3", got.AccessToken)
	assert.Equal(t, "refresh_token", form.Get("grant_type"))
	assert.Equal(t, "rft.2", form.Get("refresh_token"))
	assert.Empty(t, form.Get("code"))

	_, err = c.Refresh(context.Background(), "bad")
	assert.ErrorIs(t, err, doauth.ErrUpstreamAuth)
}

func TestClient_FetchUserInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer act.1", r.Header.Get("Authorization"))
		assert.Equal(t, "open_id,display_name,avatar_url,follower_count,following_count,likes_count,video_count", r.URL.Query().Get("fields"))
		io.WriteString(w, `{"data":{"user":{"open_id":"abc123","display_name":"Jane Doe","avatar_url":"https://img/1","follower_count":12,"video_count":0}},"error":{"code":"ok","message":""}}`)
	}))
	defer srv.Close()

	got, err := newTestClient(srv).FetchUserInfo(context.Background(), "act.1")
	require.NoError(t, err)
	assert.Equal(t, "abc123", got.OpenID)
	assert.Equal(t, "Jane Doe", got.DisplayName)
	assert.Equal(t, "https://img/1", got.AvatarURL)
	require.NotNil(t, got.Stats.FollowerCount)
	assert.Equal(t, int64(12), *got.Stats.FollowerCount)
	require.NotNil(t, got.Stats.VideoCount)
	assert.Equal(t, int64(0), *got.Stats.VideoCount)
	assert.Nil(t, got.Stats.FollowingCount)
	assert.Nil(t, got.Stats.LikesCount)
	assert.Contains(t, string(got.Raw), `"code":"ok"`)
}

func TestClient_FetchUserInfo_Failures(t *testing.T) {
	tests := map[string]struct {
		status int
		body   string
	}{
		"empty body":    {http.StatusOK, ""},
		"null body":     {http.StatusOK, "null"},
		"unauthorized":  {http.StatusUnauthorized, `{"error":{"code":"access_token_invalid"}}`},
		"no open_id":    {http.StatusOK, `{"data":{"user":{"display_name":"x"}}}`},
		"not an object": {http.StatusOK, `["a"]`},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				io.WriteString(w, tc.body)
			}))
			defer srv.Close()
			_, err := newTestClient(srv).FetchUserInfo(context.Background(), "act")
			assert.ErrorIs(t, err, doauth.ErrUpstreamAuth)
		})
	}

	_, err := (&Client{}).FetchUserInfo(context.Background(), "")
	assert.ErrorIs(t, err, doauth.ErrUpstreamAuth)
}

func TestExtractProfile_EnvelopePriority(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"data.user", `{"data":{"user":{"open_id":"a"},"open_id":"b"},"user":{"open_id":"c"},"open_id":"d"}`, "a"},
		{"data", `{"data":{"open_id":"b"},"user":{"open_id":"c"},"open_id":"d"}`, "b"},
		{"user", `{"data":"not-an-object","user":{"open_id":"c"},"open_id":"d"}`, "c"},
		{"root", `{"open_id":"d","display_name":"Root"}`, "d"},
		{"skips objects without open_id", `{"data":{"user":{}},"user":{"open_id":"c"}}`, "c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractProfile([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.OpenID)
		})
	}
}

func TestClient_AuthURL(t *testing.T) {
	c := &Client{ClientKey: "key"}
	raw := c.AuthURL("st", "https://cb/api/auth/tiktok", "user.info.basic,user.info.stats")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "www.tiktok.com", u.Host)
	assert.Equal(t, "/v2/auth/authorize/", u.Path)
	q := u.Query()
	assert.Equal(t, "key", q.Get("client_key"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "st", q.Get("state"))
	assert.Equal(t, "https://cb/api/auth/tiktok", q.Get("redirect_uri"))
	assert.Equal(t, "user.info.basic,user.info.stats", q.Get("scope"))
}

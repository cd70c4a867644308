package httpiface

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"tiktok-auth-bridge/internal/domain/oauth"
	"tiktok-auth-bridge/internal/pkg/httpx"
	"tiktok-auth-bridge/internal/pkg/metrics"
)

// Client-side deep link hosts.
const (
	SignInTarget  = "tikTok_auth"
	ConnectTarget = "tiktok_connected"
)

type Handler struct {
	UC        *oauth.UseCase
	Resolver  oauth.RedirectResolver
	AppScheme string
	Metrics   *metrics.Metrics
}

func requestInfo(c echo.Context) oauth.RequestInfo {
	r := c.Request()
	proto := "http"
	if r.TLS != nil {
		proto = "https"
	}
	return oauth.RequestInfo{
		ForwardedProto: r.Header.Get(echo.HeaderXForwardedProto),
		Proto:          proto,
		ForwardedHost:  r.Header.Get("X-Forwarded-Host"),
		Host:           r.Host,
	}
}

func (h *Handler) redirectURI(c echo.Context, path string) string {
	return h.Resolver.Resolve(requestInfo(c), path)
}

// appURL builds "<scheme>://<target>?<query>".
func (h *Handler) appURL(target string, q url.Values) string {
	u := h.AppScheme + "://" + target
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func wantsJSON(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON) || c.QueryParam("format") == "json"
}

func (h *Handler) Hello(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// Login sends the browser to TikTok's consent page for a sign-in.
func (h *Handler) Login(c echo.Context) error {
	state := c.QueryParam("state")
	if state == "" {
		state = randomHex(16)
	}
	u, err := h.UC.LoginURL(state, h.redirectURI(c, oauth.SignInCallbackPath))
	if err != nil {
		c.Logger().Errorf("login url: %v", err)
		return httpx.FlowError(c, err)
	}
	return c.Redirect(http.StatusFound, u)
}

// ConnectLogin starts a connect flow; the caller's ID token travels in state.
func (h *Handler) ConnectLogin(c echo.Context) error {
	idToken := c.QueryParam("idToken")
	if idToken == "" {
		return httpx.JSONError(c, http.StatusBadRequest, "missing_id_token", nil)
	}
	u, err := h.UC.LoginURL(idToken, h.redirectURI(c, oauth.ConnectCallbackPath))
	if err != nil {
		return httpx.FlowError(c, err)
	}
	return c.Redirect(http.StatusFound, u)
}

// SignInCallback completes the TikTok sign-in and hands the custom token to
// the app through a deep link.
func (h *Handler) SignInCallback(c echo.Context) error {
	if e := c.QueryParam("error"); e != "" {
		c.Logger().Warnf("oauth error on sign-in callback: %s", e)
		h.Metrics.ObserveFlow("sign_in", "oauth_denied")
		return h.failRedirect(c, SignInTarget, http.StatusBadRequest, e)
	}

	res, err := h.UC.SignIn(c.Request().Context(), c.QueryParam("code"), h.redirectURI(c, oauth.SignInCallbackPath))
	h.Metrics.ObserveFlow("sign_in", oauth.Kind(err))
	if err != nil {
		return h.failRedirect(c, SignInTarget, httpx.StatusFor(err), oauth.Kind(err))
	}

	if wantsJSON(c) {
		return c.JSON(http.StatusOK, res)
	}
	q := url.Values{}
	q.Set("token", res.CustomToken)
	q.Set("open_id", res.Profile.OpenID)
	q.Set("display_name", res.Profile.DisplayName)
	q.Set("avatar_url", res.Profile.AvatarURL)
	return c.Redirect(http.StatusFound, h.appURL(SignInTarget, q))
}

func (h *Handler) ConnectCallback(c echo.Context) error {
	if e := c.QueryParam("error"); e != "" {
		c.Logger().Warnf("oauth error on connect callback: %s", e)
		h.Metrics.ObserveFlow("connect", "oauth_denied")
		return h.failRedirect(c, ConnectTarget, http.StatusBadRequest, e)
	}

	user, err := h.UC.Connect(c.Request().Context(), c.QueryParam("code"), c.QueryParam("state"), h.redirectURI(c, oauth.ConnectCallbackPath))
	h.Metrics.ObserveFlow("connect", oauth.Kind(err))
	if err != nil {
		return h.failRedirect(c, ConnectTarget, httpx.StatusFor(err), oauth.Kind(err))
	}

	if wantsJSON(c) {
		return c.JSON(http.StatusOK, map[string]any{"uid": user.UID, "openId": user.Providers.TikTok.OpenID})
	}
	return c.Redirect(http.StatusFound, h.appURL(ConnectTarget, nil))
}

// failRedirect reports a failed callback either as JSON or as the error
// variant of the app deep link.
func (h *Handler) failRedirect(c echo.Context, target string, status int, kind string) error {
	if wantsJSON(c) {
		return httpx.JSONError(c, status, kind, nil)
	}
	return c.Redirect(http.StatusFound, h.appURL(target, url.Values{"error": {kind}}))
}

type firebaseRequest struct {
	Code    string `json:"code" form:"code"`
	IDToken string `json:"idToken" form:"idToken"`
}

// FirebaseExchange handles {code} as a sign-in and {idToken} as a session
// verification.
func (h *Handler) FirebaseExchange(c echo.Context) error {
	var req firebaseRequest
	if err := c.Bind(&req); err != nil {
		return httpx.JSONError(c, http.StatusBadRequest, "invalid_body", nil)
	}
	ctx := c.Request().Context()

	switch {
	case req.Code != "":
		res, err := h.UC.SignIn(ctx, req.Code, h.redirectURI(c, oauth.SignInCallbackPath))
		h.Metrics.ObserveFlow("firebase_code", oauth.Kind(err))
		if err != nil {
			return httpx.FlowError(c, err)
		}
		return c.JSON(http.StatusOK, res)
	case req.IDToken != "":
		user, err := h.UC.VerifySession(ctx, req.IDToken)
		h.Metrics.ObserveFlow("verify_session", oauth.Kind(err))
		if err != nil {
			return httpx.FlowError(c, err)
		}
		return c.JSON(http.StatusOK, user)
	default:
		return httpx.JSONError(c, http.StatusBadRequest, "missing_code_or_id_token", nil)
	}
}

type refreshRequest struct {
	IDToken string `json:"idToken" form:"idToken"`
}

func (h *Handler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return httpx.JSONError(c, http.StatusBadRequest, "invalid_body", nil)
	}
	res, err := h.UC.RefreshTikTok(c.Request().Context(), req.IDToken)
	h.Metrics.ObserveFlow("refresh", oauth.Kind(err))
	if err != nil {
		if errors.Is(err, oauth.ErrBadRequest) && req.IDToken == "" {
			return httpx.JSONError(c, http.StatusBadRequest, "missing_id_token", nil)
		}
		return httpx.FlowError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

package oauth

import (
	"encoding/json"
	"time"

	"golang.org/x/oauth2"
)

// ProviderTikTok is the provider claim attached to custom tokens minted for TikTok sign-ins.
const ProviderTikTok = "tiktok"

type TikTokStats struct {
	FollowerCount  *int64 `json:"follower_count,omitempty"`
	FollowingCount *int64 `json:"following_count,omitempty"`
	LikesCount     *int64 `json:"likes_count,omitempty"`
	VideoCount     *int64 `json:"video_count,omitempty"`
}

// TikTokProfile is one snapshot of the user-info endpoint.
// Empty DisplayName/AvatarURL mean the provider did not send them.
type TikTokProfile struct {
	OpenID      string          `json:"open_id"`
	DisplayName string          `json:"display_name,omitempty"`
	AvatarURL   string          `json:"avatar_url,omitempty"`
	Stats       TikTokStats     `json:"stats"`
	Raw         json.RawMessage `json:"-"`
}

func (p TikTokProfile) clone() TikTokProfile {
	out := p
	out.Stats = TikTokStats{
		FollowerCount:  cloneInt(p.Stats.FollowerCount),
		FollowingCount: cloneInt(p.Stats.FollowingCount),
		LikesCount:     cloneInt(p.Stats.LikesCount),
		VideoCount:     cloneInt(p.Stats.VideoCount),
	}
	if p.Raw != nil {
		out.Raw = append(json.RawMessage(nil), p.Raw...)
	}
	return out
}

func cloneInt(v *int64) *int64 {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

// TikTokTokens is one OAuth grant as returned by the token endpoint.
type TikTokTokens struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshExpiresIn int64  `json:"refresh_expires_in,omitempty"`
	Scope            string `json:"scope,omitempty"`
	TokenType        string `json:"token_type,omitempty"`
	OpenID           string `json:"open_id,omitempty"`
}

// OAuth2Token converts the grant into an x/oauth2 token, with the expiry
// computed relative to issuedAt.
func (t TikTokTokens) OAuth2Token(issuedAt time.Time) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
	}
	if t.ExpiresIn > 0 {
		tok.Expiry = issuedAt.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return tok
}

type TikTokLink struct {
	OpenID           string `json:"openId"`
	AccessToken      string `json:"accessToken"`
	RefreshToken     string `json:"refreshToken"`
	ExpiresIn        int64  `json:"expiresIn"`
	RefreshExpiresIn int64  `json:"refreshExpiresIn,omitempty"`
	// Expiry is the absolute access token expiry; zero when TikTok sent no expires_in.
	Expiry  time.Time     `json:"expiry"`
	Profile TikTokProfile `json:"profile"`
}

// NewTikTokLink builds the provider sub-record from the latest grant and
// profile, received at issuedAt.
func NewTikTokLink(profile TikTokProfile, tokens TikTokTokens, issuedAt time.Time) *TikTokLink {
	return &TikTokLink{
		OpenID:           profile.OpenID,
		AccessToken:      tokens.AccessToken,
		RefreshToken:     tokens.RefreshToken,
		ExpiresIn:        tokens.ExpiresIn,
		RefreshExpiresIn: tokens.RefreshExpiresIn,
		Expiry:           tokens.OAuth2Token(issuedAt).Expiry,
		Profile:          profile,
	}
}

type Providers struct {
	TikTok *TikTokLink `json:"tiktok,omitempty"`
}

type UserRecord struct {
	UID         string    `json:"uid"`
	DisplayName string    `json:"displayName,omitempty"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	Providers   Providers `json:"providers"`
}

// Clone returns a copy that shares no mutable state with r.
func (r UserRecord) Clone() UserRecord {
	out := r
	if r.Providers.TikTok != nil {
		link := *r.Providers.TikTok
		link.Profile = link.Profile.clone()
		out.Providers.TikTok = &link
	}
	return out
}

// SessionClaims is the subset of a verified identity-provider ID token the flows use.
type SessionClaims struct {
	UID     string
	Email   string
	Name    string
	Picture string
	Claims  map[string]any
}

type ProfileUpdate struct {
	DisplayName *string
	PhotoURL    *string
}

func (p ProfileUpdate) Empty() bool {
	return p.DisplayName == nil && p.PhotoURL == nil
}

type SignInResult struct {
	CustomToken string        `json:"customToken"`
	Profile     TikTokProfile `json:"profile"`
	UID         string        `json:"uid"`
}

type SessionUser struct {
	UID          string `json:"uid"`
	Email        string `json:"email,omitempty"`
	DisplayName  string `json:"displayName,omitempty"`
	AvatarURL    string `json:"avatarUrl,omitempty"`
	TikTokLinked bool   `json:"tiktokLinked"`
	OpenID       string `json:"openId,omitempty"`
	BackendToken string `json:"backendToken"`
}

type RefreshResult struct {
	UID         string    `json:"uid"`
	CustomToken string    `json:"customToken"`
	ExpiresIn   int64     `json:"expiresIn"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

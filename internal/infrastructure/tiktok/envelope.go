package tiktok

import (
	"bytes"
	"encoding/json"
	"errors"

	doauth "tiktok-auth-bridge/internal/domain/oauth"
)

type userFields struct {
	OpenID         string `json:"open_id"`
	DisplayName    string `json:"display_name"`
	AvatarURL      string `json:"avatar_url"`
	FollowerCount  *int64 `json:"follower_count"`
	FollowingCount *int64 `json:"following_count"`
	LikesCount     *int64 `json:"likes_count"`
	VideoCount     *int64 `json:"video_count"`
}

// envelopePaths lists where the user object may sit in a user-info
// response, highest priority first. The empty path is the root.
var envelopePaths = [][]string{
	{"data", "user"},
	{"data"},
	{"user"},
	{},
}

// extractProfile picks the user object out of a user-info body and projects
// the known fields. The first candidate object carrying an open_id wins; if
// none does, the first object found is used.
func extractProfile(body []byte) (doauth.TikTokProfile, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return doauth.TikTokProfile{}, errors.New("empty response body")
	}
	var root map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &root); err != nil {
		return doauth.TikTokProfile{}, errors.New("response body is not a JSON object")
	}

	var chosen map[string]json.RawMessage
	for _, path := range envelopePaths {
		obj, ok := objectAt(root, path)
		if !ok {
			continue
		}
		if chosen == nil {
			chosen = obj
		}
		if hasOpenID(obj) {
			chosen = obj
			break
		}
	}

	raw, err := json.Marshal(chosen)
	if err != nil {
		return doauth.TikTokProfile{}, err
	}
	var u userFields
	if err := json.Unmarshal(raw, &u); err != nil {
		return doauth.TikTokProfile{}, err
	}
	if u.OpenID == "" {
		return doauth.TikTokProfile{}, errors.New("response carries no open_id")
	}

	return doauth.TikTokProfile{
		OpenID:      u.OpenID,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		Stats: doauth.TikTokStats{
			FollowerCount:  u.FollowerCount,
			FollowingCount: u.FollowingCount,
			LikesCount:     u.LikesCount,
			VideoCount:     u.VideoCount,
		},
		Raw: json.RawMessage(append([]byte(nil), trimmed...)),
	}, nil
}

func objectAt(root map[string]json.RawMessage, path []string) (map[string]json.RawMessage, bool) {
	cur := root
	for _, key := range path {
		raw, ok := cur[key]
		if !ok {
			return nil, false
		}
		var next map[string]json.RawMessage
		if err := json.Unmarshal(raw, &next); err != nil || next == nil {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func hasOpenID(obj map[string]json.RawMessage) bool {
	raw, ok := obj["open_id"]
	if !ok {
		return false
	}
	var s string
	return json.Unmarshal(raw, &s) == nil && s != ""
}

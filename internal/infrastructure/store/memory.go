package store

import (
	"sync"
	"time"

	doauth "tiktok-auth-bridge/internal/domain/oauth"
)

const uidPrefix = "ttk_"

// Memory reconciles TikTok identities with internal uids. It owns the
// uid → record index and the open_id → uid index; both are only touched
// while mu is held, so they never diverge.
//
// Invariant: for every (openID, uid) in byOpenID,
// users[uid].Providers.TikTok.OpenID == openID.
type Memory struct {
	mu       sync.Mutex
	users    map[string]doauth.UserRecord
	byOpenID map[string]string
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		users:    make(map[string]doauth.UserRecord),
		byOpenID: make(map[string]string),
		now:      time.Now,
	}
}

// UIDForOpenID derives the uid of a TikTok user seen for the first time.
func UIDForOpenID(openID string) string {
	return uidPrefix + openID
}

// UpsertByTikTok resolves the uid owning profile.OpenID (deriving one on
// first sight) and syncs the profile and grant into it.
func (m *Memory) UpsertByTikTok(profile doauth.TikTokProfile, tokens doauth.TikTokTokens) doauth.UserRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	uid, ok := m.byOpenID[profile.OpenID]
	if !ok {
		uid = UIDForOpenID(profile.OpenID)
	}
	return m.linkLocked(uid, profile, tokens)
}

// LinkTikTokToUser attaches the TikTok identity to an externally verified
// uid, creating a bare record if the uid is unknown.
func (m *Memory) LinkTikTokToUser(uid string, profile doauth.TikTokProfile, tokens doauth.TikTokTokens) doauth.UserRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.linkLocked(uid, profile, tokens)
}

func (m *Memory) GetUserByUID(uid string) (doauth.UserRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[uid]
	if !ok {
		return doauth.UserRecord{}, false
	}
	return u.Clone(), true
}

// EnsureUser returns the record of uid, storing an empty one if needed.
func (m *Memory) EnsureUser(uid string) doauth.UserRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[uid]
	if !ok {
		u = doauth.UserRecord{UID: uid}
		m.users[uid] = u
	}
	return u.Clone()
}

// UpdateTikTokTokens stores a refreshed grant on an existing link. A refresh
// response without a refresh token keeps the previous one.
func (m *Memory) UpdateTikTokTokens(uid string, tokens doauth.TikTokTokens) (doauth.UserRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[uid]
	if !ok || u.Providers.TikTok == nil {
		return doauth.UserRecord{}, false
	}
	link := *u.Providers.TikTok
	link.AccessToken = tokens.AccessToken
	if tokens.RefreshToken != "" {
		link.RefreshToken = tokens.RefreshToken
	}
	link.ExpiresIn = tokens.ExpiresIn
	link.Expiry = tokens.OAuth2Token(m.now()).Expiry
	if tokens.RefreshExpiresIn != 0 {
		link.RefreshExpiresIn = tokens.RefreshExpiresIn
	}
	u.Providers.TikTok = &link
	m.users[uid] = u
	return u.Clone(), true
}

// Len reports the number of stored records.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

func (m *Memory) linkLocked(uid string, profile doauth.TikTokProfile, tokens doauth.TikTokTokens) doauth.UserRecord {
	u, ok := m.users[uid]
	if !ok {
		u = doauth.UserRecord{UID: uid}
	}

	if prev := u.Providers.TikTok; prev != nil && prev.OpenID != profile.OpenID {
		delete(m.byOpenID, prev.OpenID)
	}
	if owner, ok := m.byOpenID[profile.OpenID]; ok && owner != uid {
		if other, ok := m.users[owner]; ok {
			other.Providers.TikTok = nil
			m.users[owner] = other
		}
	}

	if profile.DisplayName != "" {
		u.DisplayName = profile.DisplayName
	}
	if profile.AvatarURL != "" {
		u.AvatarURL = profile.AvatarURL
	}
	u.Providers.TikTok = doauth.NewTikTokLink(profile, tokens, m.now())

	// the caller keeps its profile; the store owns a private copy
	m.users[uid] = u.Clone()
	m.byOpenID[profile.OpenID] = uid
	return u.Clone()
}

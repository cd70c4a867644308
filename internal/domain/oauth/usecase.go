package oauth

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Flow stages, logged as the "stage" field.
const (
	StageStart               = "start"
	StageVerifyingSession    = "verifying_session"
	StageExchangingCode      = "exchanging_code"
	StageFetchingProfile     = "fetching_profile"
	StageReconcilingIdentity = "reconciling_identity"
	StageIssuingToken        = "issuing_token"
	StageDone                = "done"
)

type TikTokClient interface {
	// Ready reports ErrMissingConfiguration when client credentials are absent.
	Ready() error
	AuthURL(state, redirectURI, scope string) string
	ExchangeCode(ctx context.Context, code, redirectURI string) (TikTokTokens, error)
	Refresh(ctx context.Context, refreshToken string) (TikTokTokens, error)
	FetchUserInfo(ctx context.Context, accessToken string) (TikTokProfile, error)
}

type UserStore interface {
	UpsertByTikTok(profile TikTokProfile, tokens TikTokTokens) UserRecord
	LinkTikTokToUser(uid string, profile TikTokProfile, tokens TikTokTokens) UserRecord
	GetUserByUID(uid string) (UserRecord, bool)
	EnsureUser(uid string) UserRecord
	UpdateTikTokTokens(uid string, tokens TikTokTokens) (UserRecord, bool)
}

type SessionIssuer interface {
	CreateCustomToken(ctx context.Context, uid string, claims map[string]any) (string, error)
	VerifyIDToken(ctx context.Context, idToken string) (SessionClaims, error)
	UpdateUserProfile(ctx context.Context, uid string, update ProfileUpdate) error
}

type BackendTokenMinter interface {
	Mint(uid string) (string, error)
}

type UseCase struct {
	client   TikTokClient
	users    UserStore
	sessions SessionIssuer
	backend  BackendTokenMinter
	scope    string
	log      logrus.FieldLogger
}

func NewUseCase(c TikTokClient, users UserStore, sessions SessionIssuer, backend BackendTokenMinter, scope string, log logrus.FieldLogger) *UseCase {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &UseCase{client: c, users: users, sessions: sessions, backend: backend, scope: scope, log: log}
}

func (u *UseCase) LoginURL(state, redirectURI string) (string, error) {
	if err := u.client.Ready(); err != nil {
		return "", err
	}
	return u.client.AuthURL(state, redirectURI, u.scope), nil
}

// SignIn exchanges the code, reconciles the TikTok identity and issues a
// custom token for the resulting uid.
func (u *UseCase) SignIn(ctx context.Context, code, redirectURI string) (SignInResult, error) {
	f := u.begin("sign_in")
	if code == "" {
		return SignInResult{}, f.fail(fmt.Errorf("%w: missing code", ErrBadRequest))
	}
	if err := u.client.Ready(); err != nil {
		return SignInResult{}, f.fail(err)
	}

	profile, tokens, err := u.exchangeAndFetch(ctx, f, code, redirectURI)
	if err != nil {
		return SignInResult{}, f.fail(err)
	}

	f.enter(StageReconcilingIdentity)
	user := u.users.UpsertByTikTok(profile, tokens)

	f.enter(StageIssuingToken)
	customToken, err := u.sessions.CreateCustomToken(ctx, user.UID, map[string]any{"provider": ProviderTikTok})
	if err != nil {
		return SignInResult{}, f.fail(err)
	}

	f.done(user.UID)
	return SignInResult{CustomToken: customToken, Profile: profile, UID: user.UID}, nil
}

// Connect links a TikTok identity to the user owning idToken. The session is
// verified before the code is spent.
func (u *UseCase) Connect(ctx context.Context, code, idToken, redirectURI string) (UserRecord, error) {
	f := u.begin("connect")
	if code == "" {
		return UserRecord{}, f.fail(fmt.Errorf("%w: missing code", ErrBadRequest))
	}
	if idToken == "" {
		return UserRecord{}, f.fail(fmt.Errorf("%w: missing state", ErrBadRequest))
	}
	if err := u.client.Ready(); err != nil {
		return UserRecord{}, f.fail(err)
	}

	f.enter(StageVerifyingSession)
	claims, err := u.sessions.VerifyIDToken(ctx, idToken)
	if err != nil {
		return UserRecord{}, f.fail(err)
	}
	f.log = f.log.WithField("uid", claims.UID)

	profile, tokens, err := u.exchangeAndFetch(ctx, f, code, redirectURI)
	if err != nil {
		return UserRecord{}, f.fail(err)
	}

	f.enter(StageReconcilingIdentity)
	user := u.users.LinkTikTokToUser(claims.UID, profile, tokens)
	u.syncProfile(ctx, f, user, claims)

	f.done(user.UID)
	return user, nil
}

// VerifySession checks an identity-provider ID token and returns the
// backend-facing view of its user, creating a stub record on first sight.
func (u *UseCase) VerifySession(ctx context.Context, idToken string) (SessionUser, error) {
	f := u.begin("verify_session")
	if idToken == "" {
		return SessionUser{}, f.fail(fmt.Errorf("%w: missing idToken", ErrBadRequest))
	}

	f.enter(StageVerifyingSession)
	claims, err := u.sessions.VerifyIDToken(ctx, idToken)
	if err != nil {
		return SessionUser{}, f.fail(err)
	}

	f.enter(StageReconcilingIdentity)
	user := u.users.EnsureUser(claims.UID)
	u.syncProfile(ctx, f, user, claims)

	f.enter(StageIssuingToken)
	backendToken, err := u.backend.Mint(user.UID)
	if err != nil {
		return SessionUser{}, f.fail(err)
	}

	out := SessionUser{
		UID:          user.UID,
		Email:        claims.Email,
		DisplayName:  firstNonEmpty(user.DisplayName, claims.Name),
		AvatarURL:    firstNonEmpty(user.AvatarURL, claims.Picture),
		BackendToken: backendToken,
	}
	if link := user.Providers.TikTok; link != nil {
		out.TikTokLinked = true
		out.OpenID = link.OpenID
	}
	f.done(user.UID)
	return out, nil
}

// RefreshTikTok renews the stored TikTok grant of the session's user and
// issues a custom token carrying the new refresh token.
func (u *UseCase) RefreshTikTok(ctx context.Context, idToken string) (RefreshResult, error) {
	f := u.begin("refresh")
	if idToken == "" {
		return RefreshResult{}, f.fail(fmt.Errorf("%w: missing idToken", ErrBadRequest))
	}
	if err := u.client.Ready(); err != nil {
		return RefreshResult{}, f.fail(err)
	}

	f.enter(StageVerifyingSession)
	claims, err := u.sessions.VerifyIDToken(ctx, idToken)
	if err != nil {
		return RefreshResult{}, f.fail(err)
	}
	user, ok := u.users.GetUserByUID(claims.UID)
	if !ok || user.Providers.TikTok == nil {
		return RefreshResult{}, f.fail(fmt.Errorf("%w: user %s has no tiktok link", ErrBadRequest, claims.UID))
	}

	f.enter(StageExchangingCode)
	tokens, err := u.client.Refresh(ctx, user.Providers.TikTok.RefreshToken)
	if err != nil {
		return RefreshResult{}, f.fail(err)
	}

	f.enter(StageReconcilingIdentity)
	user, ok = u.users.UpdateTikTokTokens(user.UID, tokens)
	if !ok {
		return RefreshResult{}, f.fail(fmt.Errorf("%w: tiktok link of %s removed during refresh", ErrBadRequest, claims.UID))
	}

	f.enter(StageIssuingToken)
	customToken, err := u.sessions.CreateCustomToken(ctx, user.UID, map[string]any{
		"provider":             ProviderTikTok,
		"tiktok_refresh_token": user.Providers.TikTok.RefreshToken,
	})
	if err != nil {
		return RefreshResult{}, f.fail(err)
	}

	link := user.Providers.TikTok
	f.done(user.UID)
	return RefreshResult{UID: user.UID, CustomToken: customToken, ExpiresIn: link.ExpiresIn, ExpiresAt: link.Expiry}, nil
}

func (u *UseCase) exchangeAndFetch(ctx context.Context, f *flow, code, redirectURI string) (TikTokProfile, TikTokTokens, error) {
	f.enter(StageExchangingCode)
	tokens, err := u.client.ExchangeCode(ctx, code, redirectURI)
	if err != nil {
		return TikTokProfile{}, TikTokTokens{}, err
	}

	f.enter(StageFetchingProfile)
	profile, err := u.client.FetchUserInfo(ctx, tokens.AccessToken)
	if err != nil {
		return TikTokProfile{}, TikTokTokens{}, err
	}
	f.log = f.log.WithField("open_id", profile.OpenID)
	return profile, tokens, nil
}

// syncProfile pushes the locally known name and avatar to the identity
// provider. Failures only produce a warning.
func (u *UseCase) syncProfile(ctx context.Context, f *flow, user UserRecord, claims SessionClaims) {
	var update ProfileUpdate
	if user.DisplayName != "" && user.DisplayName != claims.Name {
		name := user.DisplayName
		update.DisplayName = &name
	}
	if user.AvatarURL != "" && user.AvatarURL != claims.Picture {
		photo := user.AvatarURL
		update.PhotoURL = &photo
	}
	if update.Empty() {
		return
	}
	if err := u.sessions.UpdateUserProfile(ctx, user.UID, update); err != nil {
		f.log.WithError(err).Warn("profile sync failed")
	}
}

type flow struct {
	log   logrus.FieldLogger
	stage string
}

func (u *UseCase) begin(name string) *flow {
	f := &flow{log: u.log.WithField("flow", name), stage: StageStart}
	f.log.WithField("stage", StageStart).Debug("flow started")
	return f
}

func (f *flow) enter(stage string) {
	f.stage = stage
	f.log.WithField("stage", stage).Debug("flow stage")
}

func (f *flow) fail(err error) error {
	f.log.WithFields(logrus.Fields{
		"stage": f.stage,
		"kind":  Kind(err),
	}).WithError(err).Warn("flow failed")
	return err
}

func (f *flow) done(uid string) {
	f.stage = StageDone
	f.log.WithFields(logrus.Fields{"stage": StageDone, "uid": uid}).Info("flow completed")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

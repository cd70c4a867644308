package firebase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	fb "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	doauth "tiktok-auth-bridge/internal/domain/oauth"
)

// Credentials of the service account used to mint and verify tokens.
type Credentials struct {
	ProjectID   string
	ClientEmail string
	PrivateKey  string
}

func (c Credentials) validate() error {
	var missing []string
	if c.ProjectID == "" {
		missing = append(missing, "FIREBASE_PROJECT_ID")
	}
	if c.ClientEmail == "" {
		missing = append(missing, "FIREBASE_CLIENT_EMAIL")
	}
	if c.PrivateKey == "" {
		missing = append(missing, "FIREBASE_PRIVATE_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", doauth.ErrMissingConfiguration, strings.Join(missing, ", "))
	}
	return nil
}

// NormalizePrivateKey turns the literal "\n" sequences of a key pasted into a
// single-line environment variable back into newlines.
func NormalizePrivateKey(key string) string {
	return strings.ReplaceAll(key, `\n`, "\n")
}

// serviceAccountJSON renders the credentials in the service account file format.
func (c Credentials) serviceAccountJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		"type":         "service_account",
		"project_id":   c.ProjectID,
		"client_email": c.ClientEmail,
		"private_key":  NormalizePrivateKey(c.PrivateKey),
		"token_uri":    "https://oauth2.googleapis.com/token",
	})
}

// authClient is the part of *auth.Client the issuer needs.
type authClient interface {
	CustomTokenWithClaims(ctx context.Context, uid string, devClaims map[string]interface{}) (string, error)
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	UpdateUser(ctx context.Context, uid string, user *auth.UserToUpdate) (*auth.UserRecord, error)
}

// Issuer mints custom tokens and verifies ID tokens through Firebase Admin.
// An Issuer without a client fails every call with ErrMissingConfiguration.
type Issuer struct {
	client authClient
}

// New connects to Firebase Admin. When credentials are incomplete it returns
// an unconfigured Issuer together with the configuration error, so callers
// may keep serving the routes that do not need Firebase.
func New(ctx context.Context, creds Credentials) (*Issuer, error) {
	if err := creds.validate(); err != nil {
		return &Issuer{}, err
	}
	saJSON, err := creds.serviceAccountJSON()
	if err != nil {
		return &Issuer{}, err
	}
	app, err := fb.NewApp(ctx, &fb.Config{ProjectID: creds.ProjectID}, option.WithCredentialsJSON(saJSON))
	if err != nil {
		return &Issuer{}, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return &Issuer{}, fmt.Errorf("firebase auth: %w", err)
	}
	return &Issuer{client: client}, nil
}

func (i *Issuer) ready() error {
	if i == nil || i.client == nil {
		return fmt.Errorf("%w: firebase admin credentials", doauth.ErrMissingConfiguration)
	}
	return nil
}

// CreateCustomToken passes claims through unchanged.
func (i *Issuer) CreateCustomToken(ctx context.Context, uid string, claims map[string]any) (string, error) {
	if err := i.ready(); err != nil {
		return "", err
	}
	tok, err := i.client.CustomTokenWithClaims(ctx, uid, claims)
	if err != nil {
		return "", fmt.Errorf("%w: custom token: %v", doauth.ErrUpstreamAuth, err)
	}
	return tok, nil
}

// VerifyIDToken maps every verification failure to ErrInvalidSessionToken.
func (i *Issuer) VerifyIDToken(ctx context.Context, idToken string) (doauth.SessionClaims, error) {
	if err := i.ready(); err != nil {
		return doauth.SessionClaims{}, err
	}
	if strings.Count(idToken, ".") != 2 {
		return doauth.SessionClaims{}, fmt.Errorf("%w: malformed token", doauth.ErrInvalidSessionToken)
	}
	tok, err := i.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return doauth.SessionClaims{}, fmt.Errorf("%w: %v", doauth.ErrInvalidSessionToken, err)
	}
	return doauth.SessionClaims{
		UID:     tok.UID,
		Email:   stringClaim(tok.Claims, "email"),
		Name:    stringClaim(tok.Claims, "name"),
		Picture: stringClaim(tok.Claims, "picture"),
		Claims:  tok.Claims,
	}, nil
}

func (i *Issuer) UpdateUserProfile(ctx context.Context, uid string, update doauth.ProfileUpdate) error {
	if err := i.ready(); err != nil {
		return err
	}
	if update.Empty() {
		return nil
	}
	params := &auth.UserToUpdate{}
	if update.DisplayName != nil {
		params = params.DisplayName(*update.DisplayName)
	}
	if update.PhotoURL != nil {
		params = params.PhotoURL(*update.PhotoURL)
	}
	if _, err := i.client.UpdateUser(ctx, uid, params); err != nil {
		return fmt.Errorf("%w: update user %s: %v", doauth.ErrUpstreamAuth, uid, err)
	}
	return nil
}

func stringClaim(claims map[string]interface{}, key string) string {
	s, _ := claims[key].(string)
	return s
}

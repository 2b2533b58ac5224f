package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/desertthunder/splitx/internal/models"
	"github.com/desertthunder/splitx/internal/shared"
)

// DefaultScopes are requested when the configuration does not name any.
var DefaultScopes = []string{
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistReadCollaborative,
	spotifyauth.ScopePlaylistModifyPrivate,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopeUserReadPrivate,
	spotifyauth.ScopeImageUpload,
}

// SpotifyAuth performs the Spotify authorization-code flow and token refresh.
type SpotifyAuth struct {
	config     *oauth2.Config
	httpClient *http.Client
	logger     *log.Logger
	now        func() time.Time
}

// AuthOption customizes a [SpotifyAuth].
type AuthOption func(*SpotifyAuth)

// WithEndpoint overrides the accounts service endpoint.
func WithEndpoint(authURL, tokenURL string) AuthOption {
	return func(a *SpotifyAuth) {
		a.config.Endpoint = oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInHeader}
	}
}

// WithHTTPClient sets the client used for token requests.
func WithHTTPClient(client *http.Client) AuthOption {
	return func(a *SpotifyAuth) { a.httpClient = client }
}

// WithAuthLogger sets the logger.
func WithAuthLogger(logger *log.Logger) AuthOption {
	return func(a *SpotifyAuth) { a.logger = logger }
}

// NewSpotifyAuth builds the OAuth configuration from Spotify credentials.
func NewSpotifyAuth(cfg shared.SpotifyConfig, opts ...AuthOption) (*SpotifyAuth, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}
	if cfg.RedirectURI == "" {
		return nil, fmt.Errorf("%w: spotify redirect_uri is required", shared.ErrInvalidConfig)
	}

	scopes := strings.Fields(cfg.Scopes)
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	a := &SpotifyAuth{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   spotifyauth.AuthURL,
				TokenURL:  spotifyauth.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: http.DefaultClient,
		logger:     log.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// AuthorizeURL returns the consent page URL carrying state. The dialog is always shown.
func (a *SpotifyAuth) AuthorizeURL(state string) string {
	return a.config.AuthCodeURL(state, spotifyauth.ShowDialog)
}

// Exchange trades an authorization code for tokens. A response without a
// refresh token is rejected since the session cannot be renewed later.
func (a *SpotifyAuth) Exchange(ctx context.Context, code string) (*models.AuthTokens, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}

	token, err := a.config.Exchange(a.withClient(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	if token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: spotify did not return a refresh token, check the requested scopes", shared.ErrNoRefreshToken)
	}

	a.logger.Debug("exchanged authorization code", "scope", token.Extra("scope"))
	return a.toAuthTokens(token), nil
}

// Refresh obtains a new access token. The original refresh token is kept
// when Spotify does not rotate it.
func (a *SpotifyAuth) Refresh(ctx context.Context, refreshToken string) (*models.AuthTokens, error) {
	if refreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	source := a.config.TokenSource(a.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}
	return a.toAuthTokens(token), nil
}

// Client returns an HTTP client that refreshes token as it expires.
func (a *SpotifyAuth) Client(ctx context.Context, token *oauth2.Token) *http.Client {
	return a.config.Client(a.withClient(ctx), token)
}

// TokenSource returns a refreshing token source seeded with token.
func (a *SpotifyAuth) TokenSource(ctx context.Context, token *oauth2.Token) oauth2.TokenSource {
	return a.config.TokenSource(a.withClient(ctx), token)
}

func (a *SpotifyAuth) withClient(ctx context.Context) context.Context {
	if a.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
}

func (a *SpotifyAuth) toAuthTokens(token *oauth2.Token) *models.AuthTokens {
	expiresIn := 0
	switch v := token.Extra("expires_in").(type) {
	case float64:
		expiresIn = int(v)
	case int:
		expiresIn = v
	}

	expiresAt := token.Expiry
	if expiresAt.IsZero() && expiresIn > 0 {
		expiresAt = a.now().Add(time.Duration(expiresIn) * time.Second)
	}
	if expiresIn == 0 && !expiresAt.IsZero() {
		expiresIn = int(time.Until(expiresAt).Seconds())
	}

	scope, _ := token.Extra("scope").(string)
	tokenType := token.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	return &models.AuthTokens{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    expiresIn,
		ExpiresAt:    expiresAt,
		Scope:        scope,
		TokenType:    tokenType,
	}
}

// OAuthToken converts stored tokens back to an [oauth2.Token].
func OAuthToken(t *models.AuthTokens) *oauth2.Token {
	if t == nil {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.ExpiresAt,
	}
}

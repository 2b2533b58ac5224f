package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/splitx/internal/models"
	"github.com/desertthunder/splitx/internal/server"
	"github.com/desertthunder/splitx/internal/services"
	"github.com/desertthunder/splitx/internal/shared"
)

const authTimeout = 2 * time.Minute

// Auth performs the OAuth2 authorization flow for Spotify.
//
// Starts a local HTTP server on the redirect URI, opens the browser for user authorization, and saves the exchanged
// tokens to the config file.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	auth, err := r.spotifyAuth()
	if err != nil {
		return err
	}

	tokens, err := r.doOAuth(ctx, auth, cmd.Duration("timeout"), !cmd.Bool("no-browser"))
	if err != nil {
		return err
	}

	if err := r.saveTokens(services.OAuthToken(tokens)); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", r.configPath)
	r.writePlain("You can now use: splitx playlists\n")
	return nil
}

// AuthRefresh exchanges the stored refresh token for a new access token.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	auth, err := r.spotifyAuth()
	if err != nil {
		return err
	}

	tokens, err := auth.Refresh(ctx, r.config.Credentials.Spotify.RefreshToken)
	if err != nil {
		return err
	}
	if err := r.saveTokens(services.OAuthToken(tokens)); err != nil {
		return err
	}

	r.logger.Info("refreshed access token", "expires_at", tokens.ExpiresAt)
	return r.writePlain("✓ Access token refreshed (expires %s)\n", tokens.ExpiresAt.Format(time.RFC3339))
}

// AuthStatus reports the user behind the stored tokens.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	catalog, err := r.catalogFor(ctx)
	if err != nil {
		return err
	}
	defer r.persistRefreshedToken()

	user, err := catalog.CurrentUser(ctx)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Authenticated as %s (%s)\n", user.Name, user.ID)
}

// callbackAddr splits the redirect URI into the listen address and callback path.
func callbackAddr(redirectURI string) (string, string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil || u.Host == "" {
		return "", "", fmt.Errorf("%w: redirect_uri %q must be an absolute URL", shared.ErrInvalidConfig, redirectURI)
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	host := u.Host
	if u.Port() == "" {
		host += ":80"
	}
	return host, path, nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, auth *services.SpotifyAuth, timeout time.Duration, openBrowser bool) (*models.AuthTokens, error) {
	addr, path, err := callbackAddr(r.config.Credentials.Spotify.RedirectURI)
	if err != nil {
		return nil, err
	}

	state := shared.GenerateState()
	authURL := auth.AuthorizeURL(state)
	oauthHandler := server.NewOAuthHandler(auth, state, path)
	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger))
	router.Handler(oauthHandler)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("starting OAuth callback server", "addr", addr, "path", path)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	opened := false
	if openBrowser {
		r.writePlain("→ Opening browser for Spotify authorization...\n")
		if err := shared.OpenBrowser(authURL); err != nil {
			r.logger.Warn("failed to open browser automatically", "error", err)
		} else {
			opened = true
		}
	}
	if !opened {
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	if timeout <= 0 {
		timeout = authTimeout
	}
	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timer.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Tokens == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}
	return result.Tokens, nil
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Jack-Penn/AlgoRhythms/internal/models"
	"github.com/Jack-Penn/AlgoRhythms/internal/server"
	"github.com/Jack-Penn/AlgoRhythms/internal/session"
	"github.com/Jack-Penn/AlgoRhythms/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin logs in to Spotify with the authorization code + PKCE flow.
//
// Starts a local HTTP server on the callback address, opens the browser for
// user consent, and completes the code exchange through the session manager.
// With --guest no provider is involved at all.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("guest") {
		r.session.EnterGuestMode()
		r.writePlainln("✓ Guest mode enabled")
		r.writePlain("Generation runs use the built-in sample pool until you log in.\n")
		return nil
	}

	if r.config.Credentials.Spotify.ClientID == "" {
		return fmt.Errorf("%w: Spotify client_id must be set in config.toml", shared.ErrMissingCredentials)
	}

	cred, err := r.doLogin(ctx)
	if err != nil {
		return err
	}

	r.writePlainln("✓ Login successful")
	r.writePlain("✓ Access token valid until %s\n", cred.ExpiresAt.Format(time.RFC1123))
	if r.config.Session.CachePath != "" {
		r.writePlain("✓ Session cached at %s\n\n", r.config.Session.CachePath)
	}
	r.writePlain("You can now use: algorhythms generate --mood calm\n")

	return nil
}

// AuthStatus reports the session state and, when logged in, the credential's
// expiry and scopes. The check is purely local.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	state := r.session.State()

	if cmd.Bool("json") {
		status := map[string]any{"state": string(state)}
		if cred, err := r.session.CurrentCredential(); err == nil {
			status["expires_at"] = cred.ExpiresAt
			status["scope"] = cred.Scope
		}
		return r.writeJSON(status, true)
	}

	switch state {
	case session.StateLoggedIn:
		cred, err := r.session.CurrentCredential()
		if err != nil {
			r.writePlain("✗ Session expired: %v\n", err)
			r.writePlain("Run 'algorhythms auth refresh' to get a new access token.\n")
			return nil
		}
		r.writePlain("✓ Logged in\n")
		r.writePlain("Access token valid until %s\n", cred.ExpiresAt.Format(time.RFC1123))
		if cred.Scope != "" {
			r.writePlain("Scopes: %s\n", cred.Scope)
		}
		if cred.RefreshToken != "" {
			r.writePlain("Refresh: ✓ Available\n")
		} else {
			r.writePlain("Refresh: ✗ No refresh token\n")
		}
	case session.StateGuest:
		r.writePlain("✓ Guest mode\n")
		r.writePlain("Generation runs use the built-in sample pool.\n")
	case session.StateLoggingIn:
		r.writePlain("⟳ Login in progress\n")
	default:
		r.writePlain("✗ Logged out\n")
		r.writePlain("Run 'algorhythms auth login' to connect your Spotify account.\n")
	}

	return nil
}

// AuthRefresh exchanges the refresh token for a new access token.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("refreshing access token")

	cred, err := r.session.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}

	r.writePlainln("✓ Access token refreshed")
	r.writePlain("✓ Valid until %s\n", cred.ExpiresAt.Format(time.RFC1123))
	return nil
}

// AuthLogout discards the session and clears the cached credential.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.session.LogOut(); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}

	r.writePlainln("✓ Logged out")
	return nil
}

// doLogin executes the browser consent flow with a local callback server
func (r *Runner) doLogin(ctx context.Context) (*models.Credential, error) {
	authURL, state, err := r.session.BeginLogin()
	if err != nil {
		return nil, err
	}

	handler := server.NewCallbackHandler(r.session, state)
	router := server.NewBasicRouter()
	router.Handler(handler)

	serverAddr := r.config.Server.Addr()
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting login callback server at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.CallbackResult

	select {
	case result = <-handler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return nil, fmt.Errorf("callback server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down callback server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Credential == nil {
		return nil, fmt.Errorf("no credential received")
	}

	return result.Credential, nil
}

package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Jack-Penn/AlgoRhythms/internal/models"
	"github.com/Jack-Penn/AlgoRhythms/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// State names a phase of the login lifecycle.
type State string

const (
	StateLoggedOut State = "logged_out"
	StateLoggingIn State = "logging_in"
	StateLoggedIn  State = "logged_in"
	StateGuest     State = "guest_logged_in"
)

// Manager drives the authorization code flow with PKCE for a public client
// and owns the resulting credential. No client secret is involved at any
// point. All methods are safe for concurrent use.
type Manager struct {
	mu        sync.Mutex
	config    *oauth2.Config
	store     *TokenStore
	state     State
	verifier  string
	authState string
	now       func() time.Time
}

// NewManager wires a manager for the given client against store. A valid
// cached credential resumes the session as logged in.
func NewManager(cfg shared.SpotifyConfig, store *TokenStore) *Manager {
	m := &Manager{
		config: &oauth2.Config{
			ClientID:    cfg.ClientID,
			RedirectURL: cfg.RedirectURI,
			Scopes:      cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyAuthURL,
				TokenURL: spotifyTokenURL,
			},
		},
		store: store,
		state: StateLoggedOut,
		now:   time.Now,
	}

	if _, err := store.Current(m.now()); err == nil {
		m.state = StateLoggedIn
	}

	return m
}

// State reports the current lifecycle phase.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// BeginLogin generates a fresh verifier and state parameter and returns the
// authorization URL to open in the browser. Calling it again before
// CompleteLogin discards the earlier verifier, so only the newest redirect
// can complete.
func (m *Manager) BeginLogin() (authURL string, state string, err error) {
	verifier, err := GenerateVerifier()
	if err != nil {
		return "", "", fmt.Errorf("generating verifier: %w", err)
	}

	state, err = GenerateState()
	if err != nil {
		return "", "", fmt.Errorf("generating state: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.verifier = verifier
	m.authState = state
	m.state = StateLoggingIn

	return m.config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)), state, nil
}

// CompleteLogin exchanges the authorization code for tokens using the pending
// verifier. The verifier is discarded whether or not the exchange succeeds;
// an authorization code never gets a second attempt.
func (m *Manager) CompleteLogin(ctx context.Context, code string) (*models.Credential, error) {
	m.mu.Lock()
	verifier := m.verifier
	m.verifier = ""
	m.authState = ""
	cfg := m.config
	m.mu.Unlock()

	if verifier == "" {
		return nil, fmt.Errorf("%w: no login in progress", shared.ErrAuthExchange)
	}

	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		m.setState(StateLoggedOut)
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthExchange, err)
	}

	cred := credentialFromToken(tok)
	m.setState(StateLoggedIn)

	if err := m.store.Set(cred); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	return cred, nil
}

// CurrentCredential returns the active credential. It never returns an
// expired credential and never refreshes on its own; callers decide when to
// call Refresh.
func (m *Manager) CurrentCredential() (*models.Credential, error) {
	m.mu.Lock()
	state := m.state
	m.mu.Unlock()

	if state == StateGuest {
		return nil, fmt.Errorf("%w: guest session has no credential", shared.ErrNotAuthenticated)
	}

	return m.store.Current(m.now())
}

// Refresh forces a token refresh with the stored refresh token, whether or
// not the access token has expired. A response that omits a new refresh token
// keeps the previous one.
func (m *Manager) Refresh(ctx context.Context) (*models.Credential, error) {
	prev := m.store.Peek()
	if prev == nil {
		return nil, fmt.Errorf("%w: no session to refresh", shared.ErrNotAuthenticated)
	}
	if prev.RefreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	tok, err := m.config.TokenSource(ctx, &oauth2.Token{RefreshToken: prev.RefreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	cred := credentialFromToken(tok)
	if cred.RefreshToken == "" {
		cred.RefreshToken = prev.RefreshToken
	}
	if cred.Scope == "" {
		cred.Scope = prev.Scope
	}

	m.setState(StateLoggedIn)

	if err := m.store.Set(cred); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	return cred, nil
}

// LogOut clears the session and its cache file. Logging out twice is
// harmless.
func (m *Manager) LogOut() error {
	if err := m.store.Clear(); err != nil {
		return err
	}

	m.mu.Lock()
	m.state = StateLoggedOut
	m.verifier = ""
	m.authState = ""
	m.mu.Unlock()

	return nil
}

// EnterGuestMode switches to a guest session with no credential, so
// generation can run against the local catalog alone.
func (m *Manager) EnterGuestMode() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = StateGuest
	m.verifier = ""
	m.authState = ""
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// credentialFromToken flattens an oauth2 token into the cached credential
// shape.
func credentialFromToken(tok *oauth2.Token) *models.Credential {
	cred := &models.Credential{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.Type(),
		ExpiresAt:    tok.Expiry,
		RefreshToken: tok.RefreshToken,
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		cred.Scope = scope
	}
	return cred
}

package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/Jack-Penn/AlgoRhythms/internal/models"
	"github.com/Jack-Penn/AlgoRhythms/internal/shared"
	"github.com/charmbracelet/log"
)

// Params carries everything one generation request needs.
type Params struct {
	Mood          string
	Activity      string
	Length        int
	FavoriteSongs []string
	Target        models.Features
	Weights       models.Weights
}

type generateBody struct {
	TargetFeatures models.Features    `json:"target_features"`
	Weights        models.Weights     `json:"weights"`
	Auth           *models.Credential `json:"auth"`
}

// CredentialSource yields the bearer credential attached to generation
// requests. [session.Manager] satisfies it.
type CredentialSource interface {
	CurrentCredential() (*models.Credential, error)
}

// Client starts generation runs against one API base URL. It tracks the
// active run so a new start abandons the previous one.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      CredentialSource
	logger     *log.Logger

	mu     sync.Mutex
	active *Run
}

// NewClient builds a client for the API at baseURL. creds may be nil, in
// which case every run is a guest run.
func NewClient(baseURL string, creds CredentialSource, logger *log.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		creds:      creds,
		logger:     logger,
	}
}

// Start issues the generation request and begins consuming its stream in the
// background. Any previously started run is cancelled first; its remaining
// events are discarded. The returned run is live until its final or error
// event, a connection failure, or Cancel.
func (c *Client) Start(ctx context.Context, p Params) (*Run, error) {
	c.mu.Lock()
	prev := c.active
	c.mu.Unlock()
	if prev != nil {
		prev.Cancel()
	}

	cred, err := c.credential()
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)

	req, err := c.buildRequest(runCtx, p, cred)
	if err != nil {
		cancel()
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", shared.ErrStreamConnection, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: status %d: %s", shared.ErrStreamConnection, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	run := newRun(runCtx, cancel, c.logger)

	c.mu.Lock()
	c.active = run
	c.mu.Unlock()

	c.logger.Info("generation stream opened", "run", run.ID, "mood", p.Mood, "activity", p.Activity, "length", p.Length)
	go run.consume(resp.Body)

	return run, nil
}

// credential resolves the bearer credential for the next request. A missing
// session downgrades to a guest run; an expired one is surfaced so the caller
// can refresh before retrying.
func (c *Client) credential() (*models.Credential, error) {
	if c.creds == nil {
		return nil, nil
	}

	cred, err := c.creds.CurrentCredential()
	if err == nil {
		return cred, nil
	}
	if errors.Is(err, shared.ErrNotAuthenticated) {
		return nil, nil
	}
	return nil, err
}

func (c *Client) buildRequest(ctx context.Context, p Params, cred *models.Credential) (*http.Request, error) {
	u, err := url.Parse(c.baseURL + "/generate")
	if err != nil {
		return nil, fmt.Errorf("%w: api url: %v", shared.ErrInvalidConfig, err)
	}

	q := u.Query()
	q.Set("mood", p.Mood)
	q.Set("activity", p.Activity)
	q.Set("length", strconv.Itoa(p.Length))
	if len(p.FavoriteSongs) > 0 {
		q.Set("favorite_songs", strings.Join(p.FavoriteSongs, ","))
	}
	u.RawQuery = q.Encode()

	body, err := json.Marshal(generateBody{TargetFeatures: p.Target, Weights: p.Weights, Auth: cred})
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if cred != nil {
		req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	}

	return req, nil
}

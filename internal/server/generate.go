package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Jack-Penn/AlgoRhythms/internal/models"
	"github.com/Jack-Penn/AlgoRhythms/internal/tasks"
	"github.com/charmbracelet/log"
)

// EngineFactory builds the generation engine serving one request. The
// credential is nil for guest runs; authenticated requests get an engine
// whose compiler reads the caller's library.
type EngineFactory func(ctx context.Context, cred *models.Credential) (*tasks.Engine, error)

// generateBody is the optional JSON payload of a generation request. Target
// features and weights override the mood/activity preset when present.
type generateBody struct {
	TargetFeatures *models.Features   `json:"target_features"`
	Weights        *models.Weights    `json:"weights"`
	Auth           *models.Credential `json:"auth"`
}

// GenerateHandler runs the generation pipeline for POST /generate requests,
// streaming one frame per task transition as the run progresses.
type GenerateHandler struct {
	engines EngineFactory
	logger  *log.Logger
}

// NewGenerateHandler creates a generation handler backed by the factory.
func NewGenerateHandler(engines EngineFactory, logger *log.Logger) *GenerateHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &GenerateHandler{engines: engines, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *GenerateHandler) Routes() []string {
	return []string{"/generate"}
}

// ServeHTTP parses the generation request and streams the run.
//
// Query parameters carry mood, activity, length, and favorite_songs
// (comma-joined ids); the JSON body carries target features, weights, and the
// caller's credential. Frames flush as they are produced so clients see
// progress live.
func (h *GenerateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req, body, err := parseGenerateRequest(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	engine, err := h.engines(r.Context(), body.Auth)
	if err != nil {
		h.logger.Error("Engine construction failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "could not start generation")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	em := tasks.NewEmitter(flushingWriter(w))
	outcome := engine.Generate(r.Context(), req, em)

	if outcome.Err != nil {
		h.logger.Warn("Generation run ended with error", "run", outcome.RunID, "error", outcome.Err)
		return
	}
	h.logger.Info("Generation run completed", "run", outcome.RunID, "pool", outcome.PoolSize)
}

// parseGenerateRequest maps the HTTP request onto the engine's request
// shape. An absent or empty body is fine; a malformed one is not.
func parseGenerateRequest(r *http.Request) (tasks.GenerateRequest, generateBody, error) {
	query := r.URL.Query()

	req := tasks.GenerateRequest{
		Mood:     query.Get("mood"),
		Activity: query.Get("activity"),
	}

	if raw := query.Get("length"); raw != "" {
		length, err := strconv.Atoi(raw)
		if err != nil || length < 0 {
			return req, generateBody{}, errors.New("invalid length parameter")
		}
		req.Length = length
	}

	if raw := query.Get("favorite_songs"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				req.FavoriteSongs = append(req.FavoriteSongs, id)
			}
		}
	}

	var body generateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		return req, generateBody{}, errors.New("invalid request body")
	}

	req.Target = body.TargetFeatures
	req.Weights = body.Weights

	// Authenticated callers get their weighted selection published as a real
	// playlist; the final frame then carries the provider playlist id.
	req.CreatePlaylist = body.Auth != nil

	return req, body, nil
}

// flushWriter flushes the response after every write so each frame reaches
// the client as soon as it is emitted.
type flushWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func flushingWriter(w http.ResponseWriter) io.Writer {
	f, _ := w.(http.Flusher)
	return flushWriter{w: w, f: f}
}

func (fw flushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if fw.f != nil {
		fw.f.Flush()
	}
	return n, err
}

// writeJSONError writes a JSON error payload with the given status.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

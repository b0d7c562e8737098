package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Jack-Penn/AlgoRhythms/internal/models"
	"github.com/Jack-Penn/AlgoRhythms/internal/scoring"
	"github.com/Jack-Penn/AlgoRhythms/internal/services"
	"github.com/charmbracelet/log"
)

// Pipeline task ids, in execution order. Each task depends on the one before
// it, so a failure stops the chain; tasks after the failed one are never
// reported.
const (
	TaskCompileTracks  = "compile_track_list"
	TaskScore          = "score_candidates"
	TaskBuildTree      = "build_kd_tree"
	TaskFindNeighbors  = "find_kd_tree_nearest_neighbors"
	TaskCompileResults = "compile_final_results"
)

const defaultPlaylistLength = 10

var errTaskCancelled = errors.New("task was cancelled")

// TaskList declares the pipeline tasks in execution order, all pending. This
// is the payload of the initial stream event.
func TaskList() []models.Task {
	return []models.Task{
		{
			ID:          TaskCompileTracks,
			Status:      models.TaskPending,
			Label:       "Compiling Tracks",
			Description: "Gathering candidate tracks from listening history, the library, and public playlists",
		},
		{
			ID:          TaskScore,
			Status:      models.TaskPending,
			Label:       "Scoring Candidates",
			Description: "Weighting each candidate against the target feature profile",
		},
		{
			ID:          TaskBuildTree,
			Status:      models.TaskPending,
			Label:       "Building KD-Tree",
			Description: "Indexing candidate feature vectors for nearest neighbor search",
		},
		{
			ID:          TaskFindNeighbors,
			Status:      models.TaskPending,
			Label:       "Searching Nearest Neighbors in KD-Tree",
			Description: "Finding the candidates closest to the target profile",
		},
		{
			ID:          TaskCompileResults,
			Status:      models.TaskPending,
			Label:       "Compiling Final Results",
			Description: "Assembling the ranked playlists from each strategy",
		},
	}
}

// RunRecorder persists generation run history. Create is called when a run
// starts, Update when it settles. Recording failures never fail the run.
type RunRecorder interface {
	Create(run *models.StoredRun) error
	Update(run *models.StoredRun) error
}

// GenerateRequest is one generation's inputs. Target and Weights override
// the mood/activity preset when set; Length defaults to ten tracks.
type GenerateRequest struct {
	Mood          string
	Activity      string
	Length        int
	FavoriteSongs []string
	Target        *models.Features
	Weights       *models.Weights
	Policy        scoring.Policy
	Cutoff        float64

	// CreatePlaylist publishes the weighted selection to the provider when
	// the engine has an authenticated service.
	CreatePlaylist bool
	PlaylistName   string
}

// GenerateOutcome summarizes a settled run.
type GenerateOutcome struct {
	RunID    string
	Status   models.RunStatus
	PoolSize int
	Timings  map[string]float64
	Final    models.FinalResult
	Err      error
}

// Engine drives the generation pipeline: compile a pool, score it, index it,
// query it, assemble results. Transitions stream through an Emitter as they
// happen.
type Engine struct {
	svc      services.Service
	compiler *Compiler
	recorder RunRecorder
	logger   *log.Logger
}

// NewEngine creates an engine. The service may be nil for guest-only
// operation and the recorder may be nil to skip run history.
func NewEngine(svc services.Service, compiler *Compiler, recorder RunRecorder, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		svc:      svc,
		compiler: compiler,
		recorder: recorder,
		logger:   logger,
	}
}

type pipelineState struct {
	req     GenerateRequest
	target  models.Features
	weights models.Weights
	policy  scoring.Policy

	pool      []models.Candidate
	counts    map[string]int
	ranked    []models.Candidate
	selection []models.Candidate
	tree      *scoring.KDTree
	neighbors []models.Candidate
	final     models.FinalResult
}

// Generate runs the pipeline to completion, emitting one frame per
// transition. The final frame is always emitted, even after a task failure,
// carrying whatever the pipeline managed to produce. The outcome reports how
// the run settled.
func (e *Engine) Generate(ctx context.Context, req GenerateRequest, em *Emitter) *GenerateOutcome {
	if req.Length <= 0 {
		req.Length = defaultPlaylistLength
	}

	preset := PresetFor(req.Mood, req.Activity)
	state := &pipelineState{
		req:     req,
		target:  preset.Target,
		weights: preset.Weights,
		policy:  req.Policy,
	}
	if req.Target != nil {
		state.target = *req.Target
	}
	if req.Weights != nil {
		state.weights = *req.Weights
	}
	if state.policy == "" {
		state.policy = scoring.PolicyCloseness
	}

	outcome := &GenerateOutcome{
		Status:  models.RunStreaming,
		Timings: make(map[string]float64, 5),
	}

	run := e.beginRecord(req, state.policy)
	if run != nil {
		outcome.RunID = run.ID()
	}

	if err := em.Initial(TaskList()); err != nil {
		outcome.Status, outcome.Err = models.RunError, err
		e.finishRecord(run, outcome)
		return outcome
	}

	steps := []struct {
		id  string
		run func(ctx context.Context) (any, error)
	}{
		{TaskCompileTracks, func(ctx context.Context) (any, error) { return e.compileStep(ctx, state, em) }},
		{TaskScore, func(ctx context.Context) (any, error) { return e.scoreStep(state) }},
		{TaskBuildTree, func(ctx context.Context) (any, error) { return e.buildTreeStep(state) }},
		{TaskFindNeighbors, func(ctx context.Context) (any, error) { return e.neighborsStep(state) }},
		{TaskCompileResults, func(ctx context.Context) (any, error) { return e.resultsStep(ctx, state, outcome) }},
	}

	for _, step := range steps {
		// Tasks that never started get no update; the chain just stops.
		if err := ctx.Err(); err != nil {
			outcome.Status, outcome.Err = models.RunError, err
			break
		}

		if err := em.Running(step.id); err != nil {
			outcome.Status, outcome.Err = models.RunError, err
			e.finishRecord(run, outcome)
			return outcome
		}

		sw := scoring.NewStopwatch()
		data, err := step.run(ctx)
		ms := sw.ElapsedMS()
		outcome.Timings[step.id] = ms

		if err != nil {
			outcome.Status, outcome.Err = models.RunError, err
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				em.Failed(step.id, "", errTaskCancelled)
			} else {
				e.logger.Error("Generation task failed", "task", step.id, "error", err)
				em.Failed(step.id, scoring.FormatMS(ms), err)
			}
			break
		}

		if err := em.Completed(step.id, scoring.FormatMS(ms), data); err != nil {
			outcome.Status, outcome.Err = models.RunError, err
			e.finishRecord(run, outcome)
			return outcome
		}
	}

	outcome.PoolSize = len(state.pool)
	outcome.Final = state.final

	if err := em.Final(state.final); err != nil && outcome.Err == nil {
		outcome.Status, outcome.Err = models.RunError, err
	}

	if outcome.Err == nil {
		outcome.Status = models.RunCompleted
	}

	e.finishRecord(run, outcome)
	return outcome
}

func (e *Engine) compileStep(ctx context.Context, state *pipelineState, em *Emitter) (any, error) {
	pool, counts, err := e.compiler.Compile(ctx, CompileOptions{
		Mood:          state.req.Mood,
		Activity:      state.req.Activity,
		FavoriteSongs: state.req.FavoriteSongs,
	}, func(source string, added int) {
		em.Progress(TaskCompileTracks, map[string]any{
			"message": fmt.Sprintf("%s contributed %d tracks", source, added),
			"source":  source,
			"added":   added,
		})
	})
	if err != nil {
		return nil, err
	}

	state.pool, state.counts = pool, counts
	return map[string]any{
		"message":   fmt.Sprintf("Compiled %d total tracks", len(pool)),
		"pool_size": len(pool),
		"sources":   counts,
	}, nil
}

func (e *Engine) scoreStep(state *pipelineState) (any, error) {
	params := scoring.Params{
		Target:           state.target,
		Weights:          state.weights,
		Policy:           state.policy,
		FavoriteIDs:      state.req.FavoriteSongs,
		FavoriteFeatures: favoriteFeatures(state.pool, state.req.FavoriteSongs),
	}

	state.ranked = scoring.Rank(params, state.pool)
	state.selection = scoring.Select(params, state.pool, state.req.Length, state.req.Cutoff)

	var top float64
	if len(state.ranked) > 0 {
		top = state.ranked[0].Score
	}
	return map[string]any{
		"message":   fmt.Sprintf("Scored %d candidates", len(state.ranked)),
		"top_score": top,
	}, nil
}

func (e *Engine) buildTreeStep(state *pipelineState) (any, error) {
	state.tree = scoring.BuildKDTree(state.pool)
	return nil, nil
}

func (e *Engine) neighborsStep(state *pipelineState) (any, error) {
	state.neighbors = state.tree.NearestNeighbors(state.target, state.req.Length)
	return nil, nil
}

func (e *Engine) resultsStep(ctx context.Context, state *pipelineState, outcome *GenerateOutcome) (any, error) {
	final := models.FinalResult{Playlists: make(map[string]models.StrategyResult, 2)}

	final.Playlists[models.StrategyWeighted] = models.StrategyResult{
		Tracks:         state.selection,
		GenerationTime: outcome.Timings[TaskScore],
	}
	final.Playlists[models.StrategyKDTree] = models.StrategyResult{
		Tracks:         state.neighbors,
		GenerationTime: outcome.Timings[TaskBuildTree] + outcome.Timings[TaskFindNeighbors],
	}

	if state.req.CreatePlaylist {
		final.PlaylistID = e.createPlaylist(ctx, state)
	}

	state.final = final
	return map[string]any{
		"message": fmt.Sprintf("Successfully compiled %d playlists.", len(final.Playlists)),
	}, nil
}

// createPlaylist publishes the weighted selection to the provider. Failures
// are logged, not fatal: the run already has its result.
func (e *Engine) createPlaylist(ctx context.Context, state *pipelineState) string {
	if e.svc == nil || len(state.selection) == 0 {
		return ""
	}

	name := state.req.PlaylistName
	if name == "" {
		name = playlistName(state.req.Mood, state.req.Activity)
	}

	playlist, err := e.svc.CreatePlaylist(ctx, name, "Generated by AlgoRhythms", false)
	if err != nil {
		e.logger.Warn("Playlist creation failed", "error", err)
		return ""
	}

	ids := make([]string, len(state.selection))
	for i, c := range state.selection {
		ids[i] = c.ID
	}
	if err := e.svc.AddTracks(ctx, playlist.ID, ids); err != nil {
		e.logger.Warn("Adding tracks to playlist failed", "playlist", playlist.ID, "error", err)
	}

	return playlist.ID
}

func (e *Engine) beginRecord(req GenerateRequest, policy scoring.Policy) *models.StoredRun {
	if e.recorder == nil {
		return nil
	}

	run := models.NewStoredRun(0, req.Mood, req.Activity, req.Length, string(policy))
	if err := e.recorder.Create(run); err != nil {
		e.logger.Warn("Recording generation run failed", "error", err)
		return nil
	}
	return run
}

func (e *Engine) finishRecord(run *models.StoredRun, outcome *GenerateOutcome) {
	if e.recorder == nil || run == nil {
		return
	}

	run.SetStatus(outcome.Status)
	run.SetTimings(outcome.Timings)
	run.SetPlaylistID(outcome.Final.PlaylistID)
	if weighted, ok := outcome.Final.Playlists[models.StrategyWeighted]; ok {
		ids := make([]string, len(weighted.Tracks))
		for i, c := range weighted.Tracks {
			ids[i] = c.ID
		}
		run.SetTrackIDs(ids)
	}

	if err := e.recorder.Update(run); err != nil {
		e.logger.Warn("Updating generation run failed", "error", err)
	}
}

// favoriteFeatures collects the feature vectors of pool candidates the user
// marked as favorites, for the personalization bonus.
func favoriteFeatures(pool []models.Candidate, favoriteIDs []string) []models.Features {
	if len(favoriteIDs) == 0 {
		return nil
	}

	want := make(map[string]bool, len(favoriteIDs))
	for _, id := range favoriteIDs {
		want[id] = true
	}

	var features []models.Features
	for _, c := range pool {
		if want[c.ID] {
			features = append(features, c.Features)
		}
	}
	return features
}

func playlistName(mood, activity string) string {
	parts := []string{"AlgoRhythms"}
	if m := strings.TrimSpace(mood); m != "" {
		parts = append(parts, m)
	}
	if a := strings.TrimSpace(activity); a != "" {
		parts = append(parts, a)
	}
	return strings.Join(parts, " ") + " Mix"
}

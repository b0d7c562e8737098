package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/Jack-Penn/AlgoRhythms/internal/services"
	"github.com/Jack-Penn/AlgoRhythms/internal/session"
	"github.com/Jack-Penn/AlgoRhythms/internal/shared"
	"github.com/Jack-Penn/AlgoRhythms/internal/stream"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

// Runner carries the wired dependencies behind every CLI command: config, the
// OAuth session, the service clients, and the writer command output goes to.
type Runner struct {
	config     *shared.Config
	configPath string
	session    *session.Manager
	spotify    services.Service
	api        *services.APIService
	stream     *stream.Client
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts overrides individual Runner dependencies, mainly so tests can
// inject doubles. Unset fields fall back to the defaults in NewRunner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Session    *session.Manager
	Spotify    services.Service
	API        *services.APIService
	Stream     *stream.Client
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner fills the unset fields of opts with their default wiring and
// returns the assembled Runner.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Session == nil {
		store, err := session.NewTokenStore(opts.Config.Session.CachePath)
		if err != nil {
			opts.Logger.Warnf("session cache unavailable, continuing without it: %v", err)
		}
		opts.Session = session.NewManager(opts.Config.Credentials.Spotify, store)
	}
	if opts.Spotify == nil {
		opts.Spotify = services.NewSpotifyService()
	}
	if opts.API == nil {
		opts.API = services.NewAPIService(opts.Config.Generation.APIURL, opts.HTTPClient)
	}
	if opts.Stream == nil {
		opts.Stream = stream.NewClient(opts.Config.Generation.APIURL, opts.Session, opts.Logger)
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		session:    opts.Session,
		spotify:    opts.Spotify,
		api:        opts.API,
		stream:     opts.Stream,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	builders := []func(*Runner) *cli.Command{
		setupCommand, authCommand, generateCommand, rankCommand,
		weightsCommand, serveCommand, cacheCommand, apiCommand,
	}

	commands := make([]*cli.Command, 0, len(builders))
	for _, build := range builders {
		commands = append(commands, build(r))
	}
	return commands
}

// writeJSON emits data as a single JSON document followed by a newline, so
// command output stays pipeable into jq and line-oriented tools.
func (r *Runner) writeJSON(data any, pretty bool) error {
	marshal := json.Marshal
	if pretty {
		marshal = func(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") }
	}

	payload, err := marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if _, err := r.output.Write(payload); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if _, err := r.output.Write([]byte{'\n'}); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	if _, err := fmt.Fprintf(r.output, format, args...); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	return r.writePlain("\n"+format+"\n", args...)
}

func (r *Runner) writePlainHeader(title string) {
	rule := strings.Repeat("═", 39) + "\n"
	r.writePlain("%s", rule)
	r.writePlain("%v\n", title)
	r.writePlain("%s", rule)
}

// splitList splits a comma-separated flag value, dropping empty entries.
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

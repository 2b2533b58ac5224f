package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	"github.com/desertthunder/splitx/internal/services"
	"github.com/desertthunder/splitx/internal/shared"
	"github.com/desertthunder/splitx/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	catalog    services.Catalog
	inferer    services.Inferer
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	// tokens is the refreshing source behind the catalog built from stored credentials.
	tokens oauth2.TokenSource
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Catalog    services.Catalog // overrides the catalog built from stored tokens
	Inferer    services.Inferer // overrides the Gemini service built from config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
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

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		catalog:    opts.Catalog,
		inferer:    opts.Inferer,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, setupCommand, authCommand, playlistsCommand, splitCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// load reads the configuration named by the root --config and --env-file flags and rebuilds the logger from it.
func (r *Runner) load(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	r.configPath = cmd.String("config")

	config, err := shared.LoadConfigWithEnv(r.configPath, cmd.String("env-file"))
	if err != nil {
		return ctx, err
	}
	r.config = config
	r.logger = shared.NewLoggerFromConfig(config.Logging)
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	return ctx, nil
}

func (r *Runner) spotifyAuth() (*services.SpotifyAuth, error) {
	return services.NewSpotifyAuth(
		r.config.Credentials.Spotify,
		services.WithHTTPClient(r.httpClient),
		services.WithAuthLogger(r.logger),
	)
}

// catalogFor returns the catalog for the stored Spotify tokens, refreshing them as they expire.
func (r *Runner) catalogFor(ctx context.Context) (services.Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}

	token := r.config.Credentials.Spotify.Token()
	if token == nil {
		return nil, fmt.Errorf("%w: run 'splitx auth' first", shared.ErrNotAuthenticated)
	}

	auth, err := r.spotifyAuth()
	if err != nil {
		return nil, err
	}

	r.tokens = oauth2.ReuseTokenSource(token, auth.TokenSource(ctx, token))
	client := &http.Client{Transport: &oauth2.Transport{Source: r.tokens, Base: r.httpClient.Transport}}
	r.catalog = services.NewSpotifyCatalog(spotify.New(client), r.logger)
	return r.catalog, nil
}

func (r *Runner) inferenceService() services.Inferer {
	if r.inferer == nil {
		gemini := r.config.Credentials.Gemini
		r.inferer = services.NewGeminiService(gemini, &http.Client{Timeout: gemini.Timeout()}, r.logger)
	}
	return r.inferer
}

func (r *Runner) engine(ctx context.Context) (*tasks.PlaylistEngine, error) {
	catalog, err := r.catalogFor(ctx)
	if err != nil {
		return nil, err
	}
	return tasks.NewPlaylistEngine(catalog, r.inferenceService(), r.logger), nil
}

// persistRefreshedToken saves the access token when the token source renewed it during the command.
func (r *Runner) persistRefreshedToken() {
	if r.tokens == nil {
		return
	}

	token, err := r.tokens.Token()
	if err != nil || token.AccessToken == r.config.Credentials.Spotify.AccessToken {
		return
	}
	if err := r.saveTokens(token); err != nil {
		r.logger.Warn("failed to persist refreshed token", "error", err)
		return
	}
	r.logger.Debug("persisted refreshed token", "expiry", token.Expiry)
}

// saveTokens stores token in the configuration and writes it to the config path when one is set.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("%w: config is nil", shared.ErrInvalidConfig)
	}
	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}
	if r.configPath == "" {
		return nil
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// progress starts a goroutine that reports engine updates until the returned stop function is called.
func (r *Runner) progress() (chan tasks.ProgressUpdate, func()) {
	ch := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range ch {
			r.logger.Info(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
		}
	}()
	return ch, func() {
		close(ch)
		<-done
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

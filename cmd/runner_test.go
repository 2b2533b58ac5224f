package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/splitx/internal/models"
	"github.com/desertthunder/splitx/internal/repositories"
	"github.com/desertthunder/splitx/internal/session"
	"github.com/desertthunder/splitx/internal/shared"
	"github.com/desertthunder/splitx/internal/split"
	"github.com/desertthunder/splitx/internal/tasks"
	tu "github.com/desertthunder/splitx/internal/testing"
)

func newFixtureCatalog() *tu.FakeCatalog {
	catalog := tu.NewFakeCatalog()
	catalog.ArtistIndex["a-rock"] = models.Artist{ID: "a-rock", Genres: []string{"rock"}}
	catalog.ArtistIndex["a-jazz"] = models.Artist{ID: "a-jazz", Genres: []string{"jazz"}}
	catalog.PlaylistMap["src"] = tu.FakePlaylist{
		Playlist: models.Playlist{ID: "src", Name: "Mixtape", Owner: models.Owner{ID: "o", Name: "Owner"}, TrackCount: 3},
		Tracks:   []models.Track{tu.NewTrack("t1", "a-rock"), tu.NewTrack("t2", "a-jazz"), tu.NewTrack("t3", "a-rock")},
	}
	catalog.Lists = []models.Playlist{
		catalog.PlaylistMap["src"].Playlist,
		{ID: "other", Name: "Other", Owner: models.Owner{ID: "o"}},
	}
	return catalog
}

// run executes args against a runner backed by catalog.
func run(t *testing.T, catalog *tu.FakeCatalog, args ...string) (string, error) {
	t.Helper()
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Catalog: catalog,
		Inferer: &tu.FakeInferer{},
		Logger:  shared.NewLogger(&bytes.Buffer{}),
		Output:  output,
	})
	app := &cli.Command{Name: "splitx", Commands: runner.register()}
	err := app.Run(context.Background(), append([]string{"splitx"}, args...))
	return output.String(), err
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			catalog := tu.NewFakeCatalog()
			inferer := &tu.FakeInferer{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Catalog:    catalog,
				Inferer:    inferer,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.catalog != catalog {
				t.Error("expected catalog to be set")
			}
			if runner.inferer != inferer {
				t.Error("expected inferer to be set")
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("writePlainln surrounds text with newlines", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlainln("done"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "\ndone\n" {
				t.Errorf("unexpected output %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := make([]string, len(commands))
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[i] = cmd.Name
		}
		if strings.Join(names, ",") != "serve,setup,auth,playlists,split" {
			t.Errorf("unexpected commands %v", names)
		}
	})

	t.Run("saveTokens", func(t *testing.T) {
		t.Run("saves tokens successfully", func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.toml")

			config := shared.DefaultConfig()
			config.Credentials.Spotify.ClientID = "test_id"
			if err := shared.SaveConfig(configPath, config); err != nil {
				t.Fatalf("failed to create test config: %v", err)
			}

			runner := NewRunner(RunnerOpts{Config: config, ConfigPath: configPath})
			token := &oauth2.Token{AccessToken: "new_access_token", RefreshToken: "new_refresh_token"}
			if err := runner.saveTokens(token); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			loadedConfig, err := shared.LoadConfig(configPath)
			if err != nil {
				t.Fatalf("failed to reload config: %v", err)
			}
			if loadedConfig.Credentials.Spotify.AccessToken != "new_access_token" {
				t.Errorf("expected access token to be updated, got %s", loadedConfig.Credentials.Spotify.AccessToken)
			}
			if loadedConfig.Credentials.Spotify.RefreshToken != "new_refresh_token" {
				t.Errorf("expected refresh token to be updated, got %s", loadedConfig.Credentials.Spotify.RefreshToken)
			}
			if loadedConfig.Credentials.Spotify.ClientID != "test_id" {
				t.Error("expected other settings to be preserved")
			}
		})

		t.Run("handles nil config error", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/tmp/test.toml"})
			runner.config = nil

			err := runner.saveTokens(&oauth2.Token{AccessToken: "test"})
			if err == nil || !strings.Contains(err.Error(), "config is nil") {
				t.Errorf("expected nil config error, got %v", err)
			}
		})

		t.Run("handles empty configPath", func(t *testing.T) {
			config := shared.DefaultConfig()
			runner := NewRunner(RunnerOpts{Config: config})

			if err := runner.saveTokens(&oauth2.Token{AccessToken: "new_token", RefreshToken: "new_refresh"}); err != nil {
				t.Fatalf("expected no error with empty path, got %v", err)
			}
			if config.Credentials.Spotify.AccessToken != "new_token" {
				t.Error("expected config to be updated in memory")
			}
		})

		t.Run("handles SaveConfig failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Config:     shared.DefaultConfig(),
				ConfigPath: filepath.Join(t.TempDir(), "missing", "config.toml"),
			})

			err := runner.saveTokens(&oauth2.Token{AccessToken: "test"})
			if err == nil || !strings.Contains(err.Error(), "failed to save config") {
				t.Errorf("expected save config error, got %v", err)
			}
		})

		t.Run("handles Update error", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: shared.DefaultConfig()})

			err := runner.saveTokens(nil)
			if err == nil || !strings.Contains(err.Error(), "failed to update spotify configuration") {
				t.Errorf("expected update error, got %v", err)
			}
			if !errors.Is(err, shared.ErrInvalidCredentials) {
				t.Errorf("expected invalid credentials in chain, got %v", err)
			}
		})
	})

	t.Run("catalogFor", func(t *testing.T) {
		t.Run("requires stored tokens", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			runner.config.Credentials.Spotify.AccessToken = ""

			if _, err := runner.catalogFor(context.Background()); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected not authenticated, got %v", err)
			}
		})

		t.Run("builds a catalog from stored tokens", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			runner.config.Credentials.Spotify.AccessToken = "stored"

			catalog, err := runner.catalogFor(context.Background())
			if err != nil || catalog == nil {
				t.Fatalf("expected catalog, got %v", err)
			}
			if runner.tokens == nil {
				t.Error("expected token source to be kept")
			}
		})
	})

	t.Run("progress", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(&bytes.Buffer{})})
		ch, stop := runner.progress()
		for range 3 {
			ch <- tasks.ProgressUpdate{Phase: tasks.FetchSource, Message: "step"}
		}
		stop()
	})
}

func TestCallbackAddr(t *testing.T) {
	tests := []struct {
		uri      string
		wantAddr string
		wantPath string
		wantErr  bool
	}{
		{"http://127.0.0.1:4000/auth/callback", "127.0.0.1:4000", "/auth/callback", false},
		{"http://localhost", "localhost:80", "/", false},
		{"/relative", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			addr, path, err := callbackAddr(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error %v", err)
			}
			if addr != tt.wantAddr || path != tt.wantPath {
				t.Errorf("callbackAddr(%q) = %q, %q", tt.uri, addr, path)
			}
		})
	}
}

func TestInstructionsFromPreview(t *testing.T) {
	tracks := []models.EnrichedTrack{
		tu.NewEnriched("t1", "rock", models.SourceCatalog),
		tu.NewEnriched("t2", "jazz", models.SourceCatalog),
		tu.NewEnriched("t3", "rock", models.SourceCatalog),
	}
	preview := split.PlanPreview("Mixtape", tracks)

	tests := []struct {
		name      string
		genres    []string
		minTracks int
		want      []string
	}{
		{"All", nil, 1, []string{"Mixtape • Rock", "Mixtape • Jazz"}},
		{"Selected", []string{"JAZZ"}, 1, []string{"Mixtape • Jazz"}},
		{"Minimum Size", nil, 2, []string{"Mixtape • Rock"}},
		{"No Match", []string{"metal"}, 1, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := instructionsFromPreview(preview, tt.genres, tt.minTracks, true)
			var names []string
			for _, in := range got {
				names = append(names, in.Name)
				if !in.MakePublic || len(in.TrackURIs) != len(split.UniqueURIs(in.TrackURIs)) {
					t.Errorf("unexpected instruction %+v", in)
				}
			}
			if strings.Join(names, "|") != strings.Join(tt.want, "|") {
				t.Errorf("expected %v, got %v", tt.want, names)
			}
		})
	}
}

func TestOpenSessions(t *testing.T) {
	runner := NewRunner(RunnerOpts{})

	tests := []struct {
		store   string
		check   func(session.Store) bool
		wantErr bool
	}{
		{"memory", func(s session.Store) bool { _, ok := s.(*session.MemoryStore); return ok }, false},
		{"", func(s session.Store) bool { _, ok := s.(*session.MemoryStore); return ok }, false},
		{"sqlite", func(s session.Store) bool { _, ok := s.(*repositories.SessionRepository); return ok }, false},
		{"redis", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.store, func(t *testing.T) {
			cfg := shared.DefaultConfig()
			cfg.Session.Store = tt.store
			cfg.Database.Path = ":memory:"

			store, closeStore, err := runner.openSessions(cfg)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidConfig) {
					t.Errorf("expected invalid config, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			defer closeStore()
			if !tt.check(store) {
				t.Errorf("unexpected store type %T", store)
			}
		})
	}
}

func TestCommands(t *testing.T) {
	t.Run("playlists", func(t *testing.T) {
		out, err := run(t, newFixtureCatalog(), "playlists", "--limit", "1")
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		if !strings.Contains(out, "Found 1 playlists") || !strings.Contains(out, "Mixtape") || strings.Contains(out, "Other") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("playlists show", func(t *testing.T) {
		out, err := run(t, newFixtureCatalog(), "playlists", "show", "src")
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		if !strings.Contains(out, "Playlist: Mixtape") || !strings.Contains(out, "catalog") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("split preview csv", func(t *testing.T) {
		out, err := run(t, newFixtureCatalog(), "split", "preview", "--format", "csv", "src")
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		if !strings.HasPrefix(out, "Genre,Split Name") || strings.Count(out, "spotify:track:") != 3 {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("split preview to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "preview.md")
		out, err := run(t, newFixtureCatalog(), "split", "preview", "--format", "md", "--output", path, "src")
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		if !strings.Contains(out, path) {
			t.Errorf("expected written path in output, got %q", out)
		}
		if data, err := os.ReadFile(path); err != nil || !strings.Contains(string(data), "## Rock (2)") {
			t.Errorf("unexpected file %q, %v", data, err)
		}
	})

	t.Run("split preview bad format", func(t *testing.T) {
		if _, err := run(t, newFixtureCatalog(), "split", "preview", "--format", "xml", "src"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected invalid argument, got %v", err)
		}
	})

	t.Run("split preview missing id", func(t *testing.T) {
		if _, err := run(t, newFixtureCatalog(), "split", "preview"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected missing argument, got %v", err)
		}
	})

	t.Run("split filter", func(t *testing.T) {
		out, err := run(t, newFixtureCatalog(), "split", "filter", "-g", "jazz", "src")
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		if !strings.Contains(out, "Mixtape • Jazz") || !strings.Contains(out, "Tracks: 1") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("split create", func(t *testing.T) {
		catalog := newFixtureCatalog()
		out, err := run(t, catalog, "split", "create", "-g", "rock", "--public", "src")
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		if len(catalog.Created) != 1 || !catalog.Created[0].Playlist.Public {
			t.Fatalf("expected one public playlist, got %+v", catalog.Created)
		}
		if !strings.Contains(out, "Mixtape • Rock") || !strings.Contains(out, "public") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("split apply dry run", func(t *testing.T) {
		catalog := newFixtureCatalog()
		out, err := run(t, catalog, "split", "apply", "--dry-run", "src")
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		if len(catalog.Created) != 0 {
			t.Error("expected no playlists to be created")
		}
		if !strings.Contains(out, "Would create 2 playlists") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("split apply", func(t *testing.T) {
		catalog := newFixtureCatalog()
		out, err := run(t, catalog, "split", "apply", "--template", "{{genre}} from {{source}}", "src")
		if err != nil {
			t.Fatalf("unexpected error %v", err)
		}
		if len(catalog.Created) != 2 || catalog.Created[0].Description != "Rock from Mixtape" {
			t.Fatalf("unexpected created playlists %+v", catalog.Created)
		}
		if got := catalog.AddedURIs("new-1"); len(got) != 2 {
			t.Errorf("expected two rock tracks, got %v", got)
		}
		if !strings.Contains(out, "2 created, 0 failed") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("split apply nothing selected", func(t *testing.T) {
		if _, err := run(t, newFixtureCatalog(), "split", "apply", "-g", "metal", "src"); !errors.Is(err, shared.ErrEmptySplits) {
			t.Errorf("expected empty splits, got %v", err)
		}
	})
}

func TestSetupDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "splitx.db")
	config := shared.DefaultConfig()
	config.Database.Path = path

	setup := func(args ...string) (string, error) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Logger: shared.NewLogger(&bytes.Buffer{}), Output: output})
		app := &cli.Command{Name: "splitx", Commands: runner.register()}
		err := app.Run(context.Background(), append([]string{"splitx", "setup", "database"}, args...))
		return output.String(), err
	}

	out, err := setup()
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if !strings.Contains(out, "schema version 1") {
		t.Errorf("unexpected output %q", out)
	}

	store, closeStore, err := repositories.OpenSessionStore(config.Database, time.Minute)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if err := store.Put(context.Background(), session.Record{State: "s1", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	closeStore()

	if out, err := setup("--reset"); err != nil || !strings.Contains(out, "schema version 1") {
		t.Fatalf("reset failed: %q, %v", out, err)
	}

	store, closeStore, err = repositories.OpenSessionStore(config.Database, time.Minute)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer closeStore()
	if _, err := store.Get(context.Background(), "s1"); !errors.Is(err, shared.ErrSessionNotFound) {
		t.Errorf("expected sessions to be dropped by reset, got %v", err)
	}
}

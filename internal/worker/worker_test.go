package worker_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/afero"

	"github.com/retronian/fil/internal/catalog"
	"github.com/retronian/fil/internal/container"
	"github.com/retronian/fil/internal/launcher"
	_ "github.com/retronian/fil/internal/launcher/launchbox"
	"github.com/retronian/fil/internal/worker"
)

func TestRunTasklessWhenNothingSelected(t *testing.T) {
	w := worker.New(worker.Params{})
	result, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result != worker.Taskless {
		t.Fatalf("expected Taskless, got %v", result)
	}
	if result.ExitCode() != 3 {
		t.Fatalf("expected exit code 3, got %d", result.ExitCode())
	}
}

const testSchema = `
CREATE TABLE game (
	id TEXT PRIMARY KEY, title TEXT, series TEXT, developer TEXT, publisher TEXT,
	platform TEXT, sort_title TEXT, date_added TEXT, date_modified TEXT,
	broken INTEGER, play_mode TEXT, status TEXT, region TEXT, notes TEXT,
	source TEXT, application_path TEXT, launch_command TEXT, release_date TEXT,
	version TEXT, release_type TEXT
);
CREATE TABLE additional_application (
	id TEXT PRIMARY KEY, parent_game_id TEXT, application_path TEXT,
	launch_command TEXT, name TEXT, auto_run_before INTEGER, wait_for_exit INTEGER
);
CREATE TABLE playlist (id TEXT PRIMARY KEY, title TEXT, description TEXT, author TEXT);
CREATE TABLE playlist_game (playlist_id TEXT, game_id TEXT, game_order INTEGER, notes TEXT);
`

const testGameID = "11111111-1111-1111-1111-111111111111"
const testPlaylistID = "33333333-3333-3333-3333-333333333333"

func newTestCatalog(t *testing.T, imagesRoot string) *catalog.Catalog {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "flashpoint.sqlite")

	setup, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("open setup db: %v", err)
	}
	if _, err := setup.Exec(testSchema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	if _, err := setup.Exec(`INSERT INTO game (id, title, series, developer, publisher, platform,
		sort_title, date_added, date_modified, broken, play_mode, status, region, notes, source,
		application_path, launch_command, release_date, version, release_type)
		VALUES (?, 'Cool Game', '', 'Dev', 'Pub', 'Flash', '', '', '', 0, '', '', '', '', '', '', '', '', '', '')`, testGameID); err != nil {
		t.Fatalf("insert game: %v", err)
	}
	if _, err := setup.Exec(`INSERT INTO playlist (id, title, description, author) VALUES (?, 'My List', '', '')`, testPlaylistID); err != nil {
		t.Fatalf("insert playlist: %v", err)
	}
	if _, err := setup.Exec(`INSERT INTO playlist_game (playlist_id, game_id, game_order, notes) VALUES (?, ?, 0, '')`, testPlaylistID, testGameID); err != nil {
		t.Fatalf("insert playlist game: %v", err)
	}
	setup.Close()

	cat, err := catalog.Open(dbPath, imagesRoot, "")
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { cat.Close() })
	return cat
}

func TestRunImportsPlatformAndPlaylist(t *testing.T) {
	root := t.TempDir()
	imagesRoot := filepath.Join(root, "Images")
	cat := newTestCatalog(t, imagesRoot)

	// Seed the source images the worker's image phase expects to find
	// already cached, so Manager.Transfer succeeds without needing a
	// mirror URL.
	paths := cat.ImagePaths(uuid.MustParse(testGameID))
	mustWriteFile(t, paths.LogoPath, "logo-bytes")
	mustWriteFile(t, paths.ScreenshotPath, "screenshot-bytes")

	installRoot := filepath.Join(root, "LaunchBox")
	if err := os.MkdirAll(filepath.Join(installRoot, "Data", "Platforms"), 0755); err != nil {
		t.Fatalf("seed install dir: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(installRoot, "Data", "Playlists"), 0755); err != nil {
		t.Fatalf("seed install dir: %v", err)
	}

	fs := afero.NewOsFs()
	install, err := launcher.Acquire(fs, "LaunchBox", installRoot)
	if err != nil {
		t.Fatalf("acquire install: %v", err)
	}

	w := worker.New(worker.Params{
		Catalog: cat,
		Install: install,
		Fs:      fs,
		Selections: worker.ImportSelections{
			Platforms: []string{"Flash"},
			Playlists: []string{"My List"},
		},
		Options: worker.OptionSet{
			UpdateOptions:      container.Options{Policy: container.NewAndExisting},
			RequestedImageMode: launcher.Copy,
		},
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case req := <-w.Requests():
				req.Respond(worker.Ignore)
			case <-done:
				return
			}
		}
	}()

	result, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result != worker.Successful {
		t.Fatalf("expected Successful, got %v", result)
	}

	platformDoc := filepath.Join(installRoot, "Data", "Platforms", "Flash.xml")
	data, err := os.ReadFile(platformDoc)
	if err != nil {
		t.Fatalf("read platform doc: %v", err)
	}
	if !contains(string(data), "Cool Game") {
		t.Fatalf("expected platform doc to contain the game, got %s", data)
	}

	playlistDoc := filepath.Join(installRoot, "Data", "Playlists", "My List.xml")
	pdata, err := os.ReadFile(playlistDoc)
	if err != nil {
		t.Fatalf("read playlist doc: %v", err)
	}
	if !contains(string(pdata), "Cool Game") {
		t.Fatalf("expected playlist doc to reference the game, got %s", pdata)
	}

	logoDest := filepath.Join(installRoot, "Images", "Flash", "Box - Front", "Cool Game-"+testGameID+".png")
	if _, err := os.Stat(logoDest); err != nil {
		t.Fatalf("expected logo placed at %s: %v", logoDest, err)
	}

	if !w.Progress().Done() {
		t.Fatalf("expected progress to report Done(), got %d/%d", w.Progress().Value(), w.Progress().Maximum())
	}
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

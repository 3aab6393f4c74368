package catalog

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

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

func newTestCatalog(t *testing.T) *Catalog {
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
	const gameID = "11111111-1111-1111-1111-111111111111"
	const aaID = "22222222-2222-2222-2222-222222222222"
	const plID = "33333333-3333-3333-3333-333333333333"
	if _, err := setup.Exec(`INSERT INTO game (id, title, series, developer, publisher, platform,
		sort_title, date_added, date_modified, broken, play_mode, status, region, notes, source,
		application_path, launch_command, release_date, version, release_type)
		VALUES (?, 'Cool Game', '', 'Dev', 'Pub', 'Flash', '', '', '', 0, '', '', '', '', '', '', '', '', '', '')`, gameID); err != nil {
		t.Fatalf("insert game: %v", err)
	}
	if _, err := setup.Exec(`INSERT INTO additional_application (id, parent_game_id, application_path,
		launch_command, name, auto_run_before, wait_for_exit) VALUES (?, ?, '', '', 'Extra', 0, 0)`, aaID, gameID); err != nil {
		t.Fatalf("insert add app: %v", err)
	}
	if _, err := setup.Exec(`INSERT INTO playlist (id, title, description, author) VALUES (?, 'My List', '', '')`, plID); err != nil {
		t.Fatalf("insert playlist: %v", err)
	}
	if _, err := setup.Exec(`INSERT INTO playlist_game (playlist_id, game_id, game_order, notes) VALUES (?, ?, 0, '')`, plID, gameID); err != nil {
		t.Fatalf("insert playlist game: %v", err)
	}
	setup.Close()

	cat, err := Open(dbPath, filepath.Join(dir, "Images"), "")
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { cat.Close(); os.RemoveAll(dir) })
	return cat
}

func TestPlatformsAndGamesByPlatform(t *testing.T) {
	cat := newTestCatalog(t)

	platforms, err := cat.Platforms()
	if err != nil || len(platforms) != 1 || platforms[0] != "Flash" {
		t.Fatalf("unexpected platforms: %v %v", platforms, err)
	}

	sets, err := cat.GamesByPlatform("Flash")
	if err != nil {
		t.Fatalf("games by platform: %v", err)
	}
	if len(sets) != 1 || sets[0].Game.Name != "Cool Game" {
		t.Fatalf("unexpected sets: %+v", sets)
	}
	if len(sets[0].AddApps) != 1 || sets[0].AddApps[0].Name != "Extra" {
		t.Fatalf("expected one add app, got %+v", sets[0].AddApps)
	}
}

func TestPlaylistsAndGames(t *testing.T) {
	cat := newTestCatalog(t)

	headers, games, err := cat.Playlists()
	if err != nil || len(headers) != 1 || headers[0].Name != "My List" {
		t.Fatalf("unexpected headers: %v %v", headers, err)
	}
	entries := games[headers[0].ID]
	if len(entries) != 1 || entries[0].GameTitle != "Cool Game" {
		t.Fatalf("unexpected playlist games: %+v", entries)
	}
}

func TestImagePathsSharding(t *testing.T) {
	cat := newTestCatalog(t)
	sets, err := cat.GamesByPlatform("Flash")
	if err != nil || len(sets) != 1 {
		t.Fatalf("setup: %v %v", sets, err)
	}
	paths := cat.ImagePaths(sets[0].Game.ID)
	if paths.Empty() {
		t.Fatal("expected non-empty image paths")
	}
}

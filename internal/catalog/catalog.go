// Package catalog provides read-only access to the Flashpoint source
// catalog: a pre-existing SQLite database plus an image tree keyed by
// game ID. Grounded on the teacher's internal/db/db.go (sql.Open with
// the mattn/go-sqlite3 driver, row-scan idioms) but inverted end to
// end: every method here queries, none write, per spec.md §5's "the
// source catalog is opened read-only; multiple queries serialize
// through a single connection."
package catalog

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/retronian/fil/internal/model"
)

// Catalog is a read-only handle onto the Flashpoint catalog database
// and the image tree alongside it.
type Catalog struct {
	db            *sql.DB
	imagesRoot    string // directory containing Logos/ and Screenshots/
	imagesBaseURL string // remote mirror root, or "" when images are local-only
}

// Open opens dbPath read-only (via SQLite's "mode=ro" query parameter,
// so a concurrently-running Flashpoint Launcher never sees a write
// lock from this importer) and associates it with the image tree
// rooted at imagesRoot. imagesBaseURL, if non-empty, is the remote
// image mirror the worker's downloader falls back to for a shard not
// already present under imagesRoot; pass "" for a fully offline
// catalog (every ImagePaths result is then either present locally or
// simply missing).
func Open(dbPath, imagesRoot, imagesBaseURL string) (*Catalog, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_query_only=true", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open source catalog")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "open source catalog")
	}
	// The catalog is read by at most one goroutine at a time during an
	// import (platforms are processed strictly in sequence), but pin
	// the pool to a single connection anyway so that never changes
	// silently under a future concurrency refactor.
	db.SetMaxOpenConns(1)
	return &Catalog{db: db, imagesRoot: imagesRoot, imagesBaseURL: imagesBaseURL}, nil
}

// Close releases the underlying database handle.
func (c *Catalog) Close() error { return c.db.Close() }

// Platforms returns every distinct platform name present in game, in
// the catalog's natural collation order; callers that need a stable
// processing order (spec.md §4.6: "platforms are processed in
// alphabetical order") sort the result themselves.
func (c *Catalog) Platforms() ([]string, error) {
	rows, err := c.db.Query(`SELECT DISTINCT platform FROM game ORDER BY platform`)
	if err != nil {
		return nil, errors.Wrap(err, "list platforms")
	}
	defer rows.Close()

	var platforms []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, errors.Wrap(err, "list platforms")
		}
		platforms = append(platforms, p)
	}
	return platforms, rows.Err()
}

// GamesByPlatform returns every game belonging to platform, each
// paired with its additional applications, ordered by title. This is
// the "Set" spec.md §4.3 says a platform document consumes atomically.
func (c *Catalog) GamesByPlatform(platform string) ([]model.Set, error) {
	rows, err := c.db.Query(`
		SELECT id, title, series, developer, publisher, sort_title, date_added,
			date_modified, broken, play_mode, status, region, notes, source,
			application_path, launch_command, release_date, version, release_type
		FROM game WHERE platform = ? ORDER BY title
	`, platform)
	if err != nil {
		return nil, errors.Wrap(err, "query games")
	}
	defer rows.Close()

	var sets []model.Set
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var (
			id, title, series, developer, publisher, sortTitle         string
			dateAdded, dateModified, status, region, notes, source     string
			appPath, launchCommand, releaseDate, version, releaseType  string
			broken                                                      bool
			playMode                                                    string
		)
		if err := rows.Scan(&id, &title, &series, &developer, &publisher, &sortTitle,
			&dateAdded, &dateModified, &broken, &playMode, &status, &region, &notes,
			&source, &appPath, &launchCommand, &releaseDate, &version, &releaseType); err != nil {
			return nil, errors.Wrap(err, "scan game")
		}
		gameID, err := parseCatalogID(id)
		if err != nil {
			return nil, err
		}
		other := map[string]string{
			"Series": series, "Developer": developer, "Publisher": publisher,
			"SortTitle": sortTitle, "DateAdded": dateAdded, "DateModified": dateModified,
			"PlayMode": playMode, "Status": status, "Region": region, "Notes": notes,
			"Source": source, "ApplicationPath": appPath, "CommandLine": launchCommand,
			"ReleaseDate": releaseDate, "Version": version, "ReleaseType": releaseType,
		}
		if broken {
			other["Broken"] = "true"
		}
		index[gameID] = len(sets)
		sets = append(sets, model.Set{
			Game: model.Game{
				BasicItem: model.BasicItem{ID: gameID, Name: title, OtherFields: other},
				Platform:  platform,
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	addApps, err := c.addAppsByPlatform(platform)
	if err != nil {
		return nil, err
	}
	for _, aa := range addApps {
		if i, ok := index[aa.GameID]; ok {
			sets[i].AddApps = append(sets[i].AddApps, aa)
		}
	}
	return sets, nil
}

func (c *Catalog) addAppsByPlatform(platform string) ([]model.AddApp, error) {
	rows, err := c.db.Query(`
		SELECT a.id, a.parent_game_id, a.application_path, a.launch_command,
			a.name, a.auto_run_before, a.wait_for_exit
		FROM additional_application a
		JOIN game g ON g.id = a.parent_game_id
		WHERE g.platform = ?
	`, platform)
	if err != nil {
		return nil, errors.Wrap(err, "query additional applications")
	}
	defer rows.Close()

	var result []model.AddApp
	for rows.Next() {
		var id, parentID, appPath, launchCommand, name string
		var autoRunBefore, waitForExit bool
		if err := rows.Scan(&id, &parentID, &appPath, &launchCommand, &name, &autoRunBefore, &waitForExit); err != nil {
			return nil, errors.Wrap(err, "scan additional application")
		}
		aaID, err := parseCatalogID(id)
		if err != nil {
			return nil, err
		}
		gameID, err := parseCatalogID(parentID)
		if err != nil {
			return nil, err
		}
		other := map[string]string{"ApplicationPath": appPath, "CommandLine": launchCommand}
		if autoRunBefore {
			other["AutoRunBefore"] = "true"
		}
		if waitForExit {
			other["WaitForExit"] = "true"
		}
		result = append(result, model.AddApp{
			BasicItem: model.BasicItem{ID: aaID, Name: name, OtherFields: other},
			GameID:    gameID,
		})
	}
	return result, rows.Err()
}

// Playlists returns every playlist header plus its member games, with
// the headers ordered by title.
func (c *Catalog) Playlists() ([]model.PlaylistHeader, map[uuid.UUID][]model.PlaylistGame, error) {
	rows, err := c.db.Query(`SELECT id, title, description, author FROM playlist ORDER BY title`)
	if err != nil {
		return nil, nil, errors.Wrap(err, "query playlists")
	}
	defer rows.Close()

	var headers []model.PlaylistHeader
	for rows.Next() {
		var id, title, description, author string
		if err := rows.Scan(&id, &title, &description, &author); err != nil {
			return nil, nil, errors.Wrap(err, "scan playlist")
		}
		plID, err := parseCatalogID(id)
		if err != nil {
			return nil, nil, err
		}
		headers = append(headers, model.PlaylistHeader{
			BasicItem: model.BasicItem{ID: plID, Name: title, OtherFields: map[string]string{"Author": author}},
			Notes:     description,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	games, err := c.playlistGames()
	if err != nil {
		return nil, nil, err
	}
	return headers, games, nil
}

func (c *Catalog) playlistGames() (map[uuid.UUID][]model.PlaylistGame, error) {
	rows, err := c.db.Query(`
		SELECT pg.playlist_id, pg.game_id, pg.game_order, pg.notes, g.title, g.platform
		FROM playlist_game pg
		JOIN game g ON g.id = pg.game_id
		ORDER BY pg.playlist_id, pg.game_order
	`)
	if err != nil {
		return nil, errors.Wrap(err, "query playlist games")
	}
	defer rows.Close()

	result := make(map[uuid.UUID][]model.PlaylistGame)
	for rows.Next() {
		var playlistID, gameID, notes, title, platform string
		var order int
		if err := rows.Scan(&playlistID, &gameID, &order, &notes, &title, &platform); err != nil {
			return nil, errors.Wrap(err, "scan playlist game")
		}
		plID, err := parseCatalogID(playlistID)
		if err != nil {
			return nil, err
		}
		gID, err := parseCatalogID(gameID)
		if err != nil {
			return nil, err
		}
		result[plID] = append(result[plID], model.PlaylistGame{
			BasicItem:    model.BasicItem{ID: gID, Name: title, OtherFields: map[string]string{"Order": fmt.Sprint(order), "Notes": notes}},
			GameID:       gID,
			GameTitle:    title,
			GamePlatform: platform,
		})
	}
	return result, rows.Err()
}

func parseCatalogID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.UUID{}, errors.Wrapf(err, "malformed catalog id %q", s)
	}
	return id, nil
}

// ImagePaths computes the logo and screenshot source paths for a game,
// following Flashpoint's sharded-by-id convention: <imagesRoot>/Logos/
// <id[0:2]>/<id[2:4]>/<id>.png and the equivalent under Screenshots/.
// It does not stat the filesystem; callers probe existence themselves
// (afero.Exists) since this package has no filesystem dependency.
func (c *Catalog) ImagePaths(gameID uuid.UUID) model.ImagePaths {
	hex := strings.ReplaceAll(gameID.String(), "-", "")
	shard := filepath.Join(hex[0:2], hex[2:4], hex+".png")
	return model.ImagePaths{
		LogoPath:       filepath.Join(c.imagesRoot, "Logos", shard),
		ScreenshotPath: filepath.Join(c.imagesRoot, "Screenshots", shard),
	}
}

// ImageURLs mirrors ImagePaths but builds the equivalent URLs under the
// remote mirror, for the worker's image downloader to fall back to when
// a shard isn't already cached under imagesRoot. Both return values are
// "" when the catalog was opened without a mirror base URL.
func (c *Catalog) ImageURLs(gameID uuid.UUID) (logo, screenshot string) {
	if c.imagesBaseURL == "" {
		return "", ""
	}
	hex := strings.ReplaceAll(gameID.String(), "-", "")
	shard := hex[0:2] + "/" + hex[2:4] + "/" + hex + ".png"
	base := strings.TrimRight(c.imagesBaseURL, "/")
	return base + "/Logos/" + shard, base + "/Screenshots/" + shard
}

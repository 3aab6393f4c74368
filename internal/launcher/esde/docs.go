package esde

import (
	"encoding/xml"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/retronian/fil/internal/container"
	ifdoc "github.com/retronian/fil/internal/doc"
	"github.com/retronian/fil/internal/model"
)

// romPathPrefix is ES-DE's own ROM-directory variable, used verbatim in
// both gamelist <path> entries (by way of systemRomsDir being mounted
// under it at runtime) and collection files.
const romPathPrefix = "%ROMPATH%/"

// PlatformDoc is <system>/gamelist.xml: a flat list of <game> elements
// keyed by the shared UUID, which this adapter also writes as an
// unmodeled "flashpointId" field so re-reading a previously-written
// gamelist preserves identity across imports.
type PlatformDoc struct {
	name     string
	path     string
	platform string
	games    *container.Container[uuid.UUID, model.Game]
}

func newPlatformDoc(name, path, platform string) *PlatformDoc {
	return &PlatformDoc{
		name:     name,
		path:     path,
		platform: platform,
		games: container.New(func(g model.Game) uuid.UUID { return g.ID }, func(existing, incoming model.Game) model.Game {
			model.TransferOtherFields(&incoming, &existing)
			return incoming
		}),
	}
}

func (d *PlatformDoc) Identifier() ifdoc.Identifier {
	return ifdoc.Identifier{Type: ifdoc.Platform, Name: d.name}
}
func (d *PlatformDoc) Games() *container.Container[uuid.UUID, model.Game] { return d.games }
func (d *PlatformDoc) Finalize() error                                    { return nil }

// AddSet satisfies launcher.PlatformDoc. ES-DE's gamelist has no AddApp
// concept, so only the Set's primary Game is inserted.
func (d *PlatformDoc) AddSet(set model.Set, opts container.Options) {
	d.games.Insert(set.Game, opts)
}

// DummyPath is the placeholder ROM path a game's gamelist <path> entry
// must point to, relative to the system's own ROM directory.
func (d *PlatformDoc) DummyPath(gameID uuid.UUID) string {
	return "./" + gameID.String() + dummyExtension(d.platform)
}

func readPlatformDoc(fs afero.Fs, path, name, platform string) (*PlatformDoc, error) {
	d := newPlatformDoc(name, path, platform)
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, err
	}
	if !exists {
		d.games.BeginUpdatePhase()
		return d, nil
	}
	err = ifdoc.ReadXMLDocument(fs, path, name, "gameList", map[string]func(*xml.Decoder, xml.StartElement) error{
		"game": func(dec *xml.Decoder, start xml.StartElement) error {
			var flashpointID, title string
			known := map[string]*string{"flashpointId": &flashpointID, "name": &title}
			other, err := ifdoc.DecodeItemFields(dec, start, known)
			if err != nil {
				return err
			}
			id, err := uuid.Parse(flashpointID)
			if err != nil {
				return nil // a hand-added gamelist entry this importer didn't write; leave it on disk untouched
			}
			d.games.InsertExisting(model.Game{
				BasicItem: model.BasicItem{ID: id, Name: title, OtherFields: other},
				Platform:  platform,
			})
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	d.games.BeginUpdatePhase()
	return d, nil
}

func writePlatformDoc(fs afero.Fs, d *PlatformDoc, opts container.Options) error {
	return ifdoc.WriteXMLDocument(fs, d.path, d.name, "gameList", func(enc *xml.Encoder) error {
		games := d.games.Final(opts)
		sort.Slice(games, func(i, j int) bool { return games[i].Name < games[j].Name })
		for _, g := range games {
			fields := []ifdoc.EncodeItemField{
				{Tag: "flashpointId", Value: g.ID.String()},
				{Tag: "path", Value: d.DummyPath(g.ID)},
				{Tag: "name", Value: g.Name},
			}
			if err := ifdoc.EncodeItem(enc, "game", fields, g.OtherFields); err != nil {
				return err
			}
		}
		return nil
	})
}

// PlaylistDoc is collections/custom-<name>.cfg: ES-DE's own collection
// format, one member game path per line, each a single
// "%ROMPATH%/<system>/<basename>.<dummy-ext>" token referencing the
// game's originating system subdirectory the way ES-DE's own
// scraper-built collections do (the teacher's gamelist.go path
// handling — filepath join of a system folder and a relative rom path
// — grounds the same join here).
type PlaylistDoc struct {
	name  string
	path  string
	games *container.Container[uuid.UUID, model.PlaylistGame]
}

func newPlaylistDoc(name, path string) *PlaylistDoc {
	return &PlaylistDoc{
		name: name,
		path: path,
		games: container.New(func(g model.PlaylistGame) uuid.UUID { return g.GameID }, func(existing, incoming model.PlaylistGame) model.PlaylistGame {
			model.TransferOtherFields(&incoming, &existing)
			return incoming
		}),
	}
}

func (d *PlaylistDoc) Identifier() ifdoc.Identifier {
	return ifdoc.Identifier{Type: ifdoc.Playlist, Name: d.name}
}
func (d *PlaylistDoc) Games() *container.Container[uuid.UUID, model.PlaylistGame] { return d.games }
func (d *PlaylistDoc) Finalize() error                                            { return nil }

// SetHeader is a no-op: ES-DE custom collections carry no header record
// of their own, only member lines.
func (d *PlaylistDoc) SetHeader(model.PlaylistHeader) {}

// AddMember satisfies launcher.PlaylistDoc.
func (d *PlaylistDoc) AddMember(g model.PlaylistGame, opts container.Options) {
	d.games.Insert(g, opts)
}

// ContainsMember satisfies launcher.PlaylistDoc; platform is unused
// since a member is keyed purely by its game UUID here.
func (d *PlaylistDoc) ContainsMember(_ string, gameID uuid.UUID) bool {
	return d.games.ContainsExisting(gameID)
}

func readPlaylistDoc(fs afero.Fs, path, name string) (*PlaylistDoc, error) {
	d := newPlaylistDoc(name, path)
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, err
	}
	if !exists {
		d.games.BeginUpdatePhase()
		return d, nil
	}
	lines, err := ifdoc.ReadLines(fs, path)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		platform, id, ok := parseDummyLine(line)
		if !ok {
			continue
		}
		d.games.InsertExisting(model.PlaylistGame{
			BasicItem:    model.BasicItem{ID: id, OtherFields: map[string]string{}},
			GameID:       id,
			GamePlatform: platform,
		})
	}
	d.games.BeginUpdatePhase()
	return d, nil
}

func writePlaylistDoc(fs afero.Fs, d *PlaylistDoc, opts container.Options, dummyPath func(platform string, id uuid.UUID) string) error {
	f, err := fs.Create(d.path)
	if err != nil {
		return err
	}
	defer f.Close()

	games := d.games.Final(opts)
	sort.Slice(games, func(i, j int) bool { return games[i].GameTitle < games[j].GameTitle })
	for _, g := range games {
		line := dummyPath(g.GamePlatform, g.GameID)
		if _, err := f.Write([]byte(line + "\n")); err != nil {
			return err
		}
	}
	return nil
}

// parseDummyLine splits a "%ROMPATH%/<system>/<basename>.<ext>" token
// back into its system name and the game UUID encoded in its basename.
func parseDummyLine(line string) (platform string, id uuid.UUID, ok bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, romPathPrefix) {
		return "", uuid.UUID{}, false
	}
	rest := trimmed[len(romPathPrefix):]
	idx := lastSlash(rest)
	if idx < 0 {
		return "", uuid.UUID{}, false
	}
	platform = rest[:idx]
	gid, err := idFromDummyPath(rest[idx+1:])
	if err != nil {
		return "", uuid.UUID{}, false
	}
	return platform, gid, true
}

func idFromDummyPath(rel string) (uuid.UUID, error) {
	base := rel
	if idx := lastSlash(base); idx >= 0 {
		base = base[idx+1:]
	}
	if idx := firstDot(base); idx >= 0 {
		base = base[:idx]
	}
	return uuid.Parse(base)
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}

func firstDot(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}

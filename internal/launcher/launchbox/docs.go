package launchbox

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/retronian/fil/internal/container"
	ifdoc "github.com/retronian/fil/internal/doc"
	"github.com/retronian/fil/internal/model"
)

// databaseIDField is the other-field key backing LaunchBox's own
// internal integer row id for a playlist's games
// (LaunchBoxPlaylistGame::mLBDatabaseID in launchbox.h), kept distinct
// from the importer's UUID-based identity so round-tripped entries
// don't collide with ids LaunchBox itself assigned. Only PlaylistGame
// carries this id; LaunchBoxGame and LaunchBoxAdditionalApp don't.
const databaseIDField = "DatabaseID"

// reserveDatabaseIDs walks every item's other-fields looking for an
// already-assigned DatabaseID and marks it used, so a later
// assignDatabaseIDs pass never reuses an id LaunchBox already has on
// disk for some other entry.
func reserveDatabaseIDs(ids *freeIndexTracker, fields []map[string]string) {
	for _, f := range fields {
		if v, ok := f[databaseIDField]; ok {
			if n, err := strconv.Atoi(v); err == nil {
				ids.Reserve(n)
			}
		}
	}
}

// assignDatabaseIDs hands out a fresh DatabaseID to any item that
// doesn't already carry one (freshly imported catalog entries never
// do), leaving untouched whatever reserveDatabaseIDs already found.
func assignDatabaseIDs(ids *freeIndexTracker, fields []map[string]string) {
	for _, f := range fields {
		if f == nil {
			continue
		}
		if _, ok := f[databaseIDField]; ok {
			continue
		}
		if n, ok := ids.Next(); ok {
			f[databaseIDField] = strconv.Itoa(n)
		}
	}
}

// PlatformDoc is LaunchBox's Data/Platforms/<name>.xml document: a
// LaunchBox root holding Game and AdditionalApplication children.
// Games and their AddApps share one three-way container keyed by the
// model's own UUID — LaunchBox identifies entries with an embedded
// <ID> element it otherwise ignores, giving the importer perfect
// round-trip identity without owning a separate id scheme.
type PlatformDoc struct {
	name     string
	path     string
	platform string

	games   *container.Container[uuid.UUID, model.Game]
	addApps *container.Container[uuid.UUID, model.AddApp]
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
		addApps: container.New(func(a model.AddApp) uuid.UUID { return a.ID }, func(existing, incoming model.AddApp) model.AddApp {
			model.TransferOtherFields(&incoming, &existing)
			return incoming
		}),
	}
}

func (d *PlatformDoc) Identifier() ifdoc.Identifier {
	return ifdoc.Identifier{Type: ifdoc.Platform, Name: d.name}
}

// Games exposes the container so the worker's platform-processing pass
// can Insert catalog entries and enumerate the result after Finalize.
func (d *PlatformDoc) Games() *container.Container[uuid.UUID, model.Game] { return d.games }
func (d *PlatformDoc) AddApps() *container.Container[uuid.UUID, model.AddApp] {
	return d.addApps
}

// Finalize is a no-op for LaunchBox platform documents: nothing about
// a Game/AddApp entry depends on the full set being known.
func (d *PlatformDoc) Finalize() error { return nil }

// AddSet inserts a catalog Set's Game and all of its AddApps into their
// respective containers, satisfying launcher.PlatformDoc.
func (d *PlatformDoc) AddSet(set model.Set, opts container.Options) {
	d.games.Insert(set.Game, opts)
	for _, aa := range set.AddApps {
		d.addApps.Insert(aa, opts)
	}
}

func readPlatformDoc(fs afero.Fs, path, name, platform string) (*PlatformDoc, error) {
	d := newPlatformDoc(name, path, platform)
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, err
	}
	if !exists {
		d.games.BeginUpdatePhase()
		d.addApps.BeginUpdatePhase()
		return d, nil
	}
	err = ifdoc.ReadXMLDocument(fs, path, name, "LaunchBox", map[string]func(*xml.Decoder, xml.StartElement) error{
		"Game": func(dec *xml.Decoder, start xml.StartElement) error {
			var id, title string
			known := map[string]*string{"ID": &id, "Title": &title}
			other, err := ifdoc.DecodeItemFields(dec, start, known)
			if err != nil {
				return err
			}
			gid, err := parseOrNewID(id)
			if err != nil {
				return err
			}
			d.games.InsertExisting(model.Game{
				BasicItem: model.BasicItem{ID: gid, Name: title, OtherFields: other},
				Platform:  platform,
			})
			return nil
		},
		"AdditionalApplication": func(dec *xml.Decoder, start xml.StartElement) error {
			var id, gameID, name string
			known := map[string]*string{"Id": &id, "GameID": &gameID, "Name": &name}
			other, err := ifdoc.DecodeItemFields(dec, start, known)
			if err != nil {
				return err
			}
			aid, err := parseOrNewID(id)
			if err != nil {
				return err
			}
			gid, err := parseOrNewID(gameID)
			if err != nil {
				return err
			}
			d.addApps.InsertExisting(model.AddApp{
				BasicItem: model.BasicItem{ID: aid, Name: name, OtherFields: other},
				GameID:    gid,
			})
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	d.games.BeginUpdatePhase()
	d.addApps.BeginUpdatePhase()
	return d, nil
}

func writePlatformDoc(fs afero.Fs, d *PlatformDoc, opts container.Options) error {
	return ifdoc.WriteXMLDocument(fs, d.path, d.name, "LaunchBox", func(enc *xml.Encoder) error {
		games := d.games.Final(opts)
		addApps := d.addApps.Final(opts)

		sort.Slice(games, func(i, j int) bool { return games[i].Name < games[j].Name })
		for _, g := range games {
			fields := []ifdoc.EncodeItemField{
				{Tag: "ID", Value: g.ID.String()},
				{Tag: "Title", Value: g.Name},
				{Tag: "Platform", Value: g.Platform},
			}
			if err := ifdoc.EncodeItem(enc, "Game", fields, g.OtherFields); err != nil {
				return err
			}
		}
		sort.Slice(addApps, func(i, j int) bool { return addApps[i].Name < addApps[j].Name })
		for _, a := range addApps {
			fields := []ifdoc.EncodeItemField{
				{Tag: "Id", Value: a.ID.String()},
				{Tag: "GameID", Value: a.GameID.String()},
				{Tag: "Name", Value: a.Name},
			}
			if err := ifdoc.EncodeItem(enc, "AdditionalApplication", fields, a.OtherFields); err != nil {
				return err
			}
		}
		return nil
	})
}

// PlaylistDoc is LaunchBox's Data/Playlists/<name>.xml document: a
// PlaylistHeader plus a set of PlaylistGame entries keyed by the
// referenced game's UUID (GameId), each also carrying the game's title
// and platform.
type PlaylistDoc struct {
	name   string
	path   string
	header model.PlaylistHeader
	games  *container.Container[uuid.UUID, model.PlaylistGame]
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
func (d *PlaylistDoc) Header() *model.PlaylistHeader                             { return &d.header }
func (d *PlaylistDoc) Games() *container.Container[uuid.UUID, model.PlaylistGame] { return d.games }
func (d *PlaylistDoc) Finalize() error                                           { return nil }

// SetHeader and AddMember satisfy launcher.PlaylistDoc.
func (d *PlaylistDoc) SetHeader(h model.PlaylistHeader) { d.header = h }
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
	err = ifdoc.ReadXMLDocument(fs, path, name, "LaunchBox", map[string]func(*xml.Decoder, xml.StartElement) error{
		"PlaylistHeader": func(dec *xml.Decoder, start xml.StartElement) error {
			var id, title, notes string
			known := map[string]*string{"Id": &id, "Name": &title, "Notes": &notes}
			other, err := ifdoc.DecodeItemFields(dec, start, known)
			if err != nil {
				return err
			}
			hid, err := parseOrNewID(id)
			if err != nil {
				return err
			}
			d.header = model.PlaylistHeader{
				BasicItem: model.BasicItem{ID: hid, Name: title, OtherFields: other},
				Notes:     notes,
			}
			return nil
		},
		"PlaylistGame": func(dec *xml.Decoder, start xml.StartElement) error {
			var gameID, gameTitle, gamePlatform string
			known := map[string]*string{"GameId": &gameID, "GameTitle": &gameTitle, "GamePlatform": &gamePlatform}
			other, err := ifdoc.DecodeItemFields(dec, start, known)
			if err != nil {
				return err
			}
			gid, err := parseOrNewID(gameID)
			if err != nil {
				return err
			}
			d.games.InsertExisting(model.PlaylistGame{
				BasicItem:    model.BasicItem{ID: gid, Name: gameTitle, OtherFields: other},
				GameID:       gid,
				GameTitle:    gameTitle,
				GamePlatform: gamePlatform,
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

func writePlaylistDoc(fs afero.Fs, d *PlaylistDoc, opts container.Options, ids *freeIndexTracker) error {
	return ifdoc.WriteXMLDocument(fs, d.path, d.name, "LaunchBox", func(enc *xml.Encoder) error {
		hFields := []ifdoc.EncodeItemField{
			{Tag: "Id", Value: d.header.ID.String()},
			{Tag: "Name", Value: d.header.Name},
			{Tag: "Notes", Value: d.header.Notes},
		}
		if err := ifdoc.EncodeItem(enc, "PlaylistHeader", hFields, d.header.OtherFields); err != nil {
			return err
		}
		games := d.games.Final(opts)

		gameFields := make([]map[string]string, len(games))
		for i := range games {
			gameFields[i] = games[i].OtherFields
		}
		reserveDatabaseIDs(ids, gameFields)
		assignDatabaseIDs(ids, gameFields)

		sort.Slice(games, func(i, j int) bool { return games[i].GameTitle < games[j].GameTitle })
		for _, g := range games {
			fields := []ifdoc.EncodeItemField{
				{Tag: "GameId", Value: g.GameID.String()},
				{Tag: "GameTitle", Value: g.GameTitle},
				{Tag: "GamePlatform", Value: g.GamePlatform},
			}
			if err := ifdoc.EncodeItem(enc, "PlaylistGame", fields, g.OtherFields); err != nil {
				return err
			}
		}
		return nil
	})
}

func parseOrNewID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.New(), nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("malformed id %q: %w", s, err)
	}
	return id, nil
}

package attractmode

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/retronian/fil/internal/container"
	ifdoc "github.com/retronian/fil/internal/doc"
	"github.com/retronian/fil/internal/model"
)

// PlatformDoc is one romlists/<name>.txt file: a header comment line
// followed by one semicolon-delimited record per game (doc.RomlistFields
// in romlist.go). Entries are keyed by RomName, which this adapter
// sets to the game's UUID string since Flashpoint's catalog carries no
// native filename AttractMode could otherwise join on.
type PlatformDoc struct {
	name     string
	path     string
	platform string
	entries  *container.Container[string, RomEntry]
}

func newPlatformDoc(name, path, platform string) *PlatformDoc {
	return &PlatformDoc{
		name:     name,
		path:     path,
		platform: platform,
		entries: container.New(func(e RomEntry) string { return e.ID.String() }, func(existing, incoming RomEntry) RomEntry {
			merged := incoming
			for k, v := range existing.Fields {
				if _, ok := merged.Fields[k]; !ok {
					merged.Fields[k] = v
				}
			}
			return merged
		}),
	}
}

func (d *PlatformDoc) Identifier() ifdoc.Identifier {
	return ifdoc.Identifier{Type: ifdoc.Platform, Name: d.name}
}
func (d *PlatformDoc) Entries() *container.Container[string, RomEntry] { return d.entries }
func (d *PlatformDoc) Finalize() error                                 { return nil }

// InsertCatalogGame routes an already-projected RomEntry, keyed by its
// UUID string, through the container's three-way merge.
func (d *PlatformDoc) InsertCatalogGame(e RomEntry, opts container.Options) {
	d.entries.Insert(e, opts)
}

// AddSet satisfies launcher.PlatformDoc. AttractMode's romlist has no
// AddApp concept of its own, so only the Set's primary Game is
// projected into a RomEntry; its AddApps are dropped on this adapter.
func (d *PlatformDoc) AddSet(set model.Set, opts container.Options) {
	d.entries.Insert(gameToRomEntry(set.Game, set.Game.ID.String()), opts)
}

func readPlatformDoc(fs afero.Fs, path, name, platform string) (*PlatformDoc, error) {
	d := newPlatformDoc(name, path, platform)
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, err
	}
	if !exists {
		d.entries.BeginUpdatePhase()
		return d, nil
	}
	lines, err := ifdoc.ReadLines(fs, path)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		cols := ifdoc.ParseRomlistLine(line)
		fields := make(map[string]string, len(ifdoc.RomlistFields))
		for i, tag := range ifdoc.RomlistFields {
			if i < len(cols) {
				fields[tag] = cols[i]
			}
		}
		id, err := parseEntryID(fields["Name"])
		if err != nil {
			continue // a foreign romlist line this importer didn't write; leave it alone rather than failing the whole read
		}
		d.entries.InsertExisting(RomEntry{ID: id, Platform: platform, Fields: fields})
	}
	d.entries.BeginUpdatePhase()
	return d, nil
}

func writePlatformDoc(fs afero.Fs, d *PlatformDoc, opts container.Options) error {
	f, err := fs.Create(d.path)
	if err != nil {
		return ifdocCantSave(d.name, err)
	}
	defer f.Close()

	if _, err := f.Write([]byte(ifdoc.RomlistHeader + "\n")); err != nil {
		return ifdocCantSave(d.name, err)
	}

	entries := d.entries.Final(opts)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Fields["Title"] < entries[j].Fields["Title"] })
	for _, e := range entries {
		cols := make([]string, len(ifdoc.RomlistFields))
		for i, tag := range ifdoc.RomlistFields {
			cols[i] = e.Fields[tag]
		}
		if _, err := f.Write([]byte(ifdoc.FormatRomlistLine(cols) + "\n")); err != nil {
			return ifdocCantSave(d.name, err)
		}
	}
	return nil
}

// PlaylistDoc is a romlists/<playlist>.tag file: every member game
// written as "<platform>\t<romName>", since a single AttractMode tag
// can legitimately span entries from several platform romlists.
type PlaylistDoc struct {
	name    string
	path    string
	members *container.Container[string, taggedMember]
}

type taggedMember struct {
	Platform string
	RomName  string
}

func newPlaylistDoc(name, path string) *PlaylistDoc {
	return &PlaylistDoc{
		name: name,
		path: path,
		members: container.New(func(m taggedMember) string { return m.Platform + "\t" + m.RomName }, func(_, incoming taggedMember) taggedMember {
			return incoming
		}),
	}
}

func (d *PlaylistDoc) Identifier() ifdoc.Identifier {
	return ifdoc.Identifier{Type: ifdoc.Playlist, Name: d.name}
}
func (d *PlaylistDoc) Members() *container.Container[string, taggedMember] { return d.members }
func (d *PlaylistDoc) Finalize() error                                    { return nil }

// SetHeader is a no-op: AttractMode tag files carry no header record of
// their own, only member lines.
func (d *PlaylistDoc) SetHeader(model.PlaylistHeader) {}

// AddMember satisfies launcher.PlaylistDoc, keying the tag line by the
// member's platform plus its UUID string (this adapter's own RomName
// join key, set by AddSet above).
func (d *PlaylistDoc) AddMember(g model.PlaylistGame, opts container.Options) {
	d.members.Insert(taggedMember{Platform: g.GamePlatform, RomName: g.GameID.String()}, opts)
}

// ContainsMember satisfies launcher.PlaylistDoc, using the same
// platform+RomName composite key AddMember writes under.
func (d *PlaylistDoc) ContainsMember(platform string, gameID uuid.UUID) bool {
	return d.members.ContainsExisting(platform + "\t" + gameID.String())
}

func readPlaylistDoc(fs afero.Fs, path, name string) (*PlaylistDoc, error) {
	d := newPlaylistDoc(name, path)
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, err
	}
	if !exists {
		d.members.BeginUpdatePhase()
		return d, nil
	}
	lines, err := ifdoc.ReadLines(fs, path)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		platform, romName, ok := ifdoc.ParseKeyValueLine(line)
		if !ok || romName == "" {
			continue
		}
		d.members.InsertExisting(taggedMember{Platform: platform, RomName: romName})
	}
	d.members.BeginUpdatePhase()
	return d, nil
}

func writePlaylistDoc(fs afero.Fs, d *PlaylistDoc, opts container.Options) error {
	f, err := fs.Create(d.path)
	if err != nil {
		return ifdocCantSave(d.name, err)
	}
	defer f.Close()

	members := d.members.Final(opts)
	sort.Slice(members, func(i, j int) bool {
		if members[i].Platform != members[j].Platform {
			return members[i].Platform < members[j].Platform
		}
		return members[i].RomName < members[j].RomName
	})
	for _, m := range members {
		if _, err := f.Write([]byte(ifdoc.FormatKeyValueLine(m.Platform, m.RomName) + "\n")); err != nil {
			return ifdocCantSave(d.name, err)
		}
	}
	return nil
}

func parseEntryID(name string) (uuid.UUID, error) {
	return uuid.Parse(name)
}

func ifdocCantSave(name string, cause error) error {
	return &saveError{name: name, cause: cause}
}

type saveError struct {
	name  string
	cause error
}

func (e *saveError) Error() string { return e.name + ": could not be written: " + e.cause.Error() }
func (e *saveError) Unwrap() error { return e.cause }

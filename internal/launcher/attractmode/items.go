// Package attractmode implements the AttractMode adapter: one romlist
// text file per platform (romlists/<name>.txt), one emulator config per
// platform (emulators/<name>.cfg) carrying an artwork block, and
// playlists expressed as AttractMode "tag" files. Grounded on
// original_source/app/src/launcher/implementation/attractmode/
// am-install.h for directory layout and image-mode preference order,
// and on this module's internal/doc line-oriented codec primitives
// (ReadLines/ParseKeyValueLine/romlist helpers) rather than
// QTextStream.
package attractmode

import (
	"github.com/google/uuid"

	"github.com/retronian/fil/internal/model"
)

// RomEntry is one romlist record: AttractMode's own RomName/Title/...
// fixed column set (doc.RomlistFields) plus the shared model's UUID,
// tracked out of band since the romlist format has no id column — a
// line's RomName is AttractMode's join key.
type RomEntry struct {
	ID       uuid.UUID
	Platform string
	Fields   map[string]string // keyed by doc.RomlistFields entries
}

func (r RomEntry) name() string { return r.Fields["Name"] }

// gameToRomEntry projects a catalog Game into a romlist record: Title
// is the game's title and Name is the caller-supplied romName
// (AttractMode has no separate internal filename for Flashpoint's
// web-based entries — the caller supplies a stable slug for Name since
// it doubles as the tag-file join key).
func gameToRomEntry(g model.Game, romName string) RomEntry {
	fields := map[string]string{
		"Name":     romName,
		"Title":    g.Name,
		"Emulator": g.Platform,
	}
	for k, v := range g.OtherFields {
		switch k {
		case "Developer":
			fields["Manufacturer"] = v
		case "ReleaseDate":
			if len(v) >= 4 {
				fields["Year"] = v[:4]
			}
		case "Series":
			fields["Series"] = v
		}
	}
	return RomEntry{ID: g.ID, Platform: g.Platform, Fields: fields}
}

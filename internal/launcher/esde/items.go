// Package esde implements the ES-DE (EmulationStation Desktop Edition)
// adapter: a <system>/gamelist.xml per platform, a
// collections/custom-<name>.cfg per playlist, and a
// custom_systems/es_systems.xml entry per platform. Grounded on the
// teacher's internal/dat/gamelist.go (EmulationStation's own
// gamelist.xml schema: path/name/desc/releasedate/developer/
// publisher/genre/players/rating/image/marquee) and its
// internal/scanner/scanner.go platformExtensions table, adapted here
// into dummyExtension: ES-DE resolves a game's display purely from
// gamelist.xml, but refuses to list an entry whose <path> does not
// exist on disk, so every catalog entry needs a placeholder file.
package esde

import "github.com/retronian/fil/internal/model"

// dummyExtensions maps a handful of well-known Flashpoint platform
// names to a representative placeholder extension; anything else
// falls back to defaultDummyExtension. Unlike the teacher's table
// (console abbreviations mapping to real ROM formats), Flashpoint has
// no native ROM format at all, so these are arbitrary but stable
// placeholders, not format identifiers.
var dummyExtensions = map[string]string{
	"Flash":       ".flash",
	"HTML5":       ".html5",
	"Shockwave":   ".dcr",
	"Java":        ".jar",
	"Silverlight": ".xap",
	"Unity":       ".unity3d",
}

const defaultDummyExtension = ".fpgame"

// dummyExtension returns the placeholder file extension ES-DE's
// gamelist.xml <path> entries should carry for platform.
func dummyExtension(platform string) string {
	if ext, ok := dummyExtensions[platform]; ok {
		return ext
	}
	return defaultDummyExtension
}

// Game aliases model.Game for readability at call sites. A game's
// OtherFields keep the catalog's own key names (Developer, ReleaseDate,
// Series, ...) and are written to gamelist.xml as elements of those
// same names; they are not renamed to gamelist.xml's lowercase
// elements (desc, releasedate, developer, publisher, genre, players,
// rating).
type Game = model.Game

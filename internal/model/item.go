// Package model defines the plain-data records imported from the Flashpoint
// source catalog and merged into a target launcher's native documents.
package model

import "github.com/google/uuid"

// Item is the root of every launcher-entry type. OtherFields preserves
// attributes a reader encountered that this importer does not recognize,
// so that writing an item back out reproduces them byte-for-byte.
type Item interface {
	OtherFieldsMap() map[string]string
}

// TransferOtherFields copies the foreign key/value map from a predecessor
// item to a successor during an update merge (the adapters' merge
// functions passed to container.New call it).
func TransferOtherFields(dst, src Item) {
	for k, v := range src.OtherFieldsMap() {
		if _, ok := dst.OtherFieldsMap()[k]; !ok {
			dst.OtherFieldsMap()[k] = v
		}
	}
}

// BasicItem is embedded by every item that has launcher-facing identity:
// equality and hashing follow ID, never Name.
type BasicItem struct {
	ID          uuid.UUID
	Name        string
	OtherFields map[string]string
}

func (b *BasicItem) OtherFieldsMap() map[string]string {
	if b.OtherFields == nil {
		b.OtherFields = make(map[string]string)
	}
	return b.OtherFields
}

// Key identifies a BasicItem within a container.Container bucket.
func (b *BasicItem) Key() uuid.UUID { return b.ID }

// Game is a BasicItem carrying a platform; launcher adapters embed Game
// and add their own ordered attribute set by composition.
type Game struct {
	BasicItem
	Platform string
}

// AddApp (additional application) links to its parent Game by ID.
type AddApp struct {
	BasicItem
	GameID uuid.UUID
}

// Set is the tuple a platform document consumes atomically: one game and
// its additional applications. It is never persisted on its own.
type Set struct {
	Game    Game
	AddApps []AddApp
}

// PlaylistHeader carries playlist identity and notes.
type PlaylistHeader struct {
	BasicItem
	Notes string
}

// PlaylistGame carries the referenced game's UUID plus the launcher-
// specific cross-reference fields. catalog.Playlists fills GameTitle and
// GamePlatform from the catalog's game rows; no code in this module
// sets GameFilename.
type PlaylistGame struct {
	BasicItem
	GameID       uuid.UUID
	GameTitle    string
	GameFilename string
	GamePlatform string
}

// ImagePaths pairs a game's logo and screenshot source paths. Either may
// be empty when the source lacks that artwork.
type ImagePaths struct {
	LogoPath       string
	ScreenshotPath string
}

// Empty reports whether neither path is set.
func (p ImagePaths) Empty() bool { return p.LogoPath == "" && p.ScreenshotPath == "" }

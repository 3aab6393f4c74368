// Package launchbox implements the LaunchBox adapter: Data/Platforms/
// and Data/Playlists/ structured-XML documents, Data/Platforms.xml and
// Data/Parents.xml bookkeeping, and an Images/<Platform>/<art type>
// tree. Grounded on
// original_source/app/src/launcher/implementation/launchbox/lb-items.h
// for field lists and lb-install.h for path layout, expressed against
// this module's internal/doc XML codec primitives instead of Qt's
// QXmlStreamReader/Writer.
package launchbox

import "github.com/retronian/fil/internal/model"

// Game augments model.Game with the fields LaunchBox's own Game
// element carries that the shared model does not (lb-items.h's Game
// class), stored verbatim in OtherFields when not otherwise modeled:
// Series, Developer, Publisher, SortTitle, DateAdded, DateModified,
// Broken, PlayMode, Status, Region, Notes, Source, ApplicationPath,
// CommandLine, ReleaseDate, Version, ReleaseType. catalog.Catalog
// already places these into model.Game.OtherFields using the same
// key names, so no LaunchBox-specific struct is needed here — this
// type alias exists to make adapter code read naturally.
type Game = model.Game

// AddApp augments model.AddApp the same way (lb-items.h's AddApp:
// AppPath, CommandLine, AutoRunBefore, WaitForExit), again carried via
// OtherFields from the catalog layer.
type AddApp = model.AddApp

// PlatformFolder is LaunchBox's Data/Platforms.xml <PlatformFolder>
// entry: which media type a platform's image folder holds.
type PlatformFolder struct {
	MediaType  string
	FolderPath string
	Platform   string
}

// PlatformCategory is a Data/Parents.xml <PlatformCategory> entry.
type PlatformCategory struct {
	Name       string
	NestedName string
}

// Parent is a Data/Parents.xml <Parent> entry associating a platform
// (or playlist) with its category.
type Parent struct {
	PlatformCategoryName       string
	PlatformName               string
	ParentPlatformCategoryName string
	PlaylistID                 string
}

// PlaylistGameEntryDetails groups the launcher-specific fields a
// playlist game entry carries beyond its game reference. No code in
// this package builds or reads it: playlist documents take GameTitle
// and GamePlatform from model.PlaylistGame and keep the DatabaseID in
// its OtherFields.
type PlaylistGameEntryDetails struct {
	LBDatabaseID int
	GameFilename string
	GamePlatform string
	ManualOrder  int
}

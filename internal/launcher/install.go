// Package launcher defines the capability interface every supported
// launcher (LaunchBox, AttractMode, ES-DE) implements, plus the
// install-locating registry. Grounded on
// original_source/app/src/launcher/interface/lr-install-interface.h's
// IInstall class, translated from a virtual base class into a Go
// interface plus an embeddable Base that supplies default (no-op) hook
// implementations — composition over inheritance, per spec.md's design
// note "Polymorphism over launchers".
package launcher

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/retronian/fil/internal/backup"
	"github.com/retronian/fil/internal/container"
	"github.com/retronian/fil/internal/doc"
	"github.com/retronian/fil/internal/model"
)

// ImageMode selects how a game's artwork is placed into the target
// launcher's image tree.
type ImageMode int

const (
	// Copy duplicates each source image file into the target tree.
	Copy ImageMode = iota
	// Link creates a symbolic link in the target tree pointing at the
	// source file, used when the host filesystem supports it and the
	// embedder prefers to avoid duplicating large art collections.
	Link
	// Reference places no file in the target tree. No adapter in this
	// module writes a path reference into launcher configuration, so an
	// import in this mode places no artwork.
	Reference
)

func (m ImageMode) String() string {
	switch m {
	case Link:
		return "Link"
	case Reference:
		return "Reference"
	default:
		return "Copy"
	}
}

// ImportDetails bundles the parameters a worker pass supplies to every
// hook call, mirroring IInstall::ImportDetails.
type ImportDetails struct {
	UpdateOptions     container.Options
	ImageMode         ImageMode
	ClifpPath         string
	InvolvedPlatforms []string
	InvolvedPlaylists []string
	ForceFullscreen   bool
}

// ImageMap pairs a source file with the destination an image transfer
// should place it at.
type ImageMap struct {
	SourcePath string
	DestPath   string
}

// Install is the capability surface a launcher adapter must implement.
// A worker drives an Install exclusively through this interface; it
// never knows which concrete launcher it is talking to.
type Install interface {
	// Name is the launcher's display name (e.g. "LaunchBox").
	Name() string
	// PreferredImageModeOrder ranks the image modes this launcher
	// supports, most preferred first; the first mode the host
	// filesystem can satisfy is selected automatically when the
	// embedder does not force one.
	PreferredImageModeOrder() []ImageMode
	// IsRunning reports whether the launcher's own process currently
	// holds this install open, via whatever lock file or PID convention
	// that launcher uses.
	IsRunning() (bool, error)

	Valid() bool
	Path() string

	// TranslateDocName maps a source catalog platform/playlist name to
	// this launcher's on-disk document name (e.g. replacing characters
	// the target filesystem forbids).
	TranslateDocName(originalName string, docType doc.Type) string
	ContainsPlatform(name string) bool
	ContainsPlaylist(name string) bool

	CheckoutPlatformDoc(name string) (PlatformDoc, error)
	CheckoutPlaylistDoc(name string) (PlaylistDoc, error)
	CommitPlatformDoc(d PlatformDoc) error
	CommitPlaylistDoc(d PlaylistDoc) error

	// Import stage notifier hooks, called by worker.Run in this order:
	// PreImport, PrePlatformsImport, PostPlatformsImport,
	// PreImageProcessing, PostImageProcessing, PrePlaylistsImport,
	// PostPlaylistsImport, PostImport.
	PreImport(details ImportDetails) error
	PostImport() error
	PrePlatformsImport() error
	PostPlatformsImport() error
	PreImageProcessing(bulkSources map[string]ImageMap) error
	PostImageProcessing() error
	PrePlaylistsImport() error
	PostPlaylistsImport() error

	// Images; an adapter that has no notion of category/platform icons
	// returns "" / false.
	PlatformCategoryIconPath() string
	PlatformIconsDirectory() (string, bool)
	PlaylistIconsDirectory() (string, bool)
}

// PlatformDoc and PlaylistDoc narrow doc.Doc to the two document kinds
// a worker checks out; adapters return concrete types satisfying these
// (and doc.Doc) from CheckoutPlatformDoc/CheckoutPlaylistDoc. AddSet and
// AddMember let the worker populate a checked-out document without
// knowing which concrete container or on-disk shape the adapter keeps
// underneath it.
type PlatformDoc interface {
	doc.Doc
	// AddSet inserts (or updates) one catalog Set into the document
	// through its own three-way container, honoring opts the same way
	// container.Container.Insert does.
	AddSet(set model.Set, opts container.Options)
}

type PlaylistDoc interface {
	doc.Doc
	SetHeader(header model.PlaylistHeader)
	AddMember(game model.PlaylistGame, opts container.Options)
	// ContainsMember reports whether a member was already on disk at
	// checkout time, regardless of whether this run re-inserts it —
	// the worker uses this to retain a playlist entry whose game is
	// present from a prior run but wasn't re-imported this time.
	ContainsMember(platform string, gameID uuid.UUID) bool
}

// ImagePathProvider is implemented by every adapter's Install, giving
// the worker a uniform way to ask where a game's artwork belongs
// without switching on which launcher it is talking to. gameID is
// always the game's own UUID string, available regardless of what the
// launcher's native media-naming convention is; gameName is offered
// alongside it for adapters (LaunchBox) whose media files are named
// after the title rather than the bare id.
type ImagePathProvider interface {
	ImageDestinationPath(platform, gameName, gameID string, logo bool) string
}

// Base supplies the plumbing every concrete Install needs regardless
// of launcher: document-identity tracking, the backup manager, and
// no-op defaults for every optional hook. Concrete adapters embed Base
// and override only the hooks they need — an overriding method on the
// embedding struct shadows Base's through Go's normal method
// resolution, so the interface above is satisfied either way.
type Base struct {
	RootDirectory string
	Backups       *backup.Manager

	mu                sync.Mutex
	existingDocuments map[doc.Identifier]struct{}
	modifiedDocuments map[doc.Identifier]struct{}
	deletedDocuments  map[doc.Identifier]struct{}
	leasedDocuments   map[doc.Identifier]struct{}

	details *ImportDetails
}

// NewBase constructs a Base rooted at installPath, with a backup
// manager already bound to the same filesystem.
func NewBase(installPath string, backups *backup.Manager) Base {
	return Base{
		RootDirectory:     installPath,
		Backups:           backups,
		existingDocuments: make(map[doc.Identifier]struct{}),
		modifiedDocuments: make(map[doc.Identifier]struct{}),
		deletedDocuments:  make(map[doc.Identifier]struct{}),
		leasedDocuments:   make(map[doc.Identifier]struct{}),
	}
}

// CatalogueExistingDoc records that a document with the given
// identifier was found by the adapter's populateExistingDocs, before any import
// activity begins.
func (b *Base) CatalogueExistingDoc(id doc.Identifier) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.existingDocuments[id] = struct{}{}
}

// Lease marks a document as checked out; Release (called from a
// commit) clears it. Checking out an already-leased document is a
// caller bug the worker must never trigger (each platform/playlist is
// processed at most once per import).
func (b *Base) Lease(id doc.Identifier) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, already := b.leasedDocuments[id]; already {
		return false
	}
	b.leasedDocuments[id] = struct{}{}
	return true
}

func (b *Base) Release(id doc.Identifier, modified bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.leasedDocuments, id)
	if modified {
		b.modifiedDocuments[id] = struct{}{}
	}
}

func (b *Base) ContainsDoc(id doc.Identifier) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.existingDocuments[id]
	return ok
}

// ModifiedOfType lists, in sorted order, every
// document of the given type touched so far this import — used by
// adapters whose top-level index file (Platforms.xml, attract.cfg...)
// must enumerate only what actually changed.
func (b *Base) ModifiedOfType(t doc.Type) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var names []string
	for id := range b.modifiedDocuments {
		if id.Type == t {
			names = append(names, id.Name)
		}
	}
	sort.Strings(names)
	return names
}

func (b *Base) SetImportDetails(d ImportDetails) { b.details = &d }
func (b *Base) ImportDetails() ImportDetails {
	if b.details == nil {
		return ImportDetails{}
	}
	return *b.details
}

// The following are Base's no-op hook defaults; an embedding adapter
// overrides whichever it needs.
func (b *Base) PreImport(details ImportDetails) error { b.SetImportDetails(details); return nil }
func (b *Base) PostImport() error                     { return nil }
func (b *Base) PrePlatformsImport() error             { return nil }
func (b *Base) PostPlatformsImport() error            { return nil }
func (b *Base) PreImageProcessing(map[string]ImageMap) error { return nil }
func (b *Base) PostImageProcessing() error                   { return nil }
func (b *Base) PrePlaylistsImport() error                    { return nil }
func (b *Base) PostPlaylistsImport() error                   { return nil }

func (b *Base) PlatformCategoryIconPath() string            { return "" }
func (b *Base) PlatformIconsDirectory() (string, bool)      { return "", false }
func (b *Base) PlaylistIconsDirectory() (string, bool)      { return "", false }
func (b *Base) TranslateDocName(name string, _ doc.Type) string { return name }
func (b *Base) Valid() bool                                  { return true }
func (b *Base) Path() string                                 { return b.RootDirectory }

package esde

import (
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/retronian/fil/internal/backup"
	"github.com/retronian/fil/internal/container"
	ifdoc "github.com/retronian/fil/internal/doc"
	"github.com/retronian/fil/internal/launcher"
)

const (
	romsPath          = "ROMs"
	customSystemsPath = "custom_systems"
	collectionsPath   = "collections"
	downloadedMediaPath = "downloaded_media"

	logoFolderName       = "marquees"
	screenshotFolderName = "screenshots"
)

var imageModeOrder = []launcher.ImageMode{launcher.Copy, launcher.Link}

// Install is the ES-DE adapter. There is no original-source
// implementation to ground this on directly (ES-DE support is new
// relative to the original LaunchBox/AttractMode-only importer), so
// its directory layout follows ES-DE's own documented conventions and
// its document handling reuses this module's internal/doc XML codec
// the way launchbox.Install does, while its dummy-ROM-file requirement
// is grounded on the teacher's internal/scanner.go extension table
// (see dummyExtension in items.go).
type Install struct {
	launcher.Base
	fs afero.Fs

	romsDir        string
	systemsDir     string
	collectionsDir string
	mediaDir       string

	systemsConfig *systemsConfigDoc
}

func init() {
	launcher.Register("ES-DE", func(fs afero.Fs, path string) (launcher.Install, error) {
		exists, err := afero.DirExists(fs, filepath.Join(path, romsPath))
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, &invalidInstallError{path: path}
		}
		inst := &Install{
			Base:           launcher.NewBase(path, backup.New(fs)),
			fs:             fs,
			romsDir:        filepath.Join(path, romsPath),
			systemsDir:     filepath.Join(path, customSystemsPath),
			collectionsDir: filepath.Join(path, collectionsPath),
			mediaDir:       filepath.Join(path, downloadedMediaPath),
		}
		if err := inst.populateExistingDocs(); err != nil {
			return nil, err
		}
		return inst, nil
	})
}

type invalidInstallError struct{ path string }

func (e *invalidInstallError) Error() string {
	return e.path + ": does not look like an ES-DE installation (missing ROMs directory)"
}

func (i *Install) Name() string                                  { return "ES-DE" }
func (i *Install) PreferredImageModeOrder() []launcher.ImageMode { return imageModeOrder }

func (i *Install) IsRunning() (bool, error) {
	lockPath := filepath.Join(i.Path(), ".es_lock")
	fl := flock.New(lockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return false, err
	}
	if locked {
		fl.Unlock()
		return false, nil
	}
	return true, nil
}

func (i *Install) TranslateDocName(name string, _ ifdoc.Type) string {
	r := strings.NewReplacer(" ", "_", `\`, "_", "/", "_", ":", "_", "*", "_", "?", "_", `"`, "_", "<", "_", ">", "_", "|", "_")
	return strings.ToLower(r.Replace(name))
}

func (i *Install) populateExistingDocs() error {
	systemDirs, err := afero.ReadDir(i.fs, i.romsDir)
	if err != nil {
		return nil
	}
	for _, sd := range systemDirs {
		if !sd.IsDir() {
			continue
		}
		exists, _ := afero.Exists(i.fs, filepath.Join(i.romsDir, sd.Name(), "gamelist.xml"))
		if exists {
			i.CatalogueExistingDoc(ifdoc.Identifier{Type: ifdoc.Platform, Name: sd.Name()})
		}
	}

	collectionFiles, err := afero.ReadDir(i.fs, i.collectionsDir)
	if err != nil {
		return nil
	}
	for _, f := range collectionFiles {
		if !strings.HasPrefix(f.Name(), "custom-") || filepath.Ext(f.Name()) != ".cfg" {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(f.Name(), "custom-"), ".cfg")
		i.CatalogueExistingDoc(ifdoc.Identifier{Type: ifdoc.Playlist, Name: name})
	}
	return nil
}

func (i *Install) ContainsPlatform(name string) bool {
	return i.ContainsDoc(ifdoc.Identifier{Type: ifdoc.Platform, Name: name})
}
func (i *Install) ContainsPlaylist(name string) bool {
	return i.ContainsDoc(ifdoc.Identifier{Type: ifdoc.Playlist, Name: name})
}

func (i *Install) systemRomsDir(name string) string      { return filepath.Join(i.romsDir, name) }
func (i *Install) platformDocPath(name string) string    { return filepath.Join(i.systemRomsDir(name), "gamelist.xml") }
func (i *Install) playlistDocPath(name string) string    { return filepath.Join(i.collectionsDir, "custom-"+name+".cfg") }

func (i *Install) CheckoutPlatformDoc(name string) (launcher.PlatformDoc, error) {
	id := ifdoc.Identifier{Type: ifdoc.Platform, Name: name}
	if !i.Lease(id) {
		return nil, &leaseError{id: id}
	}
	if err := i.fs.MkdirAll(i.systemRomsDir(name), 0755); err != nil {
		i.Release(id, false)
		return nil, err
	}
	path := i.platformDocPath(name)
	if err := i.Backups.BackupCopy(path); err != nil {
		i.Release(id, false)
		return nil, err
	}
	d, err := readPlatformDoc(i.fs, path, name, name)
	if err != nil {
		i.Release(id, false)
		return nil, err
	}
	return d, nil
}

func (i *Install) CheckoutPlaylistDoc(name string) (launcher.PlaylistDoc, error) {
	id := ifdoc.Identifier{Type: ifdoc.Playlist, Name: name}
	if !i.Lease(id) {
		return nil, &leaseError{id: id}
	}
	if err := i.fs.MkdirAll(i.collectionsDir, 0755); err != nil {
		i.Release(id, false)
		return nil, err
	}
	path := i.playlistDocPath(name)
	if err := i.Backups.BackupCopy(path); err != nil {
		i.Release(id, false)
		return nil, err
	}
	d, err := readPlaylistDoc(i.fs, path, name)
	if err != nil {
		i.Release(id, false)
		return nil, err
	}
	return d, nil
}

func (i *Install) CommitPlatformDoc(pd launcher.PlatformDoc) error {
	d := pd.(*PlatformDoc)
	details := i.ImportDetails()

	// Every game needs a placeholder ROM file before the gamelist is
	// written, or ES-DE silently drops the entry on its next scan.
	if err := i.writeDummyRoms(d, details.UpdateOptions); err != nil {
		return err
	}

	if err := writePlatformDoc(i.fs, d, details.UpdateOptions); err != nil {
		return err
	}
	i.Release(d.Identifier(), true)

	if i.systemsConfig != nil {
		i.systemsConfig.EnsureSystem(systemEntry{
			Name:      d.platform,
			FullName:  d.platform,
			Path:      "%ROMPATH%/" + d.platform,
			Extension: dummyExtension(d.platform),
			Command:   details.ClifpPath + ` play --id="%FPGAMEID%"`,
			Platform:  d.platform,
		})
	}
	return nil
}

func (i *Install) writeDummyRoms(d *PlatformDoc, opts container.Options) error {
	var outerErr error
	for _, g := range d.games.Final(opts) {
		path := filepath.Join(i.systemRomsDir(d.platform), strings.TrimPrefix(d.DummyPath(g.ID), "./"))
		exists, err := afero.Exists(i.fs, path)
		if err != nil {
			outerErr = err
			continue
		}
		if exists {
			continue
		}
		if err := i.Backups.RevertableTouch(path); err != nil {
			outerErr = err
		}
	}
	return outerErr
}

func (i *Install) CommitPlaylistDoc(pd launcher.PlaylistDoc) error {
	d := pd.(*PlaylistDoc)
	details := i.ImportDetails()
	err := writePlaylistDoc(i.fs, d, details.UpdateOptions, func(platform string, id uuid.UUID) string {
		return "%ROMPATH%/" + platform + "/" + id.String() + dummyExtension(platform)
	})
	if err != nil {
		return err
	}
	i.Release(d.Identifier(), true)
	return nil
}

func (i *Install) PrePlatformsImport() error {
	if err := i.Backups.BackupCopy(filepath.Join(i.systemsDir, "es_systems.xml")); err != nil {
		return err
	}
	cfg, err := readSystemsConfigDoc(i.fs, filepath.Join(i.systemsDir, "es_systems.xml"))
	if err != nil {
		return err
	}
	i.systemsConfig = cfg
	return nil
}

func (i *Install) PostPlatformsImport() error {
	if err := i.fs.MkdirAll(i.systemsDir, 0755); err != nil {
		return err
	}
	return writeSystemsConfigDoc(i.fs, i.systemsConfig)
}

// ImageDestinationPath keys media files by the bare game UUID, not its
// title: downloaded_media/<platform>/<marquees|screenshots>/<uuid>.png mirrors the
// flashpointId the gamelist entry carries, so there is never a
// title-collision to disambiguate.
func (i *Install) ImageDestinationPath(platform, gameName, gameID string, logo bool) string {
	folder := screenshotFolderName
	if logo {
		folder = logoFolderName
	}
	return filepath.Join(i.mediaDir, platform, folder, gameID+".png")
}

type leaseError struct{ id ifdoc.Identifier }

func (e *leaseError) Error() string { return e.id.String() + ": document is already checked out" }

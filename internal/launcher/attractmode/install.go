package attractmode

import (
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"

	"github.com/retronian/fil/internal/backup"
	ifdoc "github.com/retronian/fil/internal/doc"
	"github.com/retronian/fil/internal/launcher"
)

const (
	emulatorsPath = "emulators"
	romlistsPath  = "romlists"
	mainCfgPath   = "attract.cfg"
	scraperPath   = "scraper"

	logoFolderName       = "flyer"
	screenshotFolderName = "snap"
)

var imageModeOrder = []launcher.ImageMode{launcher.Link, launcher.Copy}

// Install is the AttractMode adapter. Grounded on
// launcher/implementation/attractmode/am-install.h: its
// emulators/romlists directory layout, per-platform emulator cfg, and
// the Link-then-Copy-only image mode order (the header's own comment
// explains Reference is impractical here since AttractMode has no
// per-game path indirection to exploit).
type Install struct {
	launcher.Base
	fs afero.Fs

	emulatorsDir string
	romlistsDir  string

	mainConfig *mainConfigDoc
}

func init() {
	launcher.Register("AttractMode", func(fs afero.Fs, path string) (launcher.Install, error) {
		exists, err := afero.Exists(fs, filepath.Join(path, mainCfgPath))
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, &invalidInstallError{path: path}
		}
		inst := &Install{
			Base:         launcher.NewBase(path, backup.New(fs)),
			fs:           fs,
			emulatorsDir: filepath.Join(path, emulatorsPath),
			romlistsDir:  filepath.Join(path, romlistsPath),
		}
		if err := inst.populateExistingDocs(); err != nil {
			return nil, err
		}
		return inst, nil
	})
}

type invalidInstallError struct{ path string }

func (e *invalidInstallError) Error() string {
	return e.path + ": does not look like an AttractMode installation (missing attract.cfg)"
}

func (i *Install) Name() string                                  { return "AttractMode" }
func (i *Install) PreferredImageModeOrder() []launcher.ImageMode { return imageModeOrder }

func (i *Install) IsRunning() (bool, error) {
	lockPath := filepath.Join(i.Path(), mainCfgPath) + ".lock"
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
	return r.Replace(name)
}

func (i *Install) populateExistingDocs() error {
	files, err := afero.ReadDir(i.fs, i.romlistsDir)
	if err != nil {
		return nil // a fresh AttractMode install may not have a romlists dir yet
	}
	for _, f := range files {
		if filepath.Ext(f.Name()) != ".txt" {
			continue
		}
		name := strings.TrimSuffix(f.Name(), ".txt")
		i.CatalogueExistingDoc(ifdoc.Identifier{Type: ifdoc.Platform, Name: name})
	}
	return nil
}

func (i *Install) ContainsPlatform(name string) bool {
	return i.ContainsDoc(ifdoc.Identifier{Type: ifdoc.Platform, Name: name})
}

// ContainsPlaylist always reports false: AttractMode's catalogued
// document set only tracks romlists (platforms) at populate time, so
// a playlist tag file's prior existence is discovered lazily at
// checkout instead.
func (i *Install) ContainsPlaylist(name string) bool { return false }

func (i *Install) platformDocPath(name string) string { return filepath.Join(i.romlistsDir, name+".txt") }
func (i *Install) playlistDocPath(name string) string { return filepath.Join(i.romlistsDir, name+".tag") }
func (i *Install) emulatorCfgPath(name string) string { return filepath.Join(i.emulatorsDir, name+".cfg") }

func (i *Install) CheckoutPlatformDoc(name string) (launcher.PlatformDoc, error) {
	id := ifdoc.Identifier{Type: ifdoc.Platform, Name: name}
	if !i.Lease(id) {
		return nil, &leaseError{id: id}
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
	if err := writePlatformDoc(i.fs, d, details.UpdateOptions); err != nil {
		return err
	}
	i.Release(d.Identifier(), true)

	if err := i.Backups.BackupCopy(i.emulatorCfgPath(d.platform)); err != nil {
		return err
	}
	cfg, err := readEmulatorConfigDoc(i.fs, d.platform, i.emulatorCfgPath(d.platform))
	if err != nil {
		return err
	}
	cfg.SetLaunchCommand(details.ClifpPath, "play --id=\"[RomName]\"")
	cfg.SetArtwork("flyer", filepath.Join(scraperPath, d.platform, logoFolderName))
	cfg.SetArtwork("snap", filepath.Join(scraperPath, d.platform, screenshotFolderName))
	if err := writeEmulatorConfigDoc(i.fs, cfg); err != nil {
		return err
	}
	if i.mainConfig != nil {
		i.mainConfig.EnsurePlatformDisplay(d.platform)
	}
	return nil
}

func (i *Install) CommitPlaylistDoc(pd launcher.PlaylistDoc) error {
	d := pd.(*PlaylistDoc)
	details := i.ImportDetails()
	if err := writePlaylistDoc(i.fs, d, details.UpdateOptions); err != nil {
		return err
	}
	i.Release(d.Identifier(), true)
	if i.mainConfig != nil {
		i.mainConfig.EnsurePlaylistDisplay(d.name)
	}
	return nil
}

func (i *Install) PrePlatformsImport() error {
	if err := i.Backups.BackupCopy(filepath.Join(i.Path(), mainCfgPath)); err != nil {
		return err
	}
	cfg, err := readMainConfigDoc(i.fs, filepath.Join(i.Path(), mainCfgPath))
	if err != nil {
		return err
	}
	i.mainConfig = cfg
	return nil
}

func (i *Install) PostPlatformsImport() error {
	return writeMainConfigDoc(i.fs, i.mainConfig)
}

func (i *Install) PostPlaylistsImport() error {
	return writeMainConfigDoc(i.fs, i.mainConfig)
}

// ImageDestinationPath mirrors am-install.cpp's imageDestinationPath:
// scraper/<platform>/<flyer|snap>/<romName>.png. AttractMode's romlist
// keys a game by its UUID (see RomName in docs.go), not its title, so
// gameName goes unused here the same way it does in the ES-DE adapter.
func (i *Install) ImageDestinationPath(platform, gameName, gameID string, logo bool) string {
	folder := screenshotFolderName
	if logo {
		folder = logoFolderName
	}
	return filepath.Join(i.Path(), scraperPath, platform, folder, gameID+".png")
}

type leaseError struct{ id ifdoc.Identifier }

func (e *leaseError) Error() string { return e.id.String() + ": document is already checked out" }

package launchbox

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
	dataPath            = "Data"
	platformsPath       = "Data/Platforms"
	playlistsPath       = "Data/Playlists"
	corePath            = "Core"
	mainExePath         = "Core/LaunchBox.exe"
	platformImagesPath  = "Images"
	platformIconsPath   = "Images/Platform Icons/Platforms"
	playlistIconsPath   = "Images/Platform Icons/Playlists"
	categoryIconsPath   = "Images/Platform Icons/Platform Categories"
	logoMediaType       = "Box - Front"
	screenshotMediaType = "Screenshot - Gameplay"

	lbDatabaseIDTrackerMax = 100000
)

var imageModeOrder = []launcher.ImageMode{launcher.Link, launcher.Copy, launcher.Reference}

// Install is the LaunchBox adapter. Grounded on
// launcher/implementation/launchbox/lb-install.h, with its directory
// constants and the Parents.xml/Platforms.xml bookkeeping carried
// forward, and Qt's QFileInfo-based running-process check replaced
// with a gofrs/flock probe against LaunchBox's lock file convention.
type Install struct {
	launcher.Base
	fs afero.Fs

	platformsDir string
	playlistsDir string

	idTracker *freeIndexTracker

	platformsConfig *platformsConfigDoc
	parents         *parentsDoc
}

func init() {
	launcher.Register("LaunchBox", func(fs afero.Fs, path string) (launcher.Install, error) {
		exists, err := afero.DirExists(fs, filepath.Join(path, dataPath))
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, &invalidInstallError{path: path}
		}
		inst := &Install{
			Base:         launcher.NewBase(path, backup.New(fs)),
			fs:           fs,
			platformsDir: filepath.Join(path, platformsPath),
			playlistsDir: filepath.Join(path, playlistsPath),
			idTracker:    newFreeIndexTracker(lbDatabaseIDTrackerMax, nil),
		}
		if err := inst.populateExistingDocs(); err != nil {
			return nil, err
		}
		return inst, nil
	})
}

type invalidInstallError struct{ path string }

func (e *invalidInstallError) Error() string {
	return e.path + ": does not look like a LaunchBox installation (missing Data directory)"
}

func (i *Install) Name() string                        { return "LaunchBox" }
func (i *Install) PreferredImageModeOrder() []launcher.ImageMode { return imageModeOrder }

// IsRunning probes Core/LaunchBox.exe's lock file with a non-blocking
// TryLock: failing to acquire it means some other process (presumably
// LaunchBox itself) is holding the file.
func (i *Install) IsRunning() (bool, error) {
	lockPath := filepath.Join(i.Path(), mainExePath) + ".lock"
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
	return sanitizeFilename(name)
}

func sanitizeFilename(name string) string {
	r := strings.NewReplacer(`\`, "_", "/", "_", ":", "_", "*", "_", "?", "_", `"`, "_", "<", "_", ">", "_", "|", "_")
	return r.Replace(name)
}

func (i *Install) populateExistingDocs() error {
	platformFiles, err := afero.ReadDir(i.fs, i.platformsDir)
	if err != nil && !isNotExist(err) {
		return err
	}
	for _, f := range platformFiles {
		if filepath.Ext(f.Name()) != ".xml" {
			continue
		}
		name := strings.TrimSuffix(f.Name(), ".xml")
		i.CatalogueExistingDoc(ifdoc.Identifier{Type: ifdoc.Platform, Name: name})
	}

	playlistFiles, err := afero.ReadDir(i.fs, i.playlistsDir)
	if err != nil && !isNotExist(err) {
		return err
	}
	for _, f := range playlistFiles {
		if filepath.Ext(f.Name()) != ".xml" {
			continue
		}
		name := strings.TrimSuffix(f.Name(), ".xml")
		i.CatalogueExistingDoc(ifdoc.Identifier{Type: ifdoc.Playlist, Name: name})
	}
	return nil
}

func isNotExist(err error) bool {
	return strings.Contains(err.Error(), "no such file") || strings.Contains(err.Error(), "cannot find")
}

func (i *Install) ContainsPlatform(name string) bool {
	return i.ContainsDoc(ifdoc.Identifier{Type: ifdoc.Platform, Name: name})
}
func (i *Install) ContainsPlaylist(name string) bool {
	return i.ContainsDoc(ifdoc.Identifier{Type: ifdoc.Playlist, Name: name})
}

func (i *Install) platformDocPath(name string) string {
	return filepath.Join(i.platformsDir, name+".xml")
}
func (i *Install) playlistDocPath(name string) string {
	return filepath.Join(i.playlistsDir, name+".xml")
}

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
	if err := d.Finalize(); err != nil {
		return err
	}
	details := i.ImportDetails()
	if err := writePlatformDoc(i.fs, d, details.UpdateOptions); err != nil {
		return err
	}
	i.Release(d.Identifier(), true)
	if i.parents != nil {
		i.parents.AddPlatformParent(d.platform)
	}
	return nil
}

func (i *Install) CommitPlaylistDoc(pd launcher.PlaylistDoc) error {
	d := pd.(*PlaylistDoc)
	if err := d.Finalize(); err != nil {
		return err
	}
	details := i.ImportDetails()
	if err := writePlaylistDoc(i.fs, d, details.UpdateOptions, i.idTracker); err != nil {
		return err
	}
	i.Release(d.Identifier(), true)
	if i.parents != nil {
		i.parents.AddPlaylistParent(d.header.ID.String())
	}
	return nil
}

func (i *Install) PrePlatformsImport() error {
	if err := i.Backups.BackupCopy(filepath.Join(i.Path(), dataPath, "Platforms.xml")); err != nil {
		return err
	}
	if err := i.Backups.BackupCopy(filepath.Join(i.Path(), dataPath, "Parents.xml")); err != nil {
		return err
	}
	cfg, err := readPlatformsConfigDoc(i.fs, filepath.Join(i.Path(), dataPath, "Platforms.xml"))
	if err != nil {
		return err
	}
	par, err := readParentsDoc(i.fs, filepath.Join(i.Path(), dataPath, "Parents.xml"))
	if err != nil {
		return err
	}
	i.platformsConfig = cfg
	i.parents = par
	return nil
}

func (i *Install) PostPlatformsImport() error {
	for _, platform := range i.Base.ModifiedOfType(ifdoc.Platform) {
		i.platformsConfig.EnsureFolder(platform, logoMediaType, filepath.Join(platformImagesPath, platform, logoMediaType))
		i.platformsConfig.EnsureFolder(platform, screenshotMediaType, filepath.Join(platformImagesPath, platform, screenshotMediaType))
	}
	if err := writePlatformsConfigDoc(i.fs, i.platformsConfig); err != nil {
		return err
	}
	return writeParentsDoc(i.fs, i.parents)
}

func (i *Install) PostPlaylistsImport() error {
	return writeParentsDoc(i.fs, i.parents)
}

func (i *Install) PlatformCategoryIconPath() string {
	return filepath.Join(categoryIconsPath, mainPlatformCategory+".png")
}
func (i *Install) PlatformIconsDirectory() (string, bool) {
	return filepath.Join(i.Path(), platformIconsPath), true
}
func (i *Install) PlaylistIconsDirectory() (string, bool) {
	return filepath.Join(i.Path(), playlistIconsPath), true
}

// ImageDestinationPath computes where a game's artwork belongs: under
// Images/<platform>/<media type>/<game name>-<game id>.png, mirroring
// lb-install.cpp's imageDestinationPath. The id suffix disambiguates
// games that sanitize to the same filename (e.g. identical titles).
func (i *Install) ImageDestinationPath(platform, gameName, gameID string, logo bool) string {
	mediaType := screenshotMediaType
	if logo {
		mediaType = logoMediaType
	}
	fileName := sanitizeFilename(gameName) + "-" + gameID + ".png"
	return filepath.Join(i.Path(), platformImagesPath, platform, mediaType, fileName)
}

type leaseError struct{ id ifdoc.Identifier }

func (e *leaseError) Error() string { return e.id.String() + ": document is already checked out" }

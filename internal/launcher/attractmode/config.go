package attractmode

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/afero"

	ifdoc "github.com/retronian/fil/internal/doc"
)

// emulatorConfigDoc is emulators/<platform>.cfg: AttractMode's
// tab-indented "key value" emulator definition plus an artwork block
// naming the flyer/snap subdirectories this importer populates. This
// is a supplemental feature beyond the bare romlist — the emulator
// entry is what makes AttractMode able to display the art this
// importer places on disk at all.
type emulatorConfigDoc struct {
	platform   string
	path       string
	executable string
	args       string
	workingDir string
	romPath    string // unused by this importer (no physical ROMs) but AttractMode requires the key
	artwork    map[string]string
}

func newEmulatorConfigDoc(platform, path string) *emulatorConfigDoc {
	return &emulatorConfigDoc{
		platform: platform,
		path:     path,
		artwork:  make(map[string]string),
	}
}

func (d *emulatorConfigDoc) Identifier() ifdoc.Identifier {
	return ifdoc.Identifier{Type: ifdoc.Config, Name: "emulator:" + d.platform}
}
func (d *emulatorConfigDoc) Finalize() error { return nil }

func (d *emulatorConfigDoc) SetLaunchCommand(executable, args string) {
	d.executable = executable
	d.args = args
}
func (d *emulatorConfigDoc) SetArtwork(kind, dir string) { d.artwork[kind] = dir }

func readEmulatorConfigDoc(fs afero.Fs, platform, path string) (*emulatorConfigDoc, error) {
	d := newEmulatorConfigDoc(platform, path)
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return d, nil
	}
	lines, err := ifdoc.ReadLines(fs, path)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		key, value, ok := ifdoc.ParseKeyValueLine(line)
		if !ok {
			continue
		}
		switch key {
		case "executable":
			d.executable = value
		case "args":
			d.args = value
		case "workdir":
			d.workingDir = value
		case "rompath":
			d.romPath = value
		case "artwork":
			parts := strings.SplitN(value, " ", 2)
			if len(parts) == 2 {
				d.artwork[parts[0]] = parts[1]
			}
		}
	}
	return d, nil
}

func writeEmulatorConfigDoc(fs afero.Fs, d *emulatorConfigDoc) error {
	f, err := fs.Create(d.path)
	if err != nil {
		return ifdocCantSave(d.platform, err)
	}
	defer f.Close()

	lines := []string{
		ifdoc.FormatKeyValueLine("executable", d.executable),
		ifdoc.FormatKeyValueLine("args", d.args),
		ifdoc.FormatKeyValueLine("rompath", d.romPath),
	}
	kinds := make([]string, 0, len(d.artwork))
	for k := range d.artwork {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		lines = append(lines, ifdoc.FormatKeyValueLine("artwork", fmt.Sprintf("%s %s", k, d.artwork[k])))
	}
	for _, l := range lines {
		if _, err := f.Write([]byte(l + "\n")); err != nil {
			return ifdocCantSave(d.platform, err)
		}
	}
	return nil
}

// mainConfigDoc is attract.cfg: one tab-indented "display" stanza per
// imported platform/playlist, each filtering its romlist(s) and
// tagging itself with the AttractMode frontend's own
// PLATFORM_TAG_PREFIX/PLAYLIST_TAG_PREFIX convention from am-install.h
// so imported displays are visually distinguishable from the user's
// own.
type mainConfigDoc struct {
	path      string
	platforms []string
	playlists []string
}

const (
	platformTagPrefix = "[Platform] "
	playlistTagPrefix = "[Playlist] "
)

func newMainConfigDoc(path string) *mainConfigDoc {
	return &mainConfigDoc{path: path}
}

func (d *mainConfigDoc) Identifier() ifdoc.Identifier {
	return ifdoc.Identifier{Type: ifdoc.Config, Name: "attract"}
}
func (d *mainConfigDoc) Finalize() error { return nil }

func (d *mainConfigDoc) EnsurePlatformDisplay(name string) {
	if !contains(d.platforms, name) {
		d.platforms = append(d.platforms, name)
	}
}
func (d *mainConfigDoc) EnsurePlaylistDisplay(name string) {
	if !contains(d.playlists, name) {
		d.playlists = append(d.playlists, name)
	}
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func readMainConfigDoc(fs afero.Fs, path string) (*mainConfigDoc, error) {
	d := newMainConfigDoc(path)
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return d, nil
	}
	lines, err := ifdoc.ReadLines(fs, path)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if !strings.HasPrefix(trimmed, "display") {
			continue
		}
		_, name, ok := ifdoc.ParseKeyValueLine(trimmed)
		if !ok {
			continue
		}
		switch {
		case strings.HasPrefix(name, platformTagPrefix):
			d.EnsurePlatformDisplay(strings.TrimPrefix(name, platformTagPrefix))
		case strings.HasPrefix(name, playlistTagPrefix):
			d.EnsurePlaylistDisplay(strings.TrimPrefix(name, playlistTagPrefix))
		}
	}
	return d, nil
}

func writeMainConfigDoc(fs afero.Fs, d *mainConfigDoc) error {
	f, err := fs.Create(d.path)
	if err != nil {
		return ifdocCantSave("attract.cfg", err)
	}
	defer f.Close()

	sort.Strings(d.platforms)
	sort.Strings(d.playlists)
	for _, p := range d.platforms {
		if err := writeDisplayStanza(f, platformTagPrefix+p, "romlists/"+p); err != nil {
			return err
		}
	}
	for _, p := range d.playlists {
		if err := writeDisplayStanza(f, playlistTagPrefix+p, "romlists/"+p); err != nil {
			return err
		}
	}
	return nil
}

func writeDisplayStanza(f afero.File, name, romlistName string) error {
	lines := []string{
		ifdoc.FormatKeyValueLine("display", name),
		"\t" + ifdoc.FormatKeyValueLine("romlist", romlistName),
		"\t" + ifdoc.FormatKeyValueLine("in_cycle", "yes"),
	}
	for _, l := range lines {
		if _, err := f.Write([]byte(l + "\n")); err != nil {
			return ifdocCantSave(name, err)
		}
	}
	return nil
}

// Package clifp deploys the CLIFp launch helper into a Flashpoint-
// targeted install and builds the command lines every launcher adapter
// writes as a game's emulator/launch command. Grounded on
// original_source/app/src/kernel/clifp.h (the command/argument
// constants) and on internal/backup.Manager for the actual file
// placement (SafeReplace already implements the journal-safe copy the
// original's deployCLIFp performs manually).
package clifp

import (
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/retronian/fil/internal/backup"
)

const (
	exeName = "clifp"

	playCommand = "play"
	runCommand  = "run"
	showCommand = "show"
)

// CommandBuilder composes a CLIFp command line the way a launcher's own
// "launch command" field expects it, mirroring
// CLIFp::parametersFromStandard's two overloads (by title ID, and by
// app path + params) plus the run/show forms the original's constants
// imply but spec.md's §6 calls out explicitly.
type CommandBuilder struct {
	Path string
}

// Options bundles the optional flags every CLIFp invocation may carry.
type Options struct {
	Message    string
	Extra      string
	Fullscreen bool
}

// Play builds `clifp play --id="<uuid>" [--msg="..."] [--extra="..."] [--fullscreen]`,
// the command a Set's primary Game should be launched with.
func (b CommandBuilder) Play(titleID string, opts Options) string {
	parts := []string{quotedPath(b.Path), playCommand, idArg(titleID)}
	parts = append(parts, opts.trailingArgs()...)
	return strings.Join(parts, " ")
}

// Run builds `clifp run --app="<path>" --param="<args>" [...]`, used for
// an AddApp whose original launch was an application path plus
// parameters rather than a Flashpoint title ID.
func (b CommandBuilder) Run(appPath, params string, opts Options) string {
	parts := []string{quotedPath(b.Path), runCommand, appArg(appPath), paramArg(params)}
	parts = append(parts, opts.trailingArgs()...)
	return strings.Join(parts, " ")
}

// Show builds `clifp show --id="<uuid>"`, used by adapters that expose a
// "view details" action distinct from launching.
func (b CommandBuilder) Show(titleID string, opts Options) string {
	parts := []string{quotedPath(b.Path), showCommand, idArg(titleID)}
	parts = append(parts, opts.trailingArgs()...)
	return strings.Join(parts, " ")
}

func (o Options) trailingArgs() []string {
	var args []string
	if o.Message != "" {
		args = append(args, `--msg="`+o.Message+`"`)
	}
	if o.Extra != "" {
		args = append(args, `--extra="`+o.Extra+`"`)
	}
	if o.Fullscreen {
		args = append(args, "--fullscreen")
	}
	return args
}

func idArg(id string) string       { return `--id="` + id + `"` }
func appArg(path string) string    { return `--app="` + path + `"` }
func paramArg(params string) string { return `--param="` + params + `"` }
func quotedPath(path string) string {
	if strings.ContainsAny(path, " \t") {
		return `"` + path + `"`
	}
	return path
}

// versionFile is the sidecar this package uses to track a deployed
// CLIFp's version, since (unlike the original, which reads a version
// resource embedded in the Windows PE binary) a Go-portable stand-in
// needs a place to record it that works identically on every OS.
const versionFileSuffix = ".version"

// Deploy copies packagedPath to targetPath only when no CLIFp is
// currently deployed there, or the packaged copy's version is newer,
// mirroring CLIFp::deployCLIFp's version-gated overwrite. Both paths'
// versions are read from their `.version` sidecar; an install with no
// sidecar is treated as version "0", so any packaged version above "0"
// replaces it.
func Deploy(fs afero.Fs, backups *backup.Manager, packagedPath, targetPath string) (deployed bool, err error) {
	packagedVersion, err := readVersion(fs, packagedPath)
	if err != nil {
		return false, err
	}

	installedExists, _ := afero.Exists(fs, targetPath)
	if installedExists {
		installedVersion, _ := readVersion(fs, targetPath)
		if compareVersions(installedVersion, packagedVersion) >= 0 {
			return false, nil
		}
	}

	if err := backups.SafeReplace(packagedPath, targetPath, false); err != nil {
		return false, err
	}
	if err := backups.SafeReplace(packagedPath+versionFileSuffix, targetPath+versionFileSuffix, false); err != nil {
		return false, err
	}
	return true, nil
}

func readVersion(fs afero.Fs, path string) (string, error) {
	data, err := afero.ReadFile(fs, path+versionFileSuffix)
	if err != nil {
		return "0", nil
	}
	return strings.TrimSpace(string(data)), nil
}

// compareVersions compares dotted numeric version strings (e.g.
// "1.4.2"), returning -1/0/1. Unparseable segments compare as 0; this
// is deliberately a minimal stand-in for Qx::VersionNumber (no semver
// library appears anywhere in the retrieval pack to ground a richer
// comparator on).
func compareVersions(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		var av, bv int
		if i < len(as) {
			av, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			bv, _ = strconv.Atoi(bs[i])
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

// ExeName is the executable name this module deploys CLIFp under,
// matching original_source's non-Windows EXE_NAME constant (the Windows
// ".exe" suffix is a deployment-target concern left to the caller, which
// already knows the target install's platform).
const ExeName = exeName

// Command fil imports a Flashpoint source catalog into one of the
// supported frontend launchers. It is a thin parameter-struct-driven
// shell over internal/worker: each subcommand's job is only to turn a
// handful of flag switches into a worker.Params and hand it off.
// Configuration persistence is out of scope (spec.md): nothing here
// reads or writes a config file, and every run starts from flags alone.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"

	"github.com/retronian/fil/internal/catalog"
	"github.com/retronian/fil/internal/container"
	"github.com/retronian/fil/internal/ferrors"
	"github.com/retronian/fil/internal/launcher"
	_ "github.com/retronian/fil/internal/launcher/attractmode"
	_ "github.com/retronian/fil/internal/launcher/esde"
	_ "github.com/retronian/fil/internal/launcher/launchbox"
	"github.com/retronian/fil/internal/monitor"
	"github.com/retronian/fil/internal/worker"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "import":
		cmdImport(os.Args[2:])
	case "platforms":
		cmdPlatforms(os.Args[2:])
	case "launchers":
		cmdLaunchers()
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`fil - Flashpoint Importer for Launchers

Usage:
  fil import        Run an import into a target launcher
  fil platforms      List platforms available in a source catalog
  fil launchers      List registered launcher adapter names
  fil help           Show this help

Run "fil import -h" for import's own flags.`)
}

func cmdLaunchers() {
	for _, name := range launcher.Names() {
		fmt.Println(name)
	}
}

func cmdPlatforms(args []string) {
	fs := flag.NewFlagSet("platforms", flag.ExitOnError)
	dbPath := fs.String("catalog", "", "path to the Flashpoint source catalog sqlite file")
	imagesRoot := fs.String("images", "", "path to the Flashpoint Images directory")
	fs.Parse(args)

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "fil platforms: -catalog is required")
		os.Exit(1)
	}

	cat, err := catalog.Open(*dbPath, *imagesRoot, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "open catalog: %v\n", err)
		os.Exit(1)
	}
	defer cat.Close()

	platforms, err := cat.Platforms()
	if err != nil {
		fmt.Fprintf(os.Stderr, "list platforms: %v\n", err)
		os.Exit(1)
	}
	for _, p := range platforms {
		fmt.Println(p)
	}
}

func cmdImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	dbPath := fs.String("catalog", "", "path to the Flashpoint source catalog sqlite file")
	imagesRoot := fs.String("images", "", "path to the Flashpoint Images directory")
	imagesBaseURL := fs.String("images-mirror", "", "remote image mirror base URL, used when a shard isn't cached locally")
	launcherName := fs.String("launcher", "", "target launcher adapter name (see 'fil launchers')")
	installPath := fs.String("install", "", "path to the target launcher's installation")
	platformsFlag := fs.String("platforms", "", "comma-separated platform names to import, or 'all'")
	playlistsFlag := fs.String("playlists", "", "comma-separated playlist names to import")
	forceAll := fs.Bool("force-all-playlist-games", false, "import every playlist member's game even on an unselected platform")
	imageMode := fs.String("image-mode", "", "copy, link, or reference; left unset to let the adapter pick")
	removeObsolete := fs.Bool("remove-obsolete", false, "delete existing entries no longer present in the source catalog")
	fullscreen := fs.Bool("fullscreen", false, "force the deployed CLIFp command line into fullscreen mode")
	clifpPackaged := fs.String("clifp-packaged", "", "path to the CLIFp binary bundled with this importer")
	clifpTarget := fs.String("clifp-target", "", "path CLIFp should be deployed to inside the install")
	port := fs.Int("monitor-port", 0, "serve a JSON status/control surface on this port while the import runs; 0 disables it")
	fs.Parse(args)

	if *dbPath == "" || *launcherName == "" || *installPath == "" {
		fmt.Fprintln(os.Stderr, "fil import: -catalog, -launcher and -install are required")
		os.Exit(1)
	}

	cat, err := catalog.Open(*dbPath, *imagesRoot, *imagesBaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open catalog: %v\n", err)
		os.Exit(1)
	}
	defer cat.Close()

	osFs := afero.NewOsFs()
	install, err := launcher.Acquire(osFs, *launcherName, *installPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "acquire install: %v\n", err)
		os.Exit(1)
	}

	platforms := splitCSV(*platformsFlag)
	if *platformsFlag == "all" {
		platforms, err = cat.Platforms()
		if err != nil {
			fmt.Fprintf(os.Stderr, "list platforms: %v\n", err)
			os.Exit(1)
		}
	}

	mode := worker.SelectedPlatformsOnly
	if *forceAll {
		mode = worker.ForceAll
	}

	params := worker.Params{
		Catalog:           cat,
		Install:           install,
		Fs:                osFs,
		ClifpPackagedPath: *clifpPackaged,
		ClifpTargetPath:   *clifpTarget,
		Selections: worker.ImportSelections{
			Platforms:        platforms,
			Playlists:        splitCSV(*playlistsFlag),
			PlaylistGameMode: mode,
		},
		Options: worker.OptionSet{
			UpdateOptions:      container.Options{Policy: container.NewAndExisting, RemoveObsolete: *removeObsolete},
			RequestedImageMode: parseImageMode(*imageMode, install),
			ForceFullscreen:    *fullscreen,
		},
	}

	w := worker.New(params)

	if *port > 0 {
		go func() {
			srv := monitor.New(w, *port)
			if err := srv.Start(); err != nil {
				fmt.Fprintf(os.Stderr, "monitor server: %v\n", err)
			}
		}()
	} else {
		// With no monitor attached, nothing else can drain
		// Worker.Requests(); answer every blocking error automatically
		// instead of hanging the process forever.
		go drainRequests(w)
	}

	result, err := w.Run(context.Background())
	if err != nil && err != ferrors.Cancellation {
		fmt.Fprintf(os.Stderr, "import error: %v\n", err)
	}
	fmt.Printf("Import finished: %s\n", result)
	os.Exit(result.ExitCode())
}

// drainRequests answers every blocking error with Abort when nothing
// else is watching Worker.Requests() (no -monitor-port was given) —
// an unattended CLI run can't prompt an operator, so it fails safe
// instead of hanging forever.
func drainRequests(w *worker.Worker) {
	for req := range w.Requests() {
		fmt.Fprintf(os.Stderr, "import error: %v (aborting; rerun with -monitor-port to choose retry/ignore)\n", req.Err)
		req.Respond(worker.Abort)
	}
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseImageMode(s string, install launcher.Install) launcher.ImageMode {
	switch strings.ToLower(s) {
	case "copy":
		return launcher.Copy
	case "link":
		return launcher.Link
	case "reference":
		return launcher.Reference
	default:
		if modes := install.PreferredImageModeOrder(); len(modes) > 0 {
			return modes[0]
		}
		return launcher.Copy
	}
}

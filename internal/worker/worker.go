// Package worker drives one import end to end: Prepare, a database
// read pass, per-platform document writes, image placement, playlist
// writes, and a final commit — or, on cancellation or failure, an
// unwind through the backup journal. There is no single teacher file
// this is grounded on (romu has no cross-package orchestrator of this
// shape); it composes internal/catalog, internal/launcher,
// internal/image, internal/clifp, internal/progress and
// internal/backup the way spec.md §4.6's state diagram describes,
// following the same explicit-state-machine-as-plain-Go-functions
// style the teacher's cmd/romu/main.go subcommand handlers use.
package worker

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/retronian/fil/internal/backup"
	"github.com/retronian/fil/internal/catalog"
	"github.com/retronian/fil/internal/clifp"
	"github.com/retronian/fil/internal/container"
	ifdoc "github.com/retronian/fil/internal/doc"
	"github.com/retronian/fil/internal/ferrors"
	"github.com/retronian/fil/internal/image"
	"github.com/retronian/fil/internal/launcher"
	"github.com/retronian/fil/internal/model"
	"github.com/retronian/fil/internal/progress"
)

// Result is the terminal state an import run lands in.
type Result int

const (
	Successful Result = iota
	Canceled
	Failed
	Taskless
)

func (r Result) String() string {
	switch r {
	case Successful:
		return "Successful"
	case Canceled:
		return "Canceled"
	case Failed:
		return "Failed"
	case Taskless:
		return "Taskless"
	default:
		return "Unknown"
	}
}

// ExitCode maps a Result onto the process exit code spec.md §6 assigns
// it: success, failure, cancellation, and the no-op "nothing was
// selected" case each get their own code so a wrapping shell script
// can distinguish them without parsing output.
func (r Result) ExitCode() int {
	switch r {
	case Successful:
		return 0
	case Failed:
		return 1
	case Canceled:
		return 2
	case Taskless:
		return 3
	default:
		return 1
	}
}

// PlaylistGameMode governs how a selected playlist's member games are
// treated when their originating platform was not itself selected.
type PlaylistGameMode int

const (
	// SelectedPlatformsOnly omits a playlist member whose platform was
	// not separately selected for import; the playlist document is
	// still written, just missing that entry.
	SelectedPlatformsOnly PlaylistGameMode = iota
	// ForceAll imports every playlist member's game into its own
	// platform document — creating that document if it wasn't
	// otherwise being touched — so every selected playlist ends up
	// complete regardless of which platforms were separately chosen.
	ForceAll
)

// ButtonChoice is the answer an embedder gives to a blocking error.
type ButtonChoice int

const (
	Abort ButtonChoice = iota
	Retry
	Ignore
)

func (b ButtonChoice) String() string {
	switch b {
	case Retry:
		return "Retry"
	case Ignore:
		return "Ignore"
	default:
		return "Abort"
	}
}

// BlockingErrorRequest is sent on Worker.Requests() whenever the run
// cannot proceed without a decision from the embedder; the run blocks
// until Respond is called (or the worker is canceled, which
// pre-resolves the choice to Abort without the embedder's help).
type BlockingErrorRequest struct {
	Err     error
	Allowed []ButtonChoice
	respond chan<- ButtonChoice
}

// Respond answers a blocking error. Calling it more than once, or
// after the worker has already moved on (e.g. because it was
// canceled), is a harmless no-op.
func (r BlockingErrorRequest) Respond(choice ButtonChoice) {
	select {
	case r.respond <- choice:
	default:
	}
}

// ImportSelections names what the embedder chose to import.
type ImportSelections struct {
	Platforms        []string
	Playlists        []string
	PlaylistGameMode PlaylistGameMode
}

// OptionSet bundles the per-import parameters that feed straight into
// launcher.ImportDetails.
type OptionSet struct {
	UpdateOptions      container.Options
	RequestedImageMode launcher.ImageMode
	ForceFullscreen    bool
}

// Params is everything a single Worker run needs.
type Params struct {
	Catalog           *catalog.Catalog
	Install           launcher.Install
	Fs                afero.Fs
	ClifpPackagedPath string
	ClifpTargetPath   string
	Selections        ImportSelections
	Options           OptionSet
}

// Worker runs one import. It is not reusable across runs.
type Worker struct {
	params Params

	backups  *backup.Manager
	progress *progress.Manager
	imageMgr *image.Manager
	download *image.Downloader
	clifp    clifp.CommandBuilder

	cancelCh   chan struct{}
	cancelOnce sync.Once

	requests chan BlockingErrorRequest

	imageMode       launcher.ImageMode
	importedGameIDs map[string]map[uuid.UUID]bool
}

// New constructs a Worker bound to params. The returned Worker's
// Requests() channel must be drained by the caller for the run to
// make progress past its first blocking error, if any.
func New(params Params) *Worker {
	return &Worker{
		params:          params,
		backups:         backup.New(params.Fs),
		progress:        progress.New(10000),
		requests:        make(chan BlockingErrorRequest),
		cancelCh:        make(chan struct{}),
		importedGameIDs: make(map[string]map[uuid.UUID]bool),
	}
}

// Requests is the channel a blocking error is posted to.
func (w *Worker) Requests() <-chan BlockingErrorRequest { return w.requests }

// Progress reports live progress for the in-flight run.
func (w *Worker) Progress() *progress.Manager { return w.progress }

// Cancel requests that the run stop as soon as it next checks for
// cancellation, and pre-resolves any blocking error currently (or
// subsequently) awaiting a response to Abort.
func (w *Worker) Cancel() { w.cancelOnce.Do(func() { close(w.cancelCh) }) }

func (w *Worker) canceled() bool {
	select {
	case <-w.cancelCh:
		return true
	default:
		return false
	}
}

func (w *Worker) raiseBlockingError(err error, allowed []ButtonChoice) ButtonChoice {
	respCh := make(chan ButtonChoice, 1)
	req := BlockingErrorRequest{Err: err, Allowed: allowed, respond: respCh}
	select {
	case w.requests <- req:
	case <-w.cancelCh:
		return Abort
	}
	select {
	case choice := <-respCh:
		return choice
	case <-w.cancelCh:
		return Abort
	}
}

// handleRecoverable raises err as a blocking Abort/Retry/Ignore error
// and, on Retry, calls again until the caller-supplied retry succeeds,
// the embedder ignores it, or the embedder (or cancellation) aborts.
func (w *Worker) handleRecoverable(err error, retry func() error) error {
	for {
		choice := w.raiseBlockingError(err, []ButtonChoice{Abort, Retry, Ignore})
		switch choice {
		case Ignore:
			return nil
		case Retry:
			if rerr := retry(); rerr != nil {
				err = rerr
				continue
			}
			return nil
		default:
			return ferrors.Cancellation
		}
	}
}

var errLauncherRunning = errors.New("the target launcher appears to be running; close it and retry")

// Run executes the full state machine: Prepare, DbInitial,
// PlatformsPhase, ImagesPhase, PlaylistsPhase, Finalize, in sequence,
// unwinding through the backup journal on cancellation or failure.
func (w *Worker) Run(ctx context.Context) (Result, error) {
	if len(w.params.Selections.Platforms) == 0 && len(w.params.Selections.Playlists) == 0 {
		// Nothing was selected: report Taskless without having touched
		// disk, deployed CLIFp, or opened the install at all.
		return Taskless, nil
	}

	if err := w.prepare(); err != nil {
		return Failed, err
	}
	if w.canceled() {
		return w.unwind(Canceled, ferrors.Cancellation)
	}

	selectedPlatforms, extraByPlatform, headers, gamesByPlaylist, err := w.dbInitial()
	if err != nil {
		if err == ferrors.Cancellation {
			return w.unwind(Canceled, err)
		}
		return w.unwind(Failed, err)
	}
	if w.canceled() {
		return w.unwind(Canceled, ferrors.Cancellation)
	}

	jobs, err := w.platformsPhase(selectedPlatforms, extraByPlatform)
	if err != nil {
		return w.unwind(Failed, err)
	}
	if w.canceled() {
		return w.unwind(Canceled, ferrors.Cancellation)
	}

	if err := w.imagesPhase(ctx, jobs); err != nil {
		return w.unwind(Failed, err)
	}
	if w.canceled() {
		return w.unwind(Canceled, ferrors.Cancellation)
	}

	if err := w.playlistsPhase(headers, gamesByPlaylist); err != nil {
		return w.unwind(Failed, err)
	}
	if w.canceled() {
		return w.unwind(Canceled, ferrors.Cancellation)
	}

	if err := w.finalize(); err != nil {
		return w.unwind(Failed, err)
	}
	return Successful, nil
}

func (w *Worker) unwind(result Result, err error) (Result, error) {
	w.backups.Revert(true)
	w.params.Install.PostImport()
	return result, err
}

func (w *Worker) prepare() error {
	w.imageMode = w.resolveImageMode()
	details := launcher.ImportDetails{
		UpdateOptions:     w.params.Options.UpdateOptions,
		ImageMode:         w.imageMode,
		ClifpPath:         w.params.ClifpTargetPath,
		InvolvedPlatforms: w.params.Selections.Platforms,
		InvolvedPlaylists: w.params.Selections.Playlists,
		ForceFullscreen:   w.params.Options.ForceFullscreen,
	}
	if err := w.params.Install.PreImport(details); err != nil {
		return ferrors.Wrap(err, "pre-import hook")
	}
	if w.params.ClifpPackagedPath != "" {
		if _, err := clifp.Deploy(w.params.Fs, w.backups, w.params.ClifpPackagedPath, w.params.ClifpTargetPath); err != nil {
			return ferrors.Wrap(err, "deploy CLIFp")
		}
	}
	w.clifp = clifp.CommandBuilder{Path: w.params.ClifpTargetPath}
	w.imageMgr = image.New(w.params.Fs, w.backups, w.imageMode)
	w.download = image.NewDownloader()

	w.progress.SetWeight(progress.ImageDownload, 0.2)
	w.progress.SetWeight(progress.ImageTransfer, 0.15)
	w.progress.SetWeight(progress.AddAppPreload, 0.025)
	w.progress.SetWeight(progress.IconTransfer, 0.025)
	if len(w.params.Selections.Playlists) > 0 {
		w.progress.SetWeight(progress.GameImport, 0.5)
		w.progress.SetWeight(progress.PlaylistImport, 0.1)
	} else {
		w.progress.SetWeight(progress.GameImport, 0.6)
	}
	return nil
}

func (w *Worker) resolveImageMode() launcher.ImageMode {
	requested := w.params.Options.RequestedImageMode
	supported := w.params.Install.PreferredImageModeOrder()
	if requested == launcher.Link && !image.ProbeSymlinkCapability(w.params.Fs, w.params.Install.Path()) {
		requested = firstNonLink(supported)
	}
	for _, m := range supported {
		if m == requested {
			return m
		}
	}
	for _, m := range supported {
		if m != launcher.Link || image.ProbeSymlinkCapability(w.params.Fs, w.params.Install.Path()) {
			return m
		}
	}
	return launcher.Copy
}

func firstNonLink(modes []launcher.ImageMode) launcher.ImageMode {
	for _, m := range modes {
		if m != launcher.Link {
			return m
		}
	}
	return launcher.Copy
}

// dbInitial confirms the target launcher isn't running, then reads
// just enough of the source catalog to plan the rest of the run:
// platforms in alphabetical order, and — when any playlist was
// selected — the selected playlists' headers and member games, plus
// (under ForceAll) the per-platform extra-game map for platforms that
// weren't separately selected.
func (w *Worker) dbInitial() (platforms []string, extraByPlatform map[string][]model.PlaylistGame, headers []model.PlaylistHeader, gamesByPlaylist map[uuid.UUID][]model.PlaylistGame, err error) {
	for {
		running, rerr := w.params.Install.IsRunning()
		if rerr != nil {
			return nil, nil, nil, nil, rerr
		}
		if !running {
			break
		}
		choice := w.raiseBlockingError(errLauncherRunning, []ButtonChoice{Abort, Retry})
		if choice != Retry {
			return nil, nil, nil, nil, ferrors.Cancellation
		}
		if w.canceled() {
			return nil, nil, nil, nil, ferrors.Cancellation
		}
	}

	platforms = append([]string(nil), w.params.Selections.Platforms...)
	sort.Strings(platforms)

	if len(w.params.Selections.Playlists) == 0 {
		return platforms, nil, nil, nil, nil
	}

	allHeaders, allGames, perr := w.params.Catalog.Playlists()
	if perr != nil {
		return nil, nil, nil, nil, perr
	}

	selected := make(map[string]bool, len(w.params.Selections.Playlists))
	for _, name := range w.params.Selections.Playlists {
		selected[name] = true
	}
	for _, h := range allHeaders {
		if selected[h.Name] {
			headers = append(headers, h)
		}
	}

	gamesByPlaylist = make(map[uuid.UUID][]model.PlaylistGame, len(headers))
	for _, h := range headers {
		gamesByPlaylist[h.ID] = allGames[h.ID]
	}

	if w.params.Selections.PlaylistGameMode == ForceAll {
		selectedPlatform := make(map[string]bool, len(platforms))
		for _, p := range platforms {
			selectedPlatform[p] = true
		}
		extraByPlatform = make(map[string][]model.PlaylistGame)
		for _, games := range gamesByPlaylist {
			for _, g := range games {
				if !selectedPlatform[g.GamePlatform] {
					extraByPlatform[g.GamePlatform] = append(extraByPlatform[g.GamePlatform], g)
				}
			}
		}
	}
	return platforms, extraByPlatform, headers, gamesByPlaylist, nil
}

// platformsPhase writes every selected (and, under ForceAll, every
// extra) platform document, recording which game IDs actually landed
// in each one so playlistsPhase can tell which member games have a
// home, and returns the artwork jobs imagesPhase still needs to run.
func (w *Worker) platformsPhase(selectedPlatforms []string, extraByPlatform map[string][]model.PlaylistGame) ([]image.Job, error) {
	if err := w.params.Install.PrePlatformsImport(); err != nil {
		return nil, ferrors.Wrap(err, "pre-platforms hook")
	}

	names := make(map[string]bool, len(selectedPlatforms)+len(extraByPlatform))
	isSelected := make(map[string]bool, len(selectedPlatforms))
	for _, p := range selectedPlatforms {
		names[p] = true
		isSelected[p] = true
	}
	for p := range extraByPlatform {
		names[p] = true
	}
	combined := make([]string, 0, len(names))
	for p := range names {
		combined = append(combined, p)
	}
	sort.Strings(combined)

	w.progress.SetMax(progress.GameImport, int64(len(combined)))

	var jobs []image.Job
	for _, platform := range combined {
		if w.canceled() {
			return jobs, nil
		}

		sets, err := w.params.Catalog.GamesByPlatform(platform)
		if err != nil {
			return nil, ferrors.Wrap(err, "query platform "+platform)
		}
		if !isSelected[platform] {
			extra := extraByPlatform[platform]
			wanted := make(map[uuid.UUID]bool, len(extra))
			for _, g := range extra {
				wanted[g.GameID] = true
			}
			filtered := sets[:0]
			for _, s := range sets {
				if wanted[s.Game.ID] {
					filtered = append(filtered, s)
				}
			}
			sets = filtered
		}

		translated := w.params.Install.TranslateDocName(platform, ifdoc.Platform)
		doc, err := w.params.Install.CheckoutPlatformDoc(translated)
		if err != nil {
			return nil, ferrors.Wrap(err, "checkout platform "+platform)
		}

		imported := make(map[uuid.UUID]bool, len(sets))
		for _, set := range sets {
			doc.AddSet(set, w.params.Options.UpdateOptions)
			imported[set.Game.ID] = true

			paths := w.params.Catalog.ImagePaths(set.Game.ID)
			if !paths.Empty() {
				job := image.Job{GameID: set.Game.ID.String(), Platform: platform, Source: paths}
				if provider, ok := w.params.Install.(launcher.ImagePathProvider); ok {
					if paths.LogoPath != "" {
						job.LogoDest = provider.ImageDestinationPath(platform, set.Game.Name, job.GameID, true)
					}
					if paths.ScreenshotPath != "" {
						job.ScreenDest = provider.ImageDestinationPath(platform, set.Game.Name, job.GameID, false)
					}
					jobs = append(jobs, job)
				}
			}
		}
		w.importedGameIDs[platform] = imported

		if err := w.params.Install.CommitPlatformDoc(doc); err != nil {
			return nil, ferrors.Wrap(err, "commit platform "+platform)
		}
		w.progress.Advance(progress.GameImport, 1)
	}

	if err := w.params.Install.PostPlatformsImport(); err != nil {
		return nil, ferrors.Wrap(err, "post-platforms hook")
	}
	return jobs, nil
}

// imagesPhase downloads any artwork missing from the local cache (when
// the catalog was opened with a mirror base URL) and then places every
// job's logo/screenshot into the target install, via the backup
// manager so a later revert undoes it like any other mutation.
func (w *Worker) imagesPhase(ctx context.Context, jobs []image.Job) error {
	bulkSources := make(map[string]launcher.ImageMap, len(jobs)*2)
	for _, j := range jobs {
		if j.LogoDest != "" {
			bulkSources[j.LogoDest] = launcher.ImageMap{SourcePath: j.Source.LogoPath, DestPath: j.LogoDest}
		}
		if j.ScreenDest != "" {
			bulkSources[j.ScreenDest] = launcher.ImageMap{SourcePath: j.Source.ScreenshotPath, DestPath: j.ScreenDest}
		}
	}
	if err := w.params.Install.PreImageProcessing(bulkSources); err != nil {
		return ferrors.Wrap(err, "pre-image-processing hook")
	}

	w.progress.SetMax(progress.ImageDownload, int64(len(jobs)))
	w.progress.SetMax(progress.ImageTransfer, int64(len(jobs)))

	for _, job := range jobs {
		if w.canceled() {
			return nil
		}
		if err := w.ensureCached(ctx, job); err != nil {
			return err
		}
		w.progress.Advance(progress.ImageDownload, 1)

		if w.imageMode != launcher.Reference {
			j := job
			if terr := w.imageMgr.Transfer(j); terr != nil {
				if err := w.handleRecoverable(terr, func() error { return w.imageMgr.Transfer(j) }); err != nil {
					return err
				}
			}
		}
		w.progress.Advance(progress.ImageTransfer, 1)
	}

	return w.params.Install.PostImageProcessing()
}

func (w *Worker) ensureCached(ctx context.Context, job image.Job) error {
	gameID, err := uuid.Parse(job.GameID)
	if err != nil {
		return nil
	}
	logoURL, screenURL := w.params.Catalog.ImageURLs(gameID)

	fetch := func(path, url string) error {
		if path == "" || url == "" {
			return nil
		}
		if exists, _ := afero.Exists(w.params.Fs, path); exists {
			return nil
		}
		if derr := w.download.Ensure(ctx, w.params.Fs, url, path); derr != nil {
			return w.handleRecoverable(derr, func() error { return w.download.Ensure(ctx, w.params.Fs, url, path) })
		}
		return nil
	}
	if err := fetch(job.Source.LogoPath, logoURL); err != nil {
		return err
	}
	return fetch(job.Source.ScreenshotPath, screenURL)
}

// playlistsPhase writes every selected playlist document, culling a
// member game only when its originating platform was never imported
// during platformsPhase (possible under SelectedPlatformsOnly; cannot
// happen under ForceAll since dbInitial already arranged for every
// referenced platform to be processed) AND it isn't already present in
// the playlist document from a prior run — spec.md's playlist-inclusion
// rule keeps entries this run never touched but an earlier import left
// on disk.
func (w *Worker) playlistsPhase(headers []model.PlaylistHeader, gamesByPlaylist map[uuid.UUID][]model.PlaylistGame) error {
	if len(headers) == 0 {
		return nil
	}
	if err := w.params.Install.PrePlaylistsImport(); err != nil {
		return ferrors.Wrap(err, "pre-playlists hook")
	}

	w.progress.SetMax(progress.PlaylistImport, int64(len(headers)))

	for _, h := range headers {
		if w.canceled() {
			return nil
		}
		translated := w.params.Install.TranslateDocName(h.Name, ifdoc.Playlist)
		doc, err := w.params.Install.CheckoutPlaylistDoc(translated)
		if err != nil {
			return ferrors.Wrap(err, "checkout playlist "+h.Name)
		}
		doc.SetHeader(h)
		for _, g := range gamesByPlaylist[h.ID] {
			imported := w.platformWasImported(g.GamePlatform, g.GameID)
			if !imported && !doc.ContainsMember(g.GamePlatform, g.GameID) {
				continue
			}
			doc.AddMember(g, w.params.Options.UpdateOptions)
		}
		if err := w.params.Install.CommitPlaylistDoc(doc); err != nil {
			return ferrors.Wrap(err, "commit playlist "+h.Name)
		}
		w.progress.Advance(progress.PlaylistImport, 1)
	}

	return w.params.Install.PostPlaylistsImport()
}

func (w *Worker) platformWasImported(platform string, id uuid.UUID) bool {
	ids, ok := w.importedGameIDs[platform]
	if !ok {
		return false
	}
	return ids[id]
}

func (w *Worker) finalize() error {
	if err := w.params.Install.PostImport(); err != nil {
		return ferrors.Wrap(err, "post-import hook")
	}
	w.backups.Purge()
	return nil
}

// Package image places a game's artwork into a launcher's image tree
// (copy, symlink, or by-reference), and fetches source images over the
// network when the catalog advertises them but they are not yet present
// on disk. Grounded on the teacher's internal/covers/covers.go (libretro
// thumbnail fetch with an HTTP client and a retry loop), generalized
// here from covers.go's hand-rolled time.Sleep(100ms) loop into
// github.com/cenkalti/backoff/v4, and on internal/backup.Manager for the
// transfer half (SafeReplace already implements journal-safe copy/link).
package image

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/retronian/fil/internal/backup"
	"github.com/retronian/fil/internal/ferrors"
	"github.com/retronian/fil/internal/launcher"
	"github.com/retronian/fil/internal/model"
)

// CredentialRequest is raised by Downloader when a source requires
// authentication the caller has not already supplied.
type CredentialRequest struct {
	Host string
}

// CredentialCallback answers a CredentialRequest with a username/password
// pair; ok=false means the caller declined, and Ensure then fails with
// ferrors.Cancellation.
type CredentialCallback func(CredentialRequest) (user, pass string, ok bool)

// Job is one game's artwork placement task, computed by the worker from
// the catalog's ImagePaths and the adapter's ImageDestinationPath.
type Job struct {
	GameID       string
	Platform     string
	Source       model.ImagePaths
	LogoDest     string
	ScreenDest   string
}

// Downloader fetches source images that are advertised by the catalog
// but absent on the local filesystem (Flashpoint's image pack can be a
// partial mirror), retrying transient failures with backoff.
type Downloader struct {
	Client     *http.Client
	MaxRetries uint64
	OnAuth     CredentialCallback
}

// NewDownloader constructs a Downloader with sane production defaults.
func NewDownloader() *Downloader {
	return &Downloader{
		Client:     &http.Client{Timeout: 30 * time.Second},
		MaxRetries: 5,
	}
}

// Ensure makes sure path exists locally, fetching it from url if not.
// It respects ctx cancellation between retries, mirroring the worker's
// cooperative cancellation model (spec.md §5's "long network operations
// poll the same flag").
func (d *Downloader) Ensure(ctx context.Context, fs afero.Fs, url, path string) error {
	if exists, _ := afero.Exists(fs, path); exists {
		return nil
	}
	if url == "" {
		return ferrors.NewImageTransferError(ferrors.ImageSourceUnavailable, url, path, nil)
	}

	op := func() error {
		select {
		case <-ctx.Done():
			return backoff.Permanent(ferrors.Cancellation)
		default:
		}
		return d.fetchOnce(ctx, fs, url, path)
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), d.MaxRetries)
	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}

func (d *Downloader) fetchOnce(ctx context.Context, fs afero.Fs, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(err)
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return err // transient: retried
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return backoff.Permanent(ferrors.NewImageTransferError(ferrors.ImageSourceUnavailable, url, path, nil))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		if d.OnAuth == nil {
			return backoff.Permanent(ferrors.NewImageTransferError(ferrors.ImageSourceUnavailable, url, path, nil))
		}
		if _, _, ok := d.OnAuth(CredentialRequest{Host: req.URL.Host}); !ok {
			return backoff.Permanent(ferrors.Cancellation)
		}
		return errRetryAuth
	case resp.StatusCode != http.StatusOK:
		return backoff.Permanent(ferrors.NewImageTransferError(ferrors.ImageSourceUnavailable, url, path, nil))
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return backoff.Permanent(ferrors.NewImageTransferError(ferrors.CantCreateDirectory, url, path, err))
	}
	out, err := fs.Create(path)
	if err != nil {
		return backoff.Permanent(ferrors.NewImageTransferError(ferrors.ImageWontCopy, url, path, err))
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return err // transient: partial body, retried
	}
	return nil
}

var errRetryAuth = errors.New("retrying after supplied credentials")

// Manager places already-local source images into a launcher's image
// tree under one of the three transfer modes the worker selects.
type Manager struct {
	fs      afero.Fs
	backups *backup.Manager
	mode    launcher.ImageMode
}

// New constructs a Manager bound to fs, using backups for every transfer
// so that a failed or canceled import can be unwound like any other file
// mutation.
func New(fs afero.Fs, backups *backup.Manager, mode launcher.ImageMode) *Manager {
	return &Manager{fs: fs, backups: backups, mode: mode}
}

// Transfer places job's logo and screenshot according to the manager's
// mode. Transfer is a no-op in Reference mode and places no file.
func (m *Manager) Transfer(job Job) error {
	if m.mode == launcher.Reference {
		return nil
	}
	if job.Source.LogoPath != "" && job.LogoDest != "" {
		if err := m.place(job.Source.LogoPath, job.LogoDest); err != nil {
			return err
		}
	}
	if job.Source.ScreenshotPath != "" && job.ScreenDest != "" {
		if err := m.place(job.Source.ScreenshotPath, job.ScreenDest); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) place(src, dst string) error {
	if exists, _ := afero.Exists(m.fs, src); !exists {
		return ferrors.NewImageTransferError(ferrors.ImageSourceUnavailable, src, dst, nil)
	}
	if err := m.fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return ferrors.NewImageTransferError(ferrors.CantCreateDirectory, src, dst, err)
	}
	symlink := m.mode == launcher.Link
	if err := m.backups.SafeReplace(src, dst, symlink); err != nil {
		kind := ferrors.ImageWontCopy
		if symlink {
			kind = ferrors.ImageWontLink
		}
		return ferrors.NewImageTransferError(kind, src, dst, err)
	}
	return nil
}

// ProbeSymlinkCapability reports whether the process can create symbolic
// links under dir, called by the worker's Prepare state before it
// selects Link; if it returns false, the worker selects another of the
// adapter's offered image modes (DESIGN NOTES "Symbolic link fallback").
func ProbeSymlinkCapability(fs afero.Fs, dir string) bool {
	type linker interface {
		SymlinkIfPossible(oldname, newname string) error
	}
	l, ok := fs.(linker)
	if !ok {
		return false
	}
	probePath := filepath.Join(dir, ".fil-symlink-probe")
	targetPath := filepath.Join(dir, ".fil-symlink-probe-target")
	if err := afero.WriteFile(fs, targetPath, []byte("x"), 0644); err != nil {
		return false
	}
	defer fs.Remove(targetPath)
	defer fs.Remove(probePath)
	if err := l.SymlinkIfPossible(targetPath, probePath); err != nil {
		return false
	}
	return true
}

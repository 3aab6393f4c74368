// Package backup implements the journal that makes an import atomic from
// the user's perspective: every file-level mutation the worker or a
// launcher adapter performs is recorded here first, so the whole import
// can be reverted in one pass on cancellation or failure. Grounded on
// import/backup.h (BackupManager) and the teacher's transactional style
// of wrapping every mutating DB call in a sql.Tx with defer tx.Rollback()
// (internal/db/db.go's ImportDATGames/MatchByGameList/MatchROMs).
package backup

import (
	"io"
	"sync"

	"github.com/spf13/afero"

	"github.com/retronian/fil/internal/ferrors"
)

// fileExt is the suffix a sidecar backup is stored under.
const fileExt = ".fbk"

// entry records one revertable change. purge, when true, means a file
// newly placed at path should be deleted on revert (nothing to restore);
// when false, the sidecar backup at path+fileExt is restored over path.
type entry struct {
	path  string
	purge bool
}

// Manager is process-wide for the lifetime of one import: its mutating
// operations mutually exclude each other (spec.md §5, "the backup
// manager is a singleton; its mutating operations are mutually
// exclusive"), modeled here as a value scoped to the import rather than
// a global, per DESIGN NOTES "Process-wide singletons".
type Manager struct {
	fs  afero.Fs
	mu  sync.Mutex
	log []entry
}

// New constructs a backup manager bound to fs. Production code passes
// afero.NewOsFs(); tests pass afero.NewMemMapFs().
func New(fs afero.Fs) *Manager {
	return &Manager{fs: fs}
}

func backupPath(path string) string { return path + fileExt }

// BackupCopy side-copies path to path+fileExt if path exists, and marks
// path revertable: on revert the backup is restored, and any new file
// later placed at path is deleted. A no-op (but still revertable) if
// path does not exist.
func (m *Manager) BackupCopy(path string) error {
	return m.backup(path, func(src, dst string) error { return copyFile(m.fs, src, dst) })
}

// BackupRename side-renames path to path+fileExt if path exists, with
// the same revert semantics as BackupCopy.
func (m *Manager) BackupRename(path string) error {
	return m.backup(path, func(src, dst string) error { return m.fs.Rename(src, dst) })
}

func (m *Manager) backup(path string, transfer func(src, dst string) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	exists, _ := afero.Exists(m.fs, path)
	if exists {
		if err := transfer(path, backupPath(path)); err != nil {
			return ferrors.NewBackupError(ferrors.FileWontBackup, path, err)
		}
	}
	m.log = append(m.log, entry{path: path, purge: !exists})
	return nil
}

// Restore immediately restores a sidecar backup, used when SafeReplace
// fails mid-operation.
func (m *Manager) Restore(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.restoreLocked(path)
}

func (m *Manager) restoreLocked(path string) error {
	bp := backupPath(path)
	if exists, _ := afero.Exists(m.fs, bp); !exists {
		return nil
	}
	m.fs.Remove(path)
	if err := m.fs.Rename(bp, path); err != nil {
		return ferrors.NewBackupError(ferrors.FileWontRestore, path, err)
	}
	return nil
}

// SafeReplace replaces dst with src via copy or symlink. If dst exists it
// is temporarily backed up; on failure the backup is restored, on
// success the backup is deleted. If dst did not originally exist, it is
// marked revertable (a brand new file to delete on revert).
func (m *Manager) SafeReplace(src, dst string, symlink bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existed, _ := afero.Exists(m.fs, dst)
	if existed {
		if err := copyFile(m.fs, dst, backupPath(dst)); err != nil {
			return ferrors.NewBackupError(ferrors.FileWontBackup, dst, err)
		}
	}

	var transferErr error
	if symlink {
		transferErr = symlinkFile(m.fs, src, dst)
	} else {
		transferErr = copyFile(m.fs, src, dst)
	}

	if transferErr != nil {
		if existed {
			if err := m.restoreLocked(dst); err != nil {
				return err
			}
		} else {
			m.fs.Remove(dst)
		}
		return ferrors.NewBackupError(ferrors.FileWontReplace, dst, transferErr)
	}

	if existed {
		m.fs.Remove(backupPath(dst))
	} else {
		m.log = append(m.log, entry{path: dst, purge: true})
	}
	return nil
}

// RevertableTouch creates an empty file at path, failing if it already
// exists, and marks it for deletion on revert.
func (m *Manager) RevertableTouch(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if exists, _ := afero.Exists(m.fs, path); exists {
		return ferrors.NewBackupError(ferrors.FileWontCreate, path, io.ErrUnexpectedEOF)
	}
	f, err := m.fs.Create(path)
	if err != nil {
		return ferrors.NewBackupError(ferrors.FileWontCreate, path, err)
	}
	f.Close()
	m.log = append(m.log, entry{path: path, purge: true})
	return nil
}

// RevertableRemove backs up path via copy, schedules the backup's
// deletion at clean commit, and restores it on revert.
func (m *Manager) RevertableRemove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := copyFile(m.fs, path, backupPath(path)); err != nil {
		return ferrors.NewBackupError(ferrors.FileWontBackup, path, err)
	}
	if err := m.fs.Remove(path); err != nil {
		return ferrors.NewBackupError(ferrors.FileWontDelete, path, err)
	}
	m.log = append(m.log, entry{path: path, purge: false})
	return nil
}

// HasReversions reports whether any change is queued for revert.
func (m *Manager) HasReversions() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.log) > 0
}

// RevertQueueCount reports the number of queued changes.
func (m *Manager) RevertQueueCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.log)
}

// Revert replays the journal in reverse, restoring or purging each
// entry. skipOnFail determines whether a failed step aborts the unwind
// (returning immediately) or is merely collected and the unwind
// continues; it always returns every error encountered, in revert order.
func (m *Manager) Revert(skipOnFail bool) []error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for i := len(m.log) - 1; i >= 0; i-- {
		e := m.log[i]
		var err error
		if e.purge {
			if exists, _ := afero.Exists(m.fs, e.path); exists {
				err = m.fs.Remove(e.path)
				if err != nil {
					err = ferrors.NewRevertError(ferrors.RevertFileWontDelete, e.path, err)
				}
			}
		} else {
			err = m.restoreLocked(e.path)
		}
		if err != nil {
			errs = append(errs, err)
			if !skipOnFail {
				m.log = m.log[:i]
				return errs
			}
		}
		m.log = m.log[:i]
	}
	return errs
}

// Purge discards all sidecar backups without restoring them, called on a
// clean commit.
func (m *Manager) Purge() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.log {
		if !e.purge {
			m.fs.Remove(backupPath(e.path))
		}
	}
	m.log = nil
}

func copyFile(fs afero.Fs, src, dst string) error {
	in, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := fs.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return nil
}

func symlinkFile(fs afero.Fs, src, dst string) error {
	type linker interface {
		SymlinkIfPossible(oldname, newname string) error
	}
	if l, ok := fs.(linker); ok {
		return l.SymlinkIfPossible(src, dst)
	}
	// Fall back to a real copy when the backing Fs can't symlink (e.g. an
	// in-memory Fs in tests); the worker only requests symlink mode after
	// image.ProbeSymlinkCapability has confirmed OS support.
	return copyFile(fs, src, dst)
}

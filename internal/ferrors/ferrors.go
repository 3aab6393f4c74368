// Package ferrors implements the structured error taxonomy: every error
// surfaced by the import pipeline carries a severity, a caption, a
// primary message templated with the affected document or path, and an
// optional secondary/details string, grounded in the teacher's plain
// fmt.Errorf wrapping (internal/db/db.go, internal/dat/parser.go) but
// generalized to the richer kind/severity model spec.md §7 requires.
package ferrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Severity ranks how an error should be presented to the embedder.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
	Critical
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "Info"
	case Warning:
		return "Warning"
	case Critical:
		return "Critical"
	default:
		return "Error"
	}
}

// DocHandlingKind enumerates the ways a DataDoc checkout/commit can fail.
type DocHandlingKind int

const (
	DocAlreadyOpen DocHandlingKind = iota
	DocCantOpen
	DocCantSave
	NotParentDoc
	CantRemoveBackup
	CantCreateBackup
	DocInvalidType
	DocReadFailed
	DocWriteFailed
)

var docHandlingText = map[DocHandlingKind]string{
	DocAlreadyOpen:   "the document is already checked out",
	DocCantOpen:      "the document file could not be opened",
	DocCantSave:      "the document file could not be saved",
	NotParentDoc:     "the document does not belong to this install",
	CantRemoveBackup: "the document's backup could not be removed",
	CantCreateBackup: "the document's backup could not be created",
	DocInvalidType:   "the document's root element does not match the expected type",
	DocReadFailed:    "the document could not be parsed",
	DocWriteFailed:   "the document could not be written",
}

// DocHandlingError reports a failure checking out, populating, or
// committing a DataDoc. DocName identifies the affected document.
type DocHandlingError struct {
	Kind    DocHandlingKind
	DocName string
	Cause   error
}

func NewDocHandlingError(kind DocHandlingKind, docName string, cause error) *DocHandlingError {
	return &DocHandlingError{Kind: kind, DocName: docName, Cause: cause}
}

func (e *DocHandlingError) Error() string {
	return fmt.Sprintf("%s: %s", e.DocName, docHandlingText[e.Kind])
}

func (e *DocHandlingError) Unwrap() error { return e.Cause }

func (e *DocHandlingError) Severity() Severity {
	switch e.Kind {
	case DocInvalidType:
		return Critical
	default:
		return Error
	}
}

func (e *DocHandlingError) Caption() string { return "Error handling a document" }
func (e *DocHandlingError) Primary() string {
	return fmt.Sprintf("Could not process document %q", e.DocName)
}
func (e *DocHandlingError) Secondary() string { return docHandlingText[e.Kind] }

// BackupKind enumerates backup-manager failures.
type BackupKind int

const (
	FileWontDelete BackupKind = iota
	FileWontRestore
	FileWontBackup
	FileWontReplace
	FileWontCreate
)

var backupText = map[BackupKind]string{
	FileWontDelete:  "cannot remove a file; it may need to be deleted manually",
	FileWontRestore: "cannot restore a file backup; it may need to be renamed manually",
	FileWontBackup:  "cannot backup file",
	FileWontReplace: "a file that was part of a safe replace operation could not be transferred",
	FileWontCreate:  "a file that was part of a safe touch operation could not be created",
}

// BackupError reports a failure in the backup manager.
type BackupError struct {
	Kind  BackupKind
	Path  string
	Cause error
}

func NewBackupError(kind BackupKind, path string, cause error) *BackupError {
	return &BackupError{Kind: kind, Path: path, Cause: cause}
}

func (e *BackupError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, backupText[e.Kind])
}
func (e *BackupError) Unwrap() error    { return e.Cause }
func (e *BackupError) Severity() Severity { return Error }
func (e *BackupError) Caption() string    { return "Error managing backups" }
func (e *BackupError) Primary() string    { return backupText[e.Kind] }
func (e *BackupError) Secondary() string  { return e.Path }

// ImageTransferKind enumerates image placement failures.
type ImageTransferKind int

const (
	ImageSourceUnavailable ImageTransferKind = iota
	ImageWontBackup
	ImageWontCopy
	ImageWontLink
	CantCreateDirectory
)

var imageTransferText = map[ImageTransferKind]string{
	ImageSourceUnavailable: "an expected source image does not exist",
	ImageWontBackup:        "cannot rename an existing image for backup",
	ImageWontCopy:          "cannot copy an image to its destination",
	ImageWontLink:          "cannot create a symbolic link for an image",
	CantCreateDirectory:    "could not create a directory for an image destination",
}

// ImageTransferError reports a failure placing a single game's artwork.
// Source/Dest record the paths involved so the embedder's retry/skip
// prompt can show them.
type ImageTransferError struct {
	Kind   ImageTransferKind
	Source string
	Dest   string
	Cause  error
}

func NewImageTransferError(kind ImageTransferKind, source, dest string, cause error) *ImageTransferError {
	return &ImageTransferError{Kind: kind, Source: source, Dest: dest, Cause: cause}
}

func (e *ImageTransferError) Error() string {
	return fmt.Sprintf("%s -> %s: %s", e.Source, e.Dest, imageTransferText[e.Kind])
}
func (e *ImageTransferError) Unwrap() error    { return e.Cause }
func (e *ImageTransferError) Severity() Severity { return Error }
func (e *ImageTransferError) Caption() string    { return "Error importing game image(s)" }
func (e *ImageTransferError) Primary() string    { return imageTransferText[e.Kind] }
func (e *ImageTransferError) Secondary() string {
	return fmt.Sprintf("Source: %s\nDestination: %s", e.Source, e.Dest)
}

// RevertKind enumerates failures while unwinding the backup journal.
type RevertKind int

const (
	RevertFileWontDelete RevertKind = iota
	RevertFileWontRestore
)

var revertText = map[RevertKind]string{
	RevertFileWontDelete:  "cannot remove a file; it may need to be deleted manually",
	RevertFileWontRestore: "cannot restore a file backup; it may need to be renamed manually",
}

// RevertError reports a single failed step while replaying the backup
// journal in reverse. It does not, by itself, abort the remaining
// unwind — see backup.Manager.Revert and its skipOnFail parameter.
type RevertError struct {
	Kind  RevertKind
	Path  string
	Cause error
}

func NewRevertError(kind RevertKind, path string, cause error) *RevertError {
	return &RevertError{Kind: kind, Path: path, Cause: cause}
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, revertText[e.Kind])
}
func (e *RevertError) Unwrap() error    { return e.Cause }
func (e *RevertError) Severity() Severity { return Error }
func (e *RevertError) Caption() string    { return "Error reverting changes" }
func (e *RevertError) Primary() string    { return revertText[e.Kind] }

// Wrap is a thin alias over errors.Wrap, kept so call sites in this
// module don't import github.com/pkg/errors directly.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Cause is a thin alias over errors.Cause.
func Cause(err error) error {
	return errors.Cause(err)
}

// Cancellation is returned by any suspension point when the worker's
// cancellation flag is observed set.
var Cancellation = errors.New("import canceled")

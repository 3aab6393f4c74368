package launcher

import (
	"errors"
	"testing"

	"github.com/spf13/afero"

	"github.com/retronian/fil/internal/doc"
)

type stubInstall struct {
	Base
}

func (s *stubInstall) Name() string                       { return "Stub" }
func (s *stubInstall) PreferredImageModeOrder() []ImageMode { return []ImageMode{Copy} }
func (s *stubInstall) IsRunning() (bool, error)            { return false, nil }
func (s *stubInstall) ContainsPlatform(string) bool        { return false }
func (s *stubInstall) ContainsPlaylist(string) bool        { return false }
func (s *stubInstall) CheckoutPlatformDoc(string) (PlatformDoc, error) { return nil, nil }
func (s *stubInstall) CheckoutPlaylistDoc(string) (PlaylistDoc, error) { return nil, nil }
func (s *stubInstall) CommitPlatformDoc(PlatformDoc) error             { return nil }
func (s *stubInstall) CommitPlaylistDoc(PlaylistDoc) error             { return nil }

func TestRegisterAndAcquire(t *testing.T) {
	Register("stub-test", func(fs afero.Fs, path string) (Install, error) {
		if path == "" {
			return nil, errors.New("empty path")
		}
		s := &stubInstall{Base: NewBase(path, nil)}
		return s, nil
	})

	inst, err := Acquire(afero.NewMemMapFs(), "stub-test", "/installs/stub")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if inst.Name() != "Stub" {
		t.Errorf("unexpected name: %s", inst.Name())
	}
	if inst.Path() != "/installs/stub" {
		t.Errorf("unexpected path: %s", inst.Path())
	}

	if _, err := Acquire(afero.NewMemMapFs(), "stub-test", ""); err == nil {
		t.Error("expected validation error for empty path")
	}

	if _, err := Acquire(afero.NewMemMapFs(), "does-not-exist", "/x"); err == nil {
		t.Error("expected error for unregistered launcher name")
	}
}

func TestBaseLeaseAndModifiedTracking(t *testing.T) {
	b := NewBase("/installs/stub", nil)

	docID := doc.Identifier{Type: doc.Platform, Name: "Flash"}
	if !b.Lease(docID) {
		t.Fatal("expected first lease to succeed")
	}
	if b.Lease(docID) {
		t.Fatal("expected second lease of same doc to fail")
	}
	b.Release(docID, true)
	if got := b.ModifiedOfType(docID.Type); len(got) != 1 || got[0] != docID.Name {
		t.Errorf("expected modified tracking to record %q, got %v", docID.Name, got)
	}
	if b.Lease(docID) == false {
		t.Fatal("expected lease to succeed again after release")
	}
}

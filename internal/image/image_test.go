package image

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/afero"

	"github.com/retronian/fil/internal/backup"
	"github.com/retronian/fil/internal/launcher"
	"github.com/retronian/fil/internal/model"
)

func TestManagerTransferCopyMode(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/src/logo.png", []byte("logo-bytes"), 0644)
	afero.WriteFile(fs, "/src/screen.png", []byte("screen-bytes"), 0644)

	mgr := New(fs, backup.New(fs), launcher.Copy)
	job := Job{
		Source:     model.ImagePaths{LogoPath: "/src/logo.png", ScreenshotPath: "/src/screen.png"},
		LogoDest:   "/dst/logo.png",
		ScreenDest: "/dst/screen.png",
	}
	if err := mgr.Transfer(job); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	got, err := afero.ReadFile(fs, "/dst/logo.png")
	if err != nil || string(got) != "logo-bytes" {
		t.Fatalf("expected logo copied, got %q err %v", got, err)
	}
}

func TestManagerTransferMissingSource(t *testing.T) {
	fs := afero.NewMemMapFs()
	mgr := New(fs, backup.New(fs), launcher.Copy)
	job := Job{Source: model.ImagePaths{LogoPath: "/src/missing.png"}, LogoDest: "/dst/logo.png"}
	if err := mgr.Transfer(job); err == nil {
		t.Fatal("expected error for missing source image")
	}
}

func TestManagerTransferReferenceModeIsNoop(t *testing.T) {
	fs := afero.NewMemMapFs()
	mgr := New(fs, backup.New(fs), launcher.Reference)
	job := Job{Source: model.ImagePaths{LogoPath: "/src/logo.png"}, LogoDest: "/dst/logo.png"}
	if err := mgr.Transfer(job); err != nil {
		t.Fatalf("reference mode should not error: %v", err)
	}
	if exists, _ := afero.Exists(fs, "/dst/logo.png"); exists {
		t.Fatal("reference mode must not place files")
	}
}

func TestDownloaderEnsureFetchesMissingFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("downloaded"))
	}))
	defer srv.Close()

	fs := afero.NewMemMapFs()
	d := NewDownloader()
	d.MaxRetries = 1
	if err := d.Ensure(context.Background(), fs, srv.URL, "/dst/a.png"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	got, _ := afero.ReadFile(fs, "/dst/a.png")
	if string(got) != "downloaded" {
		t.Fatalf("expected downloaded bytes, got %q", got)
	}
}

func TestDownloaderEnsureSkipsExisting(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/dst/a.png", []byte("already-there"), 0644)
	d := NewDownloader()
	if err := d.Ensure(context.Background(), fs, "http://example.invalid/x.png", "/dst/a.png"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
}

func TestProbeSymlinkCapabilityOnMemMapFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	fs.MkdirAll("/probe", 0755)
	if ProbeSymlinkCapability(fs, "/probe") {
		t.Fatal("MemMapFs does not support symlinks, probe should report false")
	}
}

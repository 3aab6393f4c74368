package launchbox

import (
	"testing"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/retronian/fil/internal/container"
	"github.com/retronian/fil/internal/launcher"
	"github.com/retronian/fil/internal/model"
)

func newTestInstall(t *testing.T) *Install {
	t.Helper()
	fs := afero.NewMemMapFs()
	root := "/installs/LaunchBox"
	if err := fs.MkdirAll(root+"/Data/Platforms", 0755); err != nil {
		t.Fatal(err)
	}
	if err := fs.MkdirAll(root+"/Data/Playlists", 0755); err != nil {
		t.Fatal(err)
	}
	inst, err := launcher.Acquire(fs, "LaunchBox", root)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	return inst.(*Install)
}

func TestCheckoutPopulateCommitPlatformDoc(t *testing.T) {
	inst := newTestInstall(t)
	inst.SetImportDetails(launcher.ImportDetails{UpdateOptions: container.Options{Policy: container.NewAndExisting}})
	if err := inst.PrePlatformsImport(); err != nil {
		t.Fatalf("pre platforms: %v", err)
	}

	pd, err := inst.CheckoutPlatformDoc("Flash")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	doc := pd.(*PlatformDoc)
	doc.Games().BeginUpdatePhase()
	doc.Games().Insert(model.Game{
		BasicItem: model.BasicItem{ID: uuid.New(), Name: "Cool Game"},
		Platform:  "Flash",
	}, container.Options{Policy: container.NewAndExisting})

	if err := inst.CommitPlatformDoc(pd); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := inst.PostPlatformsImport(); err != nil {
		t.Fatalf("post platforms: %v", err)
	}

	exists, _ := afero.Exists(inst.fs, inst.platformDocPath("Flash"))
	if !exists {
		t.Fatal("expected platform doc to be written")
	}

	// re-read directly to confirm round trip
	pd2, err := readPlatformDoc(inst.fs, inst.platformDocPath("Flash"), "Flash", "Flash")
	if err != nil {
		t.Fatalf("reread: %v", err)
	}
	if pd2.games.ExistingCount() != 1 {
		t.Fatalf("expected 1 existing game after reread, got %d", pd2.games.ExistingCount())
	}
}

func TestTranslateDocNameSanitizesIllegalCharacters(t *testing.T) {
	inst := newTestInstall(t)
	got := inst.TranslateDocName(`Some:Weird/Name`, 0)
	if got == `Some:Weird/Name` {
		t.Fatal("expected illegal characters to be replaced")
	}
}

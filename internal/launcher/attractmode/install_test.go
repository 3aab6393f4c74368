package attractmode

import (
	"testing"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/retronian/fil/internal/container"
	"github.com/retronian/fil/internal/launcher"
)

func newTestInstall(t *testing.T) *Install {
	t.Helper()
	fs := afero.NewMemMapFs()
	root := "/installs/AttractMode"
	afero.WriteFile(fs, root+"/attract.cfg", []byte(""), 0644)
	inst, err := launcher.Acquire(fs, "AttractMode", root)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	return inst.(*Install)
}

func TestCheckoutPopulateCommitPlatformDoc(t *testing.T) {
	inst := newTestInstall(t)
	inst.SetImportDetails(launcher.ImportDetails{
		UpdateOptions: container.Options{Policy: container.NewAndExisting},
		ClifpPath:     "/installs/CLIFp",
	})
	if err := inst.PrePlatformsImport(); err != nil {
		t.Fatalf("pre platforms: %v", err)
	}

	pd, err := inst.CheckoutPlatformDoc("Flash")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	doc := pd.(*PlatformDoc)
	doc.Entries().BeginUpdatePhase()
	id := uuid.New()
	doc.Entries().Insert(RomEntry{ID: id, Platform: "Flash", Fields: map[string]string{"Name": id.String(), "Title": "Cool Game"}}, container.Options{Policy: container.NewAndExisting})

	if err := inst.CommitPlatformDoc(pd); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := inst.PostPlatformsImport(); err != nil {
		t.Fatalf("post platforms: %v", err)
	}

	exists, _ := afero.Exists(inst.fs, inst.platformDocPath("Flash"))
	if !exists {
		t.Fatal("expected romlist to be written")
	}
	cfgExists, _ := afero.Exists(inst.fs, inst.emulatorCfgPath("Flash"))
	if !cfgExists {
		t.Fatal("expected emulator cfg to be written")
	}

	pd2, err := readPlatformDoc(inst.fs, inst.platformDocPath("Flash"), "Flash", "Flash")
	if err != nil {
		t.Fatalf("reread: %v", err)
	}
	if pd2.entries.ExistingCount() != 1 {
		t.Fatalf("expected 1 existing entry after reread, got %d", pd2.entries.ExistingCount())
	}
}

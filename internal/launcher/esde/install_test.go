package esde

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
	root := "/installs/ES-DE"
	fs.MkdirAll(root+"/"+romsPath, 0755)
	inst, err := launcher.Acquire(fs, "ES-DE", root)
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
	doc.Games().BeginUpdatePhase()
	id := uuid.New()
	doc.Games().Insert(model.Game{
		BasicItem: model.BasicItem{ID: id, Name: "Cool Game"},
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
		t.Fatal("expected gamelist.xml to be written")
	}
	dummyExists, _ := afero.Exists(inst.fs, inst.systemRomsDir("Flash")+"/"+id.String()+dummyExtension("Flash"))
	if !dummyExists {
		t.Fatal("expected dummy rom file to be created")
	}
	systemsExists, _ := afero.Exists(inst.fs, inst.systemsDir+"/es_systems.xml")
	if !systemsExists {
		t.Fatal("expected es_systems.xml to be written")
	}

	pd2, err := readPlatformDoc(inst.fs, inst.platformDocPath("Flash"), "Flash", "Flash")
	if err != nil {
		t.Fatalf("reread: %v", err)
	}
	if pd2.Games().ExistingCount() != 1 {
		t.Fatalf("expected 1 existing game after reread, got %d", pd2.Games().ExistingCount())
	}
}

func TestTranslateDocNameLowercasesAndSanitizes(t *testing.T) {
	inst := newTestInstall(t)
	got := inst.TranslateDocName("Flash Games", 0)
	if got != "flash_games" {
		t.Fatalf("expected flash_games, got %q", got)
	}
}

package clifp

import (
	"testing"

	"github.com/spf13/afero"

	"github.com/retronian/fil/internal/backup"
)

func TestCommandBuilderPlay(t *testing.T) {
	b := CommandBuilder{Path: "/install/clifp"}
	got := b.Play("00000000-0000-0000-0000-000000000001", Options{})
	want := `/install/clifp play --id="00000000-0000-0000-0000-000000000001"`
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestCommandBuilderPlayWithFullscreen(t *testing.T) {
	b := CommandBuilder{Path: "/install/clifp"}
	got := b.Play("abc", Options{Fullscreen: true, Message: "hi"})
	want := `/install/clifp play --id="abc" --msg="hi" --fullscreen`
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestCommandBuilderRun(t *testing.T) {
	b := CommandBuilder{Path: "clifp"}
	got := b.Run("/apps/foo.exe", "--bar", Options{})
	want := `clifp run --app="/apps/foo.exe" --param="--bar"`
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestDeployWhenAbsent(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/pkg/clifp", []byte("binary"), 0755)
	afero.WriteFile(fs, "/pkg/clifp.version", []byte("1.2.0"), 0644)

	deployed, err := Deploy(fs, backup.New(fs), "/pkg/clifp", "/target/clifp")
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if !deployed {
		t.Fatal("expected deployment when target absent")
	}
	got, _ := afero.ReadFile(fs, "/target/clifp")
	if string(got) != "binary" {
		t.Fatalf("expected binary copied, got %q", got)
	}
}

func TestDeploySkipsWhenInstalledIsNewer(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/pkg/clifp", []byte("old"), 0755)
	afero.WriteFile(fs, "/pkg/clifp.version", []byte("1.0.0"), 0644)
	afero.WriteFile(fs, "/target/clifp", []byte("new"), 0755)
	afero.WriteFile(fs, "/target/clifp.version", []byte("2.0.0"), 0644)

	deployed, err := Deploy(fs, backup.New(fs), "/pkg/clifp", "/target/clifp")
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if deployed {
		t.Fatal("expected no deployment when installed version is newer")
	}
	got, _ := afero.ReadFile(fs, "/target/clifp")
	if string(got) != "new" {
		t.Fatalf("expected target untouched, got %q", got)
	}
}

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.2.0", "1.10.0", -1},
		{"2.0.0", "1.9.9", 1},
		{"0", "1.0.0", -1},
	}
	for _, c := range cases {
		if got := compareVersions(c.a, c.b); got != c.want {
			t.Errorf("compareVersions(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

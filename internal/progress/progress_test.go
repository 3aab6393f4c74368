package progress

import "testing"

func TestValueIsMonotonicAndReachesMaximum(t *testing.T) {
	m := New(10000)
	m.SetWeight(GameImport, 0.7)
	m.SetWeight(PlaylistImport, 0.3)
	m.SetMax(GameImport, 10)
	m.SetMax(PlaylistImport, 5)

	var last int64
	for i := 0; i < 10; i++ {
		m.Advance(GameImport, 1)
		v := m.Value()
		if v < last {
			t.Fatalf("value decreased: %d -> %d", last, v)
		}
		last = v
	}
	for i := 0; i < 5; i++ {
		m.Advance(PlaylistImport, 1)
	}

	if !m.Done() {
		t.Fatal("expected Done() once every weighted group reached its max")
	}
	if m.Value() != m.Maximum() {
		t.Fatalf("expected Value() == Maximum() at completion, got %d != %d", m.Value(), m.Maximum())
	}
}

func TestMaximumConstantAcrossImport(t *testing.T) {
	m := New(100)
	m.SetWeight(GameImport, 1.0)
	m.SetMax(GameImport, 4)
	before := m.Maximum()
	m.Advance(GameImport, 2)
	if m.Maximum() != before {
		t.Fatalf("maximum changed: %d -> %d", before, m.Maximum())
	}
}

func TestAdvanceDoesNotOvershootGroupMax(t *testing.T) {
	m := New(1000)
	m.SetWeight(ImageTransfer, 1.0)
	m.SetMax(ImageTransfer, 3)
	m.Advance(ImageTransfer, 10)
	if !m.Done() {
		t.Fatal("expected group clamp to still reach Done()")
	}
}

func TestZeroWeightGroupIgnored(t *testing.T) {
	m := New(1000)
	m.SetWeight(GameImport, 1.0)
	m.SetMax(GameImport, 1)
	m.Advance(GameImport, 1)
	if !m.Done() {
		t.Fatal("expected Done() with only one weighted group satisfied")
	}
}

func TestEmptyGroupContributesImmediately(t *testing.T) {
	m := New(1000)
	m.SetWeight(GameImport, 0.5)
	m.SetWeight(PlaylistImport, 0.5)
	m.SetMax(GameImport, 0)
	m.SetMax(PlaylistImport, 2)
	m.Advance(PlaylistImport, 2)
	if !m.Done() {
		t.Fatal("expected empty group to count as already complete")
	}
}

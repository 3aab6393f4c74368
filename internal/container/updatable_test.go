package container

import "testing"

type stubGame struct {
	id    string
	title string
}

func keyOf(g stubGame) string { return g.id }
func merge(existing, incoming stubGame) stubGame {
	incoming.title = incoming.title
	return incoming
}

func TestThreeWayMergeNewAndExistingRemoveObsolete(t *testing.T) {
	c := New(keyOf, merge)
	c.InsertExisting(stubGame{id: "A", title: "A-old"})
	c.InsertExisting(stubGame{id: "C", title: "C-old"})
	c.BeginUpdatePhase()

	opts := Options{Policy: NewAndExisting, RemoveObsolete: true}
	c.Insert(stubGame{id: "A", title: "A-new"}, opts)
	c.Insert(stubGame{id: "B", title: "B-new"}, opts)

	final := c.Final(opts)
	if len(final) != 2 {
		t.Fatalf("expected 2 final entries, got %d", len(final))
	}
	byID := map[string]stubGame{}
	for _, g := range final {
		byID[g.id] = g
	}
	if byID["A"].title != "A-new" {
		t.Errorf("expected A to be updated to A-new, got %s", byID["A"].title)
	}
	if _, ok := byID["C"]; ok {
		t.Errorf("expected C to be dropped under removeObsolete")
	}
	removal := c.ExistingForRemoval()
	if len(removal) != 1 || removal[0].id != "C" {
		t.Errorf("expected only C left for removal, got %v", removal)
	}
}

func TestThreeWayMergeOnlyNewKeepExisting(t *testing.T) {
	c := New(keyOf, merge)
	c.InsertExisting(stubGame{id: "A", title: "A-old"})
	c.InsertExisting(stubGame{id: "C", title: "C-old"})
	c.BeginUpdatePhase()

	opts := Options{Policy: OnlyNew, RemoveObsolete: false}
	c.Insert(stubGame{id: "A", title: "A-new"}, opts)
	c.Insert(stubGame{id: "B", title: "B-new"}, opts)

	final := c.Final(opts)
	if len(final) != 3 {
		t.Fatalf("expected 3 final entries (S union D\\matched), got %d", len(final))
	}
	byID := map[string]stubGame{}
	for _, g := range final {
		byID[g.id] = g
	}
	if byID["A"].title != "A-old" {
		t.Errorf("expected A's payload retained on collision, got %s", byID["A"].title)
	}
	if byID["C"].title != "C-old" {
		t.Errorf("expected C retained (not removeObsolete), got %v", byID["C"])
	}
	if byID["B"].title != "B-new" {
		t.Errorf("expected B from source, got %v", byID["B"])
	}
}

func TestEraseIf(t *testing.T) {
	c := New(keyOf, merge)
	c.InsertExisting(stubGame{id: "A", title: "keep"})
	c.InsertExisting(stubGame{id: "B", title: "drop"})
	c.EraseIf(func(g stubGame) bool { return g.title == "drop" })
	if c.ExistingCount() != 1 {
		t.Errorf("expected 1 remaining after erase, got %d", c.ExistingCount())
	}
	if !c.ContainsExisting("A") {
		t.Errorf("expected A to survive erase")
	}
}

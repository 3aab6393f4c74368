// Package doc defines the abstract DataDoc lifecycle and the two reader/
// writer codec families launcher adapters build on: structured XML
// (LaunchBox, ES-DE) and line-oriented text (AttractMode). Grounded on
// the teacher's internal/dat package (encoding/xml streaming, bufio
// comment-skipping) but generalized per spec.md §4.3's "Per-launcher
// format code is specified only via the contract each launcher adapter
// must implement" — this package supplies that contract plus reusable
// codec primitives, not a fixed schema.
package doc

import "fmt"

// Type distinguishes the three kinds of document an install manages.
type Type int

const (
	Platform Type = iota
	Playlist
	Config
)

func (t Type) String() string {
	switch t {
	case Platform:
		return "Platform"
	case Playlist:
		return "Playlist"
	case Config:
		return "Config"
	default:
		return "Unknown"
	}
}

// Identifier names a document uniquely within an install: its type plus
// the (already-translated) document name, e.g. (Platform, "Flash").
type Identifier struct {
	Type Type
	Name string
}

func (id Identifier) String() string {
	return fmt.Sprintf("%s/%s", id.Type, id.Name)
}

// Doc is the minimal surface every concrete document exposes. The
// checkout/commit lifecycle itself (created -> populated -> mutated ->
// finalized -> committed) is driven by the owning launcher.Install, not
// by this interface: a Doc only needs to say who it is and know how to
// finalize itself before being written.
type Doc interface {
	Identifier() Identifier
	// Finalize runs launcher-specific closing logic (e.g. dropping
	// obsolete entries, reclaiming free integer IDs) before the writer
	// emits the document. It must be idempotent-safe to call exactly
	// once, per the "every leased document must be committed or released
	// exactly once" invariant.
	Finalize() error
}

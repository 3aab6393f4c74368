package launcher

import (
	"fmt"
	"sort"
	"sync"

	"github.com/spf13/afero"
)

// Factory constructs and validates an Install rooted at path on fs. It
// returns (nil, err) when path does not look like a valid install for
// that launcher (e.g. a required top-level file or directory is
// missing) — this is the "acquire + validate" step spec.md describes
// for locating a launcher's install directory.
type Factory func(fs afero.Fs, path string) (Install, error)

// Registry maps a launcher's name to the factory that builds it.
// Adapters register themselves from an init() in their package, the
// way the teacher's cmd/romu/main.go wires subcommands by name.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

var global = &Registry{factories: make(map[string]Factory)}

// Register adds name's factory to the global registry. Calling
// Register twice for the same name is a programming error and panics,
// matching flag.Var's own double-registration behavior.
func Register(name string, f Factory) {
	global.mu.Lock()
	defer global.mu.Unlock()
	if _, exists := global.factories[name]; exists {
		panic(fmt.Sprintf("launcher: Register called twice for %q", name))
	}
	global.factories[name] = f
}

// Names returns every registered launcher name, sorted.
func Names() []string {
	global.mu.RLock()
	defer global.mu.RUnlock()
	names := make([]string, 0, len(global.factories))
	for n := range global.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Acquire builds and validates the named launcher's Install rooted at
// path. An unrecognized name is a caller error, not a partial match.
func Acquire(fs afero.Fs, name, path string) (Install, error) {
	global.mu.RLock()
	f, ok := global.factories[name]
	global.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("launcher: no installation type registered as %q", name)
	}
	return f(fs, path)
}

// Package container implements the three-way updatable set that backs
// every importable launcher document: entries read from disk ("existing"),
// entries present in both the source catalog and disk ("updated"), and
// entries only the source catalog knows about ("new").
package container

// UpdatePolicy governs how Insert reconciles an incoming item against an
// existing one of the same identity.
type UpdatePolicy int

const (
	// OnlyNew keeps the on-disk payload verbatim when an incoming item's
	// identity already exists; only the new/unmatched entries get the
	// source catalog's data.
	OnlyNew UpdatePolicy = iota
	// NewAndExisting overwrites the on-disk payload with the incoming
	// item's fields whenever identities collide.
	NewAndExisting
)

// Options configures a single container's update semantics for one
// import.
type Options struct {
	Policy         UpdatePolicy
	RemoveObsolete bool
}

// Container is the generic three-way set. K is the item's declared
// identity (a uuid.UUID for games/add-apps, a composite struct for
// launcher-specific items such as platform folders). T is the item type.
type Container[K comparable, T any] struct {
	keyOf    func(T) K
	merge    func(existing, incoming T) T
	existing map[K]T
	updated  map[K]T
	new_     map[K]T
	initPhase bool
}

// New constructs an empty container. keyOf extracts an item's identity.
// merge produces the payload to keep in the "updated" bucket when policy
// is NewAndExisting and both an existing and incoming item share a key;
// it is not called under OnlyNew, where the existing payload is kept
// verbatim.
func New[K comparable, T any](keyOf func(T) K, merge func(existing, incoming T) T) *Container[K, T] {
	return &Container[K, T]{
		keyOf:     keyOf,
		merge:     merge,
		existing:  make(map[K]T),
		updated:   make(map[K]T),
		new_:      make(map[K]T),
		initPhase: true,
	}
}

// InsertExisting adds an item read from disk at checkout time. Valid only
// during the init (read) phase; see BeginUpdatePhase.
func (c *Container[K, T]) InsertExisting(item T) {
	c.existing[c.keyOf(item)] = item
}

// BeginUpdatePhase transitions the container from the init/read phase to
// the update phase: subsequent Insert calls reconcile against existing
// entries rather than populating them.
func (c *Container[K, T]) BeginUpdatePhase() {
	c.initPhase = false
}

// Insert dispatches by phase: during init it behaves like InsertExisting;
// during update it migrates a matching existing entry into "updated"
// (replacing its payload under NewAndExisting, retaining it verbatim
// otherwise) or, absent a match, adds the item to "new".
func (c *Container[K, T]) Insert(item T, opts Options) {
	if c.initPhase {
		c.InsertExisting(item)
		return
	}

	key := c.keyOf(item)
	if existing, ok := c.existing[key]; ok {
		delete(c.existing, key)
		if opts.Policy == NewAndExisting {
			c.updated[key] = c.merge(existing, item)
		} else {
			c.updated[key] = existing
		}
		return
	}
	if existing, ok := c.updated[key]; ok {
		if opts.Policy == NewAndExisting {
			c.updated[key] = c.merge(existing, item)
		}
		return
	}
	c.new_[key] = item
}

func (c *Container[K, T]) ContainsExisting(key K) bool { _, ok := c.existing[key]; return ok }
func (c *Container[K, T]) ContainsUpdated(key K) bool  { _, ok := c.updated[key]; return ok }
func (c *Container[K, T]) ContainsNew(key K) bool      { _, ok := c.new_[key]; return ok }

func (c *Container[K, T]) FindExisting(key K) (T, bool) { v, ok := c.existing[key]; return v, ok }
func (c *Container[K, T]) FindUpdated(key K) (T, bool)  { v, ok := c.updated[key]; return v, ok }
func (c *Container[K, T]) FindNew(key K) (T, bool)      { v, ok := c.new_[key]; return v, ok }

func (c *Container[K, T]) RemoveExisting(key K) { delete(c.existing, key) }
func (c *Container[K, T]) RemoveUpdated(key K)  { delete(c.updated, key) }
func (c *Container[K, T]) RemoveNew(key K)      { delete(c.new_, key) }

func (c *Container[K, T]) ForEachExisting(fn func(K, T)) { forEach(c.existing, fn) }
func (c *Container[K, T]) ForEachUpdated(fn func(K, T))  { forEach(c.updated, fn) }
func (c *Container[K, T]) ForEachNew(fn func(K, T))      { forEach(c.new_, fn) }

func forEach[K comparable, T any](m map[K]T, fn func(K, T)) {
	for k, v := range m {
		fn(k, v)
	}
}

// EraseIf removes every item across all three buckets for which
// predicate returns true.
func (c *Container[K, T]) EraseIf(predicate func(T) bool) {
	eraseIf(c.existing, predicate)
	eraseIf(c.updated, predicate)
	eraseIf(c.new_, predicate)
}

func eraseIf[K comparable, T any](m map[K]T, predicate func(T) bool) {
	for k, v := range m {
		if predicate(v) {
			delete(m, k)
		}
	}
}

// ExistingCount, UpdatedCount, NewCount report bucket sizes, mainly for
// tests and progress weighting.
func (c *Container[K, T]) ExistingCount() int { return len(c.existing) }
func (c *Container[K, T]) UpdatedCount() int  { return len(c.updated) }
func (c *Container[K, T]) NewCount() int      { return len(c.new_) }

// Final aggregates the buckets a commit should write: updated and new
// always contribute; existing contributes only when opts.RemoveObsolete
// is clear (otherwise those entries are the deletion set, see
// ExistingForRemoval).
func (c *Container[K, T]) Final(opts Options) []T {
	out := make([]T, 0, len(c.updated)+len(c.new_)+len(c.existing))
	for _, v := range c.updated {
		out = append(out, v)
	}
	for _, v := range c.new_ {
		out = append(out, v)
	}
	if !opts.RemoveObsolete {
		for _, v := range c.existing {
			out = append(out, v)
		}
	}
	return out
}

// ExistingForRemoval returns the items left in "existing" after the
// update phase — meaningful only when RemoveObsolete is set, in which
// case these are the entries the document writer must drop.
func (c *Container[K, T]) ExistingForRemoval() []T {
	out := make([]T, 0, len(c.existing))
	for _, v := range c.existing {
		out = append(out, v)
	}
	return out
}

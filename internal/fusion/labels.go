package fusion

// DefaultBaseOffset places minted label ids above the class spaces of the
// bundled local detector models.
const DefaultBaseOffset = 150

// Registry maintains a bidirectional name/id mapping for one fusion run.
// Local model class ids pass through untranslated; textual names from the
// vendor API or recognized text get fresh ids minted above the base offset
// so they never collide with local class spaces. A Registry is request
// scoped and must not be shared across runs.
type Registry struct {
	baseOffset int
	next       int
	byName     map[string]int
	byID       map[int]string
}

// NewRegistry creates an empty registry minting ids above baseOffset.
// A non-positive baseOffset falls back to DefaultBaseOffset.
func NewRegistry(baseOffset int) *Registry {
	if baseOffset <= 0 {
		baseOffset = DefaultBaseOffset
	}
	return &Registry{
		baseOffset: baseOffset,
		byName:     make(map[string]int),
		byID:       make(map[int]string),
	}
}

// ResolveName returns the id for a textual name, minting a fresh one on
// first encounter. Resolving the same name repeatedly within a run always
// returns the same id.
func (r *Registry) ResolveName(name string) int {
	if id, ok := r.byName[name]; ok {
		return id
	}
	r.next++
	id := r.baseOffset + r.next
	r.byName[name] = id
	r.byID[id] = name
	return id
}

// ResolveClass records a local model's class id together with its name and
// returns the id unchanged. Recording the pairing lets later name lookups
// from other sources land on the same id.
func (r *Registry) ResolveClass(classID int, name string) int {
	if existing, ok := r.byName[name]; ok && existing != classID {
		// First binding wins; the local id still passes through.
		if _, taken := r.byID[classID]; !taken {
			r.byID[classID] = name
		}
		return classID
	}
	if name != "" {
		r.byName[name] = classID
		r.byID[classID] = name
	}
	return classID
}

// Name returns the name recorded for an id, if any.
func (r *Registry) Name(id int) (string, bool) {
	name, ok := r.byID[id]
	return name, ok
}

// Len returns the number of recorded name/id pairs.
func (r *Registry) Len() int { return len(r.byName) }

package profile

// Unknown is the value of a schema key that has not been resolved yet.
const Unknown = ""

// Default schema for a job-search session. Required keys must be resolved
// before a search query can be issued; optional keys are collected
// opportunistically and never block completeness.
var (
	DefaultRequiredKeys = []string{"company name", "job title"}
	DefaultOptionalKeys = []string{"location", "level", "requirements"}
)

// Tracker holds the current mapping of schema keys to values. Every key in
// the required+optional schema is always present in the mapping; a key with
// no resolved value holds Unknown. Tracker is not safe for concurrent use;
// the owning dialogue controller serializes access.
type Tracker struct {
	required []string
	optional []string
	values   map[string]string

	// preserveKnown, when set, keeps an already-resolved value when a merge
	// explicitly reports the key as unknown. The default mirrors the
	// historical behavior: merges overwrite unconditionally.
	preserveKnown bool
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// PreserveKnown prevents merges from erasing a resolved value with Unknown.
func PreserveKnown() TrackerOption {
	return func(t *Tracker) { t.preserveKnown = true }
}

// NewTracker builds a tracker for the given schema, with every key set to
// Unknown and then overlaid with any schema keys present in seed.
func NewTracker(required, optional []string, seed map[string]string, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		required: append([]string(nil), required...),
		optional: append([]string(nil), optional...),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.Init(seed)
	return t
}

// Init replaces the current mapping entirely: every schema key is reset to
// Unknown, then seed values for schema keys are overlaid.
func (t *Tracker) Init(seed map[string]string) {
	t.values = make(map[string]string, len(t.required)+len(t.optional))
	for _, key := range t.required {
		t.values[key] = Unknown
	}
	for _, key := range t.optional {
		t.values[key] = Unknown
	}
	for key, value := range seed {
		if _, ok := t.values[key]; ok && value != Unknown {
			t.values[key] = value
		}
	}
}

// Merge overlays partial onto the mapping. Keys outside the schema are
// ignored. A key explicitly reported as Unknown overwrites a resolved value
// unless the tracker was built with PreserveKnown.
func (t *Tracker) Merge(partial map[string]string) {
	for key, value := range partial {
		current, ok := t.values[key]
		if !ok {
			continue
		}
		if t.preserveKnown && value == Unknown && current != Unknown {
			continue
		}
		t.values[key] = value
	}
}

// Complete reports whether every required key has a resolved value.
func (t *Tracker) Complete() bool {
	for _, key := range t.required {
		if t.values[key] == Unknown {
			return false
		}
	}
	return true
}

// Snapshot returns a copy of the full current mapping, required and
// optional keys included.
func (t *Tracker) Snapshot() map[string]string {
	out := make(map[string]string, len(t.values))
	for key, value := range t.values {
		out[key] = value
	}
	return out
}

// Missing returns the schema keys still set to Unknown, required keys first,
// in schema order.
func (t *Tracker) Missing() []string {
	var missing []string
	for _, key := range t.required {
		if t.values[key] == Unknown {
			missing = append(missing, key)
		}
	}
	for _, key := range t.optional {
		if t.values[key] == Unknown {
			missing = append(missing, key)
		}
	}
	return missing
}

// RequiredKeys returns the required key list in schema order.
func (t *Tracker) RequiredKeys() []string {
	return append([]string(nil), t.required...)
}

// OptionalKeys returns the optional key list in schema order.
func (t *Tracker) OptionalKeys() []string {
	return append([]string(nil), t.optional...)
}

package flink

import "bytes"

// Backend is the keyed-state registry of one parallel worker. It owns
// a contiguous key-group range, a key codec shared by all tables, and
// zero or more state tables looked up by name.
//
// All access follows a single-writer model, see the package docs.
type Backend struct {
	krange   KeyGroupRange
	total    int
	keyCodec Codec
	closers  *CloserRegistry

	tables map[string]*StateTable
	names  []string // registration order, determines dense state ids
}

// NewBackend creates an empty backend owning the given key-group range
// out of totalKeyGroups. Streams opened by snapshots and restores are
// tracked in closers for the duration of the operation; a nil registry
// disables tracking.
func NewBackend(keyCodec Codec, totalKeyGroups int, r KeyGroupRange, closers *CloserRegistry) *Backend {
	return &Backend{
		krange:   r,
		total:    totalKeyGroups,
		keyCodec: keyCodec,
		closers:  closers,
		tables:   make(map[string]*StateTable),
	}
}

// NewBackendFromSnapshots creates a backend and populates it from
// prior snapshots before it is returned. The snapshots may cover
// key-group ranges differing from r, which is how restore after a
// parallelism change works; key groups outside r are never read.
// Nil snapshot entries are skipped.
func NewBackendFromSnapshots(keyCodec Codec, totalKeyGroups int, r KeyGroupRange, closers *CloserRegistry, codecs *CodecRegistry, snapshots []*Snapshot) (*Backend, error) {
	b := NewBackend(keyCodec, totalKeyGroups, r, closers)
	if err := b.restore(snapshots, codecs); err != nil {
		return nil, err
	}
	return b, nil
}

// KeyGroupRange returns the range of key groups the backend owns.
func (b *Backend) KeyGroupRange() KeyGroupRange { return b.krange }

// NumRegisteredStates returns the number of named states.
func (b *Backend) NumRegisteredStates() int { return len(b.names) }

// StateTable returns the table registered under name, creating it on
// first use. Repeated calls with the same name return the identical
// table; the codecs are fixed at first creation and ignored
// afterwards.
func (b *Backend) StateTable(name string, nsCodec, valCodec Codec) *StateTable {
	if t, ok := b.tables[name]; ok {
		return t
	}
	t := newStateTable(b.krange, nsCodec, valCodec)
	b.tables[name] = t
	b.names = append(b.names, name)
	return t
}

// KeyGroupForKey computes the key group a key belongs to by hashing
// its encoded form.
func (b *Backend) KeyGroupForKey(key interface{}) (int, error) {
	var buf bytes.Buffer
	if err := b.keyCodec.Serialize(key, &buf); err != nil {
		return 0, err
	}
	return AssignToKeyGroup(buf.Bytes(), b.total), nil
}

// Put stores a value for a key, routing it to the key group derived
// from the encoded key.
func (b *Backend) Put(t *StateTable, namespace, key, value interface{}) error {
	kg, err := b.KeyGroupForKey(key)
	if err != nil {
		return err
	}
	return t.Put(kg, namespace, key, value)
}

// Get reads the value for a key, see Put for the key-group routing.
func (b *Backend) Get(t *StateTable, namespace, key interface{}) (interface{}, bool, error) {
	kg, err := b.KeyGroupForKey(key)
	if err != nil {
		return nil, false, err
	}
	return t.Get(kg, namespace, key)
}

// Remove deletes the value for a key, see Put for the key-group
// routing.
func (b *Backend) Remove(t *StateTable, namespace, key interface{}) error {
	kg, err := b.KeyGroupForKey(key)
	if err != nil {
		return err
	}
	return t.Remove(kg, namespace, key)
}

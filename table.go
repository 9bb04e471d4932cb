package flink

import "fmt"

// NamespaceMap holds the state of one key group within one table:
// namespace -> key -> value. Namespaces and keys are the live values
// produced by their codecs and must be comparable.
type NamespaceMap map[interface{}]map[interface{}]interface{}

// StateTable is the partitioned storage of one named state. It holds
// an optional NamespaceMap per owned key group; an absent slot is
// legal and distinct from an empty one. The namespace and value codecs
// are fixed at creation.
type StateTable struct {
	krange   KeyGroupRange
	nsCodec  Codec
	valCodec Codec
	slots    []NamespaceMap
}

func newStateTable(r KeyGroupRange, nsCodec, valCodec Codec) *StateTable {
	return &StateTable{
		krange:   r,
		nsCodec:  nsCodec,
		valCodec: valCodec,
		slots:    make([]NamespaceMap, r.Count()),
	}
}

// KeyGroupRange returns the range of key groups the table owns.
func (t *StateTable) KeyGroupRange() KeyGroupRange { return t.krange }

// NamespaceCodec returns the codec for namespaces, fixed at creation.
func (t *StateTable) NamespaceCodec() Codec { return t.nsCodec }

// ValueCodec returns the codec for values, fixed at creation.
func (t *StateTable) ValueCodec() Codec { return t.valCodec }

func (t *StateTable) slot(keyGroup int) (int, error) {
	if !t.krange.Contains(keyGroup) {
		return 0, fmt.Errorf("%w: key group %d is outside the owned range %s", ErrKeyGroupNotOwned, keyGroup, t.krange)
	}
	return keyGroup - t.krange.Start, nil
}

// Mapping returns the namespace mapping of a key group, nil when the
// slot is absent.
func (t *StateTable) Mapping(keyGroup int) (NamespaceMap, error) {
	i, err := t.slot(keyGroup)
	if err != nil {
		return nil, err
	}
	return t.slots[i], nil
}

// SetMapping replaces the namespace mapping of a key group wholesale.
// Used during restore; addressing a key group outside the owned range
// fails rather than dropping data.
func (t *StateTable) SetMapping(keyGroup int, m NamespaceMap) error {
	i, err := t.slot(keyGroup)
	if err != nil {
		return err
	}
	t.slots[i] = m
	return nil
}

// Get returns the value stored under (keyGroup, namespace, key). The
// second return is false when no value is present.
func (t *StateTable) Get(keyGroup int, namespace, key interface{}) (interface{}, bool, error) {
	i, err := t.slot(keyGroup)
	if err != nil {
		return nil, false, err
	}
	entries, ok := t.slots[i][namespace]
	if !ok {
		return nil, false, nil
	}
	v, ok := entries[key]
	return v, ok, nil
}

// Put stores a value under (keyGroup, namespace, key), materializing
// an empty slot on first write.
func (t *StateTable) Put(keyGroup int, namespace, key, value interface{}) error {
	i, err := t.slot(keyGroup)
	if err != nil {
		return err
	}
	m := t.slots[i]
	if m == nil {
		m = make(NamespaceMap)
		t.slots[i] = m
	}
	entries := m[namespace]
	if entries == nil {
		entries = make(map[interface{}]interface{})
		m[namespace] = entries
	}
	entries[key] = value
	return nil
}

// Remove deletes the value under (keyGroup, namespace, key), dropping
// the namespace once its last entry is gone.
func (t *StateTable) Remove(keyGroup int, namespace, key interface{}) error {
	i, err := t.slot(keyGroup)
	if err != nil {
		return err
	}
	entries, ok := t.slots[i][namespace]
	if !ok {
		return nil
	}
	delete(entries, key)
	if len(entries) == 0 {
		delete(t.slots[i], namespace)
	}
	return nil
}

package flink

import (
	"fmt"
	"io"
)

type stateDescriptors struct {
	namespace CodecDescriptor
	value     CodecDescriptor
}

// restore merges prior snapshots into the (still unexposed) backend.
// Nil entries are skipped. Tables are created on first encounter of a
// name; a later snapshot re-declaring the same name reuses the
// existing table, but only if its codec descriptors match byte for
// byte.
func (b *Backend) restore(snapshots []*Snapshot, codecs *CodecRegistry) error {
	seen := make(map[string]stateDescriptors)
	for _, snap := range snapshots {
		if snap == nil {
			continue
		}
		if err := b.restoreSnapshot(snap, codecs, seen); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) restoreSnapshot(snap *Snapshot, codecs *CodecRegistry, seen map[string]stateDescriptors) (err error) {
	src, err := snap.Handle.OpenRandomRead()
	if err != nil {
		return err
	}
	b.closers.Register(src)
	defer func() {
		b.closers.Unregister(src)
		if cerr := src.Close(); err == nil {
			err = cerr
		}
	}()

	// header: reconstruct codecs, create missing tables, and map this
	// artifact's dense ids to live tables.
	numStates, err := readUint16(src)
	if err != nil {
		return err
	}
	byID := make([]*StateTable, numStates)
	for i := range byID {
		name, err := readUTF(src)
		if err != nil {
			return err
		}
		nsDesc, err := readDescriptor(src)
		if err != nil {
			return err
		}
		valDesc, err := readDescriptor(src)
		if err != nil {
			return err
		}

		if prev, ok := seen[name]; ok {
			if !prev.namespace.equal(nsDesc) || !prev.value.equal(valDesc) {
				return fmt.Errorf("%w: state %q re-declared with different descriptors", ErrCodecMismatch, name)
			}
		} else {
			seen[name] = stateDescriptors{namespace: nsDesc, value: valDesc}
		}

		t, ok := b.tables[name]
		if !ok {
			nsCodec, err := codecs.Reconstruct(nsDesc)
			if err != nil {
				return err
			}
			valCodec, err := codecs.Reconstruct(valDesc)
			if err != nil {
				return err
			}
			t = b.StateTable(name, nsCodec, valCodec)
		}
		byID[i] = t
	}

	// blocks: visit only key groups both written by the artifact and
	// owned by this backend, seeking directly to each recorded offset.
	r := snap.Offsets.KeyGroupRange().Intersect(b.krange)
	for kg := r.Start; kg <= r.End; kg++ {
		offset, ok := snap.Offsets.Offset(kg)
		if !ok {
			return fmt.Errorf("%w: no offset recorded for key group %d", ErrCorruptArtifact, kg)
		}
		if _, err := src.Seek(offset, io.SeekStart); err != nil {
			return err
		}

		written, err := readInt32(src)
		if err != nil {
			return err
		}
		if int(written) != kg {
			return fmt.Errorf("%w: expected key group %d at offset %d, found %d", ErrCorruptArtifact, kg, offset, written)
		}

		for i := 0; i < int(numStates); i++ {
			id, err := readUint16(src)
			if err != nil {
				return err
			}
			if int(id) >= len(byID) {
				return fmt.Errorf("%w: state id %d out of range in key group %d", ErrCorruptArtifact, id, kg)
			}
			present, err := readUint8(src)
			if err != nil {
				return err
			}
			if present == 0 {
				continue
			}
			if err := byID[id].readKeyGroup(src, b.keyCodec, kg); err != nil {
				return err
			}
		}
	}
	return nil
}

// readKeyGroup reads one present state record into the slot for
// keyGroup, materializing it if needed and merging into entries left
// by earlier artifacts.
func (t *StateTable) readKeyGroup(r io.Reader, keyCodec Codec, keyGroup int) error {
	m, err := t.Mapping(keyGroup)
	if err != nil {
		return err
	}
	if m == nil {
		m = make(NamespaceMap)
		if err := t.SetMapping(keyGroup, m); err != nil {
			return err
		}
	}

	numNamespaces, err := readInt32(r)
	if err != nil {
		return err
	}
	for j := int32(0); j < numNamespaces; j++ {
		ns, err := t.nsCodec.Deserialize(r)
		if err != nil {
			return err
		}
		entries := m[ns]
		if entries == nil {
			entries = make(map[interface{}]interface{})
			m[ns] = entries
		}

		numEntries, err := readInt32(r)
		if err != nil {
			return err
		}
		for l := int32(0); l < numEntries; l++ {
			k, err := keyCodec.Deserialize(r)
			if err != nil {
				return err
			}
			v, err := t.valCodec.Deserialize(r)
			if err != nil {
				return err
			}
			entries[k] = v
		}
	}
	return nil
}

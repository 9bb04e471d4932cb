package flink

import (
	"fmt"
	"io"
)

// Snapshot is the result of one checkpoint: a finalized, immutable
// stream handle plus the offset index addressing each key group's
// block within it. CheckpointID and Timestamp are opaque provenance
// passed through from the snapshot request.
type Snapshot struct {
	CheckpointID uint64
	Timestamp    int64
	Offsets      *KeyGroupRangeOffsets
	Handle       StreamHandle
}

// Snapshot serializes the full registry into one artifact written to a
// stream obtained from factory. It returns nil without opening a sink
// when no states are registered; checkpointing empty state is a no-op,
// not I/O.
//
// The walk reads table contents without mutating them and completes
// synchronously; the handle inside the returned Snapshot is published
// only after the stream has been finalized.
func (b *Backend) Snapshot(checkpointID uint64, timestamp int64, factory StreamFactory) (*Snapshot, error) {
	if len(b.names) == 0 {
		return nil, nil
	}
	if len(b.names) > MaxRegisteredStates {
		return nil, fmt.Errorf("%w: %d registered, at most %d supported", ErrTooManyStates, len(b.names), MaxRegisteredStates)
	}

	out, err := factory.Create(checkpointID, timestamp)
	if err != nil {
		return nil, err
	}
	b.closers.Register(out)
	snap, err := b.writeSnapshot(out, checkpointID, timestamp)
	b.closers.Unregister(out)
	if err != nil {
		_ = out.Close()
		return nil, err
	}
	return snap, nil
}

func (b *Backend) writeSnapshot(out OutputStream, checkpointID uint64, timestamp int64) (*Snapshot, error) {
	// header: state count, then per state its name and the
	// self-describing descriptors of its namespace and value codecs.
	// The position in this sequence becomes the state's dense id.
	if err := writeUint16(out, uint16(len(b.names))); err != nil {
		return nil, err
	}
	for _, name := range b.names {
		t := b.tables[name]
		if err := writeUTF(out, name); err != nil {
			return nil, err
		}
		if err := writeDescriptor(out, t.nsCodec.Descriptor()); err != nil {
			return nil, err
		}
		if err := writeDescriptor(out, t.valCodec.Descriptor()); err != nil {
			return nil, err
		}
	}

	// one block per owned key group, ascending, offset recorded first
	offsets := NewKeyGroupRangeOffsets(b.krange)
	for kg := b.krange.Start; kg <= b.krange.End; kg++ {
		pos, err := out.Position()
		if err != nil {
			return nil, err
		}
		if err := offsets.SetOffset(kg, pos); err != nil {
			return nil, err
		}
		if err := writeInt32(out, int32(kg)); err != nil {
			return nil, err
		}
		for id, name := range b.names {
			if err := writeUint16(out, uint16(id)); err != nil {
				return nil, err
			}
			if err := b.tables[name].writeKeyGroup(out, b.keyCodec, kg); err != nil {
				return nil, err
			}
		}
	}

	handle, err := out.CloseAndFinalize()
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		CheckpointID: checkpointID,
		Timestamp:    timestamp,
		Offsets:      offsets,
		Handle:       handle,
	}, nil
}

// writeKeyGroup writes one state record: a presence flag and, for a
// materialized slot, its namespaces and entries.
func (t *StateTable) writeKeyGroup(w io.Writer, keyCodec Codec, keyGroup int) error {
	m, err := t.Mapping(keyGroup)
	if err != nil {
		return err
	}
	if m == nil {
		return writeUint8(w, 0)
	}
	if err := writeUint8(w, 1); err != nil {
		return err
	}

	if err := writeInt32(w, int32(len(m))); err != nil {
		return err
	}
	for ns, entries := range m {
		if err := t.nsCodec.Serialize(ns, w); err != nil {
			return err
		}
		if err := writeInt32(w, int32(len(entries))); err != nil {
			return err
		}
		for k, v := range entries {
			if err := keyCodec.Serialize(k, w); err != nil {
				return err
			}
			if err := t.valCodec.Serialize(v, w); err != nil {
				return err
			}
		}
	}
	return nil
}

package flink

import "errors"

// MaxRegisteredStates is the largest number of named states a single
// backend may hold. State ids are written as uint16, which makes the
// ceiling an explicit property of the checkpoint format rather than an
// incidental type limit.
const MaxRegisteredStates = 1<<16 - 1

// ErrTooManyStates is returned by a snapshot when the registry exceeds
// MaxRegisteredStates. The check runs before any sink is opened.
var ErrTooManyStates = errors.New("flink: too many registered states")

// ErrKeyGroupNotOwned is returned when a key group outside the owned
// range is addressed.
var ErrKeyGroupNotOwned = errors.New("flink: key group not owned")

// ErrCorruptArtifact is returned by a restore when data read back from
// an artifact contradicts its offset index.
var ErrCorruptArtifact = errors.New("flink: corrupt checkpoint artifact")

// ErrCodecMismatch is returned by a restore when two artifacts declare
// the same state name with different codec descriptors.
var ErrCodecMismatch = errors.New("flink: conflicting codec descriptors")

// ErrUnknownCodec is returned when a codec descriptor names a codec
// that has no registered reconstructor.
var ErrUnknownCodec = errors.New("flink: unknown codec")

/*
Package flink implements an in-memory keyed-state store with a
key-group-partitioned checkpoint format, as used by stream-processing
runtimes to persist and recover per-key application state.

State is sharded into a globally fixed number of key groups. Each
backend instance owns a contiguous sub-range of them and holds, for
every registered named state, a mapping from (key group, namespace,
key) to an opaque value. A snapshot serializes the whole registry into
one artifact; a restore rebuilds the registry from one or more
artifacts, possibly written under a different key-group distribution.

Data Structure Documentation

Artifact

An artifact contains a header followed by one block per owned key
group. Block offsets are not part of the byte stream; they travel in
the snapshot's key-group offset index, which allows a restore to seek
directly to any key group without scanning.

    Artifact layout:
    +--------+----------------+---------+--------------+
    | header | block kg start |   ...   | block kg end |
    +--------+----------------+---------+--------------+

Header

The header assigns each state name a dense id in registration order
and records the self-describing codec descriptors of its namespace and
value codecs. All integers are big-endian.

    +-----------------------+-----------------+-----------------+------------------+-------+
    | state count (2 bytes) | name 1 (string) | ns descriptor 1 | val descriptor 1 |  ...  |
    +-----------------------+-----------------+-----------------+------------------+-------+

    String:     length (2 bytes) followed by UTF-8 bytes.
    Descriptor: codec name (string), config length (4 bytes), config bytes.

Block

A block starts with its own key-group index, which a restore reads
back and verifies against the offset it seeked to. It is followed by
one record per registered state, in header order.

    +------------------------+----------------+----------------+-------+
    | key group ix (4 bytes) | state record 1 | state record 2 |  ...  |
    +------------------------+----------------+----------------+-------+

    State record:
    +--------------------+------------------+---------------------------------------+
    | state id (2 bytes) | present (1 byte) | if present: namespace count (4 bytes) |
    |                    |                  | then per namespace its encoded bytes, |
    |                    |                  | entry count (4 bytes) and per entry   |
    |                    |                  | the encoded key and value bytes       |
    +--------------------+------------------+---------------------------------------+

Namespace, key and value bytes are produced by the pluggable codecs
and must be self-delimiting.

Concurrency

The backend follows a single-writer model: mutation, snapshot and
restore all run on one logical thread of control. A snapshot is a
synchronous in-memory walk, a restore runs once before the backend is
handed to callers, and neither takes locks.
*/
package flink

package flink

import (
	"bytes"
	"fmt"
	"io"

	"github.com/golang/snappy"
)

// Codec is the pluggable encode/decode capability for one namespace,
// key or value type. Encodings must be self-delimiting, the artifact
// format carries no per-entry framing of its own. Codecs used for
// namespaces and keys must produce comparable Go values on
// Deserialize, as those become map keys inside a state table.
type Codec interface {
	Serialize(v interface{}, w io.Writer) error
	Deserialize(r io.Reader) (interface{}, error)

	// Descriptor returns the self-describing blob from which an
	// equivalent codec can be reconstructed, possibly in a different
	// process.
	Descriptor() CodecDescriptor
}

// CodecDescriptor identifies a codec by registered name plus an opaque
// configuration blob.
type CodecDescriptor struct {
	Name   string
	Config []byte
}

func (d CodecDescriptor) equal(o CodecDescriptor) bool {
	return d.Name == o.Name && bytes.Equal(d.Config, o.Config)
}

func writeDescriptor(w io.Writer, d CodecDescriptor) error {
	if err := writeUTF(w, d.Name); err != nil {
		return err
	}
	return writeBlob(w, d.Config)
}

func readDescriptor(r io.Reader) (CodecDescriptor, error) {
	name, err := readUTF(r)
	if err != nil {
		return CodecDescriptor{}, err
	}
	config, err := readBlob(r)
	if err != nil {
		return CodecDescriptor{}, err
	}
	return CodecDescriptor{Name: name, Config: config}, nil
}

// CodecFactory reconstructs a codec from its configuration blob.
type CodecFactory func(config []byte) (Codec, error)

// CodecRegistry maps descriptor names to reconstructors. A restore
// uses it to bring the codecs recorded in an artifact header back to
// life.
type CodecRegistry struct {
	factories map[string]CodecFactory
}

// NewCodecRegistry returns a registry with all built-in codecs
// registered.
func NewCodecRegistry() *CodecRegistry {
	r := &CodecRegistry{factories: make(map[string]CodecFactory)}
	r.Register("utf8", func(_ []byte) (Codec, error) { return StringCodec{}, nil })
	r.Register("int64", func(_ []byte) (Codec, error) { return Int64Codec{}, nil })
	r.Register("bytes", func(_ []byte) (Codec, error) { return BytesCodec{}, nil })
	r.Register("bytes-snappy", func(_ []byte) (Codec, error) { return SnappyBytesCodec{}, nil })
	return r
}

// Register adds or replaces the reconstructor for a descriptor name.
func (r *CodecRegistry) Register(name string, factory CodecFactory) {
	r.factories[name] = factory
}

// Reconstruct builds a live codec from a descriptor.
func (r *CodecRegistry) Reconstruct(d CodecDescriptor) (Codec, error) {
	factory, ok := r.factories[d.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, d.Name)
	}
	return factory(d.Config)
}

// --------------------------------------------------------------------

// StringCodec encodes strings as a 2-byte length followed by UTF-8
// bytes.
type StringCodec struct{}

// Serialize implements Codec.
func (StringCodec) Serialize(v interface{}, w io.Writer) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("flink: string codec cannot encode %T", v)
	}
	return writeUTF(w, s)
}

// Deserialize implements Codec.
func (StringCodec) Deserialize(r io.Reader) (interface{}, error) {
	return readUTF(r)
}

// Descriptor implements Codec.
func (StringCodec) Descriptor() CodecDescriptor {
	return CodecDescriptor{Name: "utf8"}
}

// Int64Codec encodes int64 values as 8 big-endian bytes.
type Int64Codec struct{}

// Serialize implements Codec.
func (Int64Codec) Serialize(v interface{}, w io.Writer) error {
	n, ok := v.(int64)
	if !ok {
		return fmt.Errorf("flink: int64 codec cannot encode %T", v)
	}
	return writeUint64(w, uint64(n))
}

// Deserialize implements Codec.
func (Int64Codec) Deserialize(r io.Reader) (interface{}, error) {
	v, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	return int64(v), nil
}

// Descriptor implements Codec.
func (Int64Codec) Descriptor() CodecDescriptor {
	return CodecDescriptor{Name: "int64"}
}

// BytesCodec encodes opaque byte payloads as a 4-byte length followed
// by raw bytes. Suitable for values only, []byte is not comparable.
type BytesCodec struct{}

// Serialize implements Codec.
func (BytesCodec) Serialize(v interface{}, w io.Writer) error {
	b, ok := v.([]byte)
	if !ok {
		return fmt.Errorf("flink: bytes codec cannot encode %T", v)
	}
	return writeBlob(w, b)
}

// Deserialize implements Codec.
func (BytesCodec) Deserialize(r io.Reader) (interface{}, error) {
	return readBlob(r)
}

// Descriptor implements Codec.
func (BytesCodec) Descriptor() CodecDescriptor {
	return CodecDescriptor{Name: "bytes"}
}

// SnappyBytesCodec is a BytesCodec variant which snappy-compresses the
// payload. The compressed frame is length-prefixed like any other
// blob, so the artifact layout is unaffected.
type SnappyBytesCodec struct{}

// Serialize implements Codec.
func (SnappyBytesCodec) Serialize(v interface{}, w io.Writer) error {
	b, ok := v.([]byte)
	if !ok {
		return fmt.Errorf("flink: snappy bytes codec cannot encode %T", v)
	}
	return writeBlob(w, snappy.Encode(nil, b))
}

// Deserialize implements Codec.
func (SnappyBytesCodec) Deserialize(r io.Reader) (interface{}, error) {
	b, err := readBlob(r)
	if err != nil {
		return nil, err
	}
	return snappy.Decode(nil, b)
}

// Descriptor implements Codec.
func (SnappyBytesCodec) Descriptor() CodecDescriptor {
	return CodecDescriptor{Name: "bytes-snappy"}
}

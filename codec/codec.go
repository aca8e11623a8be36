// Package codec (de)serializes memoized values V <-> []byte. The store holds
// text, so encodings should be printable-safe; JSON is the usual default.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

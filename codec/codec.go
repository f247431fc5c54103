// Package codec defines the pluggable (de)serialization used for page values.
// A codec sees only the value payload; framing and validation around it belong
// to the cache.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

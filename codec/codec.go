// Package codec defines the (de)serialization boundary between cached values
// and the byte-oriented shared tier.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// Package codec turns cached values into bytes and back.
//
// Security caches typically hold sessions, principals and authorization info;
// pick a codec whose field handling matches the value type (JSON tags for JSON,
// msgpack tags for Msgpack, generated messages for Protobuf).
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

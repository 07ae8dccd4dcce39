package codec

// Bytes is an identity codec for []byte values. Values still get gridcache's
// framing, so foreign bytes written by another client are detected on read.
type Bytes struct{}

func (Bytes) Encode(b []byte) ([]byte, error) { return b, nil }
func (Bytes) Decode(b []byte) ([]byte, error) {
	// the store may reuse its buffer; hand out our own copy
	return append([]byte(nil), b...), nil
}

// String stores Go strings as their UTF-8 bytes without validation.
type String struct{}

func (String) Encode(s string) ([]byte, error) { return []byte(s), nil }
func (String) Decode(b []byte) (string, error) { return string(b), nil }

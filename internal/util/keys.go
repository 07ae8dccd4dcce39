package util

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

// StorageKey namespaces a user key: "<prefix>:<cache>:<key>".
// An empty prefix yields "<cache>:<key>".
func StorageKey(prefix, cache, key string) string {
	return StoragePrefix(prefix, cache) + key
}

// StoragePrefix is the part of StorageKey shared by every key of a cache.
func StoragePrefix(prefix, cache string) string {
	if prefix == "" {
		return cache + ":"
	}
	return prefix + ":" + cache + ":"
}

// ScanPattern returns a glob matching every storage key of a cache.
// Glob metacharacters in prefix and cache are escaped.
func ScanPattern(prefix, cache string) string {
	return escapeGlob(StoragePrefix(prefix, cache)) + "*"
}

func escapeGlob(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\', '^', '-':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// BucketName maps a cache name to a name restricted to [A-Za-z0-9_-].
// When characters had to be replaced, a short hash of the original name is
// appended so distinct caches never share a bucket.
func BucketName(prefix, cache string) string {
	var b strings.Builder
	replaced := false
	for _, r := range cache {
		if r == '_' || r == '-' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
		replaced = true
	}
	name := b.String()
	if replaced || name == "" {
		sum := sha256.Sum256([]byte(cache))
		name = fmt.Sprintf("%s_%x", name, sum[:4])
	}
	if prefix != "" {
		name = prefix + "_" + name
	}
	return name
}

// EncodeBucketKey makes an arbitrary key safe for stores with a restricted
// key alphabet. DecodeBucketKey reverses it.
func EncodeBucketKey(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

func DecodeBucketKey(s string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

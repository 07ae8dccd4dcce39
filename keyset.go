package gridcache

import "iter"

// KeySet is an immutable snapshot of a cache's keys taken by Cache.Keys.
// It has no mutating methods; Slice returns a copy.
type KeySet struct {
	keys  []string
	index map[string]struct{}
}

func newKeySet(keys []string) KeySet {
	if len(keys) == 0 {
		return KeySet{}
	}
	s := KeySet{
		keys:  make([]string, 0, len(keys)),
		index: make(map[string]struct{}, len(keys)),
	}
	for _, k := range keys {
		if _, dup := s.index[k]; dup {
			continue
		}
		s.index[k] = struct{}{}
		s.keys = append(s.keys, k)
	}
	return s
}

func (s KeySet) Len() int { return len(s.keys) }

func (s KeySet) Contains(key string) bool {
	_, ok := s.index[key]
	return ok
}

// Slice returns the keys in snapshot order. The caller owns the slice.
func (s KeySet) Slice() []string {
	return append([]string(nil), s.keys...)
}

// All iterates the keys in snapshot order.
func (s KeySet) All() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, k := range s.keys {
			if !yield(k) {
				return
			}
		}
	}
}

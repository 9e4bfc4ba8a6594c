package store

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"
)

func (s *Store) singleKey(key string) string { return "single:" + s.ns + ":" + key }

// bulkKey is deterministic in the member set: the same keys in any order,
// repeated or not, map to the same entry. members must come from sortedSet.
func (s *Store) bulkKey(members []string) string {
	sum := sha256.Sum256([]byte(strings.Join(members, "\x00")))
	return "bulk:" + s.ns + ":" + hex.EncodeToString(sum[:8])
}

// sortedSet returns the distinct keys in ascending order.
func sortedSet(keys []string) []string {
	s := slices.Clone(keys)
	slices.Sort(s)
	return slices.Compact(s)
}

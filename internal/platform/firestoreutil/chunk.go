// File: internal/platform/firestoreutil/chunk.go
package firestoreutil

// MaxInFilter is the largest value list Firestore accepts for an "in" filter.
const MaxInFilter = 30

// Limit returns at most n leading ids.
func Limit(ids []string, n int) []string {
	if len(ids) > n {
		return ids[:n]
	}
	return ids
}

// ShortID is the first eight characters of id.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

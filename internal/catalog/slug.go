// File: internal/catalog/slug.go
package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"jazz_picker_backend/internal/music"

	"github.com/gosimple/slug"
)

// GeneratedPrefix is the object storage folder for rendered PDFs.
const GeneratedPrefix = "generated/"

var (
	apostrophes  = strings.NewReplacer("'", "", "\u2019", "")
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
)

// ToSongSlug converts a title to the deep-link slug shared with the web and iOS apps:
// "All The Things You Are" becomes "all-the-things-you-are", "I've Got Rhythm" becomes "ive-got-rhythm".
// Non-ASCII letters are dropped, not transliterated.
func ToSongSlug(title string) string {
	s := apostrophes.Replace(strings.ToLower(title))
	return strings.Trim(nonSlugChars.ReplaceAllString(s, "-"), "-")
}

// objectSlug names stored objects. It transliterates, so titles that differ only in
// accents share renders.
func objectSlug(title string) string {
	return slug.Make(title)
}

// FindSongBySlug finds the song whose title slugs to s, ignoring case.
func FindSongBySlug(songs []SongSummary, s string) (SongSummary, bool) {
	want := strings.ToLower(s)
	for _, song := range songs {
		if ToSongSlug(song.Title) == want {
			return song, true
		}
	}
	return SongSummary{}, false
}

// GeneratedObjectKey names the rendered PDF for a song, key and clef. An instrument label
// is appended so per-instrument headers do not collide.
func GeneratedObjectKey(title, key, clef, instrument string) string {
	name := fmt.Sprintf("%s-%s-%s", objectSlug(title), key, clef)
	if instrument != "" {
		if s := slug.Make(instrument); s != "" {
			name += "-" + s
		}
	}
	return GeneratedPrefix + name + ".pdf"
}

// GeneratedSongPrefix is the listing prefix for every rendering of a song.
func GeneratedSongPrefix(title string) string {
	return GeneratedPrefix + objectSlug(title) + "-"
}

// ParseCachedKey extracts key and clef from an object key under the song's prefix.
// Objects that are not a valid key/clef rendering are rejected.
func ParseCachedKey(prefix, objectKey string) (CachedKey, bool) {
	if !strings.HasPrefix(objectKey, prefix) || !strings.HasSuffix(objectKey, ".pdf") {
		return CachedKey{}, false
	}
	rest := strings.TrimSuffix(strings.TrimPrefix(objectKey, prefix), ".pdf")
	parts := strings.Split(rest, "-")
	if len(parts) < 2 {
		return CachedKey{}, false
	}
	key, clef := parts[0], parts[1]
	if !music.ValidGenerateKey(key) || !music.ValidClef(clef) {
		return CachedKey{}, false
	}
	return CachedKey{Key: key, Clef: clef}, true
}

package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSongSlug(t *testing.T) {
	assert.Equal(t, "all-the-things-you-are", ToSongSlug("All The Things You Are"))
	assert.Equal(t, "ive-got-rhythm", ToSongSlug("I've Got Rhythm"))
	assert.Equal(t, "st-thomas", ToSongSlug("St. Thomas"))
	assert.Equal(t, "body-and-soul", ToSongSlug("Body and Soul"))
	assert.Equal(t, "dont-get-around-much-anymore", ToSongSlug("Don\u2019t Get Around Much Anymore"))
	assert.Equal(t, "rock-roll", ToSongSlug("Rock & Roll"))
	assert.Equal(t, "guas-de-mar-o", ToSongSlug("\u00c1guas de Mar\u00e7o"))
	assert.Equal(t, "", ToSongSlug("  ?! "))
}

func TestFindSongBySlug(t *testing.T) {
	songs := []SongSummary{{Title: "Blue Bossa"}, {Title: "I've Got Rhythm"}}

	song, ok := FindSongBySlug(songs, "IVE-Got-Rhythm")
	assert.True(t, ok)
	assert.Equal(t, "I've Got Rhythm", song.Title)

	song, ok = FindSongBySlug([]SongSummary{{Title: "Rock & Roll"}}, "rock-roll")
	assert.True(t, ok)
	assert.Equal(t, "Rock & Roll", song.Title)

	_, ok = FindSongBySlug(songs, "giant-steps")
	assert.False(t, ok)
}

func TestGeneratedObjectKey(t *testing.T) {
	assert.Equal(t, "generated/blue-bossa-c-treble.pdf", GeneratedObjectKey("Blue Bossa", "c", "treble", ""))
	assert.Equal(t, "generated/blue-bossa-bf-bass-tenor-sax.pdf", GeneratedObjectKey("Blue Bossa", "bf", "bass", "Tenor Sax"))
	assert.Equal(t, "generated/aguas-de-marco-c-treble.pdf", GeneratedObjectKey("\u00c1guas de Mar\u00e7o", "c", "treble", ""))
}

func TestParseCachedKey(t *testing.T) {
	prefix := GeneratedSongPrefix("Blue Bossa")

	ck, ok := ParseCachedKey(prefix, "generated/blue-bossa-ef-treble-trumpet.pdf")
	assert.True(t, ok)
	assert.Equal(t, CachedKey{Key: "ef", Clef: "treble"}, ck)

	for _, key := range []string{
		"generated/blue-bossa-h-treble.pdf",
		"generated/blue-bossa-c-alto.pdf",
		"generated/blue-bossa-c.pdf",
		"generated/blue-bossa-c-treble.ly",
		"generated/blues-c-treble.pdf",
	} {
		_, ok := ParseCachedKey(prefix, key)
		assert.False(t, ok, key)
	}
}

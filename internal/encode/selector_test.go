package encode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vidmill/vidmill/internal/media"
)

func sourceWithHeight(height int) *media.MediaInfo {
	return &media.MediaInfo{Width: height * 16 / 9, Height: height}
}

func TestSelectRenditions(t *testing.T) {
	tests := []struct {
		name     string
		height   int
		expected []string
	}{
		{"4k source gets full ladder", 2160, []string{"360p", "480p", "720p", "1080p", "2160p"}},
		{"1080p source", 1080, []string{"360p", "480p", "720p", "1080p"}},
		{"720p source", 720, []string{"360p", "480p", "720p"}},
		{"480p source", 480, []string{"360p", "480p"}},
		{"360p source", 360, []string{"360p"}},
		{"odd height between rungs", 900, []string{"360p", "480p", "720p"}},
		{"1440p between rungs", 1440, []string{"360p", "480p", "720p", "1080p"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := SelectRenditions(sourceWithHeight(tt.height))
			assert.Equal(t, tt.expected, Names(plan))
		})
	}
}

func TestSelectRenditionsNeverUpscales(t *testing.T) {
	for _, height := range []int{360, 480, 720, 1080, 2160, 999, 1440} {
		plan := SelectRenditions(sourceWithHeight(height))
		for _, r := range plan {
			assert.LessOrEqual(t, r.Height, height,
				"rendition %s upscales a %dp source", r.Name, height)
		}
	}
}

func TestSelectRenditionsFallback(t *testing.T) {
	// Sources below the lowest rung still get 360p.
	plan := SelectRenditions(sourceWithHeight(180))
	require.Len(t, plan, 1)
	assert.Equal(t, "360p", plan[0].Name)
}

func TestSelectRenditionsAscendingAndNonEmpty(t *testing.T) {
	for height := 180; height <= 4320; height += 60 {
		plan := SelectRenditions(sourceWithHeight(height))
		require.NotEmpty(t, plan, "empty plan for height %d", height)
		for i := 1; i < len(plan); i++ {
			assert.Greater(t, plan[i].Height, plan[i-1].Height)
		}
	}
}

func TestSelectRenditionsDeterministic(t *testing.T) {
	info := sourceWithHeight(1080)
	assert.Equal(t, SelectRenditions(info), SelectRenditions(info))
}

func TestCatalog(t *testing.T) {
	ladder := Catalog()
	require.Len(t, ladder, 5)
	assert.Equal(t, "360p", ladder[0].Name)
	assert.Equal(t, 640, ladder[0].Width)
	assert.Equal(t, 800_000, ladder[0].VideoBitrate)
	assert.Equal(t, "2160p", ladder[4].Name)
	assert.Equal(t, 14_000_000, ladder[4].VideoBitrate)

	// Mutating the copy does not affect the catalog.
	ladder[0].Name = "mutated"
	fresh := Catalog()
	assert.Equal(t, "360p", fresh[0].Name)
}

func TestByName(t *testing.T) {
	r, ok := ByName("720p")
	require.True(t, ok)
	assert.Equal(t, 1280, r.Width)
	assert.Equal(t, 720, r.Height)

	_, ok = ByName("144p")
	assert.False(t, ok)
}

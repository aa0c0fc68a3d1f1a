// Package encode selects the rendition ladder for a source video.
package encode

// Rendition is a preset entry in the fixed encode ladder.
type Rendition struct {
	Name         string `json:"name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	VideoBitrate int    `json:"video_bitrate"` // bits per second
	AudioBitrate int    `json:"audio_bitrate"` // bits per second
}

// catalog is the fixed rendition ladder, ascending by height. The selector
// never reorders it and never invents entries outside it.
var catalog = []Rendition{
	{Name: "360p", Width: 640, Height: 360, VideoBitrate: 800_000, AudioBitrate: 96_000},
	{Name: "480p", Width: 854, Height: 480, VideoBitrate: 1_400_000, AudioBitrate: 128_000},
	{Name: "720p", Width: 1280, Height: 720, VideoBitrate: 2_800_000, AudioBitrate: 128_000},
	{Name: "1080p", Width: 1920, Height: 1080, VideoBitrate: 5_000_000, AudioBitrate: 192_000},
	{Name: "2160p", Width: 3840, Height: 2160, VideoBitrate: 14_000_000, AudioBitrate: 192_000},
}

// Catalog returns a copy of the full rendition ladder.
func Catalog() []Rendition {
	out := make([]Rendition, len(catalog))
	copy(out, catalog)
	return out
}

// ByName returns the catalog entry with the given name.
func ByName(name string) (Rendition, bool) {
	for _, r := range catalog {
		if r.Name == name {
			return r, true
		}
	}
	return Rendition{}, false
}

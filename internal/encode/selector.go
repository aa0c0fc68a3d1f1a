package encode

import "github.com/vidmill/vidmill/internal/media"

// SelectRenditions returns the encode plan for the inspected source:
// every ladder entry whose height does not exceed the source height, in
// ascending order. Sources below the lowest rung still get the lowest
// rendition so the plan is never empty. The selector never upscales past
// that floor and is fully deterministic.
func SelectRenditions(info *media.MediaInfo) []Rendition {
	var plan []Rendition
	for _, r := range catalog {
		if r.Height <= info.Height {
			plan = append(plan, r)
		}
	}
	if len(plan) == 0 {
		plan = []Rendition{catalog[0]}
	}
	return plan
}

// Names returns the rendition names of a plan, in order.
func Names(plan []Rendition) []string {
	names := make([]string, len(plan))
	for i, r := range plan {
		names[i] = r.Name
	}
	return names
}

package textgen

import "strings"

// Outline is the structured episode plan returned by the first provider call.
type Outline struct {
	IntroHook              string    `json:"intro_hook"`
	Segments               []Segment `json:"segments"`
	CrossSourceConnections []string  `json:"cross_source_connections"`
	ProvocativeAngles      []string  `json:"provocative_angles"`
	OutroTheme             string    `json:"outro_theme"`

	Raw string `json:"-"`
}

// Segment is one planned discussion topic.
type Segment struct {
	Title          string   `json:"title"`
	Sources        []string `json:"sources"`
	KeyPoints      []string `json:"key_points"`
	EstimatedTurns int      `json:"estimated_turns"`
}

// SourceNames returns the unique source names across all segments, in first
// appearance order.
func (o Outline) SourceNames() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, segment := range o.Segments {
		for _, source := range segment.Sources {
			source = strings.TrimSpace(source)
			if source == "" {
				continue
			}
			if _, ok := seen[source]; ok {
				continue
			}
			seen[source] = struct{}{}
			names = append(names, source)
		}
	}
	return names
}

// WithoutSource returns a copy of the outline with every segment source that
// matches name (case-insensitively) removed. Used to keep the requesting
// subject out of its own source credits.
func (o Outline) WithoutSource(name string) Outline {
	name = strings.TrimSpace(name)
	if name == "" {
		return o
	}
	segments := make([]Segment, len(o.Segments))
	for i, segment := range o.Segments {
		kept := make([]string, 0, len(segment.Sources))
		for _, source := range segment.Sources {
			if strings.EqualFold(strings.TrimSpace(source), name) {
				continue
			}
			kept = append(kept, source)
		}
		segment.Sources = kept
		segments[i] = segment
	}
	o.Segments = segments
	return o
}

// EstimatedTurnTotal sums the estimated turns across segments.
func (o Outline) EstimatedTurnTotal() int {
	total := 0
	for _, segment := range o.Segments {
		total += segment.EstimatedTurns
	}
	return total
}

// Half selects which dialogue half a section request covers.
type Half string

const (
	FirstHalf  Half = "first"
	SecondHalf Half = "second"
)

// SectionRequest carries everything needed to generate one dialogue half.
type SectionRequest struct {
	Outline  Outline
	Document string
	Half     Half
	// PreviousTurns holds the full first half when requesting the second,
	// so the model avoids rehashing covered material.
	PreviousTurns string
	// WordTarget is the dialogue word budget for this half.
	WordTarget int
}

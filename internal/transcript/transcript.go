// Package transcript holds the timed text types shared by transcription,
// translation, and the preload API.
package transcript

import (
	"math"
	"strings"
)

// Segment is one time-aligned span of recognized speech.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Caption is a translated Segment. It keeps the source timing unchanged.
type Caption struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Duration returns the segment length in seconds, never negative.
func (s Segment) Duration() float64 {
	if s.End <= s.Start {
		return 0
	}
	return s.End - s.Start
}

// BillableSeconds is the usage charged for translating the segment: the
// duration rounded up, with a floor of one second.
func (s Segment) BillableSeconds() int64 {
	seconds := int64(math.Ceil(s.Duration()))
	if seconds < 1 {
		return 1
	}
	return seconds
}

// CaptionFrom builds a caption carrying seg's timing and the given text.
func CaptionFrom(seg Segment, text string) Caption {
	return Caption{Start: seg.Start, End: seg.End, Text: text}
}

// FullText joins non-empty segment texts with single spaces.
func FullText(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// Sanitize trims text, clamps negative times to zero, swaps reversed bounds,
// drops empty segments, and enforces chronological, non-overlapping order by
// pulling a segment's start forward to the previous end.
func Sanitize(segments []Segment) []Segment {
	out := make([]Segment, 0, len(segments))
	var prevEnd float64
	for _, seg := range segments {
		seg.Text = strings.TrimSpace(seg.Text)
		if seg.Text == "" {
			continue
		}
		if seg.Start < 0 || math.IsNaN(seg.Start) {
			seg.Start = 0
		}
		if seg.End < 0 || math.IsNaN(seg.End) {
			seg.End = 0
		}
		if seg.End < seg.Start {
			seg.Start, seg.End = seg.End, seg.Start
		}
		if len(out) > 0 && seg.Start < prevEnd {
			seg.Start = prevEnd
			if seg.End < seg.Start {
				seg.End = seg.Start
			}
		}
		prevEnd = seg.End
		out = append(out, seg)
	}
	return out
}

// TimingMissing reports whether every segment has zero start and end, which
// whisper.cpp builds emit when JSON timing is unavailable.
func TimingMissing(segments []Segment) bool {
	if len(segments) == 0 {
		return false
	}
	for _, seg := range segments {
		if seg.Start != 0 || seg.End != 0 {
			return false
		}
	}
	return true
}

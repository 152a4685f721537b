package whisper

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"farsisub/internal/transcript"
)

// ParseJSON extracts segments from whisper JSON output. An unrecognized
// layout yields an empty slice, not an error.
func ParseJSON(data []byte) ([]transcript.Segment, error) {
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decode whisper json: %w", err)
	}
	items := locateSegments(root)
	segments := make([]transcript.Segment, 0, len(items))
	for _, item := range items {
		if seg, ok := segmentFromObject(item); ok {
			segments = append(segments, seg)
		}
	}
	return segments, nil
}

func locateSegments(root any) []map[string]any {
	switch v := root.(type) {
	case []any:
		if objs := textObjects(v); len(objs) > 0 {
			return objs
		}
		if len(v) == 1 {
			if obj, ok := v[0].(map[string]any); ok {
				if inner, ok := obj["segments"].([]any); ok {
					return textObjects(inner)
				}
			}
		}
	case map[string]any:
		for _, key := range []string{"transcription", "segments", "chunks"} {
			if arr, ok := v[key].([]any); ok {
				return textObjects(arr)
			}
		}
		for _, value := range v {
			if arr, ok := value.([]any); ok {
				if objs := textObjects(arr); len(objs) > 0 {
					return objs
				}
			}
		}
	}
	return nil
}

// textObjects returns arr's elements when the first one is an object with a
// string text field.
func textObjects(arr []any) []map[string]any {
	if len(arr) == 0 {
		return nil
	}
	first, ok := arr[0].(map[string]any)
	if !ok {
		return nil
	}
	if _, ok := first["text"].(string); !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(arr))
	for _, item := range arr {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

func segmentFromObject(obj map[string]any) (transcript.Segment, bool) {
	text, _ := obj["text"].(string)
	seg := transcript.Segment{Text: strings.TrimSpace(text)}

	switch {
	case obj["offsets"] != nil:
		offsets, _ := obj["offsets"].(map[string]any)
		seg.Start = number(offsets["from"]) / 1000
		seg.End = number(offsets["to"]) / 1000
	case obj["start"] != nil || obj["end"] != nil:
		seg.Start = number(obj["start"])
		seg.End = number(obj["end"])
	case obj["timestamp"] != nil:
		if pair, ok := obj["timestamp"].([]any); ok && len(pair) == 2 {
			seg.Start = number(pair[0])
			seg.End = number(pair[1])
		}
	case obj["timestamps"] != nil:
		stamps, _ := obj["timestamps"].(map[string]any)
		from, _ := stamps["from"].(string)
		to, _ := stamps["to"].(string)
		seg.Start, _ = parseClock(from)
		seg.End, _ = parseClock(to)
	}
	return seg, true
}

func number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

var stdoutLine = regexp.MustCompile(`^\s*\[(\d+:\d{2}:\d{2}[.,]\d{1,3})\s*-->\s*(\d+:\d{2}:\d{2}[.,]\d{1,3})\]\s*(.*)$`)

// ParseStdout extracts segments from "[hh:mm:ss.mmm --> hh:mm:ss.mmm] text"
// lines, ignoring everything else.
func ParseStdout(output []byte) []transcript.Segment {
	var segments []transcript.Segment
	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		match := stdoutLine.FindStringSubmatch(scanner.Text())
		if match == nil {
			continue
		}
		start, err := parseClock(match[1])
		if err != nil {
			continue
		}
		end, err := parseClock(match[2])
		if err != nil {
			continue
		}
		segments = append(segments, transcript.Segment{Start: start, End: end, Text: strings.TrimSpace(match[3])})
	}
	return segments
}

// parseClock converts hh:mm:ss.mmm (or hh:mm:ss,mmm) to seconds.
func parseClock(value string) (float64, error) {
	value = strings.Replace(strings.TrimSpace(value), ",", ".", 1)
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hours in %q", value)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minutes in %q", value)
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid seconds in %q", value)
	}
	return float64(hours*3600+minutes*60) + seconds, nil
}

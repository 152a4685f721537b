package transcript

import "testing"

func TestBillableSeconds(t *testing.T) {
	tests := []struct {
		seg  Segment
		want int64
	}{
		{Segment{Start: 0, End: 2.2}, 3},
		{Segment{Start: 1, End: 3}, 2},
		{Segment{Start: 5, End: 5}, 1},
		{Segment{Start: 4, End: 4.01}, 1},
		{Segment{Start: 9, End: 2}, 1},
	}
	for _, tt := range tests {
		if got := tt.seg.BillableSeconds(); got != tt.want {
			t.Errorf("BillableSeconds(%+v) = %d, want %d", tt.seg, got, tt.want)
		}
	}
}

func TestSanitizeOrdersAndTrims(t *testing.T) {
	in := []Segment{
		{Start: 0, End: 2, Text: " hello "},
		{Start: 1.5, End: 3, Text: "overlap"},
		{Start: 4, End: 4.5, Text: "   "},
		{Start: 6, End: 5, Text: "reversed"},
		{Start: -1, End: 7, Text: "negative"},
	}
	got := Sanitize(in)
	if len(got) != 4 {
		t.Fatalf("expected 4 segments, got %d: %+v", len(got), got)
	}
	if got[0].Text != "hello" {
		t.Fatalf("expected trimmed text, got %q", got[0].Text)
	}
	if got[1].Start != 2 || got[1].End != 3 {
		t.Fatalf("expected overlap pulled forward, got %+v", got[1])
	}
	if got[2].Start != 5 || got[2].End != 6 {
		t.Fatalf("expected reversed bounds swapped, got %+v", got[2])
	}
	if got[3].Start != 6 || got[3].End != 7 {
		t.Fatalf("expected negative start clamped then ordered, got %+v", got[3])
	}
	for i := 1; i < len(got); i++ {
		if got[i].Start < got[i-1].End {
			t.Fatalf("segments overlap at %d: %+v", i, got)
		}
	}
}

func TestTimingMissingAndFullText(t *testing.T) {
	zero := []Segment{{Text: "a"}, {Text: "b"}}
	if !TimingMissing(zero) {
		t.Fatal("expected timing missing")
	}
	if TimingMissing([]Segment{{Start: 0, End: 1, Text: "a"}}) {
		t.Fatal("expected timing present")
	}
	if TimingMissing(nil) {
		t.Fatal("empty list should not report missing timing")
	}
	if got := FullText([]Segment{{Text: " one "}, {Text: ""}, {Text: "two"}}); got != "one two" {
		t.Fatalf("FullText = %q", got)
	}
	c := CaptionFrom(Segment{Start: 1, End: 2, Text: "hi"}, "سلام")
	if c.Start != 1 || c.End != 2 || c.Text != "سلام" {
		t.Fatalf("unexpected caption %+v", c)
	}
}

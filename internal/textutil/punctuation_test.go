package textutil

import "testing"

func TestTidyPunctuation(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapse spaces", "سلام   دنیا\t\tخوب", "سلام دنیا خوب"},
		{"space before comma", "سلام ، دنیا", "سلام، دنیا"},
		{"space before question", "چطوری ؟", "چطوری؟"},
		{"missing space after persian comma", "سلام،دنیا", "سلام، دنیا"},
		{"missing space after period", "تمام شد.بعدی", "تمام شد. بعدی"},
		{"decimal kept", "version 3.5 is out", "version 3.5 is out"},
		{"time kept", "at 12:30 today", "at 12:30 today"},
		{"host kept", "visit example.com now", "visit example.com now"},
		{"english sentence", "Hello .World", "Hello. World"},
		{"closing paren", "( test )", "( test)"},
		{"blank lines dropped", "line one\n\n  line two  ", "line one\nline two"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TidyPunctuation(tt.in); got != tt.want {
				t.Fatalf("TidyPunctuation(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizePersian(t *testing.T) {
	in := "كتاب علي"
	want := "کتاب علی"
	if got := NormalizePersian(in); got != want {
		t.Fatalf("NormalizePersian(%q) = %q, want %q", in, got, want)
	}
	if got := NormalizePersian("e\u0301"); got != "\u00e9" {
		t.Fatalf("expected NFC composition, got %q", got)
	}
}

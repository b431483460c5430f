package tui

import "testing"

func TestWrapTextBreaksAtSpaces(t *testing.T) {
	got := wrapText("what is the value of x", 10)
	want := "what is\nthe value\nof x"
	if got != want {
		t.Fatalf("unexpected wrap:\n%q\nwant\n%q", got, want)
	}
}

func TestWrapTextKeepsParagraphs(t *testing.T) {
	got := wrapText("short\n\nanother line here", 8)
	want := "short\n\nanother\nline\nhere"
	if got != want {
		t.Fatalf("unexpected wrap:\n%q\nwant\n%q", got, want)
	}
}

func TestWrapTextBreaksLongWords(t *testing.T) {
	got := wrapText("$\\frac{1}{2}$", 5)
	want := "$\\fra\nc{1}{\n2}$"
	if got != want {
		t.Fatalf("unexpected wrap:\n%q\nwant\n%q", got, want)
	}
}

func TestWrapTextWideRunes(t *testing.T) {
	got := wrapText("漢字 漢字", 4)
	want := "漢字\n漢字"
	if got != want {
		t.Fatalf("unexpected wrap:\n%q\nwant\n%q", got, want)
	}
}

func TestWrapTextZeroWidth(t *testing.T) {
	if got := wrapText("a b", 0); got != "a b" {
		t.Fatalf("expected unchanged text, got %q", got)
	}
}

package utils

import "testing"

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Intro to Drawing", "intro-to-drawing"},
		{"  Intro   to Drawing!  ", "intro-to-drawing"},
		{"C++ & Go: The Basics", "c-go-the-basics"},
		{"100 Days of Code", "100-days-of-code"},
		{"---", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Fatalf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestUniqueSlug(t *testing.T) {
	taken := map[string]bool{
		"intro":   true,
		"intro-2": true,
	}
	lookup := func(slug string) (bool, error) { return taken[slug], nil }

	got, err := UniqueSlug("intro", lookup)
	if err != nil {
		t.Fatalf("UniqueSlug returned error: %v", err)
	}
	if got != "intro-3" {
		t.Fatalf("expected intro-3, got %q", got)
	}

	got, err = UniqueSlug("fresh", lookup)
	if err != nil {
		t.Fatalf("UniqueSlug returned error: %v", err)
	}
	if got != "fresh" {
		t.Fatalf("free base should pass through, got %q", got)
	}

	got, err = UniqueSlug("", lookup)
	if err != nil {
		t.Fatalf("UniqueSlug returned error: %v", err)
	}
	if got != "course" {
		t.Fatalf("empty base should fall back to course, got %q", got)
	}
}

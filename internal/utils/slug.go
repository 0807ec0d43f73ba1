package utils

import (
	"fmt"
	"strings"
	"unicode"
)

// Slugify lowercases the title and collapses every run of non-alphanumeric
// characters into a single hyphen.
func Slugify(title string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// UniqueSlug appends a numeric suffix until taken reports the slug as free.
func UniqueSlug(base string, taken func(slug string) (bool, error)) (string, error) {
	if base == "" {
		base = "course"
	}
	slug := base
	for i := 2; ; i++ {
		exists, err := taken(slug)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

package model

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalize lowercases, trims, and strips accents so that "Almería",
// "almeria" and "ALMERIA " all produce the same key fragment.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if out, _, err := transform.String(accentStripper, s); err == nil {
		s = out
	}
	return s
}

// PlaceKey builds the canonical "name, province, españa" cache key for a
// locality. An empty province collapses to the name-only key.
func PlaceKey(name, province string) string {
	name = normalize(name)
	province = normalize(province)
	if province == "" {
		return NameKey(name)
	}
	return name + ", " + province + ", " + countrySuffix
}

// NameKey builds the name-only key used for reference cities.
func NameKey(name string) string {
	return normalize(name) + ", " + countrySuffix
}

const countrySuffix = "espana"

// PairKey canonicalizes a distance-cache pair by sorting the two keys
// lexically, so (a,b) and (b,a) always address the same record.
func PairKey(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// DisplayName capitalizes each space- or hyphen-separated word of a raw
// city name ("el PUERTO de santa maria" -> "El Puerto De Santa Maria").
func DisplayName(raw string) string {
	words := strings.Fields(strings.ReplaceAll(raw, "-", " "))
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

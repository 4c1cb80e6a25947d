package sanitize

import (
	"math"
	"regexp"
	"strings"
)

// Prompt-override phrases stripped from any free text embedded in a prompt.
var overridePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?(the\s+|previous\s+|prior\s+)?instructions`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?(the\s+)?(above|previous)`),
	regexp.MustCompile(`(?i)you\s+must\s+now\s+answer`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an)\b`),
	regexp.MustCompile(`(?i)system\s+prompt`),
	regexp.MustCompile(`(?i)forget\s+everything`),
}

var controlChars = strings.NewReplacer(
	"\"", "",
	"'", "",
	"`", "",
	"\\", "",
	"\r", " ",
	"\n", " ",
)

// Text strips quote characters, backslashes, line breaks and known
// prompt-override phrases from free text before it is embedded in a prompt.
func Text(raw string) string {
	cleaned := controlChars.Replace(raw)
	for _, pattern := range overridePatterns {
		cleaned = pattern.ReplaceAllString(cleaned, "")
	}
	return strings.Join(strings.Fields(cleaned), " ")
}

// Categorical validates a field against a whitelist, substituting the
// default on mismatch. Matching is case-insensitive.
func Categorical(raw string, allowed []string, fallback string) string {
	candidate := strings.ToLower(strings.TrimSpace(raw))
	for _, value := range allowed {
		if candidate == strings.ToLower(value) {
			return value
		}
	}
	return fallback
}

// Int rejects non-finite input, truncates to an integer, and clamps to
// [min, max].
func Int(value float64, min, max, fallback int) int {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fallback
	}
	coerced := int(value)
	if coerced < min {
		return min
	}
	if coerced > max {
		return max
	}
	return coerced
}

// Decimal rejects non-finite input and clamps to [min, max].
func Decimal(value, min, max, fallback float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fallback
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

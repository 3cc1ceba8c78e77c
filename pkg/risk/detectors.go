package risk

import (
	"fmt"
	"regexp"
	"strings"
)

// Detector patterns. Injection phrases are matched against the prompt only,
// unsafe patterns against prompt and response, leakage patterns against the
// response only.
var (
	injectionPatterns = []string{
		"ignore previous instructions",
		"disregard all",
		"forget everything",
		"system prompt",
		"you are now",
	}

	unsafePatterns = []*regexp.Regexp{
		regexp.MustCompile(`how to (hack|exploit|bypass)`),
		regexp.MustCompile(`create (malware|virus)`),
		regexp.MustCompile(`illegal (activity|substance)`),
	}

	leakagePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), // SSN
		regexp.MustCompile(`\b\d{16}\b`),            // card number
		regexp.MustCompile(`(?i)api[_-]?key`),
		regexp.MustCompile(`(?i)password\s*[:=]`),
	}

	hedgeWords = []string{
		"i think", "maybe", "possibly", "might be",
		"not sure", "unclear", "uncertain",
	}
)

// detectInjection scans the prompt for manipulation phrases.
// Sub-score: min(0.3 per match, 1.0).
func detectInjection(prompt string) (float64, []string) {
	var evidence []string
	lower := strings.ToLower(prompt)

	for _, phrase := range injectionPatterns {
		if strings.Contains(lower, phrase) {
			evidence = append(evidence, fmt.Sprintf("Injection pattern detected: %s", phrase))
		}
	}

	return min(float64(len(evidence))*0.3, 1.0), evidence
}

// detectUnsafeContent scans the combined prompt and response for content
// indicating hacking, malware creation, or illegal activity.
// Sub-score: min(0.4 per match, 1.0).
func detectUnsafeContent(prompt, response string) (float64, []string) {
	var evidence []string
	combined := strings.ToLower(prompt + " " + response)

	for _, pattern := range unsafePatterns {
		if pattern.MatchString(combined) {
			evidence = append(evidence, fmt.Sprintf("Unsafe content pattern: %s", pattern.String()))
		}
	}

	return min(float64(len(evidence))*0.4, 1.0), evidence
}

// detectDataLeakage scans only the response for structured sensitive
// patterns. Sub-score: min(0.5 per match, 1.0).
func detectDataLeakage(response string) (float64, []string) {
	var evidence []string

	for _, pattern := range leakagePatterns {
		if pattern.MatchString(response) {
			evidence = append(evidence, fmt.Sprintf("Potential data leakage: %s", pattern.String()))
		}
	}

	return min(float64(len(evidence))*0.5, 1.0), evidence
}

// detectHallucination counts hedge words in the response as a proxy for
// uncertainty. Evidence is only added when the count exceeds two, but the
// sub-score scales with the raw count: min(0.15 per hedge, 0.6).
//
// A co-occurrence of "however" and "but" adds a contradiction evidence
// string without contributing to the sub-score.
func detectHallucination(response string) (float64, []string) {
	var evidence []string
	lower := strings.ToLower(response)

	count := 0
	for _, marker := range hedgeWords {
		if strings.Contains(lower, marker) {
			count++
		}
	}

	if count > 2 {
		evidence = append(evidence, fmt.Sprintf("High uncertainty markers: %d", count))
	}

	if strings.Contains(lower, "however") && strings.Contains(lower, "but") {
		evidence = append(evidence, "Potential contradiction detected")
	}

	return min(float64(count)*0.15, 0.6), evidence
}

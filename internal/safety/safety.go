// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package safety classifies resolved content before the server navigates a
// scanner to it. Anything that is not a plain http(s) destination is shown
// as text instead of being redirected to.
package safety

import (
	"net/url"
	"regexp"
	"strings"
)

// Mode says how resolved content should be presented.
type Mode string

const (
	// ModeNavigate means the content is a safe URL to redirect to.
	ModeNavigate Mode = "navigate"
	// ModeDisplay means the content must be displayed as text only.
	ModeDisplay Mode = "display"
)

// Outcome is the result of classifying content. URL is set only for
// ModeNavigate; Text always carries the original content.
type Outcome struct {
	Mode Mode
	URL  string
	Text string
}

// Classifier decides whether content is safe to auto-navigate. It is an
// injected capability so tests can substitute a double.
type Classifier interface {
	Classify(text string) Outcome
}

// domainPattern matches bare domain-like strings such as "example.com" or
// "meet.example/abc" that users paste without a scheme.
var domainPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*(\.[a-zA-Z0-9][a-zA-Z0-9-]*)+(:\d+)?(/\S*)?$`)

// URLClassifier is the default Classifier. It accepts http and https URLs,
// normalizes bare domains to https, and rejects every other scheme.
type URLClassifier struct{}

// New creates the default classifier.
func New() *URLClassifier {
	return &URLClassifier{}
}

// Classify implements Classifier.
func (c *URLClassifier) Classify(text string) Outcome {
	trimmed := strings.TrimSpace(text)

	// Bare domains first: "example.com:8443/x" would otherwise parse as
	// a URL with scheme "example.com".
	if domainPattern.MatchString(trimmed) {
		return Outcome{Mode: ModeNavigate, URL: "https://" + trimmed, Text: text}
	}

	parsed, err := url.Parse(trimmed)
	if err == nil && parsed.Scheme != "" {
		switch strings.ToLower(parsed.Scheme) {
		case "http", "https":
			if parsed.Host != "" {
				return Outcome{Mode: ModeNavigate, URL: parsed.String(), Text: text}
			}
		}
		// javascript:, data:, file:, vbscript: and every other scheme
		// must never produce a redirect.
	}

	return Outcome{Mode: ModeDisplay, Text: text}
}

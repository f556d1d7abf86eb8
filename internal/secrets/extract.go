// File: internal/secrets/extract.go
package secrets

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Pattern lists are data, not logic: the enrollment UI drifts, and keeping the
// shapes here means a UI change touches one table instead of the stages.
var (
	secretTextPatterns = []*regexp.Regexp{
		// Grouped key, 4 or 8 groups of 4.
		regexp.MustCompile(`(?i)\b([a-z0-9]{4}\s+[a-z0-9]{4}\s+[a-z0-9]{4}\s+[a-z0-9]{4}(?:\s+[a-z0-9]{4}\s+[a-z0-9]{4}\s+[a-z0-9]{4}\s+[a-z0-9]{4})?)\b`),
	}

	credentialTextPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b([a-z]{4}\s[a-z]{4}\s[a-z]{4}\s[a-z]{4})\b`),
	}

	// Element names and class fragments that tend to carry machine-formatted
	// values in the provider's dialogs.
	monospaceTags    = map[string]bool{"code": true, "samp": true, "kbd": true}
	monospaceClasses = []string{"notranslate"}
)

// Extractor scans rendered page snapshots for shared secrets and issued
// credentials. It is deterministic: the same snapshot always yields the same
// candidate (or the same miss). A miss is a normal outcome, reported as "".
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor returns an Extractor logging through the given logger.
func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger.Named("extractor")}
}

// SharedSecret returns the first valid shared secret found in the page text,
// falling back to dialog-scoped and then page-wide mono-space DOM elements
// parsed from the HTML snapshot. Returns "" when nothing validates.
func (e *Extractor) SharedSecret(pageText, pageHTML string) string {
	if found := scanText(pageText, secretTextPatterns, normalizeSecret, IsValidSharedSecret); found != "" {
		return found
	}
	found := scanDOM(pageHTML, normalizeSecret, IsValidSharedSecret)
	if found == "" {
		e.logger.Debug("No shared secret candidate validated in snapshot.")
	}
	return found
}

// IssuedCredential returns the first valid issued credential in the snapshot,
// using the same text-then-DOM strategy as SharedSecret.
func (e *Extractor) IssuedCredential(pageText, pageHTML string) string {
	if found := scanText(pageText, credentialTextPatterns, normalizeCredential, IsValidIssuedCredential); found != "" {
		return found
	}
	found := scanDOM(pageHTML, normalizeCredential, IsValidIssuedCredential)
	if found == "" {
		e.logger.Debug("No issued credential candidate validated in snapshot.")
	}
	return found
}

func normalizeSecret(s string) string {
	// The UI sometimes renders the key with hyphens between groups.
	return strings.TrimSpace(strings.ReplaceAll(s, "-", " "))
}

func normalizeCredential(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// scanText applies each pattern to the whole-page text and returns the first
// match that survives normalization and validation.
func scanText(pageText string, patterns []*regexp.Regexp, normalize func(string) string, valid func(string) bool) string {
	for _, pattern := range patterns {
		for _, match := range pattern.FindAllStringSubmatch(pageText, -1) {
			candidate := normalize(match[1])
			if valid(candidate) {
				return candidate
			}
		}
	}
	return ""
}

// scanDOM parses the HTML snapshot and checks mono-space elements, preferring
// those scoped inside an open dialog over page-wide matches.
func scanDOM(pageHTML string, normalize func(string) string, valid func(string) bool) string {
	if pageHTML == "" {
		return ""
	}
	doc, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return ""
	}

	var dialogScoped, pageWide []string
	var walk func(n *html.Node, inDialog bool)
	walk = func(n *html.Node, inDialog bool) {
		if n.Type == html.ElementNode {
			if attrValue(n, "role") == "dialog" {
				inDialog = true
			}
			if isMonospace(n) {
				text := strings.TrimSpace(nodeText(n))
				if text != "" {
					if inDialog {
						dialogScoped = append(dialogScoped, text)
					} else {
						pageWide = append(pageWide, text)
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inDialog)
		}
	}
	walk(doc, false)

	for _, text := range append(dialogScoped, pageWide...) {
		candidate := normalize(text)
		if valid(candidate) {
			return candidate
		}
	}
	return ""
}

func isMonospace(n *html.Node) bool {
	if monospaceTags[n.Data] {
		return true
	}
	class := attrValue(n, "class")
	for _, fragment := range monospaceClasses {
		if strings.Contains(class, fragment) {
			return true
		}
	}
	return false
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return sb.String()
}

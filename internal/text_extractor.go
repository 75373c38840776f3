package internal

import (
	"fmt"
	"regexp"
	"strings"
)

// ExtractTextFromBubble extracts display text from a bubble using a
// three-tier strategy:
//  1. Primary: bubble.text when present
//  2. Fallback: parse the bubble.richText JSON structure
//  3. Enhancement: append bubble.codeBlocks[] as markdown code fences
//
// An empty result is legitimate; emptiness is recorded, not papered over.
func ExtractTextFromBubble(bubble *RawBubble) string {
	var textParts []string

	if bubble.Text != "" {
		textParts = append(textParts, bubble.Text)
	}

	// richText may carry content the flat text field doesn't.
	if bubble.RichText != "" {
		richText, err := ExtractTextFromRichText(bubble.RichText)
		if err != nil {
			LogDebug("failed to parse richText JSON: %v, trying fallback extraction", err)
			richText = extractFallbackText(bubble.RichText)
			if richText == "" {
				richText = extractFromRawJSON(bubble.RichText)
			}
		}
		if richText != "" {
			// Skip when it duplicates the primary text.
			if bubble.Text == "" || !strings.Contains(bubble.Text, richText) {
				textParts = append(textParts, richText)
			}
		}
	}

	for _, codeBlock := range bubble.CodeBlocks {
		body := codeBlock.Body()
		if body == "" {
			continue
		}
		textParts = append(textParts, fmt.Sprintf("```%s\n%s\n```", codeBlock.Language, body))
	}

	return reformatRedactedReasoning(strings.Join(textParts, "\n\n"))
}

var redactedMarker = regexp.MustCompile(`\[Redacted Reasoning: ([^\]]+)\]`)

// reformatRedactedReasoning rewrites inline redaction markers into
// fenced blocks, recovering the trace when the payload decodes. Older
// store versions wrote the marker straight into the message text.
func reformatRedactedReasoning(text string) string {
	if !strings.Contains(text, "[Redacted Reasoning:") {
		return text
	}
	return redactedMarker.ReplaceAllStringFunc(text, func(marker string) string {
		blob := strings.TrimSpace(redactedMarker.FindStringSubmatch(marker)[1])
		if decoded, ok := decodeRedactedReasoning(blob); ok {
			return "\n```\n[Redacted Reasoning]\n" + decoded + "\n```\n"
		}
		return "\n```\n[Redacted Reasoning]\n```\n"
	})
}

// extractFallbackText tries to extract any readable text from a JSON
// string. Last resort when structured parsing fails.
func extractFallbackText(jsonStr string) string {
	// Look for "text":"..." patterns without a full parse.
	var result strings.Builder
	escapeNext := false

	for i := 0; i < len(jsonStr)-6; i++ {
		if escapeNext {
			escapeNext = false
			continue
		}

		if jsonStr[i] == '\\' {
			escapeNext = true
			continue
		}

		if i+6 < len(jsonStr) && jsonStr[i:i+6] == `"text"` {
			j := i + 6
			for j < len(jsonStr) && (jsonStr[j] == ' ' || jsonStr[j] == ':') {
				j++
			}
			if j < len(jsonStr) && jsonStr[j] == '"' {
				j++
				start := j
				for j < len(jsonStr) && (jsonStr[j] != '"' || escapeNext) {
					if jsonStr[j] == '\\' {
						escapeNext = true
					} else {
						escapeNext = false
					}
					j++
				}
				if j < len(jsonStr) {
					value := jsonStr[start:j]
					if value != "" {
						result.WriteString(value)
						result.WriteString(" ")
					}
				}
			}
		}
	}

	return strings.TrimSpace(result.String())
}

// extractFromRawJSON scans for common text-bearing fields when even the
// fallback found nothing
func extractFromRawJSON(jsonStr string) string {
	patterns := []string{`"content"`, `"value"`, `"message"`, `"text"`, `"thinking"`, `"name"`, `"description"`}
	var result strings.Builder

	for _, pattern := range patterns {
		idx := strings.Index(jsonStr, pattern)
		if idx == -1 {
			continue
		}

		start := idx + len(pattern)
		for start < len(jsonStr) && (jsonStr[start] == ' ' || jsonStr[start] == ':') {
			start++
		}

		if start >= len(jsonStr) {
			continue
		}

		if jsonStr[start] == '"' {
			start++
			end := start
			escapeNext := false
			for end < len(jsonStr) && (jsonStr[end] != '"' || escapeNext) {
				if jsonStr[end] == '\\' {
					escapeNext = true
				} else {
					escapeNext = false
				}
				end++
			}
			if end < len(jsonStr) {
				value := jsonStr[start:end]
				value = strings.ReplaceAll(value, `\"`, `"`)
				value = strings.ReplaceAll(value, `\\`, `\`)
				value = strings.ReplaceAll(value, `\n`, "\n")
				value = strings.ReplaceAll(value, `\t`, "\t")
				if len(value) > 10 { // only substantial content
					result.WriteString(value)
					result.WriteString("\n")
				}
			}
		}
	}

	return strings.TrimSpace(result.String())
}

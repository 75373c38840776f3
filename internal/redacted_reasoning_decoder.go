package internal

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// decodeRedactedReasoning tries to recover readable text from a redacted
// reasoning payload. The payloads are base64url-wrapped and usually
// protobuf-framed; some are encrypted end to end and stay opaque. The
// bool reports whether anything readable came out; callers only index
// recovered text, never the raw blob.
func decodeRedactedReasoning(encoded string) (string, bool) {
	if encoded == "" {
		return "", false
	}

	decoded, err := decodeBase64URL(encoded)
	if err != nil {
		return encoded, false
	}

	if fields, ok := tryProtobufDecode(decoded); ok {
		if parts := readableFieldText(fields); len(parts) > 0 {
			return strings.Join(parts, "\n"), true
		}
	}

	// Structured decode failed or held nothing readable; scan the raw
	// wire format for string fields directly.
	var parts []string
	for _, s := range protobufStrings(decoded) {
		parts = append(parts, readableStringText(s)...)
	}
	if len(parts) > 0 {
		return strings.Join(parts, "\n"), true
	}

	// Entropy near 8 bits/byte means encryption, not encoding.
	entropy := shannonEntropy(decoded)
	if entropy > 6.0 {
		return fmt.Sprintf("[encrypted: %d bytes, entropy %.2f bits/byte]", len(decoded), entropy), false
	}
	return fmt.Sprintf("[undecoded: %d bytes, entropy %.2f bits/byte]", len(decoded), entropy), false
}

// decodeBase64URL decodes base64url input, tolerating stripped padding
// and falling back to standard base64.
func decodeBase64URL(s string) ([]byte, error) {
	if pad := (4 - len(s)%4) % 4; pad > 0 {
		s += strings.Repeat("=", pad)
	}
	decoded, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		decoded, err = base64.StdEncoding.DecodeString(s)
	}
	return decoded, err
}

// readableStringText collects the readable fragments of one extracted
// string: string values of any JSON it embeds, plus the string itself
// when it reads as text. Fragments of ten characters or fewer are noise.
func readableStringText(s string) []string {
	var parts []string
	if jsonBytes, ok := extractJSONFromBinary([]byte(s)); ok {
		var jsonData map[string]interface{}
		if err := json.Unmarshal(jsonBytes, &jsonData); err == nil {
			for _, v := range jsonData {
				if str, ok := v.(string); ok && isReadableText(str) && len(str) > 10 {
					parts = append(parts, str)
				}
			}
		}
	}
	if isReadableText(s) && len(s) > 10 {
		parts = append(parts, s)
	}
	return parts
}

// readableFieldText collects readable text from a decoded field map,
// recursing into nested messages.
func readableFieldText(fields map[string]interface{}) []string {
	var parts []string
	for _, value := range fields {
		switch v := value.(type) {
		case string:
			parts = append(parts, readableStringText(v)...)
		case map[string]interface{}:
			parts = append(parts, readableFieldText(v)...)
		}
	}
	return parts
}

// shannonEntropy measures bits per byte of the data. Encrypted content
// sits close to 8; encoded or compressed content sits lower.
func shannonEntropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}

	var counts [256]int
	for _, b := range data {
		counts[b]++
	}

	entropy := 0.0
	total := float64(len(data))
	for _, count := range counts {
		if count > 0 {
			p := float64(count) / total
			entropy -= p * math.Log2(p)
		}
	}
	return entropy
}

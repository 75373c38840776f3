package internal

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RichTextNode represents a node in the rich text structure
type RichTextNode struct {
	Type     string         `json:"type"`
	Text     string         `json:"text,omitempty"`
	Content  string         `json:"content,omitempty"` // Some nodes carry a content field
	Value    string         `json:"value,omitempty"`   // Some nodes carry a value field
	Children []RichTextNode `json:"children,omitempty"`
}

// RichTextRoot represents the root of the rich text structure
type RichTextRoot struct {
	Root RichTextNode `json:"root"`
}

// ExtractTextFromRichText parses richText JSON and extracts plain text.
// Stores have produced several container shapes over time, so parsing
// tries each known one before giving up.
func ExtractTextFromRichText(richTextJSON string) (string, error) {
	if richTextJSON == "" {
		return "", nil
	}

	// Most records wrap everything in root.children.
	var richTextData map[string]interface{}
	if err := json.Unmarshal([]byte(richTextJSON), &richTextData); err == nil {
		if root, ok := richTextData["root"].(map[string]interface{}); ok {
			if children, ok := root["children"].([]interface{}); ok {
				result := extractTextFromChildrenInterface(children)
				if result != "" {
					return result, nil
				}
			}
		}

		// Direct children array
		if children, ok := richTextData["children"].([]interface{}); ok {
			result := extractTextFromChildrenInterface(children)
			if result != "" {
				return result, nil
			}
		}
	}

	// Structured root object
	var rootStruct RichTextRoot
	if err := json.Unmarshal([]byte(richTextJSON), &rootStruct); err == nil {
		result := extractTextFromNode(rootStruct.Root)
		if result != "" {
			return result, nil
		}
	}

	// A bare node
	var node RichTextNode
	if err := json.Unmarshal([]byte(richTextJSON), &node); err == nil {
		result := extractTextFromNode(node)
		if result != "" {
			return result, nil
		}
	}

	// An array of nodes
	var nodes []RichTextNode
	if err := json.Unmarshal([]byte(richTextJSON), &nodes); err == nil {
		result := extractTextFromChildren(nodes)
		if result != "" {
			return result, nil
		}
	}

	return "", fmt.Errorf("failed to parse richText JSON in any known format")
}

// extractTextFromChildrenInterface extracts text from a decoded JSON array
func extractTextFromChildrenInterface(children []interface{}) string {
	var text string
	for _, childInterface := range children {
		childMap, ok := childInterface.(map[string]interface{})
		if !ok {
			continue
		}

		childType, _ := childMap["type"].(string)
		childText, _ := childMap["text"].(string)

		switch {
		case childType == "text" && childText != "":
			text += childText
		case childType == "code":
			if childChildren, ok := childMap["children"].([]interface{}); ok {
				codeText := extractTextFromChildrenInterface(childChildren)
				if codeText != "" {
					text += "\n```\n" + codeText + "\n```\n"
				}
			}
		case childType == "redacted_reasoning" || childType == "redacted-reasoning":
			var reasoningText string
			if childChildren, ok := childMap["children"].([]interface{}); ok {
				reasoningText = extractTextFromChildrenInterface(childChildren)
			}
			if reasoningText == "" {
				if content, ok := childMap["content"].(string); ok {
					reasoningText = content
				} else if data, ok := childMap["data"].(string); ok {
					reasoningText = data
				}
			}
			// Some encrypted traces decode; the rest stay out of the
			// extracted text rather than landing base64 in the index.
			if decoded, ok := decodeRedactedReasoning(reasoningText); ok {
				text += "\n```\n" + decoded + "\n```\n"
			}
		default:
			if childChildren, ok := childMap["children"].([]interface{}); ok {
				text += extractTextFromChildrenInterface(childChildren)
			}
		}
	}
	return text
}

// extractTextFromNode recursively extracts text from a node
func extractTextFromNode(node RichTextNode) string {
	var text string

	switch node.Type {
	case "text":
		if node.Text != "" {
			text += node.Text
		}
	case "code":
		codeText := extractTextFromChildren(node.Children)
		if codeText != "" {
			text += "\n```\n" + codeText + "\n```\n"
		}
	case "thinking", "tool", "tool_call", "function_call":
		inner := extractTextFromChildren(node.Children)
		if inner != "" {
			text += fmt.Sprintf("\n[%s]\n%s\n", node.Type, inner)
		}
	case "redacted_reasoning", "redacted-reasoning":
		reasoningText := extractTextFromChildren(node.Children)
		if reasoningText == "" {
			if node.Content != "" {
				reasoningText = node.Content
			} else if node.Value != "" {
				reasoningText = node.Value
			}
		}
		if decoded, ok := decodeRedactedReasoning(reasoningText); ok {
			text += "\n```\n" + decoded + "\n```\n"
		}
	default:
		// Unknown types: take any text-bearing field present.
		if node.Text != "" {
			text += node.Text
		}
		if node.Content != "" {
			if text != "" {
				text += "\n"
			}
			text += node.Content
		}
		if node.Value != "" {
			if text != "" {
				text += "\n"
			}
			text += node.Value
		}
	}

	if len(node.Children) > 0 && node.Type != "code" && node.Type != "redacted_reasoning" && node.Type != "redacted-reasoning" {
		childrenText := extractTextFromChildren(node.Children)
		if childrenText != "" && !strings.Contains(text, childrenText) {
			if text != "" && !strings.HasSuffix(text, "\n") {
				text += "\n"
			}
			text += childrenText
		}
	}

	return text
}

// extractTextFromChildren extracts text from an array of nodes
func extractTextFromChildren(children []RichTextNode) string {
	var text string
	for _, child := range children {
		text += extractTextFromNode(child)
	}
	return text
}

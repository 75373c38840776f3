package internal

import (
	"encoding/binary"
	"fmt"
	"unicode"
	"unicode/utf8"
)

// Protobuf wire types. Redacted reasoning payloads are protobuf-framed;
// no schema is published, so decoding walks the wire format directly.
const (
	wireVarint  = 0
	wireFixed64 = 1
	wireBytes   = 2
	wireFixed32 = 5
)

// decodeVarint decodes a protobuf varint, returning the value and the
// number of bytes consumed. Zero bytes consumed means invalid input.
func decodeVarint(data []byte) (uint64, int) {
	var result uint64
	var shift uint
	for i, b := range data {
		if i >= 10 {
			return 0, 0
		}
		result |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return result, i + 1
		}
		shift += 7
	}
	return 0, 0
}

// protobufStrings walks a wire-format buffer and collects every
// length-delimited field that holds readable text, or readable JSON
// buried in binary framing. Unknown fields of other wire types are
// skipped, not errors.
func protobufStrings(data []byte) []string {
	var found []string
	offset := 0

	for offset < len(data) {
		tag := data[offset]
		offset++

		// Single-byte tags only; the payloads seen in the wild use low
		// field numbers.
		switch tag & 0x07 {
		case wireVarint:
			for offset < len(data) && data[offset]&0x80 != 0 {
				offset++
			}
			if offset < len(data) {
				offset++
			}
			continue
		case wireFixed64:
			offset += 8
			continue
		case wireFixed32:
			offset += 4
			continue
		case wireBytes:
		default:
			return found
		}

		length, n := decodeVarint(data[offset:])
		if n == 0 {
			return found
		}
		offset += n
		if offset+int(length) > len(data) {
			return found
		}

		payload := data[offset : offset+int(length)]
		offset += int(length)

		if isReadableText(string(payload)) {
			found = append(found, string(payload))
		} else if jsonBytes, ok := extractJSONFromBinary(payload); ok {
			found = append(found, string(jsonBytes))
		}
	}
	return found
}

// protobufFields decodes a wire-format buffer into a field-number keyed
// map, recursing into length-delimited fields that parse as nested
// messages. Values that stay binary are summarized, not dumped.
func protobufFields(data []byte) (map[string]interface{}, error) {
	result := make(map[string]interface{})
	offset := 0
	fieldCount := 0

	for offset < len(data) {
		tag := data[offset]
		offset++

		wireType := tag & 0x07
		fieldKey := fmt.Sprintf("field_%d", tag>>3)
		fieldCount++
		// Runaway loops on non-protobuf data produce absurd field
		// counts long before they produce errors.
		if fieldCount > 100 {
			break
		}

		switch wireType {
		case wireVarint:
			value, n := decodeVarint(data[offset:])
			if n == 0 {
				return result, fmt.Errorf("invalid varint at offset %d", offset)
			}
			result[fieldKey] = value
			offset += n

		case wireFixed64:
			if offset+8 > len(data) {
				return result, fmt.Errorf("truncated fixed64 at offset %d", offset)
			}
			result[fieldKey] = binary.LittleEndian.Uint64(data[offset : offset+8])
			offset += 8

		case wireBytes:
			length, n := decodeVarint(data[offset:])
			if n == 0 {
				return result, fmt.Errorf("invalid length at offset %d", offset)
			}
			offset += n
			if offset+int(length) > len(data) {
				return result, fmt.Errorf("truncated field at offset %d", offset)
			}
			payload := data[offset : offset+int(length)]
			offset += int(length)

			switch {
			case isReadableText(string(payload)):
				result[fieldKey] = string(payload)
			default:
				if jsonBytes, ok := extractJSONFromBinary(payload); ok {
					result[fieldKey] = string(jsonBytes)
				} else if nested, err := protobufFields(payload); err == nil && len(nested) > 0 {
					result[fieldKey] = nested
				} else {
					result[fieldKey] = fmt.Sprintf("[binary: %d bytes]", len(payload))
				}
			}

		case wireFixed32:
			if offset+4 > len(data) {
				return result, fmt.Errorf("truncated fixed32 at offset %d", offset)
			}
			result[fieldKey] = binary.LittleEndian.Uint32(data[offset : offset+4])
			offset += 4

		default:
			return result, fmt.Errorf("unknown wire type %d at offset %d", wireType, offset-1)
		}
	}

	return result, nil
}

// tryProtobufDecode attempts a structured decode, reporting whether the
// buffer looked like protobuf at all.
func tryProtobufDecode(data []byte) (map[string]interface{}, bool) {
	if len(data) == 0 {
		return nil, false
	}
	if wt := data[0] & 0x07; wt > 5 {
		return nil, false
	}
	fields, err := protobufFields(data)
	if err != nil || len(fields) == 0 {
		return nil, false
	}
	return fields, true
}

// isReadableText reports whether s is mostly printable text. Decoded
// blobs wrap prose in binary framing; the 70% threshold keeps fragments
// with stray control bytes while rejecting raw binary. Short strings
// must be entirely printable.
func isReadableText(s string) bool {
	if s == "" || !utf8.ValidString(s) {
		return false
	}

	total := 0
	printable := 0
	for _, r := range s {
		total++
		if unicode.IsPrint(r) || r == '\n' || r == '\t' || r == '\r' {
			printable++
		}
	}

	if total < 5 {
		return printable == total
	}
	return float64(printable) >= 0.7*float64(total)
}

package oracle

import (
	"encoding/json"
	"fmt"
)

// extractJSON returns the first balanced JSON object in output. Answers may
// wrap the object in prose or markdown fences.
func extractJSON(output string) ([]byte, error) {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i, c := range output {
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if start != -1 {
				inString = true
			}
		case '{':
			if start == -1 {
				start = i
			}
			depth++
		case '}':
			if start == -1 {
				continue
			}
			depth--
			if depth == 0 {
				return []byte(output[start : i+1]), nil
			}
		}
	}
	return nil, ErrNoJSON
}

// decodeJSON extracts the first JSON object from output into v
func decodeJSON(output string, v interface{}) error {
	data, err := extractJSON(output)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", data, err)
	}
	return nil
}

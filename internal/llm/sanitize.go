package llm

import (
	"errors"
	"fmt"
	"strings"
)

var errNoJSONObject = errors.New("no JSON object in response")

// ExtractJSONObject returns the outermost {...} span of text, which tolerates
// code fences and prose around the object.
func ExtractJSONObject(text string) ([]byte, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, errNoJSONObject
	}
	return []byte(text[start : end+1]), nil
}

// DropEmpty removes null values and blank strings from decoded JSON so
// optional fields the model filled with placeholders validate as absent.
// It returns the cleaned value and the paths it dropped.
func DropEmpty(v any) (any, []string) {
	var dropped []string
	out := dropEmpty(v, "", &dropped)
	return out, dropped
}

func dropEmpty(v any, path string, dropped *[]string) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			p := k
			if path != "" {
				p = path + "." + k
			}
			if isEmpty(child) {
				delete(t, k)
				*dropped = append(*dropped, p)
				continue
			}
			t[k] = dropEmpty(child, p, dropped)
		}
		return t
	case []any:
		out := t[:0]
		for i, child := range t {
			p := fmt.Sprintf("%s[%d]", path, i)
			if child == nil {
				*dropped = append(*dropped, p)
				continue
			}
			out = append(out, dropEmpty(child, p, dropped))
		}
		return out
	default:
		return v
	}
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		s := strings.TrimSpace(t)
		return s == "" || strings.EqualFold(s, "null")
	}
	return false
}

package cfn

import (
	"fmt"
	"sort"
	"time"
)

// Ref references a parameter value or a resource's primary identifier.
func Ref(logicalID string) map[string]any {
	return map[string]any{"Ref": logicalID}
}

// GetAtt references an attribute of a resource.
func GetAtt(logicalID, attribute string) map[string]any {
	return map[string]any{"Fn::GetAtt": []any{logicalID, attribute}}
}

// Join concatenates parts with delimiter at deploy time.
func Join(delimiter string, parts ...any) map[string]any {
	return map[string]any{"Fn::Join": []any{delimiter, parts}}
}

// Sub substitutes ${Name} placeholders at deploy time.
func Sub(format string) map[string]any {
	return map[string]any{"Fn::Sub": format}
}

// Base64 encodes value at deploy time.
func Base64(value any) map[string]any {
	return map[string]any{"Fn::Base64": value}
}

// ISODuration formats d as an ISO 8601 duration such as PT30M, the format
// creation policy timeouts use. Sub-second precision is dropped.
func ISODuration(d time.Duration) string {
	if d < time.Second {
		return "PT0S"
	}
	d = d.Truncate(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	out := "PT"
	if h > 0 {
		out += fmt.Sprintf("%dH", h)
	}
	if m > 0 {
		out += fmt.Sprintf("%dM", m)
	}
	if s > 0 {
		out += fmt.Sprintf("%dS", s)
	}
	return out
}

// References returns every logical ID that value refers to through Ref,
// Fn::GetAtt or ${Name} placeholders, sorted and deduplicated. Pseudo
// parameters such as AWS::Region are skipped.
func References(value any) []string {
	set := make(map[string]struct{})
	collectRefs(value, set)
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func collectRefs(value any, set map[string]struct{}) {
	switch v := value.(type) {
	case map[string]any:
		for k, inner := range v {
			switch k {
			case "Ref":
				if id, ok := inner.(string); ok && !isPseudo(id) {
					set[id] = struct{}{}
				}
				continue
			case "Fn::GetAtt":
				if parts, ok := inner.([]any); ok && len(parts) > 0 {
					if id, ok := parts[0].(string); ok {
						set[id] = struct{}{}
					}
				}
				continue
			case "Fn::Sub":
				if s, ok := inner.(string); ok {
					for _, id := range subPlaceholders(s) {
						set[id] = struct{}{}
					}
				}
				continue
			}
			collectRefs(inner, set)
		}
	case []any:
		for _, inner := range v {
			collectRefs(inner, set)
		}
	case []map[string]any:
		for _, inner := range v {
			collectRefs(inner, set)
		}
	}
}

// subPlaceholders extracts the logical IDs named by ${Name} and
// ${Name.Attr} placeholders. ${!Literal} escapes are skipped.
func subPlaceholders(s string) []string {
	var ids []string
	for i := 0; i+1 < len(s); i++ {
		if s[i] != '$' || s[i+1] != '{' {
			continue
		}
		end := i + 2
		for end < len(s) && s[end] != '}' {
			end++
		}
		if end >= len(s) {
			break
		}
		name := s[i+2 : end]
		i = end
		if name == "" || name[0] == '!' {
			continue
		}
		for j := 0; j < len(name); j++ {
			if name[j] == '.' {
				name = name[:j]
				break
			}
		}
		if !isPseudo(name) {
			ids = append(ids, name)
		}
	}
	return ids
}

func isPseudo(id string) bool {
	return len(id) > 5 && id[:5] == "AWS::"
}

package study

import "strings"

// NormalizeText collapses a registry textblock into a single line.
func NormalizeText(block string) string {
	var kept []string
	for _, line := range strings.Split(block, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.TrimSpace(strings.Join(kept, " "))
}

// Criteria holds the bullet groups of an eligibility criteria textblock.
type Criteria struct {
	Inclusion []string `json:"inclusion"`
	Exclusion []string `json:"exclusion"`
}

const (
	inclusionMarker = "Inclusion Criteria"
	exclusionMarker = "Exclusion Criteria"
)

// SegmentCriteria splits a criteria textblock into inclusion and exclusion
// groups. Consecutive non-blank lines form one group, which is only emitted
// when a blank line follows it. The exclusion marker switches buckets without
// emitting the pending group, and a trailing group with no blank line after
// it is dropped. Nested criteria are not handled.
func SegmentCriteria(text string) Criteria {
	out := Criteria{Inclusion: []string{}, Exclusion: []string{}}
	var target *[]string
	var stack []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.Contains(line, inclusionMarker):
			target = &out.Inclusion
		case strings.Contains(line, exclusionMarker):
			target = &out.Exclusion
		case line == "":
			if len(stack) == 0 {
				continue
			}
			if target != nil {
				*target = append(*target, strings.Join(stack, " "))
			}
			stack = nil
		default:
			stack = append(stack, line)
		}
	}
	return out
}

// YesNo coerces a yes_no_enum value; an absent value counts as "No".
func YesNo(v any) (bool, error) {
	switch t := v.(type) {
	case nil:
		return false, nil
	case string:
		return strings.EqualFold(strings.TrimSpace(t), "yes"), nil
	}
	return false, &CoercionError{Type: typeName(v)}
}

// TriState coerces a yes_no_enum value where absence means "not answered".
func TriState(v any) *bool {
	if v == nil {
		return nil
	}
	b := v == "Yes"
	return &b
}

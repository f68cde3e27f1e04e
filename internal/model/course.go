package model

import "strings"

// Course is a reviewable course. Names are unique case-insensitively;
// courses are created implicitly the first time a review names them.
type Course struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CourseKey is the form under which course names are compared and
// indexed: trimmed and lowercased with Unicode rules, the same folding
// the review search uses. Both gateways store it next to the name.
func CourseKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

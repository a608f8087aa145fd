package schema

import (
	"cmp"
	"slices"

	"github.com/roach88/resync/internal/ir"
)

// applyUnknownKeys filters snapshot by policy. The snapshot itself is never
// modified; the returned object shares values with it.
func applyUnknownKeys(snapshot ir.IRObject, policy UnknownKeys, known func(string) bool) (ir.IRObject, []Issue) {
	out := make(ir.IRObject, len(snapshot))
	var issues []Issue
	for _, k := range snapshot.SortedKeys() {
		if policy != Allow && !known(k) {
			if policy == Reject {
				issues = append(issues, Issue{
					Field:   k,
					Code:    ErrCodeUnknown,
					Message: "field is not declared by the schema",
				})
			}
			continue
		}
		out[k] = snapshot[k]
	}
	return out, issues
}

// sortIssues orders issues by field, then code, so error output is stable.
func sortIssues(issues []Issue) {
	slices.SortStableFunc(issues, func(a, b Issue) int {
		return cmp.Or(
			cmp.Compare(a.Field, b.Field),
			cmp.Compare(a.Code, b.Code),
		)
	})
}

func dedupeIssues(issues []Issue) []Issue {
	seen := make(map[Issue]struct{}, len(issues))
	out := issues[:0]
	for _, issue := range issues {
		if _, ok := seen[issue]; ok {
			continue
		}
		seen[issue] = struct{}{}
		out = append(out, issue)
	}
	return out
}

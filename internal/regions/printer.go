package regions

import (
	"fmt"
	"strings"
)

// Print renders the region list to a stable text form, one region per line
// block, used by snapshot tests and the CLI driver.
func Print(result *Result) string {
	var sb strings.Builder
	for _, r := range result.Regions {
		parent := "-"
		if r.ParentID != nil {
			parent = fmt.Sprintf("%d", *r.ParentID)
		}
		deps := make([]string, len(r.Dependencies))
		for i, d := range r.Dependencies {
			deps[i] = d.String()
		}
		sb.WriteString(fmt.Sprintf("region %d parent=%s reactive=%t controlFlow=%t memoize=%t\n",
			r.ID, parent, r.Reactive, r.HasControlFlow, r.Memoize))
		sb.WriteString(fmt.Sprintf("  deps: [%s]\n", strings.Join(deps, ", ")))
		sb.WriteString(fmt.Sprintf("  decls: [%s]\n", strings.Join(r.Declarations, ", ")))
	}
	return sb.String()
}

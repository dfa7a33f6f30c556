package agentloop

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cascadehq/cascade/internal/project"
)

// ProjectSummary renders a compact description of the indexed project
// for inclusion in the system prompt: the file tree plus, for hub and
// entry-point files, a complexity/dependency annotation so the model
// can orient itself without calling get_structure first.
func ProjectSummary(proj *project.Project) string {
	paths := proj.Paths()
	sort.Strings(paths)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Project: %s\n", proj.Name)
	sb.WriteString("Files:\n")
	for _, p := range paths {
		sb.WriteString("  " + p)
		if meta, ok := proj.Meta(p); ok {
			var tags []string
			if meta.IsEntryPoint {
				tags = append(tags, "entry-point")
			}
			if meta.IsHub {
				tags = append(tags, "hub")
			}
			if len(tags) > 0 {
				fmt.Fprintf(&sb, " [%s, complexity=%d]", strings.Join(tags, ", "), meta.Complexity.Score)
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

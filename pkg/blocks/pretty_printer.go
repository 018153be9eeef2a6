package blocks

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// PrettyPrint renders the tree as YAML for debugging and golden tests.
func PrettyPrint(t *Tree) string {
	views := t.Render()
	if len(views) == 0 {
		return "[]\n"
	}
	b, err := yaml.Marshal(views)
	if err != nil {
		return "marshal error: " + err.Error() + "\n"
	}
	return string(b)
}

// Outline renders one line per block, indented by depth. Handy in test
// failure output where the full YAML dump is too noisy.
func Outline(t *Tree) string {
	var sb strings.Builder
	var visit func(id string, depth int)
	visit = func(id string, depth int) {
		b, ok := t.Get(id)
		if !ok {
			return
		}
		sb.WriteString(strings.Repeat("  ", depth))
		switch b.Kind {
		case KindText:
			sb.WriteString("text " + summarize(b.Content))
		case KindTool:
			sb.WriteString("tool " + b.ToolName + " " + b.ToolCallID)
		case KindAgent:
			sb.WriteString("agent " + b.AgentType + " " + b.AgentID + " [" + string(b.Status) + "]")
		case KindAgentList:
			sb.WriteString("agent-list " + strings.Join(b.Agents, ","))
		}
		sb.WriteByte('\n')
		for _, child := range t.Children(id) {
			visit(child, depth+1)
		}
	}
	for _, id := range t.Roots() {
		visit(id, 0)
	}
	return sb.String()
}

func summarize(s string) string {
	s = strings.ReplaceAll(s, "\n", "\\n")
	if len(s) > 40 {
		return s[:40] + "..."
	}
	return s
}

package blocks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeAppendChildFallsBackToTopLevel(t *testing.T) {
	tree := NewTree()
	b := NewToolBlock("call-1", "read_files", nil, "agent-missing")

	nested := tree.AppendChild("agent-missing", b)

	assert.False(t, nested)
	require.Equal(t, []string{"call-1"}, tree.Roots())
	got, ok := tree.Get("call-1")
	require.True(t, ok)
	assert.Equal(t, KindTool, got.Kind)
}

func TestTreeAppendChildNests(t *testing.T) {
	tree := NewTree()
	agent := NewAgentBlock("agent-1", "reviewer", "check the diff")
	tree.AppendRoot(agent)

	tool := NewToolBlock("call-1", "code_search", nil, "agent-1")
	nested := tree.AppendChild("agent-1", tool)

	assert.True(t, nested)
	assert.Equal(t, []string{"call-1"}, tree.Children("agent-1"))
	parent, ok := tree.Parent("call-1")
	require.True(t, ok)
	assert.Equal(t, "agent-1", parent)
}

func TestTreeDuplicateDeliveryIgnored(t *testing.T) {
	tree := NewTree()
	tree.AppendRoot(NewAgentBlock("agent-1", "reviewer", ""))
	tree.AppendRoot(NewAgentBlock("agent-1", "other-type", ""))

	require.Equal(t, 1, tree.Len())
	b, _ := tree.Get("agent-1")
	assert.Equal(t, "reviewer", b.AgentType)
}

func TestTreeRenamePreservesPositionAndChildren(t *testing.T) {
	tree := NewTree()
	tree.AppendRoot(NewTextBlock("intro", TextTypeOutput))
	tree.AppendRoot(NewAgentBlock("call-1-0", "file-picker", "find it"))
	tree.AppendChild("call-1-0", NewTextBlock("child text", TextTypeOutput))
	childID := tree.Children("call-1-0")[0]

	ok := tree.Rename("call-1-0", "agent_abc")
	require.True(t, ok)

	_, exists := tree.Get("call-1-0")
	assert.False(t, exists)

	b, exists := tree.Get("agent_abc")
	require.True(t, exists)
	assert.Equal(t, "agent_abc", b.ID)
	assert.Equal(t, "agent_abc", b.AgentID)
	assert.Equal(t, "find it", b.InitialPrompt)

	// position among roots is preserved, not appended
	roots := tree.Roots()
	require.Len(t, roots, 2)
	assert.Equal(t, "agent_abc", roots[1])

	// children follow the renamed node
	assert.Equal(t, []string{childID}, tree.Children("agent_abc"))
	parent, _ := tree.Parent(childID)
	assert.Equal(t, "agent_abc", parent)
}

func TestTreeRenameUpdatesAgentListMembership(t *testing.T) {
	tree := NewTree()
	list := NewAgentListBlock(nil)
	tree.AppendRoot(list)
	tree.AppendChild(list.ID, NewAgentBlock("call-1-0", "worker", ""))
	tree.AppendChild(list.ID, NewAgentBlock("call-1-1", "worker", ""))
	list.Agents = []string{"call-1-0", "call-1-1"}

	require.True(t, tree.Rename("call-1-1", "agent_b"))

	// the group's membership list follows the rename
	assert.Equal(t, []string{"call-1-0", "agent_b"}, list.Agents)
	assert.Equal(t, []string{"call-1-0", "agent_b"}, tree.Children(list.ID))
	parent, _ := tree.Parent("agent_b")
	assert.Equal(t, list.ID, parent)
}

func TestTreeRenameCollisionKeepsPlaceholder(t *testing.T) {
	tree := NewTree()
	tree.AppendRoot(NewAgentBlock("ph", "a", ""))
	tree.AppendRoot(NewAgentBlock("real", "b", ""))

	assert.False(t, tree.Rename("ph", "real"))
	_, ok := tree.Get("ph")
	assert.True(t, ok)
}

func TestTreeReparent(t *testing.T) {
	tree := NewTree()
	tree.AppendRoot(NewAgentBlock("parent", "orchestrator", ""))
	tree.AppendRoot(NewAgentBlock("child", "worker", ""))

	require.True(t, tree.Reparent("child", "parent"))
	assert.Equal(t, []string{"parent"}, tree.Roots())
	assert.Equal(t, []string{"child"}, tree.Children("parent"))

	// missing destination is a no-op
	assert.False(t, tree.Reparent("child", "nowhere"))
	assert.Equal(t, []string{"child"}, tree.Children("parent"))
}

func TestTreeReplaceChildrenDropsSubtree(t *testing.T) {
	tree := NewTree()
	tree.AppendRoot(NewAgentBlock("agent-1", "worker", ""))
	tree.AppendChild("agent-1", NewToolBlock("call-1", "read_files", nil, "agent-1"))
	tree.AppendChild("call-1", NewTextBlock("nested deep", TextTypeOutput))
	require.Equal(t, 3, tree.Len())

	final := NewTextBlock("final output", TextTypeOutput)
	require.True(t, tree.ReplaceChildren("agent-1", final))

	assert.Equal(t, 2, tree.Len())
	assert.Equal(t, []string{final.ID}, tree.Children("agent-1"))
	_, ok := tree.Get("call-1")
	assert.False(t, ok)
}

func TestTreeFindTool(t *testing.T) {
	tree := NewTree()
	tree.AppendRoot(NewAgentBlock("agent-1", "worker", ""))
	tree.AppendChild("agent-1", NewToolBlock("call-deep", "code_search", nil, "agent-1"))
	tree.AppendRoot(NewToolBlock("call-top", "end_turn", nil, ""))

	b, ok := tree.FindTool("call-deep")
	require.True(t, ok)
	assert.Equal(t, "code_search", b.ToolName)

	_, ok = tree.FindTool("call-unknown")
	assert.False(t, ok)
}

func TestTreeLastTextChild(t *testing.T) {
	tree := NewTree()
	_, ok := tree.LastTextChild("")
	assert.False(t, ok)

	first := NewTextBlock("first", TextTypeOutput)
	tree.AppendRoot(first)
	tree.AppendRoot(NewToolBlock("call-1", "read_files", nil, ""))

	got, ok := tree.LastTextChild("")
	require.True(t, ok)
	assert.Equal(t, first.ID, got.ID)

	second := NewTextBlock("second", TextTypeOutput)
	tree.AppendRoot(second)
	got, _ = tree.LastTextChild("")
	assert.Equal(t, second.ID, got.ID)
}

func TestTreeRenderNestsInInsertionOrder(t *testing.T) {
	tree := NewTree()
	tree.AppendRoot(NewTextBlock("a", TextTypeOutput))
	tree.AppendRoot(NewAgentBlock("agent-1", "worker", ""))
	tree.AppendChild("agent-1", NewTextBlock("b", TextTypeOutput))
	tree.AppendChild("agent-1", NewTextBlock("c", TextTypeOutput))

	views := tree.Render()
	require.Len(t, views, 2)
	assert.Equal(t, "a", views[0].Block.Content)
	require.Len(t, views[1].Children, 2)
	assert.Equal(t, "b", views[1].Children[0].Block.Content)
	assert.Equal(t, "c", views[1].Children[1].Block.Content)
}

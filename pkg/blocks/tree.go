package blocks

import (
	"github.com/rs/zerolog/log"
)

// Tree is a mutable, arbitrarily deep block tree stored as an arena keyed by
// block id, with parent/child index lists so nested updates are pointer
// rewrites instead of subtree copies.
//
// Every mutation degrades to a safe default when a referenced node is missing
// (top-level append, or no-op) so event reordering can never leave the tree
// inconsistent. Tree is not goroutine-safe; a single consumer owns it.
type Tree struct {
	nodes    map[string]*Block
	parent   map[string]string
	children map[string][]string
	roots    []string
}

func NewTree() *Tree {
	return &Tree{
		nodes:    map[string]*Block{},
		parent:   map[string]string{},
		children: map[string][]string{},
	}
}

// Get returns the block with the given id.
func (t *Tree) Get(id string) (*Block, bool) {
	b, ok := t.nodes[id]
	return b, ok
}

// Len returns the number of blocks in the tree.
func (t *Tree) Len() int { return len(t.nodes) }

// Roots returns the top-level block ids in insertion order.
func (t *Tree) Roots() []string {
	out := make([]string, len(t.roots))
	copy(out, t.roots)
	return out
}

// Children returns the child ids of the given block in insertion order.
func (t *Tree) Children(id string) []string {
	out := make([]string, len(t.children[id]))
	copy(out, t.children[id])
	return out
}

// Parent returns the parent id of the given block, if it has one.
func (t *Tree) Parent(id string) (string, bool) {
	p, ok := t.parent[id]
	return p, ok
}

// AppendRoot adds the block at the top level. A block whose id already exists
// is a duplicate delivery and is ignored.
func (t *Tree) AppendRoot(b *Block) {
	if b == nil {
		return
	}
	if _, exists := t.nodes[b.ID]; exists {
		log.Debug().Str("block_id", b.ID).Msg("duplicate block delivery ignored")
		return
	}
	t.nodes[b.ID] = b
	t.roots = append(t.roots, b.ID)
}

// AppendChild nests the block under parentID. When the parent cannot be
// found the block is appended at the top level instead; it is never dropped.
// Returns true if the block ended up nested.
func (t *Tree) AppendChild(parentID string, b *Block) bool {
	if b == nil {
		return false
	}
	if _, exists := t.nodes[b.ID]; exists {
		log.Debug().Str("block_id", b.ID).Msg("duplicate block delivery ignored")
		_, nested := t.parent[b.ID]
		return nested
	}
	if parentID == "" {
		t.AppendRoot(b)
		return false
	}
	if _, ok := t.nodes[parentID]; !ok {
		log.Warn().Str("parent_id", parentID).Str("block_id", b.ID).Msg("parent block not found; appending at top level")
		t.AppendRoot(b)
		return false
	}
	t.nodes[b.ID] = b
	t.parent[b.ID] = parentID
	t.children[parentID] = append(t.children[parentID], b.ID)
	return true
}

// Rename changes a block's id in place, preserving its position. Used when a
// placeholder agent is promoted to its real agent id. No-op if oldID is
// missing or newID already taken.
func (t *Tree) Rename(oldID, newID string) bool {
	if oldID == newID {
		return true
	}
	b, ok := t.nodes[oldID]
	if !ok {
		log.Warn().Str("block_id", oldID).Msg("rename target not found")
		return false
	}
	if _, taken := t.nodes[newID]; taken {
		log.Warn().Str("block_id", newID).Msg("rename collision; keeping placeholder id")
		return false
	}

	delete(t.nodes, oldID)
	b.ID = newID
	if b.Kind == KindAgent {
		b.AgentID = newID
	}
	t.nodes[newID] = b

	if p, ok := t.parent[oldID]; ok {
		delete(t.parent, oldID)
		t.parent[newID] = p
		replaceID(t.children[p], oldID, newID)
		if pb := t.nodes[p]; pb != nil && pb.Kind == KindAgentList {
			replaceID(pb.Agents, oldID, newID)
		}
	} else {
		replaceID(t.roots, oldID, newID)
	}
	if kids, ok := t.children[oldID]; ok {
		delete(t.children, oldID)
		t.children[newID] = kids
		for _, k := range kids {
			t.parent[k] = newID
		}
	}
	return true
}

// Reparent moves the block under newParentID, appended last among its
// children. Missing block or parent degrades to a no-op.
func (t *Tree) Reparent(id, newParentID string) bool {
	if _, ok := t.nodes[id]; !ok {
		log.Warn().Str("block_id", id).Msg("reparent target not found")
		return false
	}
	if _, ok := t.nodes[newParentID]; !ok {
		log.Warn().Str("parent_id", newParentID).Msg("reparent destination not found; leaving block in place")
		return false
	}
	if id == newParentID {
		return false
	}
	t.detach(id)
	t.parent[id] = newParentID
	t.children[newParentID] = append(t.children[newParentID], id)
	return true
}

// SetStatus updates an agent block's status.
func (t *Tree) SetStatus(id string, status Status) bool {
	b, ok := t.nodes[id]
	if !ok {
		log.Warn().Str("block_id", id).Str("status", string(status)).Msg("status target not found")
		return false
	}
	b.Status = status
	return true
}

// FindTool locates the tool block with the given call id anywhere in the
// tree, depth-first in insertion order.
func (t *Tree) FindTool(toolCallID string) (*Block, bool) {
	var found *Block
	t.Walk(func(b *Block) bool {
		if b.Kind == KindTool && b.ToolCallID == toolCallID {
			found = b
			return false
		}
		return true
	})
	return found, found != nil
}

// ReplaceChildren drops the block's entire subtree and installs the given
// blocks as its only children.
func (t *Tree) ReplaceChildren(id string, replacement ...*Block) bool {
	if _, ok := t.nodes[id]; !ok {
		log.Warn().Str("block_id", id).Msg("replace-children target not found")
		return false
	}
	for _, child := range t.children[id] {
		t.removeSubtree(child)
	}
	delete(t.children, id)
	for _, b := range replacement {
		t.AppendChild(id, b)
	}
	return true
}

// AppendTextContent appends a delta to a text block's content.
func (t *Tree) AppendTextContent(id string, delta string) bool {
	b, ok := t.nodes[id]
	if !ok || b.Kind != KindText {
		log.Warn().Str("block_id", id).Msg("text append target not found")
		return false
	}
	b.Content += delta
	return true
}

// LastTextChild returns the last child text block of the given parent
// (or top-level text block when parentID is empty).
func (t *Tree) LastTextChild(parentID string) (*Block, bool) {
	ids := t.roots
	if parentID != "" {
		ids = t.children[parentID]
	}
	for i := len(ids) - 1; i >= 0; i-- {
		if b := t.nodes[ids[i]]; b != nil && b.Kind == KindText {
			return b, true
		}
	}
	return nil, false
}

// Walk visits every block depth-first in insertion order. Return false from
// fn to stop early.
func (t *Tree) Walk(fn func(b *Block) bool) {
	var visit func(id string) bool
	visit = func(id string) bool {
		b, ok := t.nodes[id]
		if !ok {
			return true
		}
		if !fn(b) {
			return false
		}
		for _, child := range t.children[id] {
			if !visit(child) {
				return false
			}
		}
		return true
	}
	for _, id := range t.roots {
		if !visit(id) {
			return
		}
	}
}

// View is a materialized nested snapshot of a block and its children.
type View struct {
	Block    *Block  `yaml:"block"`
	Children []*View `yaml:"children,omitempty"`
}

// Render materializes the nested tree in insertion order.
func (t *Tree) Render() []*View {
	var build func(id string) *View
	build = func(id string) *View {
		b, ok := t.nodes[id]
		if !ok {
			return nil
		}
		v := &View{Block: b}
		for _, child := range t.children[id] {
			if cv := build(child); cv != nil {
				v.Children = append(v.Children, cv)
			}
		}
		return v
	}
	var out []*View
	for _, id := range t.roots {
		if v := build(id); v != nil {
			out = append(out, v)
		}
	}
	return out
}

func (t *Tree) detach(id string) {
	if p, ok := t.parent[id]; ok {
		t.children[p] = removeID(t.children[p], id)
		delete(t.parent, id)
		return
	}
	t.roots = removeID(t.roots, id)
}

func (t *Tree) removeSubtree(id string) {
	for _, child := range t.children[id] {
		t.removeSubtree(child)
	}
	delete(t.children, id)
	delete(t.parent, id)
	delete(t.nodes, id)
}

func replaceID(ids []string, old, new string) {
	for i, id := range ids {
		if id == old {
			ids[i] = new
			return
		}
	}
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

package schema

import (
	"errors"
	"fmt"
	"strings"
)

// NodeKind distinguishes template-driven folders from runtime-injected ones.
type NodeKind string

const (
	// KindCore marks folders that come from the business-type template.
	KindCore NodeKind = "core"
	// KindDynamicTeam marks per-team-member folders under MANAGER.
	KindDynamicTeam NodeKind = "dynamic-team"
	// KindDynamicSupplier marks per-supplier folders under SUPPLIERS.
	KindDynamicSupplier NodeKind = "dynamic-supplier"
)

// FolderSpec is one node of the canonical folder tree. Parents own children;
// the Parent pointer is a back-reference only.
type FolderSpec struct {
	Name     string
	Kind     NodeKind
	Depth    int
	Parent   *FolderSpec
	Children []*FolderSpec
}

// Path returns the logical path of the node joined by "/", e.g.
// "MANAGER/Unassigned". Flat-label providers use this as the display name.
func (f *FolderSpec) Path() string {
	if f.Parent == nil {
		return f.Name
	}
	return f.Parent.Path() + "/" + f.Name
}

// Root walks the parent chain to the top-level category node.
func (f *FolderSpec) Root() *FolderSpec {
	node := f
	for node.Parent != nil {
		node = node.Parent
	}
	return node
}

func (f *FolderSpec) addChild(name string, kind NodeKind) *FolderSpec {
	child := &FolderSpec{
		Name:   name,
		Kind:   kind,
		Depth:  f.Depth + 1,
		Parent: f,
	}
	f.Children = append(f.Children, child)
	return child
}

// Tree is an ordered canonical folder tree produced by Resolve.
type Tree struct {
	Roots []*FolderSpec
}

// Walk visits every node top-down, parents before children.
func (t *Tree) Walk(fn func(*FolderSpec)) {
	var visit func(node *FolderSpec)
	visit = func(node *FolderSpec) {
		fn(node)
		for _, child := range node.Children {
			visit(child)
		}
	}
	for _, root := range t.Roots {
		visit(root)
	}
}

// Lookup finds the first node whose name matches case-insensitively.
func (t *Tree) Lookup(name string) *FolderSpec {
	var found *FolderSpec
	t.Walk(func(node *FolderSpec) {
		if found == nil && strings.EqualFold(node.Name, name) {
			found = node
		}
	})
	return found
}

// Input carries everything Resolve needs. Resolution is pure: no I/O, and the
// same input always yields the same tree.
type Input struct {
	BusinessTypes []string
	TeamMembers   []string
	Suppliers     []string
}

// Schema-stage failures abort before any network call.
var (
	// ErrUnknownBusinessType is returned for a business type with no
	// registered template.
	ErrUnknownBusinessType = errors.New("schema: unknown business type")
	// ErrDuplicateSibling is returned when two siblings would share a name
	// case-insensitively.
	ErrDuplicateSibling = errors.New("schema: duplicate sibling name")
)

func duplicateSibling(parent, name string) error {
	return fmt.Errorf("%w: %q under %q", ErrDuplicateSibling, name, parent)
}

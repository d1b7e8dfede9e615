package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Resolve merges the base taxonomy, the business-type extensions and the
// current team/supplier names into one canonical folder tree. Extension
// entries win name conflicts against the base; dynamic nodes always attach to
// the fixed MANAGER and SUPPLIERS nodes.
func Resolve(in Input) (*Tree, error) {
	tree := &Tree{}
	index := make(map[string]*FolderSpec, len(baseCategories))

	addRoot := func(name string) *FolderSpec {
		root := &FolderSpec{Name: name, Kind: KindCore}
		tree.Roots = append(tree.Roots, root)
		index[CanonicalCategory(name)] = root
		return root
	}

	for _, name := range baseCategories {
		addRoot(name)
	}

	for _, businessType := range in.BusinessTypes {
		ext, ok := extensions[BusinessTypeSlug(businessType)]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownBusinessType, businessType)
		}

		for _, ce := range ext.Categories {
			root, ok := index[CanonicalCategory(ce.Category)]
			if !ok {
				root = addRoot(ce.Category)
			}
			if rename := strings.TrimSpace(ce.RenameTo); rename != "" {
				delete(index, CanonicalCategory(root.Name))
				root.Name = rename
				index[CanonicalCategory(rename)] = root
			}
			for _, sub := range ce.Subfolders {
				mergeChild(root, sub)
			}
		}
	}

	manager := index[CanonicalCategory(CategoryManager)]
	manager.addChild(UnassignedFolder, KindCore)
	for _, member := range cleanNames(in.TeamMembers) {
		manager.addChild(member, KindDynamicTeam)
	}

	suppliers := index[CanonicalCategory(CategorySuppliers)]
	for _, supplier := range cleanNames(in.Suppliers) {
		suppliers.addChild(supplier, KindDynamicSupplier)
	}

	if err := validateSiblings(tree); err != nil {
		return nil, err
	}

	return tree, nil
}

// mergeChild appends a core subfolder, letting the new entry replace the
// casing of an existing sibling with the same case-insensitive name.
func mergeChild(parent *FolderSpec, name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	for _, child := range parent.Children {
		if strings.EqualFold(child.Name, name) {
			child.Name = name
			return
		}
	}
	parent.addChild(name, KindCore)
}

func cleanNames(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// validateSiblings enforces the case-insensitive unique-name invariant for
// every sibling group, the tree roots included.
func validateSiblings(tree *Tree) error {
	check := func(parentName string, nodes []*FolderSpec) error {
		seen := make(map[string]struct{}, len(nodes))
		for _, node := range nodes {
			key := strings.ToLower(node.Name)
			if _, dup := seen[key]; dup {
				return duplicateSibling(parentName, node.Name)
			}
			seen[key] = struct{}{}
		}
		return nil
	}

	if err := check("<root>", tree.Roots); err != nil {
		return err
	}

	var walkErr error
	tree.Walk(func(node *FolderSpec) {
		if walkErr == nil && len(node.Children) > 0 {
			walkErr = check(node.Name, node.Children)
		}
	})
	return walkErr
}

// CategorySet is the set of names the downstream classifier may emit,
// normalised through CanonicalCategory.
type CategorySet map[string]struct{}

// Contains reports whether a folder name belongs to the set, matching
// case-insensitively with alias folding.
func (s CategorySet) Contains(name string) bool {
	_, ok := s[CanonicalCategory(name)]
	return ok
}

// Names returns the set members sorted, for stable reporting.
func (s CategorySet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExpectedCategories computes the Expected Category Set: every top-level and
// second-level name of the resolved tree for the given input.
func ExpectedCategories(in Input) (CategorySet, error) {
	tree, err := Resolve(in)
	if err != nil {
		return nil, err
	}

	set := make(CategorySet)
	tree.Walk(func(node *FolderSpec) {
		set[CanonicalCategory(node.Name)] = struct{}{}
	})
	return set, nil
}

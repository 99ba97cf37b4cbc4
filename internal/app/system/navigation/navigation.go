// internal/app/system/navigation/navigation.go
package navigation

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"

	"github.com/dalemusser/strataportal/internal/app/system/normalize"
	"gopkg.in/yaml.v3"
)

//go:embed nav.yaml
var defaultYAML []byte

// Item is one sidebar link.
type Item struct {
	Label string   `yaml:"label"`
	Path  string   `yaml:"path"`
	Icon  string   `yaml:"icon"`
	Roles []string `yaml:"roles"`
}

// Visible reports whether role may see the item. Items without roles are public.
func (it Item) Visible(role string) bool {
	if len(it.Roles) == 0 {
		return true
	}
	return slices.Contains(it.Roles, normalize.Role(role))
}

// matches reports whether path is the item's path or below it.
func (it Item) matches(path string) bool {
	if it.Path == "/" {
		return true
	}
	return path == it.Path || strings.HasPrefix(path, it.Path+"/")
}

// Section groups items under a heading.
type Section struct {
	Title string `yaml:"title"`
	Items []Item `yaml:"items"`
}

// Tree is the full navigation document. It is read-only after Parse.
type Tree struct {
	Sections []Section `yaml:"sections"`
}

// Parse decodes and validates a navigation document.
func Parse(data []byte) (*Tree, error) {
	var t Tree
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("navigation: decode: %w", err)
	}

	seen := make(map[string]bool)
	for si := range t.Sections {
		sec := &t.Sections[si]
		if strings.TrimSpace(sec.Title) == "" {
			return nil, fmt.Errorf("navigation: section %d has no title", si)
		}
		for ii := range sec.Items {
			it := &sec.Items[ii]
			if strings.TrimSpace(it.Label) == "" {
				return nil, fmt.Errorf("navigation: %s item %d has no label", sec.Title, ii)
			}
			if !strings.HasPrefix(it.Path, "/") {
				return nil, fmt.Errorf("navigation: %s: path %q must start with /", it.Label, it.Path)
			}
			if seen[it.Path] {
				return nil, fmt.Errorf("navigation: duplicate path %q", it.Path)
			}
			seen[it.Path] = true
			for i, r := range it.Roles {
				it.Roles[i] = normalize.Role(r)
			}
		}
	}
	return &t, nil
}

var defaultTree = mustParse(defaultYAML)

func mustParse(data []byte) *Tree {
	t, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return t
}

// Default returns the portal's built-in navigation tree.
func Default() *Tree { return defaultTree }

// Active returns the item whose path is the longest prefix of path,
// matching whole path segments only.
func (t *Tree) Active(path string) (Item, bool) {
	var best Item
	found := false
	for _, sec := range t.Sections {
		for _, it := range sec.Items {
			if it.matches(path) && (!found || len(it.Path) > len(best.Path)) {
				best, found = it, true
			}
		}
	}
	return best, found
}

// Items returns every item in document order.
func (t *Tree) Items() []Item {
	var out []Item
	for _, sec := range t.Sections {
		out = append(out, sec.Items...)
	}
	return out
}

// ItemVM is an item prepared for the menu template.
type ItemVM struct {
	Label  string
	Path   string
	Icon   string
	Active bool
}

// SectionVM is a section prepared for the menu template.
type SectionVM struct {
	Title string
	Items []ItemVM
}

// Menu returns the sections visible to role, with the item for path marked
// active. Sections left without items are omitted.
func (t *Tree) Menu(role, path string) []SectionVM {
	active, hasActive := t.Active(path)

	var out []SectionVM
	for _, sec := range t.Sections {
		vm := SectionVM{Title: sec.Title}
		for _, it := range sec.Items {
			if !it.Visible(role) {
				continue
			}
			vm.Items = append(vm.Items, ItemVM{
				Label:  it.Label,
				Path:   it.Path,
				Icon:   it.Icon,
				Active: hasActive && it.Path == active.Path,
			})
		}
		if len(vm.Items) > 0 {
			out = append(out, vm)
		}
	}
	return out
}

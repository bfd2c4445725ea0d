// Package content describes the read-only appearance catalog consulted when
// tile navigability is refreshed.
package content

import (
	"fmt"
	"strings"
	"sync"
)

// Group is the appearance group of a content id.
type Group uint8

const (
	GroupObject Group = iota
	GroupOutfit
	GroupEffect
	GroupMissile
)

var groupNames = [...]string{"object", "outfit", "effect", "missile"}

func (g Group) String() string {
	if int(g) < len(groupNames) {
		return groupNames[g]
	}
	return fmt.Sprintf("group(%d)", uint8(g))
}

// ParseGroup parses a group name (case insensitive).
func ParseGroup(s string) (Group, error) {
	for i, name := range groupNames {
		if strings.EqualFold(s, name) {
			return Group(i), nil
		}
	}
	return 0, fmt.Errorf("unknown appearance group %q", s)
}

// UnmarshalText lets groups be written by name in config files.
func (g *Group) UnmarshalText(b []byte) error {
	parsed, err := ParseGroup(string(b))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (g Group) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// ID identifies an appearance inside its group.
type ID struct {
	Group Group  `json:"group" yaml:"group"`
	ID    uint32 `json:"id" yaml:"id"`
}

func (id ID) String() string {
	return fmt.Sprintf("%s:%d", id.Group, id.ID)
}

// VisualElement is a catalog entry. Only Flags is interpreted by the
// engine; the rest is passed through.
type VisualElement[N any] struct {
	ID         ID
	Name       string
	Flags      N
	Properties map[string]any
}

// Catalog resolves content ids to visual elements.
type Catalog[N any] interface {
	Lookup(id ID) (VisualElement[N], bool)
}

// MemoryCatalog is a concurrency-safe in-memory Catalog.
type MemoryCatalog[N any] struct {
	mu       sync.RWMutex
	elements map[ID]VisualElement[N]
}

// NewMemoryCatalog creates an empty catalog.
func NewMemoryCatalog[N any]() *MemoryCatalog[N] {
	return &MemoryCatalog[N]{elements: make(map[ID]VisualElement[N])}
}

// Put adds or replaces an element.
func (c *MemoryCatalog[N]) Put(el VisualElement[N]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.elements[el.ID] = el
}

// Lookup implements Catalog.
func (c *MemoryCatalog[N]) Lookup(id ID) (VisualElement[N], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	el, ok := c.elements[id]
	return el, ok
}

// Len returns the number of elements.
func (c *MemoryCatalog[N]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.elements)
}

package rbac

import (
	"github.com/feedbackhub/feedbackhub/internal/shared"
)

// Catalog is the closed, ordered set of permission tags known to the
// platform. It is assembled once at startup; there is no runtime mutation.
// Adding a permission is a deploy-time change.
type Catalog struct {
	ordered []string
	index   map[string]struct{}
}

// NewCatalog builds a catalog from the given tags, preserving order and
// dropping duplicates.
func NewCatalog(tags ...string) *Catalog {
	c := &Catalog{index: make(map[string]struct{}, len(tags))}
	for _, tag := range tags {
		if _, ok := c.index[tag]; ok {
			continue
		}
		c.index[tag] = struct{}{}
		c.ordered = append(c.ordered, tag)
	}
	return c
}

// DefaultCatalog returns the full platform permission catalog.
func DefaultCatalog() *Catalog {
	tags := []string{shared.PermManageAll}
	tags = append(tags, shared.CoreScopes()...)
	tags = append(tags, shared.FeedbackScopes()...)
	return NewCatalog(tags...)
}

// Contains reports whether the tag is part of the catalog.
func (c *Catalog) Contains(tag string) bool {
	_, ok := c.index[tag]
	return ok
}

// All returns the tags in declaration order. Callers must not mutate the
// returned slice.
func (c *Catalog) All() []string {
	out := make([]string, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Len returns the catalog size.
func (c *Catalog) Len() int {
	return len(c.ordered)
}

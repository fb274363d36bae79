// Package censor implements attribute visibility. A censored attribute
// behaves, for the current caller, exactly as if it did not exist.
package censor

import (
	"sort"

	"github.com/siftql/sift/pkg/schema"
)

// PermissionChecker is an optional capability consulted for relation
// attributes: a relation is censored when the current user may not view
// its target entity.
type PermissionChecker interface {
	CanView(user interface{}, entity string) bool
}

// Censor decides, per (entity, attribute) pair, whether the attribute is
// exposed to the current caller.
//
// Precedence, highest first:
//  1. the permission checker, for relation attributes only;
//  2. the per-query public list (when declared for an entity, only the
//     listed attributes are visible and the private lists are ignored);
//  3. the per-query private list;
//  4. the process-wide private list from the settings.
//
// Per-query declarations therefore override process-wide ones.
type Censor struct {
	intro   schema.Introspector
	public  map[string]map[string]bool
	private map[string]map[string]bool
	global  map[string]map[string]bool
	user    interface{}
	perms   PermissionChecker
}

// New creates a censor. public and private are per-query declarations,
// global is the process-wide private list. perms may be nil to disable
// permission-based censoring.
func New(intro schema.Introspector, public, private, global map[string][]string,
	user interface{}, perms PermissionChecker) *Censor {
	return &Censor{
		intro:   intro,
		public:  toSets(public),
		private: toSets(private),
		global:  toSets(global),
		user:    user,
		perms:   perms,
	}
}

func toSets(m map[string][]string) map[string]map[string]bool {
	sets := make(map[string]map[string]bool, len(m))
	for entity, fields := range m {
		set := make(map[string]bool, len(fields))
		for _, f := range fields {
			set[f] = true
		}
		sets[entity] = set
	}
	return sets
}

// IsPrivate reports whether the attribute should be hidden from the
// current caller.
func (c *Censor) IsPrivate(entity, attr string) bool {
	if c.perms != nil && c.intro.IsRelation(entity, attr) {
		target, ok := c.intro.RelationTarget(entity, attr)
		if ok && !c.perms.CanView(c.user, target) {
			return true
		}
	}

	if public, ok := c.public[entity]; ok {
		return !public[attr]
	}
	if private, ok := c.private[entity]; ok {
		return private[attr]
	}
	if global, ok := c.global[entity]; ok {
		return global[attr]
	}
	return false
}

// IsPublic reports whether the attribute is exposed to the current caller.
func (c *Censor) IsPublic(entity, attr string) bool {
	return !c.IsPrivate(entity, attr)
}

// Filter returns the subset of names visible to the current caller.
func (c *Censor) Filter(entity string, names []string) []string {
	visible := make([]string, 0, len(names))
	for _, name := range names {
		if c.IsPublic(entity, name) {
			visible = append(visible, name)
		}
	}
	return visible
}

// VisibleAttributes returns the sorted list of the entity's attributes
// visible to the current caller. Used to populate error details.
func (c *Censor) VisibleAttributes(entity string) []string {
	visible := c.Filter(entity, c.intro.Attributes(entity))
	sort.Strings(visible)
	return visible
}

// VisibleRelations returns the sorted list of the entity's relation
// attributes visible to the current caller.
func (c *Censor) VisibleRelations(entity string) []string {
	var visible []string
	for _, name := range c.intro.Attributes(entity) {
		if c.intro.IsRelation(entity, name) && c.IsPublic(entity, name) {
			visible = append(visible, name)
		}
	}
	sort.Strings(visible)
	return visible
}

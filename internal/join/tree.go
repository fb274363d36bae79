package join

import (
	"sort"
	"strings"

	"github.com/siftql/sift/pkg/storage"
)

// Tree holds the expansion nodes of one query, keyed by relation path.
// Adding a deep path materializes its missing ancestors so that the
// serialized output always nests through every intermediate relation.
type Tree struct {
	Roots map[string]*Node

	c    *Compiler
	root string
}

// NewTree returns an empty tree for the given root entity.
func NewTree(c *Compiler, root string) *Tree {
	return &Tree{Roots: make(map[string]*Node), c: c, root: root}
}

// AddValue compiles one c:join directive value and adds it.
func (t *Tree) AddValue(value string) error {
	node, err := t.c.Compile(value, t.root)
	if err != nil {
		return err
	}
	t.Add(node)
	return nil
}

// Add inserts the node, creating bare intermediate nodes for any
// ancestor relation not yet expanded. An intermediate node renders
// only the next relation; re-adding a path replaces the old node but
// keeps its children.
func (t *Tree) Add(node *Node) {
	segments := strings.Split(node.Path, storage.PathSep)
	parent := t.Roots
	entity := t.root
	for i := 0; i < len(segments)-1; i++ {
		attr := segments[i]
		child, ok := parent[attr]
		if !ok {
			child = t.intermediate(strings.Join(segments[:i+1], storage.PathSep), entity, attr)
			parent[attr] = child
		}
		// Nested expansion supersedes the relation's identifier form
		// in the parent output.
		delete(child.Ones, segments[i+1])
		delete(child.Manys, segments[i+1])
		entity = child.Entity
		parent = child.Children
	}
	attr := segments[len(segments)-1]
	if old, ok := parent[attr]; ok {
		node.Children = old.Children
	}
	parent[attr] = node
}

// Node returns the node at the given path, if any.
func (t *Tree) Node(path string) (*Node, bool) {
	segments := strings.Split(path, storage.PathSep)
	nodes := t.Roots
	var node *Node
	for _, s := range segments {
		var ok bool
		node, ok = nodes[s]
		if !ok {
			return nil, false
		}
		nodes = node.Children
	}
	return node, true
}

// Paths lists every expanded relation path, shallowest first. The
// order matches what the batching loader needs to resolve parents
// before children.
func (t *Tree) Paths() []string {
	var paths []string
	var walk func(nodes map[string]*Node)
	walk = func(nodes map[string]*Node) {
		for _, n := range nodes {
			paths = append(paths, n.Path)
			walk(n.Children)
		}
	}
	walk(t.Roots)
	sort.Slice(paths, func(i, j int) bool {
		di := strings.Count(paths[i], storage.PathSep)
		dj := strings.Count(paths[j], storage.PathSep)
		if di != dj {
			return di < dj
		}
		return paths[i] < paths[j]
	})
	return paths
}

// intermediate builds a pass-through node that exposes only the next
// relation level.
func (t *Tree) intermediate(path, owner, attr string) *Node {
	target, _ := t.c.Intro.RelationTarget(owner, attr)
	return &Node{
		Path:     path,
		Attr:     attr,
		Entity:   target,
		Many:     t.c.Intro.IsToMany(owner, attr),
		Scalars:  make(map[string]bool),
		Ones:     make(map[string]bool),
		Manys:    make(map[string]bool),
		Children: make(map[string]*Node),
	}
}

package models

import "strings"

// ID is an opaque handle identity. Two handles are the same object if and only if
// their IDs are equal.
type ID string

// Unit is a behavior unit attached to a node. Its concrete type is unknown to the
// core; everything beyond identity is discovered through capabilities.
type Unit interface {
	ID() ID
	Name() string
}

// Container is a named grouping of node trees (a scene).
type Container struct {
	id    ID
	name  string
	roots []*Node
}

func NewContainer(id ID, name string) *Container {
	return &Container{id: id, name: name}
}

func (c *Container) ID() ID         { return c.id }
func (c *Container) Name() string   { return c.name }
func (c *Container) Roots() []*Node { return c.roots }

// AddRoot attaches a top-level node to the container and re-parents its subtree.
func (c *Container) AddRoot(n *Node) {
	n.parent = nil
	n.setContainer(c)
	c.roots = append(c.roots, n)
}

// Walk visits every node depth-first, pre-order. Returning false from visit
// stops the walk.
func (c *Container) Walk(visit func(*Node) bool) {
	for _, root := range c.roots {
		if !root.walk(visit) {
			return
		}
	}
}

// Node is a member of a container tree. Nodes host units and are only traversed,
// never indexed.
type Node struct {
	id        ID
	name      string
	parent    *Node
	children  []*Node
	units     []Unit
	container *Container
}

func NewNode(id ID, name string, units ...Unit) *Node {
	return &Node{id: id, name: name, units: units}
}

func (n *Node) ID() ID                { return n.id }
func (n *Node) Name() string          { return n.name }
func (n *Node) Parent() *Node         { return n.parent }
func (n *Node) Children() []*Node     { return n.children }
func (n *Node) Units() []Unit         { return n.units }
func (n *Node) Container() *Container { return n.container }

func (n *Node) AddUnit(u Unit) {
	n.units = append(n.units, u)
}

func (n *Node) AddChild(child *Node) {
	child.parent = n
	child.setContainer(n.container)
	n.children = append(n.children, child)
}

// Path returns the slash separated names from the root down to this node.
func (n *Node) Path() string {
	var parts []string
	for cur := n; cur != nil; cur = cur.parent {
		parts = append(parts, cur.name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

func (n *Node) setContainer(c *Container) {
	n.container = c
	for _, child := range n.children {
		child.setContainer(c)
	}
}

func (n *Node) walk(visit func(*Node) bool) bool {
	if !visit(n) {
		return false
	}
	for _, child := range n.children {
		if !child.walk(visit) {
			return false
		}
	}
	return true
}

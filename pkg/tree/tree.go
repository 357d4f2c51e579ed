// Package tree indexes a story tree by address and id and answers the
// structural questions the engine asks while walking it.
package tree

import (
	"strconv"
	"strings"

	"github.com/aretw0/fable/pkg/domain"
)

// Index is an immutable lookup structure over a story tree.
type Index struct {
	root   *domain.Node
	byAddr map[string]*domain.Node
	byID   map[string]*domain.Node
	parent map[*domain.Node]*domain.Node
	pos    map[*domain.Node]int
	order  []*domain.Node
}

// NewIndex walks root once and records every node.
// Addresses are assigned first if any node lacks one.
func NewIndex(root *domain.Node) *Index {
	ix := &Index{
		root:   root,
		byAddr: make(map[string]*domain.Node),
		byID:   make(map[string]*domain.Node),
		parent: make(map[*domain.Node]*domain.Node),
		pos:    make(map[*domain.Node]int),
	}
	if root == nil {
		return ix
	}
	if !Addressed(root) {
		AssignAddresses(root)
	}
	Walk(root, func(n *domain.Node) bool {
		ix.order = append(ix.order, n)
		ix.byAddr[n.Address] = n
		if id := n.ID(); id != "" {
			if _, dup := ix.byID[id]; !dup {
				ix.byID[id] = n
			}
		}
		for i, c := range n.Children {
			ix.parent[c] = n
			ix.pos[c] = i
		}
		return true
	})
	return ix
}

// Root returns the indexed root.
func (ix *Index) Root() *domain.Node { return ix.root }

// Len returns the number of nodes.
func (ix *Index) Len() int { return len(ix.order) }

// Nodes returns every node in depth-first order.
func (ix *Index) Nodes() []*domain.Node { return ix.order }

// FindByAddress returns the node at addr.
func (ix *Index) FindByAddress(addr string) (*domain.Node, bool) {
	n, ok := ix.byAddr[addr]
	return n, ok
}

// FindByID returns the first node carrying id.
func (ix *Index) FindByID(id string) (*domain.Node, bool) {
	n, ok := ix.byID[id]
	return n, ok
}

// Resolve finds a jump target written as "#id", "id" or an address.
func (ix *Index) Resolve(ref string) (*domain.Node, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, false
	}
	if n, ok := ix.byID[strings.TrimPrefix(ref, "#")]; ok {
		return n, true
	}
	return ix.FindByAddress(ref)
}

// FindFirst returns the first node, in document order, with the given tag.
func (ix *Index) FindFirst(tag string) *domain.Node {
	for _, n := range ix.order {
		if n.Type == tag {
			return n
		}
	}
	return nil
}

// FindAll returns every node matching pred in document order.
func (ix *Index) FindAll(pred func(*domain.Node) bool) []*domain.Node {
	var out []*domain.Node
	for _, n := range ix.order {
		if pred(n) {
			out = append(out, n)
		}
	}
	return out
}

// Parent returns the parent of n, or nil for the root.
func (ix *Index) Parent(n *domain.Node) *domain.Node {
	return ix.parent[n]
}

// Ancestors returns the chain from n's parent up to the root.
func (ix *Index) Ancestors(n *domain.Node) []*domain.Node {
	var out []*domain.Node
	for p := ix.parent[n]; p != nil; p = ix.parent[p] {
		out = append(out, p)
	}
	return out
}

// Contains reports whether addr is ancestor or equal to inner.
func (ix *Index) Contains(ancestor, inner string) bool {
	if ancestor == "" || inner == "" {
		return false
	}
	a, ok := ix.byAddr[ancestor]
	if !ok {
		return false
	}
	n, ok := ix.byAddr[inner]
	if !ok {
		return false
	}
	for ; n != nil; n = ix.parent[n] {
		if n == a {
			return true
		}
	}
	return false
}

// WouldEscape reports whether moving to the address to leaves the subtree
// owned by owner. Moving to the end of the tree ("") always escapes.
func (ix *Index) WouldEscape(to, owner string) bool {
	if owner == "" {
		return false
	}
	return !ix.Contains(owner, to)
}

// NextSibling returns the next node in depth-first document order.
// With skipChildren the subtree of n is skipped.
func (ix *Index) NextSibling(n *domain.Node, skipChildren bool) *domain.Node {
	return ix.Next(n, skipChildren, nil)
}

// Next is NextSibling with sealed containers: flow never climbs out of a
// node for which sealed returns true, it yields nil instead.
func (ix *Index) Next(n *domain.Node, skipChildren bool, sealed func(*domain.Node) bool) *domain.Node {
	if n == nil {
		return nil
	}
	if !skipChildren && len(n.Children) > 0 {
		return n.Children[0]
	}
	for cur := n; cur != nil; {
		p := ix.parent[cur]
		if p == nil {
			return nil
		}
		if i := ix.pos[cur]; i+1 < len(p.Children) {
			return p.Children[i+1]
		}
		if sealed != nil && sealed(p) {
			return nil
		}
		cur = p
	}
	return nil
}

// Walk visits nodes depth-first. Returning false prunes the subtree.
func Walk(n *domain.Node, fn func(*domain.Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// FindByAddress searches the tree without an index.
func FindByAddress(root *domain.Node, addr string) *domain.Node {
	var found *domain.Node
	Walk(root, func(n *domain.Node) bool {
		if found != nil {
			return false
		}
		if n.Address == addr {
			found = n
			return false
		}
		return addr == "" || n.Address == "" || strings.HasPrefix(addr, n.Address+".")
	})
	return found
}

// FindAll searches the tree without an index.
func FindAll(root *domain.Node, pred func(*domain.Node) bool) []*domain.Node {
	var out []*domain.Node
	Walk(root, func(n *domain.Node) bool {
		if pred(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// AssignAddresses numbers every node by sibling position, starting with
// the root at "0".
func AssignAddresses(root *domain.Node) {
	assign(root, domain.RootAddress)
}

func assign(n *domain.Node, addr string) {
	if n == nil {
		return
	}
	n.Address = addr
	for i, c := range n.Children {
		assign(c, addr+"."+strconv.Itoa(i))
	}
}

// Addressed reports whether every node already carries an address.
func Addressed(root *domain.Node) bool {
	ok := true
	Walk(root, func(n *domain.Node) bool {
		if n.Address == "" {
			ok = false
		}
		return ok
	})
	return ok
}

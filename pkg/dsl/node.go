package dsl

import (
	"strings"

	"github.com/aretw0/fable/pkg/domain"
)

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    *domain.Node
	builder *Builder
}

// Attr sets an attribute.
func (n *NodeBuilder) Attr(key, value string) *NodeBuilder {
	if n.node.Attributes == nil {
		n.node.Attributes = make(map[string]string)
	}
	n.node.Attributes[key] = value
	return n
}

// ID sets the author identifier used by jumps and yields.
func (n *NodeBuilder) ID(id string) *NodeBuilder { return n.Attr(domain.AttrID, id) }

// When guards the node with a condition.
func (n *NodeBuilder) When(cond string) *NodeBuilder { return n.Attr(domain.AttrIf, cond) }

// From sets the speaker of a dialogue line.
func (n *NodeBuilder) From(speaker string) *NodeBuilder { return n.Attr(domain.AttrFrom, speaker) }

// To sets the addressees of a dialogue line, or the variable an input is
// saved to.
func (n *NodeBuilder) To(names ...string) *NodeBuilder {
	return n.Attr(domain.AttrTo, strings.Join(names, ","))
}

// SaveTo is To for inputs.
func (n *NodeBuilder) SaveTo(variable string) *NodeBuilder { return n.To(variable) }

// Fallback sets where an input goes after its retries run out.
func (n *NodeBuilder) Fallback(ref string) *NodeBuilder { return n.Attr(domain.AttrFallback, ref) }

// Text sets the node text.
func (n *NodeBuilder) Text(text string) *NodeBuilder {
	n.node.Text = text
	return n
}

// Field declares an input field. Options apply to enum fields.
func (n *NodeBuilder) Field(name, typ string, options ...string) *NodeBuilder {
	f := &domain.Node{
		Type:       domain.TagField,
		Attributes: map[string]string{domain.AttrName: name, domain.AttrRequired: "true"},
	}
	if typ != "" {
		f.Attributes[domain.AttrType] = typ
	}
	if len(options) > 0 {
		f.Attributes[domain.AttrOptions] = strings.Join(options, ",")
	}
	n.node.Children = append(n.node.Children, f)
	return n
}

// Do builds the node children.
func (n *NodeBuilder) Do(body func(*Builder)) *NodeBuilder {
	if body != nil {
		body(n.child())
	}
	return n
}

func (n *NodeBuilder) child() *Builder {
	return &Builder{name: n.builder.name, parent: n.node}
}

// Build returns the underlying node.
func (n *NodeBuilder) Build() *domain.Node {
	return n.node
}

package domain

// Node is one element of the story tree.
// Address encodes the depth-first sibling position ("0", "0.2", "0.2.1")
// and is stable for the lifetime of a compiled story.
type Node struct {
	Address    string            `json:"address,omitempty" yaml:"address,omitempty"`
	Type       string            `json:"type" yaml:"type"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Children   []*Node           `json:"children,omitempty" yaml:"children,omitempty"`
	Text       string            `json:"text,omitempty" yaml:"text,omitempty"`
}

// Attr returns the raw attribute value.
func (n *Node) Attr(key string) (string, bool) {
	if n == nil || n.Attributes == nil {
		return "", false
	}
	v, ok := n.Attributes[key]
	return v, ok
}

// AttrOr returns the attribute value or def when absent.
func (n *Node) AttrOr(key, def string) string {
	if v, ok := n.Attr(key); ok {
		return v
	}
	return def
}

// ID returns the author-assigned identifier, if any.
func (n *Node) ID() string {
	v, _ := n.Attr(AttrID)
	return v
}

// Is reports whether the node carries one of the given tags.
func (n *Node) Is(tags ...string) bool {
	if n == nil {
		return false
	}
	for _, t := range tags {
		if n.Type == t {
			return true
		}
	}
	return false
}

// FirstChild returns the first child or nil.
func (n *Node) FirstChild() *Node {
	if n == nil || len(n.Children) == 0 {
		return nil
	}
	return n.Children[0]
}

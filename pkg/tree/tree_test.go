package tree

import (
	"testing"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *domain.Node {
	return &domain.Node{Type: "root", Children: []*domain.Node{
		{Type: "p", Text: "one"},
		{Type: "block", Attributes: map[string]string{"id": "b"}, Children: []*domain.Node{
			{Type: "p", Text: "inside"},
			{Type: "p", Text: "last"},
		}},
		{Type: "sec", Children: []*domain.Node{
			{Type: "p", Text: "nested"},
		}},
		{Type: "p", Text: "tail"},
	}}
}

func TestAssignAddresses(t *testing.T) {
	root := sample()
	ix := NewIndex(root)

	assert.Equal(t, "0", root.Address)
	assert.Equal(t, "0.1.1", root.Children[1].Children[1].Address)

	// every node is reachable by its own address
	for _, n := range ix.Nodes() {
		got, ok := ix.FindByAddress(n.Address)
		require.True(t, ok, n.Address)
		assert.Same(t, n, got)
		assert.Same(t, n, FindByAddress(root, n.Address))
	}
}

func TestNext(t *testing.T) {
	root := sample()
	ix := NewIndex(root)
	sealed := func(n *domain.Node) bool { return n.Type == "block" }

	block := root.Children[1]
	last := block.Children[1]
	nested := root.Children[2].Children[0]

	tests := []struct {
		name   string
		from   *domain.Node
		skip   bool
		sealed func(*domain.Node) bool
		want   *domain.Node
	}{
		{"descend", block, false, nil, block.Children[0]},
		{"skip subtree", block, true, nil, root.Children[2]},
		{"climb out", last, true, nil, root.Children[2]},
		{"sealed stops", last, true, sealed, nil},
		{"climb from section", nested, true, sealed, root.Children[3]},
		{"end of tree", root.Children[3], true, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Same(t, tt.want, ix.Next(tt.from, tt.skip, tt.sealed))
		})
	}
}

func TestContainsAndEscape(t *testing.T) {
	ix := NewIndex(sample())

	assert.True(t, ix.Contains("0.1", "0.1.0"))
	assert.True(t, ix.Contains("0.1", "0.1"))
	assert.False(t, ix.Contains("0.1", "0.2"))
	assert.False(t, ix.Contains("0.1", "0.10"))

	assert.False(t, ix.WouldEscape("0.1.1", "0.1"))
	assert.True(t, ix.WouldEscape("0.3", "0.1"))
	assert.True(t, ix.WouldEscape("", "0.1"))
}

func TestResolve(t *testing.T) {
	ix := NewIndex(sample())

	n, ok := ix.Resolve("#b")
	require.True(t, ok)
	assert.Equal(t, "0.1", n.Address)

	n, ok = ix.Resolve("0.2.0")
	require.True(t, ok)
	assert.Equal(t, "nested", n.Text)

	_, ok = ix.Resolve("#nope")
	assert.False(t, ok)
}

func TestKeepsExistingAddresses(t *testing.T) {
	root := &domain.Node{Address: "0", Type: "root", Children: []*domain.Node{
		{Address: "0.0", Type: "p"},
	}}
	NewIndex(root)
	assert.Equal(t, "0.0", root.Children[0].Address)
}

package dsl

import (
	"github.com/aretw0/fable/pkg/cartridge"
	"github.com/aretw0/fable/pkg/domain"
)

// Builder appends children to a container node.
type Builder struct {
	name   string
	parent *domain.Node
	meta   map[string]any
	voices map[string]domain.Voice
}

// New creates a builder for a story rooted at a root node.
func New(name string) *Builder {
	return &Builder{
		name:   name,
		parent: &domain.Node{Type: domain.TagRoot},
	}
}

// Add appends a node of any tag.
func (b *Builder) Add(tag string) *NodeBuilder {
	n := &domain.Node{Type: tag}
	b.parent.Children = append(b.parent.Children, n)
	return &NodeBuilder{node: n, builder: b}
}

// P appends a line of dialogue.
func (b *Builder) P(text string) *NodeBuilder {
	return b.Add(domain.TagParagraph).Text(text)
}

// Var appends a variable assignment.
func (b *Builder) Var(name, value string) *NodeBuilder {
	return b.Add(domain.TagVar).Attr(domain.AttrName, name).Attr(domain.AttrValue, value)
}

// Code appends script statements.
func (b *Builder) Code(src string) *NodeBuilder {
	return b.Add(domain.TagCode).Text(src)
}

// Jump appends a jump to ref ("#id" or an address).
func (b *Builder) Jump(ref string) *NodeBuilder {
	return b.Add(domain.TagJump).Attr(domain.AttrTo, ref)
}

// Yield appends a call into the block ref.
func (b *Builder) Yield(ref string) *NodeBuilder {
	return b.Add(domain.TagYield).Attr(domain.AttrTo, ref)
}

// Sleep appends a pause of ms milliseconds.
func (b *Builder) Sleep(ms string) *NodeBuilder {
	return b.Add(domain.TagSleep).Attr(domain.AttrDuration, ms)
}

// Input appends an input request with prompt.
func (b *Builder) Input(prompt string) *NodeBuilder {
	return b.Add(domain.TagInput).Text(prompt)
}

// If appends a conditional whose body is built by then. A non-nil
// otherwise adds an else branch.
func (b *Builder) If(cond string, then, otherwise func(*Builder)) *NodeBuilder {
	nb := b.Add(domain.TagIf).Attr(domain.AttrCond, cond).Do(then)
	if otherwise != nil {
		nb.child().Add(domain.TagElse).Do(otherwise)
	}
	return nb
}

// While appends a loop.
func (b *Builder) While(cond string, body func(*Builder)) *NodeBuilder {
	return b.Add(domain.TagWhile).Attr(domain.AttrCond, cond).Do(body)
}

// Section appends a container of tag (sec, block, intro, outro, resume,
// scope, origin) built by body.
func (b *Builder) Section(tag string, body func(*Builder)) *NodeBuilder {
	return b.Add(tag).Do(body)
}

// Block appends a block with the given id.
func (b *Builder) Block(id string, body func(*Builder)) *NodeBuilder {
	return b.Add(domain.TagBlock).ID(id).Do(body)
}

// Voice registers a speaker voice on the cartridge.
func (b *Builder) Voice(speaker string, v domain.Voice) *Builder {
	if b.voices == nil {
		b.voices = map[string]domain.Voice{}
	}
	b.voices[speaker] = v
	return b
}

// Meta sets cartridge metadata.
func (b *Builder) Meta(key string, value any) *Builder {
	if b.meta == nil {
		b.meta = map[string]any{}
	}
	b.meta[key] = value
	return b
}

// Cartridge compiles the tree and assigns addresses.
func (b *Builder) Cartridge() *domain.Cartridge {
	c := &domain.Cartridge{
		Name:   b.name,
		Root:   b.parent,
		Voices: b.voices,
		Meta:   b.meta,
	}
	cartridge.Prepare(c)
	return c
}

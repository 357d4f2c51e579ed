package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/fable/pkg/domain"
)

// containerHandler descends into children. It is also the fallback for
// unknown tags.
type containerHandler struct{}

func (containerHandler) Tags() []string {
	return []string{domain.TagRoot, domain.TagSection, domain.TagDiv, domain.TagGroup, domain.TagOrigin}
}

func (containerHandler) Handle(_ context.Context, a *Action) Outcome { return a.Descend() }

// passHandler steps over nodes that only run when entered explicitly.
type passHandler struct{}

func (passHandler) Tags() []string {
	return []string{domain.TagBlock, domain.TagIntro, domain.TagResume, domain.TagOutro, domain.TagElse, domain.TagField}
}

func (passHandler) Handle(_ context.Context, a *Action) Outcome { return a.Skip() }

type ifHandler struct{}

func (ifHandler) Tags() []string { return []string{domain.TagIf} }

func (ifHandler) Handle(_ context.Context, a *Action) Outcome {
	if a.Truthy(a.Node.AttrOr(domain.AttrCond, "")) {
		return a.Descend()
	}
	for _, c := range a.Node.Children {
		if c.Type == domain.TagElse && len(c.Children) > 0 {
			return Outcome{Next: c.Children[0]}
		}
	}
	return a.Skip()
}

type jumpHandler struct{}

func (jumpHandler) Tags() []string { return []string{domain.TagJump} }

func (jumpHandler) Handle(_ context.Context, a *Action) Outcome {
	ref := a.Node.AttrOr(domain.AttrTo, "")
	target, ok := a.Resolve(ref)
	if !ok {
		return Outcome{Ops: []domain.Op{storyError(a, "jump target %q not found", ref)}}
	}
	return Outcome{Next: target, Jump: true}
}

// yieldHandler calls a block like a subroutine. Attributes other than the
// target become read-only parameters inside the block.
type yieldHandler struct{}

func (yieldHandler) Tags() []string { return []string{domain.TagYield} }

func (yieldHandler) Handle(_ context.Context, a *Action) Outcome {
	ref := a.Node.AttrOr(domain.AttrTo, "")
	block, ok := a.Resolve(ref)
	if !ok {
		return Outcome{Ops: []domain.Op{storyError(a, "yield target %q not found", ref)}}
	}
	if len(block.Children) == 0 {
		return a.Skip()
	}

	params := map[string]domain.Value{}
	for k, v := range a.Attrs() {
		switch k {
		case domain.AttrTo, domain.AttrIf, domain.AttrID:
			continue
		}
		params[k] = domain.Infer(v)
	}

	ret := ""
	if n := a.Next(true); n != nil {
		ret = n.Address
	}
	a.Session().Push(domain.Frame{
		Return:   ret,
		Owner:    block.Address,
		Writable: map[string]domain.Value{},
		Readable: params,
		Type:     domain.BlockYield,
	})
	return Outcome{Next: block.Children[0]}
}

// scopeHandler isolates variable writes to its subtree.
type scopeHandler struct{}

func (scopeHandler) Tags() []string { return []string{domain.TagScope} }

func (scopeHandler) Handle(_ context.Context, a *Action) Outcome {
	if len(a.Node.Children) == 0 {
		return a.Skip()
	}
	ret := ""
	if n := a.Next(true); n != nil {
		ret = n.Address
	}
	a.Session().Push(domain.Frame{
		Return:   ret,
		Owner:    a.Node.Address,
		Writable: map[string]domain.Value{},
		Type:     domain.BlockScope,
	})
	return Outcome{Next: a.Node.Children[0]}
}

// whileHandler re-enters itself after each pass over its body. The frame
// has no writable scope so the body updates the variables it tests.
type whileHandler struct{}

func (whileHandler) Tags() []string { return []string{domain.TagWhile} }

func (whileHandler) Handle(_ context.Context, a *Action) Outcome {
	if len(a.Node.Children) == 0 || !a.Truthy(a.Node.AttrOr(domain.AttrCond, "")) {
		return a.Skip()
	}
	a.Session().Push(domain.Frame{
		Return: a.Node.Address,
		Owner:  a.Node.Address,
		Type:   domain.BlockScope,
	})
	return Outcome{Next: a.Node.Children[0]}
}

// endHandler finishes the story through the outro when there is one.
type endHandler struct{}

func (endHandler) Tags() []string { return []string{domain.TagEnd} }

func (endHandler) Handle(_ context.Context, a *Action) Outcome {
	s := a.Session()
	s.Stack = s.Stack[:0]
	if first := a.FireOutro(); first != "" {
		a.Force(first)
		return Outcome{}
	}
	return Outcome{Ops: []domain.Op{domain.StoryEnd()}}
}

// exitHandler finishes the story immediately.
type exitHandler struct{}

func (exitHandler) Tags() []string { return []string{domain.TagExit} }

func (exitHandler) Handle(_ context.Context, a *Action) Outcome {
	s := a.Session()
	s.Stack = s.Stack[:0]
	return Outcome{Ops: []domain.Op{domain.StoryEnd()}}
}

type checkpointHandler struct{}

func (checkpointHandler) Tags() []string { return []string{domain.TagCheckpoint} }

func (checkpointHandler) Handle(_ context.Context, a *Action) Outcome {
	a.Checkpoint()
	return a.Skip()
}

func storyError(a *Action, format string, args ...any) domain.Op {
	op := domain.StoryError(fmt.Sprintf(format, args...))
	op.Address = a.Node.Address
	return op
}

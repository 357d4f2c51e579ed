package runtime

import "github.com/aretw0/fable/pkg/domain"

// sealed containers own a frame; flow falling off their last child returns
// to the frame instead of continuing with the next sibling.
func sealed(n *domain.Node) bool {
	return n.Is(domain.TagBlock, domain.TagIntro, domain.TagResume, domain.TagOutro, domain.TagWhile, domain.TagScope)
}

// next returns the node after n in document order, stopping at sealed
// containers. Falling off the end of an else leaves its if as well, so
// siblings after the else only run on the true branch.
func (r *run) next(n *domain.Node, skipChildren bool) *domain.Node {
	nx := r.ix.Next(n, skipChildren, sealed)
	if nx == nil {
		return nil
	}
	for p := r.ix.Parent(n); p != nil && r.ix.WouldEscape(nx.Address, p.Address); p = r.ix.Parent(p) {
		if p.Type != domain.TagElse {
			continue
		}
		if owner := r.ix.Parent(p); owner != nil && owner.Type == domain.TagIf {
			return r.next(owner, true)
		}
	}
	return nx
}

// resolve moves the session address after a dispatch, unwinding frames the
// move leaves behind.
func (r *run) resolve(out Outcome) {
	s := r.sess
	if n := len(out.Ops); n > 0 && out.Ops[n-1].Type == domain.OpStoryEnd {
		s.Address = domain.AddressEnd
		s.Stack = s.Stack[:0]
		return
	}

	if s.Target != "" {
		target := s.Target
		s.Target = ""
		for top := s.Top(); top != nil && r.ix.WouldEscape(target, top.Owner); top = s.Top() {
			s.Pop()
		}
		s.Address = target
		return
	}

	next := out.Next
	for {
		if next == nil {
			f, ok := s.Pop()
			if !ok {
				if first := r.fireOutro(); first != "" {
					s.Address = first
					return
				}
				r.ops = append(r.ops, domain.StoryEnd())
				s.Address = domain.AddressEnd
				return
			}
			r.releaseShared(f)
			if f.Return == "" {
				continue
			}
			s.Address = f.Return
			return
		}

		top := s.Top()
		if top == nil || !r.ix.WouldEscape(next.Address, top.Owner) {
			s.Address = next.Address
			return
		}
		f, _ := s.Pop()
		r.releaseShared(f)
		if f.Type == domain.BlockYield || out.Jump {
			continue
		}
		if f.Return == "" {
			next = nil
			continue
		}
		s.Address = f.Return
		return
	}
}

// releaseShared drops the parent of a popped yield frame when both would
// return to the same place, so the return address is not visited twice.
func (r *run) releaseShared(f domain.Frame) {
	if f.Type != domain.BlockYield {
		return
	}
	if p := r.sess.Top(); p != nil && p.Return == f.Return {
		r.sess.Pop()
	}
}

// fireOutro enters the outro section once per session and returns the
// address of its first child, or "" when there is nothing to play.
func (r *run) fireOutro() string {
	if r.sess.OutroFired {
		return ""
	}
	n := r.ix.FindFirst(domain.TagOutro)
	if n == nil || len(n.Children) == 0 {
		return ""
	}
	r.sess.OutroFired = true
	r.sess.Push(domain.Frame{Return: domain.AddressEnd, Owner: n.Address, Type: domain.BlockOutro})
	return n.Children[0].Address
}

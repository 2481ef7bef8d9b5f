package codec

import (
	"github.com/signadot/bindtree/binding"
	"github.com/signadot/bindtree/ir"
)

// scanStep records how one generic step was resolved.
type scanStep struct {
	arg ir.PathArg
	ctx NodeContext
	// typed is set when the step produces a typed step; out holds it when
	// the scan builds typed steps.
	typed bool
	out   binding.PathArg
}

type scanResult struct {
	steps  []scanStep
	ctx    NodeContext
	reason Reason
}

// scan walks a generic path down the context tree. With build set it
// produces typed steps, which requires bound classes and key codecs;
// without it only the structure of the path is checked.
//
// A list step leaves the list pending: the next step must name the same
// list and is either an entry with predicates, which becomes a keyed step,
// or a bare identifier, the wildcard entry. A list still pending at the end
// addresses the list as a whole.
func (f *Factory) scan(p ir.Path, build bool) (*scanResult, error) {
	res := &scanResult{}
	ctx := NodeContext(f.root)
	var pending *ListContext
	for i := 0; i < len(p); i++ {
		arg := p[i]
		last := i == len(p)-1
		if pending != nil {
			list := pending
			pending = nil
			q := list.Schema().QName
			if arg.QName() != q {
				return nil, violation("resolve", list.Schema(), "list %s is followed by %s instead of its entry", q, arg.QName())
			}
			st := scanStep{arg: arg, ctx: list, typed: true}
			switch a := arg.(type) {
			case ir.NodeIdentifierWithPredicates:
				if !list.Keyed() {
					return nil, violation("resolve", list.Schema(), "predicates %s on list without key", a)
				}
				if build {
					if err := requireClass("resolve", list); err != nil {
						return nil, err
					}
					kc, err := list.KeyCodec()
					if err != nil {
						return nil, err
					}
					key, err := kc.Construct(a)
					if err != nil {
						return nil, err
					}
					st.out = binding.KeyedItem{Class: list.Class(), Key: key}
				}
			case ir.NodeIdentifier:
				if last {
					st.typed = false
					res.steps = append(res.steps, st)
					res.ctx = list
					res.reason = TrailingListItem
					return res, nil
				}
				if build {
					if err := requireClass("resolve", list); err != nil {
						return nil, err
					}
					st.out = binding.Item{Class: list.Class()}
				}
			default:
				return nil, violation("resolve", list.Schema(), "%s is not a list entry step", arg)
			}
			f.trace("resolve", "entry step", "arg", arg, "context", list)
			res.steps = append(res.steps, st)
			ctx = list
			continue
		}

		child, err := f.childByName(ctx, arg.QName())
		if err != nil {
			return nil, err
		}
		f.trace("resolve", "step", "arg", arg, "context", child)
		st := scanStep{arg: arg, ctx: child}
		switch c := child.(type) {
		case *ListContext:
			if _, ok := arg.(ir.NodeIdentifier); !ok {
				return nil, violation("resolve", c.Schema(), "%s must be addressed by the list step before its entry", arg)
			}
			res.steps = append(res.steps, st)
			pending = c
		case *ChoiceContext:
			if _, ok := arg.(ir.NodeIdentifier); !ok {
				return nil, violation("resolve", c.Schema(), "%s is not a choice step", arg)
			}
			res.steps = append(res.steps, st)
			if last {
				res.ctx, res.reason = c, TargetsChoice
				return res, nil
			}
		case *CaseContext:
			if _, ok := arg.(ir.NodeIdentifier); !ok {
				return nil, violation("resolve", c.Schema(), "%s is not a case step", arg)
			}
			if last {
				res.steps = append(res.steps, st)
				res.ctx, res.reason = c, TargetsCase
				return res, nil
			}
			st.typed = true
			if build {
				if err := requireClass("resolve", c); err != nil {
					return nil, err
				}
				st.out = binding.Item{Class: c.Class()}
			}
			res.steps = append(res.steps, st)
		case *ContainerContext:
			if _, ok := arg.(ir.NodeIdentifier); !ok {
				return nil, violation("resolve", c.Schema(), "%s is not a container step", arg)
			}
			st.typed = true
			if build {
				if err := requireClass("resolve", c); err != nil {
					return nil, err
				}
				st.out = binding.Item{Class: c.Class()}
			}
			res.steps = append(res.steps, st)
		case *LeafContext:
			if _, ok := arg.(ir.NodeIdentifier); !ok || !last {
				return nil, violation("resolve", c.Schema(), "leaf %s must be the last step", arg)
			}
			res.steps = append(res.steps, st)
			res.ctx, res.reason = c, TargetsLeaf
			return res, nil
		case *LeafListContext:
			res.steps = append(res.steps, st)
			if _, ok := arg.(ir.NodeIdentifier); !ok {
				return nil, violation("resolve", c.Schema(), "leaf-list %s must be addressed before its entry", arg)
			}
			if !last {
				entry, ok := p[i+1].(ir.NodeWithValue)
				if !ok || entry.Name != arg.QName() || i+1 != len(p)-1 {
					return nil, violation("resolve", c.Schema(), "leaf-list %s may only be followed by one of its entries", arg)
				}
				res.steps = append(res.steps, scanStep{arg: entry, ctx: c})
			}
			res.ctx, res.reason = c, TargetsLeaf
			return res, nil
		}
		ctx = child
	}
	if pending != nil {
		st := &res.steps[len(res.steps)-1]
		st.typed = true
		if build {
			if err := requireClass("resolve", pending); err != nil {
				return nil, err
			}
			st.out = binding.Item{Class: pending.Class()}
		}
	}
	res.ctx = ctx
	res.reason = Representable
	return res, nil
}

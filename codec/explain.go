package codec

import (
	"github.com/signadot/bindtree/ir"
	"github.com/signadot/bindtree/schema"
)

// StepExplanation describes how one generic step resolves.
type StepExplanation struct {
	Arg  string      `json:"arg"`
	Kind schema.Kind `json:"kind"`
	// Typed is set when the step contributes a typed step. For a list the
	// list step and its entry step contribute one typed step together,
	// reported on the entry step, or on the list step for a whole list.
	Typed bool   `json:"typed"`
	Class string `json:"class,omitempty"`
	// Bound is the Go type bound at this position, if any.
	Bound string `json:"bound,omitempty"`
}

// Explanation is a dry run of Resolve. It needs only the schema: class
// names are derived from schema names and bound types are reported when a
// registry provides them.
type Explanation struct {
	Path   string            `json:"path"`
	Steps  []StepExplanation `json:"steps"`
	Reason Reason            `json:"reason"`
	// Typed is the typed path text, for representable paths.
	Typed string `json:"typed,omitempty"`
}

func (e *Explanation) Representable() bool {
	return e.Reason == Representable
}

// Explain reports how p maps to the typed side without constructing keys
// or requiring generated types.
func (f *Factory) Explain(p ir.Path) (*Explanation, error) {
	sr, err := f.scan(p, false)
	if err != nil {
		return nil, atPath(err, p)
	}
	res := &Explanation{Path: p.String(), Reason: sr.reason}
	var typed []string
	for _, st := range sr.steps {
		n := st.ctx.Schema()
		se := StepExplanation{Arg: st.arg.String(), Kind: n.Kind, Typed: st.typed}
		if st.typed {
			se.Class = schema.ClassName(n.QName.Name)
			typed = append(typed, se.Class+predicates(st.arg))
		}
		if c := st.ctx.Class(); c != nil {
			se.Bound = c.String()
		}
		res.Steps = append(res.Steps, se)
	}
	if res.Representable() {
		res.Typed = "/"
		for i, s := range typed {
			if i > 0 {
				res.Typed += "/"
			}
			res.Typed += s
		}
	}
	return res, nil
}

func predicates(a ir.PathArg) string {
	niwp, ok := a.(ir.NodeIdentifierWithPredicates)
	if !ok {
		return ""
	}
	buf := "["
	for i, kv := range niwp.Keys {
		if i > 0 {
			buf += " "
		}
		buf += schema.ClassName(kv.Name.Name) + ":" + ir.FormatValue(kv.Value)
	}
	return buf + "]"
}

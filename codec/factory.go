package codec

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/signadot/bindtree/binding"
	"github.com/signadot/bindtree/debug"
	"github.com/signadot/bindtree/ir"
	"github.com/signadot/bindtree/schema"
)

// Factory owns the codec tree of one schema model and one registry of
// generated types. Contexts, value codecs and leaf tables are built on
// first use and cached for the life of the factory. A Factory is safe for
// concurrent use.
type Factory struct {
	model    *schema.Model
	registry *binding.Registry
	logger   *slog.Logger
	root     *RootContext

	contexts sync.Map // ctxKey -> NodeContext
	codecs   sync.Map // codecKey -> ValueCodec
	leaves   sync.Map // leafKey -> *LeafTable
}

type Option func(*Factory)

func WithLogger(l *slog.Logger) Option {
	return func(f *Factory) { f.logger = l }
}

// New returns the factory for m and r. A nil registry is treated as empty.
func New(m *schema.Model, r *binding.Registry, opts ...Option) *Factory {
	if r == nil {
		r = binding.NewRegistry()
	}
	f := &Factory{model: m, registry: r}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	f.root = &RootContext{nodeContext: nodeContext{f: f, node: m.Root}}
	return f
}

func (f *Factory) Model() *schema.Model {
	return f.model
}

func (f *Factory) Registry() *binding.Registry {
	return f.registry
}

func (f *Factory) Root() *RootContext {
	return f.root
}

// Resolution is the typed form of a generic path. When Reason is not
// Representable, Path is the typed prefix resolved before the step that
// has no typed form and Context is the context of the last generic step.
type Resolution struct {
	Path    binding.Path
	Context NodeContext
	Reason  Reason
}

func (r *Resolution) Representable() bool {
	return r.Reason == Representable
}

// Translate converts a typed path to its generic path and returns the
// context of the last step.
func (f *Factory) Translate(p binding.Path) (ir.Path, NodeContext, error) {
	ctx := NodeContext(f.root)
	res := ir.Path{}
	for i, arg := range p {
		if arg == nil || arg.Type() == nil {
			return nil, nil, atPath(violation("translate", ctx.Schema(), "step %d has no class", i), p)
		}
		child, crossed, err := f.childByClass("translate", ctx, arg.Type())
		if err != nil {
			return nil, nil, atPath(err, p)
		}
		for _, c := range crossed {
			if _, ok := c.(*ChoiceContext); ok {
				res = append(res, ir.NodeIdentifier{Name: c.Schema().QName})
			}
		}
		q := child.Schema().QName
		switch c := child.(type) {
		case *ContainerContext, *CaseContext:
			if _, ok := arg.(binding.KeyedItem); ok {
				return nil, nil, atPath(violation("translate", c.Schema(), "keyed step for %s", c.Schema().Kind), p)
			}
			res = append(res, ir.NodeIdentifier{Name: q})
		case *ListContext:
			res = append(res, ir.NodeIdentifier{Name: q})
			switch a := arg.(type) {
			case binding.KeyedItem:
				kc, err := c.KeyCodec()
				if err != nil {
					return nil, nil, atPath(err, p)
				}
				entry, err := kc.Decompose(a.Key)
				if err != nil {
					return nil, nil, atPath(err, p)
				}
				res = append(res, entry)
			case binding.Item:
				if i < len(p)-1 {
					res = append(res, ir.NodeIdentifier{Name: q})
				}
			}
		default:
			return nil, nil, atPath(violation("translate", child.Schema(), "%s has no typed step", child.Schema().Kind), p)
		}
		f.trace("resolve", "translate step", "arg", arg, "context", child)
		ctx = child
	}
	return res, ctx, nil
}

// Resolve converts a generic path to its typed form. Paths that are valid
// but have no typed form resolve with a Reason other than Representable.
func (f *Factory) Resolve(p ir.Path) (*Resolution, error) {
	sr, err := f.scan(p, true)
	if err != nil {
		return nil, atPath(err, p)
	}
	res := &Resolution{Path: binding.Path{}, Context: sr.ctx, Reason: sr.reason}
	for _, st := range sr.steps {
		if st.out != nil {
			res.Path = append(res.Path, st.out)
		}
	}
	if !res.Representable() {
		f.logger.Debug("generic path has no typed form", "path", p.String(), "reason", res.Reason.String())
	}
	return res, nil
}

// ToGeneric is Translate without the context.
func (f *Factory) ToGeneric(p binding.Path) (ir.Path, error) {
	res, _, err := f.Translate(p)
	return res, err
}

// ToTyped is Resolve for callers that need a typed path. Unrepresentable
// paths are reported as errors wrapping ErrUnrepresentable.
func (f *Factory) ToTyped(p ir.Path) (binding.Path, error) {
	r, err := f.Resolve(p)
	if err != nil {
		return nil, err
	}
	if !r.Representable() {
		return nil, fmt.Errorf("%w: %s %s", ErrUnrepresentable, p, r.Reason)
	}
	return r.Path, nil
}

func atPath(err error, p fmt.Stringer) error {
	ce, ok := err.(*ContractError)
	if !ok || ce.Path != "" {
		return err
	}
	c := *ce
	c.Path = p.String()
	return &c
}

func (f *Factory) tracing(kind string) bool {
	switch kind {
	case "resolve":
		return debug.Resolve()
	case "codec":
		return debug.Codec()
	case "cache":
		return debug.Cache()
	}
	return false
}

func (f *Factory) trace(kind, msg string, args ...any) {
	if !f.tracing(kind) {
		return
	}
	buf := &strings.Builder{}
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(buf, " %v=%s", args[i], traceValue(args[i+1]))
	}
	debug.Logf("%s: %s%s\n", kind, msg, buf.String())
}

func traceValue(v any) string {
	switch x := v.(type) {
	case fmt.Stringer:
		return x.String()
	case error:
		return x.Error()
	}
	return debug.JSON(v)
}

func requireClass(op string, ctx NodeContext) error {
	if ctx.Class() != nil {
		return nil
	}
	return violation(op, ctx.Schema(), "no class bound to %s", ctx.Schema().QName)
}

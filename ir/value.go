package ir

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/signadot/bindtree/schema"
)

// Empty is the generic value of a present empty-typed leaf.
type Empty struct{}

// FormatValue renders a generic leaf value in its canonical text form.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case Empty:
		return ""
	case int8, int16, int32, int64, uint8, uint16, uint32, uint64, int, uint:
		return fmt.Sprint(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []byte:
		return base64.StdEncoding.EncodeToString(x)
	case []string:
		return strings.Join(x, " ")
	case schema.QName:
		return x.String()
	case Path:
		return x.String()
	}
	return fmt.Sprint(v)
}

// ParseValue converts text to the generic value of type t. at is the leaf
// the value belongs to; it anchors relative leafref paths.
func ParseValue(s string, t *schema.TypeDef, at *schema.Node, m *schema.Model) (any, error) {
	root := t.Root()
	var v any
	var err error
	switch root.Kind {
	case schema.StringKind:
		v = s
	case schema.BooleanKind:
		v, err = strconv.ParseBool(s)
	case schema.EmptyKind:
		if s != "" {
			return nil, fmt.Errorf("empty value must be blank, got %q", s)
		}
		v = Empty{}
	case schema.Int8Kind:
		v, err = parseInt[int8](s, 8)
	case schema.Int16Kind:
		v, err = parseInt[int16](s, 16)
	case schema.Int32Kind:
		v, err = parseInt[int32](s, 32)
	case schema.Int64Kind:
		v, err = parseInt[int64](s, 64)
	case schema.Uint8Kind:
		v, err = parseUint[uint8](s, 8)
	case schema.Uint16Kind:
		v, err = parseUint[uint16](s, 16)
	case schema.Uint32Kind:
		v, err = parseUint[uint32](s, 32)
	case schema.Uint64Kind:
		v, err = parseUint[uint64](s, 64)
	case schema.Decimal64Kind:
		v, err = strconv.ParseFloat(s, 64)
	case schema.BinaryKind:
		v, err = base64.StdEncoding.DecodeString(s)
	case schema.EnumerationKind:
		v = s
	case schema.BitsKind:
		v = strings.Fields(s)
	case schema.IdentityrefKind:
		def := ""
		if at != nil {
			def = at.QName.Module
		}
		var q schema.QName
		q, err = schema.ParseQName(s, def)
		if err == nil {
			if mod, ok := m.Module(q.Module); ok {
				q.Module = mod.Name
			}
			if _, ok := m.Identity(q); !ok {
				return nil, fmt.Errorf("unknown identity %s", q)
			}
			if base := t.BaseIdentity(); !base.IsZero() && !m.DerivedFrom(q, base) {
				return nil, fmt.Errorf("identity %s is not derived from %s", q, base)
			}
		}
		v = q
	case schema.InstanceIdentifierKind:
		v, err = ParsePath(s, m)
	case schema.UnionKind:
		for _, mt := range t.UnionMembers() {
			if mv, merr := ParseValue(s, mt, at, m); merr == nil {
				return mv, nil
			}
		}
		return nil, fmt.Errorf("%q matches no member of %s", s, t)
	case schema.LeafrefKind:
		target, node, rerr := m.ResolveLeafref(t, at)
		if rerr != nil {
			return nil, rerr
		}
		return ParseValue(s, target, node, m)
	default:
		return nil, fmt.Errorf("cannot parse values of %s", t)
	}
	if err != nil {
		return nil, fmt.Errorf("bad %s value %q: %w", t, s, err)
	}
	if err := t.Check(v); err != nil {
		return nil, err
	}
	return v, nil
}

type signed interface{ ~int8 | ~int16 | ~int32 | ~int64 }

type unsigned interface{ ~uint8 | ~uint16 | ~uint32 | ~uint64 }

func parseInt[T signed](s string, bits int) (T, error) {
	i, err := strconv.ParseInt(s, 0, bits)
	return T(i), err
}

func parseUint[T unsigned](s string, bits int) (T, error) {
	u, err := strconv.ParseUint(s, 0, bits)
	return T(u), err
}

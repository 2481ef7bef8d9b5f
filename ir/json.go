package ir

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/signadot/bindtree/schema"
)

// MarshalJSON renders n as a JSON object with one member, n itself. Member
// names are module qualified where the module changes, lists and leaf-lists
// are arrays, choices are transparent and empty leaves are [null].
// 64-bit integers and decimals are strings.
func (n *Node) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	if n.Type == MapEntryType {
		if err := writeMembers(buf, n.Children, n.QName().Module, new(bool)); err != nil {
			return nil, err
		}
	} else if err := writeMembers(buf, []*Node{n}, "", new(bool)); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ToJSON renders n, indented when indent is set.
func ToJSON(n *Node, indent bool) ([]byte, error) {
	d, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	if !indent {
		return d, nil
	}
	buf := &bytes.Buffer{}
	if err := json.Indent(buf, d, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func writeMembers(buf *bytes.Buffer, nodes []*Node, mod string, comma *bool) error {
	for _, c := range nodes {
		if c.Type == ChoiceType {
			if err := writeMembers(buf, c.Children, mod, comma); err != nil {
				return err
			}
			continue
		}
		if *comma {
			buf.WriteByte(',')
		}
		*comma = true
		name, err := json.Marshal(localName(c.QName(), mod))
		if err != nil {
			return err
		}
		buf.Write(name)
		buf.WriteByte(':')
		if err := writeNode(buf, c); err != nil {
			return err
		}
	}
	return nil
}

func writeNode(buf *bytes.Buffer, n *Node) error {
	mod := n.QName().Module
	switch n.Type {
	case ContainerType, MapEntryType:
		buf.WriteByte('{')
		if err := writeMembers(buf, n.Children, mod, new(bool)); err != nil {
			return err
		}
		buf.WriteByte('}')
	case MapType, LeafSetType:
		buf.WriteByte('[')
		for i, c := range n.Children {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeNode(buf, c); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case LeafType, LeafSetEntryType:
		d, err := jsonValue(n.Value)
		if err != nil {
			return fmt.Errorf("%s: %w", n.Path(), err)
		}
		buf.Write(d)
	default:
		return fmt.Errorf("%w: node type %s", errInternal, n.Type)
	}
	return nil
}

func jsonValue(v any) ([]byte, error) {
	switch x := v.(type) {
	case Empty:
		return []byte("[null]"), nil
	case int64:
		return json.Marshal(strconv.FormatInt(x, 10))
	case uint64:
		return json.Marshal(strconv.FormatUint(x, 10))
	case float64:
		return json.Marshal(FormatValue(x))
	case []byte:
		return json.Marshal(base64.StdEncoding.EncodeToString(x))
	case []string, schema.QName, Path:
		return json.Marshal(FormatValue(x))
	}
	return json.Marshal(v)
}

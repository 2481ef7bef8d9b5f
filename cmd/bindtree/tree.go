package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/scott-cotton/cli"

	"github.com/signadot/bindtree/codec"
	"github.com/signadot/bindtree/schema"
)

func tree(cfg *TreeConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Tree.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: tree requires at least one schema file", cli.ErrUsage)
	}
	m, err := schema.LoadFiles(args...)
	if err != nil {
		return err
	}
	theLog.Debug("loaded", "model", m)
	f := codec.New(m, nil, codec.WithLogger(theLog))
	p := cfg.colors(cc.Out)
	for _, n := range m.Root.Children {
		if err := writeTree(cc.Out, f, p, n, 0); err != nil {
			return err
		}
	}
	return nil
}

func writeTree(w io.Writer, f *codec.Factory, p *palette, n *schema.Node, depth int) error {
	b := &strings.Builder{}
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(p.kind(n.Kind.String()))
	b.WriteByte(' ')
	b.WriteString(p.name(n.QName.String()))
	if len(n.Keys) != 0 {
		keys := make([]string, len(n.Keys))
		for i, k := range n.Keys {
			keys[i] = k.String()
		}
		fmt.Fprintf(b, " [%s]", strings.Join(keys, " "))
	}
	if n.Presence {
		b.WriteString(" presence")
	}
	if n.Type != nil {
		b.WriteByte(' ')
		b.WriteString(p.typ(n.Type.String()))
		b.WriteByte(' ')
		b.WriteString(p.accessor(f.AccessorName(n) + "()"))
	}
	b.WriteByte('\n')
	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := writeTree(w, f, p, c, depth+1); err != nil {
			return err
		}
	}
	return nil
}

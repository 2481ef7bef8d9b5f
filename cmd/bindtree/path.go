package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/scott-cotton/cli"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"

	"github.com/signadot/bindtree/codec"
	"github.com/signadot/bindtree/ir"
	"github.com/signadot/bindtree/schema"
)

func explainPaths(cfg *PathConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Path.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(cfg.Schemas) == 0 {
		return fmt.Errorf("%w: path requires at least one -s schema file", cli.ErrUsage)
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: no paths given", cli.ErrUsage)
	}
	m, err := schema.LoadFiles(cfg.Schemas...)
	if err != nil {
		return err
	}
	f := codec.New(m, nil, codec.WithLogger(theLog))
	p := cfg.colors(cc.Out)
	for _, text := range args {
		gp, err := ir.ParsePath(text, m)
		if err != nil {
			return err
		}
		e, err := f.Explain(gp)
		if err != nil {
			return fmt.Errorf("error explaining %s: %w", text, err)
		}
		theLog.Debug("explained", "path", e.Path, "reason", e.Reason)
		if cfg.JSON {
			d, err := json.MarshalIndent(e, "", "  ")
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(cc.Out, "%s\n", d); err != nil {
				return err
			}
			continue
		}
		if cfg.Diff {
			if _, err := fmt.Fprintln(cc.Out, textDiff(p, text, e.Path)); err != nil {
				return err
			}
		}
		if err := writeExplanation(cc.Out, p, e); err != nil {
			return err
		}
	}
	return nil
}

// textDiff marks deletions from the input text with [-…-] and insertions
// of the canonical text with {+…+}.
func textDiff(p *palette, from, to string) string {
	dmp := diffpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(from, to, false))
	b := &strings.Builder{}
	for _, d := range diffs {
		switch d.Type {
		case diffpatch.DiffDelete:
			b.WriteString(p.del("[-" + d.Text + "-]"))
		case diffpatch.DiffInsert:
			b.WriteString(p.ins("{+" + d.Text + "+}"))
		case diffpatch.DiffEqual:
			b.WriteString(d.Text)
		}
	}
	return b.String()
}

func writeExplanation(w io.Writer, p *palette, e *codec.Explanation) error {
	b := &strings.Builder{}
	b.WriteString(p.name(e.Path))
	b.WriteByte('\n')
	width := 0
	for _, st := range e.Steps {
		width = max(width, len(st.Arg))
	}
	for _, st := range e.Steps {
		fmt.Fprintf(b, "  %-9s %-*s ", st.Kind, width, st.Arg)
		switch {
		case !st.Typed:
			b.WriteString(p.skipped("skipped"))
		case st.Bound != "":
			b.WriteString(p.class(st.Class) + " (" + st.Bound + ")")
		default:
			b.WriteString(p.class(st.Class))
		}
		b.WriteByte('\n')
	}
	b.WriteString(p.verdict(e.Reason.String()))
	if e.Representable() {
		b.WriteString(": " + e.Typed)
	}
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}

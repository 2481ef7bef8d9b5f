package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/scott-cotton/cli"
)

type MainConfig struct {
	Color   bool `cli:"name=color desc='output with color'"`
	Verbose bool `cli:"name=v desc='log at debug level'"`

	Main *cli.Command
}

// colors returns the output colors for w. An explicit -color wins,
// otherwise color is used on terminals.
func (cfg *MainConfig) colors(w io.Writer) *palette {
	if cfg.Color {
		return newPalette(true)
	}
	for _, opt := range cfg.Main.Opts {
		if opt.Name == "color" && opt.Value != nil {
			return newPalette(false)
		}
	}
	f, ok := w.(*os.File)
	if !ok {
		return newPalette(false)
	}
	return newPalette(isatty.IsTerminal(f.Fd()))
}

type TreeConfig struct {
	*MainConfig

	Tree *cli.Command
}

type PathConfig struct {
	*MainConfig
	Diff bool `cli:"name=diff desc='diff each path against its canonical text'"`
	JSON bool `cli:"name=json desc='print explanations as JSON'"`

	Schemas []string
	Path    *cli.Command
}

func (cfg *PathConfig) schemaOpt(_ *cli.Context, a string) (any, error) {
	cfg.Schemas = append(cfg.Schemas, a)
	return a, nil
}

type palette struct {
	kind, name, typ, accessor func(a ...any) string
	class, skipped, verdict   func(a ...any) string
	del, ins                  func(a ...any) string
}

func newPalette(on bool) *palette {
	mk := func(attrs ...color.Attribute) func(a ...any) string {
		if !on {
			return fmt.Sprint
		}
		c := color.New(attrs...)
		c.EnableColor()
		return c.SprintFunc()
	}
	return &palette{
		kind:     mk(color.FgBlue),
		name:     mk(color.Bold),
		typ:      mk(color.FgCyan),
		accessor: mk(color.FgMagenta),
		class:    mk(color.FgGreen),
		skipped:  mk(color.Faint),
		verdict:  mk(color.FgYellow),
		del:      mk(color.FgRed),
		ins:      mk(color.FgGreen),
	}
}

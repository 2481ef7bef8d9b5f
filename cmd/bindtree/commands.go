package main

import (
	"github.com/scott-cotton/cli"
)

func MainCommand() *cli.Command {
	cfg := &MainConfig{}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Main, "bindtree").
		WithSynopsis("bindtree [opts] command [opts]").
		WithDescription("bindtree inspects schema models and how paths map between generic and typed trees.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return bindtreeMain(cfg, cc, args)
		}).
		WithSubs(
			TreeCommand(cfg),
			PathCommand(cfg))
}

func TreeCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &TreeConfig{MainConfig: mainCfg}
	return cli.NewCommandAt(&cfg.Tree, "tree").
		WithAliases("t").
		WithSynopsis("tree <schema-file>...").
		WithDescription("print the expanded schema tree with the accessor name of each leaf").
		WithRun(func(cc *cli.Context, args []string) error {
			return tree(cfg, cc, args)
		})
}

func PathCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &PathConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	opts = append(opts,
		&cli.Opt{
			Name:        "s",
			Aliases:     []string{"schema"},
			Description: "schema file, may be repeated",
			Type:        cli.NamedFuncOpt(cfg.schemaOpt, "(filepath)"),
		})
	return cli.NewCommandAt(&cfg.Path, "path").
		WithAliases("p").
		WithSynopsis("path -s <schema-file> [-diff] [-json] <path>...").
		WithDescription("explain how generic paths resolve to typed paths").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return explainPaths(cfg, cc, args)
		})
}

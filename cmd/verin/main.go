package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/verin/cmd/verin/commands"
	ferrors "git.home.luguber.info/inful/verin/internal/foundation/errors"
	"git.home.luguber.info/inful/verin/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("verin"),
		kong.Description("Static blog builder with live reload."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	globals := &commands.Global{Logger: slog.Default()}
	err := parser.Run(globals, cli)
	os.Exit(ferrors.NewCLIErrorAdapter(cli.Verbose, globals.Logger).HandleError(err))
}

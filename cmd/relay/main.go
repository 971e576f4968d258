// relay is a command line tool for producing, inspecting and executing
// single-use authorization relays against a local state database.
package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/clydemeng/authrelay/params"

	// Automatically set GOMAXPROCS to match the container CPU quota.
	_ "go.uber.org/automaxprocs"
)

const clientIdentifier = "relay"

var app = newApp("single-use authorization relay tool")

func newApp(usage string) *cli.App {
	app := cli.NewApp()
	app.Name = clientIdentifier
	app.Usage = usage
	app.Version = params.Version
	return app
}

func init() {
	app.Commands = []*cli.Command{
		keygenCommand,
		signCommand,
		commitCommand,
		encodeCommand,
		execCommand,
		commitsCommand,
		dumpConfigCommand,
	}
	sort.Sort(cli.CommandsByName(app.Commands))

	app.Flags = []cli.Flag{
		configFileFlag,
		dataDirFlag,
		dbEngineFlag,
		chainIDFlag,
		invokerFlag,
		gasLimitFlag,
		verbosityFlag,
		logFileFlag,
		logRotateFlag,
		metricsFlag,
	}
	app.Before = func(ctx *cli.Context) error {
		return setupLogging(ctx)
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogging routes the global logger according to the logging flags.
// Color is used only when writing to a real terminal.
func setupLogging(ctx *cli.Context) error {
	var (
		output   io.Writer = os.Stderr
		usecolor           = (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
	)
	if file := ctx.String(logFileFlag.Name); file != "" {
		usecolor = false
		if ctx.Bool(logRotateFlag.Name) {
			output = &lumberjack.Logger{
				Filename:   file,
				MaxSize:    100,
				MaxBackups: 10,
				MaxAge:     30,
			}
		} else {
			f, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
			if err != nil {
				return err
			}
			output = f
		}
	} else if usecolor {
		output = colorable.NewColorableStderr()
	}
	handler := log.NewTerminalHandlerWithLevel(output, log.FromLegacyLevel(ctx.Int(verbosityFlag.Name)), usecolor)
	log.SetDefault(log.NewLogger(handler))
	return nil
}

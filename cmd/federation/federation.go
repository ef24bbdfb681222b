package main

import (
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/flarco/g"
	"github.com/integrii/flaggy"
	"github.com/slingdata-io/sling-federation/core"
	"github.com/slingdata-io/sling-federation/core/env"
)

func init() {
	env.InitLogger()
}

var logFlags = []g.Flag{
	{
		Name:        "debug",
		ShortName:   "d",
		Type:        "bool",
		Description: "Set logging level to DEBUG.",
	},
	{
		Name:        "trace",
		Type:        "bool",
		Description: "Set logging level to TRACE (do not use in production).",
	},
}

var requestFlag = g.Flag{
	Name:        "request",
	ShortName:   "r",
	Type:        "string",
	Description: "The split request file to use (JSON or YAML).",
}

var cliSQL = &g.CliSC{
	Name:        "sql",
	Description: "Render the SQL statement and parameters of a split request",
	Flags:       append([]g.Flag{requestFlag}, logFlags...),
	ExecProcess: processSQL,
}

var cliDialects = &g.CliSC{
	Name:        "dialects",
	Description: "List the supported SQL dialects",
	ExecProcess: processDialects,
}

var cliExec = &g.CliSC{
	Name:        "exec",
	Description: "Read a split from a database and print the rows",
	Flags: append([]g.Flag{
		requestFlag,
		{
			Name:        "url",
			ShortName:   "u",
			Type:        "string",
			Description: "The database connection URL.",
		},
		{
			Name:        "timeout",
			Type:        "string",
			Description: "How long throttled retries may last, e.g. 30s. (default 5m)",
		},
	}, logFlags...),
	ExecProcess: processExec,
}

func init() {
	cliSQL.Make().Add()
	cliDialects.Make().Add()
	cliExec.Make().Add()
}

func main() {

	exitCode := 11
	done := make(chan struct{})
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	exit := func() {
		time.Sleep(50 * time.Millisecond) // so logger can flush
		os.Exit(exitCode)
	}

	go func() {
		select {
		case <-interrupt:
			env.Println("\ninterrupting...")
			ctx.Cancel()
			select {
			case <-done:
			case <-time.After(5 * time.Second):
			}
			exit()
		case <-done:
		}
	}()

	exitCode = cliInit(done)
	exit()
}

func cliInit(done chan struct{}) int {
	defer close(done)

	// recover from panic
	defer func() {
		if r := recover(); r != nil {
			g.Warn(g.F("panic occurred! %#v\n%s", r, string(debug.Stack())))
		}
	}()

	flaggy.SetName("federation")
	flaggy.SetDescription("Renders and runs federated split queries against SQL databases")
	flaggy.DefaultParser.ShowHelpOnUnexpected = true
	flaggy.DefaultParser.AdditionalHelpPrepend = "Version " + core.Version

	flaggy.SetVersion(core.Version)
	for _, cli := range g.CliArr {
		flaggy.AttachSubcommand(cli.Sc, 1)
	}

	flaggy.ShowHelpOnUnexpectedDisable()
	flaggy.Parse()

	ok, err := g.CliProcess()
	if err != nil {
		g.PrintFatal(err)
		return 1
	} else if !ok {
		flaggy.ShowHelp("")
	}

	return 0
}

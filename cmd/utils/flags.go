// Package utils holds the cmd/fuelnode CLI's shared app scaffolding and
// flag definitions.
//
// Grounded on cmd/utils/flags.go's NewApp/CommandHelpTemplate idiom; the
// original file's several hundred flags covered klaytn's account manager,
// EVM tuning, child-chain bridge and multi-protocol P2P stack, none of
// which this node has (consensus key, database and trigger tuning live in
// config.Config and are loaded from a single TOML file instead of being
// flag-per-option). Only the app-wide scaffolding and the small set of
// flags the run command actually reads survive.
package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/urfave/cli.v1"
)

// Version is stamped at release time via -ldflags; "dev" otherwise.
var Version = "dev"

var CommandHelpTemplate = `{{.cmd.Name}}{{if .cmd.Subcommands}} command{{end}}{{if .cmd.Flags}} [command options]{{end}} [arguments...]
{{if .cmd.Description}}{{.cmd.Description}}
{{end}}{{if .cmd.Subcommands}}
SUBCOMMANDS:
	{{range .cmd.Subcommands}}{{.Name}}{{with .ShortName}}, {{.}}{{end}}{{ "\t" }}{{.Usage}}
	{{end}}{{end}}{{if .categorizedFlags}}
{{range $idx, $categorized := .categorizedFlags}}{{$categorized.Name}} OPTIONS:
{{range $categorized.Flags}}{{"\t"}}{{.}}
{{end}}
{{end}}{{end}}`

func init() {
	cli.AppHelpTemplate = `{{.Name}} {{if .Flags}}[global options] {{end}}command{{if .Flags}} [command options]{{end}} [arguments...]

VERSION:
  {{.Version}}

COMMANDS:
  {{range .Commands}}{{.Name}}{{with .ShortName}}, {{.}}{{end}}{{ "\t" }}{{.Usage}}
  {{end}}{{if .Flags}}
GLOBAL OPTIONS:
  {{range .Flags}}{{.}}
  {{end}}{{end}}
`
	cli.CommandHelpTemplate = CommandHelpTemplate
}

// NewApp creates an app with sane defaults, the same shape as the
// teacher's cmd/utils.NewApp.
func NewApp(gitCommit, usage string) *cli.App {
	app := cli.NewApp()
	app.Name = filepath.Base(os.Args[0])
	app.Author = ""
	app.Email = ""
	app.Version = Version
	if len(gitCommit) >= 8 {
		app.Version += "-" + gitCommit[:8]
	}
	app.Usage = usage
	return app
}

var (
	ConfigFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file path",
		Value: "fuelnode.toml",
	}
	DataDirOverrideFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "Overrides the config file's database_path",
	}
	VerbosityFlag = cli.StringFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: debug, info, warn, error",
		Value: "info",
	}
	PprofFlag = cli.BoolFlag{
		Name:  "pprof",
		Usage: "Enable the net/http/pprof profiling endpoint",
	}
	PprofPortFlag = cli.IntFlag{
		Name:  "pprofport",
		Usage: "pprof listen port",
		Value: 6060,
	}
	MetricsPortFlag = cli.IntFlag{
		Name:  "metricsport",
		Usage: "Prometheus /metrics listen port",
		Value: 9090,
	}
)

// Fatalf prints to stderr and exits 1, the same role as the teacher's
// cmd/utils.Fatalf used throughout nodecmd's command bodies.
func Fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Fatal: "+format+"\n", args...)
	os.Exit(1)
}

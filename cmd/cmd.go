package cmd

import (
	"github.com/urfave/cli/v2"
)

const VERSION = "v1.0.0"

var configFlag = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Usage:   "config file path",
	Value:   "pktwatch.yaml",
}

var App = &cli.App{
	Name:    "pktwatch",
	Usage:   "observe live traffic and classify packets against a blocklist",
	Version: VERSION,
	Commands: []*cli.Command{
		{
			Name:   "run",
			Usage:  "capture and classify live traffic until interrupted",
			Flags:  []cli.Flag{configFlag},
			Action: run,
		},
		{
			Name:  "replay",
			Usage: "run the pipeline over recorded raw frames",
			Flags: []cli.Flag{
				configFlag,
				&cli.StringFlag{
					Name:     "file",
					Aliases:  []string{"f"},
					Usage:    "length-prefixed raw IPv4 frame file",
					Required: true,
				},
			},
			Action: replay,
		},
		{
			Name:  "rules",
			Usage: "manage the blocklist",
			Flags: []cli.Flag{configFlag},
			Subcommands: []*cli.Command{
				{
					Name:   "list",
					Usage:  "print the current rule sets",
					Flags:  []cli.Flag{configFlag},
					Action: rulesList,
				},
				{
					Name:      "add",
					Usage:     "add a rule value",
					ArgsUsage: "<ip|port|proto> <value>",
					Flags:     []cli.Flag{configFlag},
					Action:    rulesAdd,
				},
				{
					Name:      "remove",
					Usage:     "remove a rule value",
					ArgsUsage: "<ip|port|proto> <value>",
					Flags:     []cli.Flag{configFlag},
					Action:    rulesRemove,
				},
			},
		},
		{
			Name:  "config",
			Usage: "config helpers",
			Subcommands: []*cli.Command{
				{
					Name:   "init",
					Usage:  "write a default config file",
					Flags:  []cli.Flag{configFlag},
					Action: configInit,
				},
			},
		},
	},
}

// Command vendctl inspects inventory workbooks, prints fleet metrics and seeds postgres
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/vendbees/backend-go/pkg/logger"
)

func newWorkbookFlag(required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "workbook",
		Aliases:  []string{"w"},
		Usage:    "Path to the inventory workbook (.xlsx)",
		Required: required,
		EnvVars:  []string{"UPSTREAM_WORKBOOK_PATH"},
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "vendctl",
		Usage: "Vending fleet inventory tooling",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.Init(c.String("log-level"), "console")
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "inspect",
				Usage:  "List the sheets of a workbook with their columns and row counts",
				Flags:  []cli.Flag{newWorkbookFlag(true)},
				Action: runInspect,
			},
			{
				Name:   "gst",
				Usage:  "Show the raw and normalized GST rate of every product",
				Flags:  []cli.Flag{newWorkbookFlag(true)},
				Action: runGST,
			},
			{
				Name:  "report",
				Usage: "Pull the configured upstream once and print the fleet metrics as JSON",
				Flags: []cli.Flag{
					newWorkbookFlag(false),
					&cli.StringFlag{
						Name:  "machine",
						Usage: "Restrict the metrics to one machine",
					},
					&cli.StringFlag{
						Name:  "tax-bucket",
						Usage: "Tax bucket for the filtered stock value and tax payable (e.g. \"GST @ 18%\")",
					},
				},
				Action: runReport,
			},
			{
				Name:  "seed",
				Usage: "Load a workbook into the postgres upstream tables",
				Flags: []cli.Flag{
					newWorkbookFlag(true),
					&cli.StringFlag{
						Name:     "db-url",
						Usage:    "Database connection string",
						Required: true,
						EnvVars:  []string{"DATABASE_URL"},
					},
					&cli.BoolFlag{
						Name:  "truncate",
						Usage: "Empty the tables before loading",
					},
				},
				Action: runSeed,
			},
		},
	}
}

func main() {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("vendctl failed")
	}
}

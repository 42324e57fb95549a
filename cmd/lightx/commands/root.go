package commands

import (
	"github.com/urfave/cli/v3"
)

func orderFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "order-id", Usage: "order id returned by the submit call", Required: true},
		&cli.StringFlag{Name: "operation", Usage: "operation name (looked up in the ledger when omitted)"},
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "out", Usage: "download outputs into this directory"},
		&cli.BoolFlag{Name: "save", Usage: "download outputs into STORAGE_PATH"},
	}
}

// NewRootCommand builds the lightx command tree.
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "lightx",
		Usage: "run LightX image-edit operations and track their orders",
		// prompts routinely contain commas
		DisableSliceFlagSeparator: true,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env", Usage: "dotenv file to load", Value: ".env"},
			&cli.BoolFlag{Name: "quiet", Usage: "only log warnings and errors"},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "upload inputs, submit an operation and wait for the result",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "operation", Usage: "operation name (see `lightx operations`)", Required: true},
					&cli.StringSliceFlag{Name: "input", Usage: "slot=path, repeatable"},
					&cli.StringSliceFlag{Name: "param", Usage: "key=value, repeatable"},
				}, outputFlags()...),
				Action: RunAction,
			},
			{
				Name:   "status",
				Usage:  "query an order once",
				Flags:  orderFlags(),
				Action: StatusAction,
			},
			{
				Name:   "wait",
				Usage:  "resume polling an order with a fresh retry budget",
				Flags:  append(orderFlags(), outputFlags()...),
				Action: WaitAction,
			},
			{
				Name:  "batch",
				Usage: "run the jobs of a YAML or JSON file concurrently",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "file", Usage: "batch file", Required: true},
					&cli.IntFlag{Name: "concurrency", Usage: "parallel jobs (default BATCH_CONCURRENCY)"},
					&cli.StringFlag{Name: "archive", Usage: "write every output into this zip file"},
				}, outputFlags()...),
				Action: BatchAction,
			},
			{
				Name:   "operations",
				Usage:  "list supported operations",
				Flags:  []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "print JSON"}},
				Action: OperationsAction,
			},
			{
				Name:  "presets",
				Usage: "show hair color and padding presets or tips",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "operation", Usage: "print the tips for this operation"},
					&cli.BoolFlag{Name: "json", Usage: "print JSON"},
				},
				Action: PresetsAction,
			},
			{
				Name:  "orders",
				Usage: "list recent orders from the ledger",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "status", Usage: "filter by status (pending/active/failed/error)"},
					&cli.IntFlag{Name: "limit", Usage: "maximum rows", Value: 50},
					&cli.BoolFlag{Name: "json", Usage: "print JSON"},
				},
				Action: OrdersAction,
			},
		},
	}
}

package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"imagejobs/internal/catalog"
)

// OperationsAction lists the catalog. It needs no credentials.
func OperationsAction(ctx context.Context, cmd *cli.Command) error {
	out := output(cmd)
	descs := catalog.Default().Describe()
	if cmd.Bool("json") {
		return writeJSON(out, descs)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tENDPOINT\tINPUTS\tPARAMS")
	for _, d := range descs {
		inputs := make([]string, 0, len(d.Inputs))
		for _, in := range d.Inputs {
			name := in.Name
			if !in.Required {
				name += "?"
			}
			inputs = append(inputs, name)
		}
		params := make([]string, 0, len(d.Params))
		for _, p := range d.Params {
			name := p.Name
			if !p.Required {
				name += "?"
			}
			params = append(params, name)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Name, d.Endpoint, dash(strings.Join(inputs, ",")), dash(strings.Join(params, ",")))
	}
	return tw.Flush()
}

// PresetsAction prints the hair color and padding presets, or the tips for
// one operation.
func PresetsAction(ctx context.Context, cmd *cli.Command) error {
	out := output(cmd)
	presets, err := catalog.LoadPresets()
	if err != nil {
		return err
	}
	if op := cmd.String("operation"); op != "" {
		tips := presets.TipsFor(op)
		if len(tips) == 0 {
			return fmt.Errorf("no tips for operation %q", op)
		}
		for _, tip := range tips {
			fmt.Fprintf(out, "- %s\n", tip)
		}
		return nil
	}
	if cmd.Bool("json") {
		return writeJSON(out, presets)
	}
	for _, category := range presets.HairColorCategories() {
		fmt.Fprintf(out, "%s:\n", category)
		for _, c := range presets.HairColors[category] {
			fmt.Fprintf(out, "  %-20s %s  strength %.1f\n", c.Name, c.Hex, c.Strength)
		}
	}
	fmt.Fprintln(out, "padding directions:")
	for _, d := range presets.PaddingDirections {
		fmt.Fprintf(out, "  %-12s %s\n", d.Name, d.Description)
	}
	return nil
}

// OrdersAction lists recent orders from the ledger.
func OrdersAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()
	if app.Orders == nil {
		return fmt.Errorf("DATABASE_URL is not set; the order ledger is disabled")
	}
	orders, err := app.Orders.ListRecent(ctx, cmd.String("status"), cmd.Int("limit"))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return writeJSON(app.Out, orders)
	}
	tw := tabwriter.NewWriter(app.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tOPERATION\tSTATUS\tATTEMPTS\tUPDATED")
	for _, o := range orders {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", o.OrderID, o.Operation, o.Status, o.Attempts, o.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"recount/internal/domain"
	"recount/internal/engine"
	"recount/internal/engine/auth"
	"recount/internal/reconcile"
)

func catalogCmd() *cobra.Command {
	c := &cobra.Command{Use: "catalog", Short: "Product catalog"}
	c.AddCommand(catalogAddCmd())
	c.AddCommand(catalogSearchCmd())
	c.AddCommand(catalogSeedCmd())
	return c
}

func catalogAddCmd() *cobra.Command {
	var entry domain.CatalogEntry
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a product to the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withScope(cmd.Context(), func(ctx context.Context, e engine.Engine, scope auth.Scope) error {
				created, err := e.CreateCatalogEntry(ctx, scope, entry)
				if err != nil {
					return err
				}
				return printJSONOrTable(created)
			})
		},
	}
	cmd.Flags().StringVar(&entry.Code, "code", "", "product code")
	cmd.Flags().StringVar(&entry.Description, "description", "", "description")
	cmd.Flags().StringVar(&entry.Type, "type", "", "product type")
	cmd.Flags().StringVar(&entry.Unit, "unit", "", "system unit")
	cmd.Flags().StringVar(&entry.Barcode, "barcode", "", "barcode")
	_ = cmd.MarkFlagRequired("code")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func catalogSearchCmd() *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "search [term]",
		Short: "Find a product by code, barcode or description",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			term := ""
			if len(args) == 1 {
				term = args[0]
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				entry, err := e.SearchCatalog(ctx, code, term)
				if err != nil {
					return err
				}
				return printJSONOrTable(entry)
			})
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "exact product code")
	return cmd
}

func catalogSeedCmd() *cobra.Command {
	var generic int
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the demo catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				added, err := e.SeedCatalog(ctx, generic)
				if err != nil {
					return err
				}
				total, err := e.Repo.CountCatalog(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]int{"added": added, "total": total})
				}
				fmt.Printf("Added %d products (%d in catalog)\n", added, total)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&generic, "generic", engine.DefaultGenericProducts, "number of generic products")
	return cmd
}

func itemCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "item",
		Short: "Record and review counts",
		Long:  "Items are count records. Submit one with its first counts, then edit it to add counts until it reaches COUNTED. Leave a slot as '-' to keep it empty.",
	}
	c.AddCommand(itemSubmitCmd())
	c.AddCommand(itemListCmd())
	c.AddCommand(itemShowCmd())
	c.AddCommand(itemEditCmd())
	c.AddCommand(itemDeleteCmd())
	return c
}

func itemSubmitCmd() *cobra.Command {
	var opts engine.SubmitOptions
	var counts []string
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a new count",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Slots = reconcile.ParseSeries(counts...)
			return withScope(cmd.Context(), func(ctx context.Context, e engine.Engine, scope auth.Scope) error {
				if opts.Digitizer == "" {
					u, err := e.User(ctx, scope.UserID)
					if err != nil {
						return err
					}
					opts.Digitizer = u.Name
				}
				item, err := e.SubmitCount(ctx, scope, opts)
				if err != nil {
					return err
				}
				return printItem(item)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Code, "code", "", "product code")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description when the code is not in the catalog")
	cmd.Flags().StringVar(&opts.CountUnit, "unit", "", "counting unit")
	cmd.Flags().StringVar(&opts.Digitizer, "digitizer", "", "digitizer name (defaults to the acting user)")
	cmd.Flags().StringVar(&opts.TeamLeader, "leader", "", "team leader")
	cmd.Flags().StringVar(&opts.Warehouse, "warehouse", "", "warehouse")
	cmd.Flags().StringVar(&opts.LabelCode, "label", "", "label code")
	cmd.Flags().BoolVar(&opts.UsedScale, "scale", false, "counts were weighed on a scale")
	cmd.Flags().StringSliceVar(&counts, "count", nil, "count value (repeatable)")
	_ = cmd.MarkFlagRequired("code")
	_ = cmd.MarkFlagRequired("unit")
	return cmd
}

func itemListCmd() *cobra.Command {
	var opts engine.ListOptions
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List visible items, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Status = strings.ToUpper(opts.Status)
			return withScope(cmd.Context(), func(ctx context.Context, e engine.Engine, scope auth.Scope) error {
				var items []domain.InventoryItem
				var next string
				for {
					page, err := e.ListItems(ctx, scope, opts)
					if err != nil {
						return err
					}
					items = append(items, page.Items...)
					next = page.NextCursor
					if !all || next == "" {
						break
					}
					opts.Cursor = next
				}
				if err := printItems(items); err != nil {
					return err
				}
				if next != "" && !viper.GetBool("json") {
					fmt.Printf("More items: --cursor %s\n", next)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.Status, "status", "", "status filter")
	cmd.Flags().StringVarP(&opts.Search, "search", "q", "", "search code, description, label or digitizer")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "page size")
	cmd.Flags().StringVar(&opts.Cursor, "cursor", "", "continue after this cursor")
	cmd.Flags().BoolVar(&all, "all", false, "follow cursors until the end")
	return cmd
}

func itemShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withScope(cmd.Context(), func(ctx context.Context, e engine.Engine, scope auth.Scope) error {
				item, err := e.GetItem(ctx, scope, args[0])
				if err != nil {
					return err
				}
				return printItem(item)
			})
		},
	}
}

func itemEditCmd() *cobra.Command {
	var counts []string
	var scale bool
	var opts engine.UpdateOptions
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Replace the counts of an item and reconcile it again",
		Long:  "Pass every slot with --count, in order. Omitting --count keeps the stored counts; --scale and the text fields default to their stored values.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withScope(cmd.Context(), func(ctx context.Context, e engine.Engine, scope auth.Scope) error {
				current, err := e.GetItem(ctx, scope, args[0])
				if err != nil {
					return err
				}
				update := engine.UpdateOptions{
					Slots:      reconcile.SeriesOf(current.Counts...),
					UsedScale:  current.UsedScale,
					TeamLeader: current.TeamLeader,
					Warehouse:  current.Warehouse,
					LabelCode:  current.LabelCode,
					CountUnit:  opts.CountUnit,
				}
				flags := cmd.Flags()
				if flags.Changed("count") {
					update.Slots = reconcile.ParseSeries(counts...)
				}
				if flags.Changed("scale") {
					update.UsedScale = scale
				}
				if flags.Changed("leader") {
					update.TeamLeader = opts.TeamLeader
				}
				if flags.Changed("warehouse") {
					update.Warehouse = opts.Warehouse
				}
				if flags.Changed("label") {
					update.LabelCode = opts.LabelCode
				}
				item, err := e.UpdateItem(ctx, scope, args[0], update)
				if err != nil {
					return err
				}
				return printItem(item)
			})
		},
	}
	cmd.Flags().StringSliceVar(&counts, "count", nil, "count slot (repeatable, '-' for empty)")
	cmd.Flags().BoolVar(&scale, "scale", false, "counts were weighed on a scale")
	cmd.Flags().StringVar(&opts.CountUnit, "unit", "", "counting unit")
	cmd.Flags().StringVar(&opts.TeamLeader, "leader", "", "team leader")
	cmd.Flags().StringVar(&opts.Warehouse, "warehouse", "", "warehouse")
	cmd.Flags().StringVar(&opts.LabelCode, "label", "", "label code")
	return cmd
}

func itemDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withScope(cmd.Context(), func(ctx context.Context, e engine.Engine, scope auth.Scope) error {
				if err := e.DeleteItem(ctx, scope, args[0]); err != nil {
					return err
				}
				fmt.Println("Deleted", args[0])
				return nil
			})
		},
	}
}

func reportCmd() *cobra.Command {
	c := &cobra.Command{Use: "report", Short: "Progress reports over visible items"}
	c.AddCommand(&cobra.Command{
		Use:   "digitizers",
		Short: "Items per digitizer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withScope(cmd.Context(), func(ctx context.Context, e engine.Engine, scope auth.Scope) error {
				stats, err := e.DigitizerReport(ctx, scope)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(stats)
				}
				tw := newTable("Digitizer", "Total", "Counted", "Needs review")
				for _, s := range stats {
					tw.AppendRow(table.Row{s.Digitizer, s.Total, s.Counted, s.NeedsReview})
				}
				tw.Render()
				return nil
			})
		},
	})
	c.AddCommand(&cobra.Command{
		Use:   "summary",
		Short: "Items per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withScope(cmd.Context(), func(ctx context.Context, e engine.Engine, scope auth.Scope) error {
				summary, err := e.StatusSummary(ctx, scope)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(summary)
				}
				tw := newTable("Status", "Items")
				for _, st := range reconcile.Statuses {
					tw.AppendRow(table.Row{st, summary.ByStatus[string(st)]})
				}
				tw.AppendFooter(table.Row{"Total", summary.Total})
				tw.Render()
				return nil
			})
		},
	})
	c.AddCommand(&cobra.Command{
		Use:   "revisions",
		Short: "Items waiting for another count",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withScope(cmd.Context(), func(ctx context.Context, e engine.Engine, scope auth.Scope) error {
				items, err := e.Revisions(ctx, scope)
				if err != nil {
					return err
				}
				return printItems(items)
			})
		},
	})
	return c
}

func reconcileCmd() *cobra.Command {
	var scale bool
	cmd := &cobra.Command{
		Use:   "reconcile <count>...",
		Short: "Preview the reconciliation of counts without storing them",
		Long:  "Counts are read in order; '-' or an unparsable value is an empty slot.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := reconcile.Evaluate(reconcile.ParseSeries(args...), scale)
			if viper.GetBool("json") {
				return printJSON(r)
			}
			fmt.Printf("Status: %s\nDiscrepancy: %g\nNext: %s\n", r.Status, r.Discrepancy, r.NextAction)
			return nil
		},
	}
	cmd.Flags().BoolVar(&scale, "scale", false, "counts were weighed on a scale")
	return cmd
}

func printItem(item domain.InventoryItem) error {
	if viper.GetBool("json") {
		return printJSON(item)
	}
	tw := newTable("Field", "Value")
	tw.AppendRows([]table.Row{
		{"ID", item.ID},
		{"Code", item.Code},
		{"Description", item.Description},
		{"Digitizer", item.Digitizer},
		{"Sector", item.Sector},
		{"Unit", item.CountUnit},
		{"Scale", item.UsedScale},
		{"Counts", formatCounts(item.Counts)},
		{"Discrepancy", item.Discrepancy},
		{"Status", item.Status},
		{"Next", item.NextAction},
		{"Updated", item.UpdatedAt},
	})
	tw.Render()
	return nil
}

func printItems(items []domain.InventoryItem) error {
	if viper.GetBool("json") {
		if items == nil {
			items = []domain.InventoryItem{}
		}
		return printJSON(items)
	}
	tw := newTable("ID", "Code", "Description", "Digitizer", "Counts", "Status", "Next")
	for _, it := range items {
		tw.AppendRow(table.Row{it.ID, it.Code, it.Description, it.Digitizer, formatCounts(it.Counts), it.Status, it.NextAction})
	}
	tw.Render()
	return nil
}

func formatCounts(counts []float64) string {
	parts := make([]string, len(counts))
	for i, c := range counts {
		parts[i] = fmt.Sprintf("%g", c)
	}
	return strings.Join(parts, " / ")
}

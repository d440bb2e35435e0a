package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MikeMC777/canteen-ordering/internal/stock"
)

func newStockService(e *env) *stock.Service {
	return stock.NewService(stock.NewPGStore(e.pool),
		stock.WithTTL(e.cfg.StockLockTimeout),
		stock.WithBatchSize(e.cfg.SweepBatchSize),
		stock.WithLogger(e.log),
	)
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire due stock reservations and return their units",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()
			e, err := connect(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			n, err := newStockService(e).Sweep(ctx)
			if err != nil {
				return fmt.Errorf("sweep: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "expired %d locks\n", n)
			return nil
		},
	}
}

func stockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stock",
		Short: "Inspect and adjust menu item stock",
	}
	cmd.AddCommand(stockLevelsCmd(), stockSetCmd(), stockHistoryCmd())
	return cmd
}

func stockLevelsCmd() *cobra.Command {
	var (
		low    int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "levels",
		Short: "Print available and locked units per item",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()
			e, err := connect(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			svc := newStockService(e)
			var levels []stock.Level
			if cmd.Flags().Changed("low") {
				levels, err = svc.LowStock(ctx, low)
			} else {
				levels, err = svc.Levels(ctx)
			}
			if err != nil {
				return err
			}
			return printLevels(cmd.OutOrStdout(), levels, asJSON)
		},
	}
	cmd.Flags().IntVar(&low, "low", 5, "only orderable items with at most this many available units")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "output as JSON")
	return cmd
}

func stockSetCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "set <menu-item-id> <quantity>",
		Short: "Overwrite an item's available units",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("quantity must be an integer: %q", args[1])
			}
			ctx, cancel := signalContext(cmd)
			defer cancel()
			e, err := connect(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			adj, err := newStockService(e).SetStock(ctx, args[0], qty, reason)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d -> %d (%+d), available=%t\n",
				adj.MenuItemID, adj.PreviousStock, adj.NewStock, adj.Change, adj.IsAvailable)
			return nil
		},
	}
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "audit reason")
	return cmd
}

func stockHistoryCmd() *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the stock audit trail, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()
			e, err := connect(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			txs, err := newStockService(e).Transactions(ctx, limit, offset)
			if err != nil {
				return err
			}
			return printTransactions(cmd.OutOrStdout(), txs)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "rows to print")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	return cmd
}

func printLevels(w io.Writer, levels []stock.Level, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if levels == nil {
			levels = []stock.Level{}
		}
		return enc.Encode(levels)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tAVAILABLE\tLOCKED\tALERT")
	for _, l := range levels {
		alert := stock.ClassifyAlert(l.Available)
		if !l.IsAvailable {
			alert = "disabled"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", l.MenuItemID, l.Name, l.Category, l.Available, l.Locked, alert)
	}
	return tw.Flush()
}

func printTransactions(w io.Writer, txs []stock.Transaction) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tITEM\tTYPE\tDELTA\tSTOCK\tORDER\tREASON")
	for _, t := range txs {
		item := t.ItemName
		if item == "" {
			item = t.MenuItemID
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%+d\t%d->%d\t%s\t%s\n",
			t.CreatedAt.Format("2006-01-02 15:04:05"), item, t.Type, t.Delta, t.PreviousStock, t.NewStock, t.OrderID, t.Reason)
	}
	return tw.Flush()
}

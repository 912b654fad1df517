package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ariefcatur/go-warehouse-ops/internal/catalog"
	"github.com/ariefcatur/go-warehouse-ops/internal/inventory"
	"github.com/ariefcatur/go-warehouse-ops/internal/packages"
	"github.com/ariefcatur/go-warehouse-ops/internal/reports"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) reportCmd() *cobra.Command {
	var (
		period   string
		daysBack int
		channels []string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Order revenue report per channel",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := reports.ParsePeriod(period)
			if err != nil {
				return err
			}
			if len(channels) == 1 {
				rows, err := a.reports.ChannelReport(cmd.Context(), channels[0], p, daysBack)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), rows)
			}
			res := a.reports.AllChannels(cmd.Context(), channels, p, daysBack)
			for ch, err := range res.Failures {
				a.log.Warn("channel failed", zap.String("channel", ch), zap.Error(err))
			}
			if err := printJSON(cmd.OutOrStdout(), res.Rows); err != nil {
				return err
			}
			return res.Err()
		},
	}
	cmd.Flags().StringVar(&period, "period", "daily", "daily or monthly")
	cmd.Flags().IntVar(&daysBack, "days", 30, "days back from today")
	cmd.Flags().StringSliceVar(&channels, "channel", []string{"CZ-ESHOP", "SK-ESHOP", "HU-ESHOP"}, "sales channel, repeatable")
	return cmd
}

func (a *app) packageCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "package", Short: "Package fulfillment transitions"}

	action := func(use, short string, do func(*packages.Service) func(context.Context, string) (packages.Package, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <package-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := do(a.packages)(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), p)
			},
		}
	}
	cmd.AddCommand(
		action("pack", "Mark a package as packed", func(s *packages.Service) func(context.Context, string) (packages.Package, error) {
			return s.MarkAsPacked
		}),
		action("receive-return", "Receive a returned package", func(s *packages.Service) func(context.Context, string) (packages.Package, error) {
			return s.ReceiveReturn
		}),
		action("expedite", "Send a packed package to expedition", func(s *packages.Service) func(context.Context, string) (packages.Package, error) {
			return s.SendToExpedition
		}),
	)

	var reason string
	fail := &cobra.Command{
		Use:   "fail <package-id>",
		Short: "Move a package to ERROR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.packages.MarkError(cmd.Context(), args[0], reason)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	fail.Flags().StringVar(&reason, "reason", "", "error message stored on the package")
	cmd.AddCommand(fail)

	var (
		itemIDs []string
		name    string
	)
	split := &cobra.Command{
		Use:   "split <order-id>",
		Short: "Move items of an order's package into a new package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.packages.SplitPackage(cmd.Context(), args[0], packages.SplitRequest{ItemIDs: itemIDs, Name: name})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	split.Flags().StringSliceVar(&itemIDs, "item", nil, "item id to move, repeatable")
	split.Flags().StringVar(&name, "name", "", "name of the new package")
	cmd.AddCommand(split)
	return cmd
}

func (a *app) purchaseCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "purchase", Short: "Purchase request workflow"}

	var reason, until string
	ignore := &cobra.Command{
		Use:   "ignore <id>",
		Short: "Ignore a purchase request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pr, err := a.purchasing.Ignore(cmd.Context(), args[0], reason, until)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), pr)
		},
	}
	ignore.Flags().StringVar(&reason, "reason", "", "why the request is ignored")
	ignore.Flags().StringVar(&until, "until", "", "YYYY-MM-DD after which the request comes back")

	unignore := &cobra.Command{
		Use:   "unignore <id>",
		Short: "Return an ignored request to New",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pr, err := a.purchasing.Unignore(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), pr)
		},
	}

	var expected string
	purchased := &cobra.Command{
		Use:   "purchased <id>",
		Short: "Mark a request as purchased",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pr, err := a.purchasing.MarkAsPurchased(cmd.Context(), args[0], expected)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), pr)
		},
	}
	purchased.Flags().StringVar(&expected, "expected-date", "", "YYYY-MM-DD expected delivery")

	done := &cobra.Command{
		Use:   "done <id>",
		Short: "Close a purchased request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pr, err := a.purchasing.MarkAsDone(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), pr)
		},
	}

	cmd.AddCommand(ignore, unignore, purchased, done)
	return cmd
}

func (a *app) inventoryCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "inventory", Short: "Inventory transactions and cards"}

	items := &cobra.Command{
		Use:   "items <transaction-id>",
		Short: "List the items of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.inventory.Items(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}

	var file string
	sync := &cobra.Command{
		Use:   "sync <transaction-id> --file items.json",
		Short: "Replace a transaction's items with the JSON array in --file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return errors.New("--file required")
			}
			b, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var desired []inventory.Item
			if err := json.Unmarshal(b, &desired); err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			if desired == nil {
				desired = []inventory.Item{}
			}
			tx, err := a.inventory.ReplaceItems(cmd.Context(), args[0], desired)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), tx)
		},
	}
	sync.Flags().StringVar(&file, "file", "", "JSON array of the desired items")

	var summary bool
	cards := &cobra.Command{
		Use:   "cards <product-id>",
		Short: "Inventory cards of a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := a.inventory.CardsByProduct(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if summary {
				return printJSON(cmd.OutOrStdout(), cs.Summary())
			}
			return printJSON(cmd.OutOrStdout(), cs)
		},
	}
	cards.Flags().BoolVar(&summary, "summary", false, "print totals only")

	cmd.AddCommand(items, sync, cards)
	return cmd
}

func (a *app) reloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload <target>",
		Short: "Ask the CRM to reload data from the ERP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.catalog.Reload(cmd.Context(), catalog.ReloadTarget(args[0]))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/PrintDrop/internal/app"
	"github.com/dharsanguruparan/PrintDrop/internal/config"
	"github.com/dharsanguruparan/PrintDrop/internal/intake"
	"github.com/dharsanguruparan/PrintDrop/internal/model"
	"github.com/dharsanguruparan/PrintDrop/internal/orders"
	"github.com/dharsanguruparan/PrintDrop/internal/pages"
	"github.com/dharsanguruparan/PrintDrop/internal/pricing"
)

// inspectFiles returns the summed page count of local documents.
func inspectFiles(out io.Writer, allowed []string, paths []string) (int, error) {
	total := 0
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return 0, err
		}
		contentType, n, err := intake.Inspect(data, allowed)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		fmt.Fprintf(out, "%s\t%s\t%d pages\n", filepath.Base(path), contentType, n)
		total += n
	}
	return total, nil
}

func newPagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pages <file>...",
		Short: "Print the page count of PDF or DOCX documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			_, err = inspectFiles(cmd.OutOrStdout(), cfg.AllowedTypes, args)
			return err
		},
	}
}

func newQuoteCmd() *cobra.Command {
	var (
		printType string
		side      string
		copies    int
		selection string
		counting  string
	)
	cmd := &cobra.Command{
		Use:   "quote <file>...",
		Short: "Price local documents with the shop's rates",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			total, err := inspectFiles(out, cfg.AllowedTypes, args)
			if err != nil {
				return err
			}
			sel, err := pages.Parse(selection, total)
			if err != nil {
				return err
			}
			mode := pages.ParseCountMode(cfg.PageCounting)
			if counting != "" {
				mode = pages.ParseCountMode(counting)
			}
			q, err := pricing.Calculate(pricing.Input{
				PrintType: model.PrintType(printType),
				PrintSide: model.PrintSide(side),
				Copies:    copies,
				Pages:     sel.Pages(mode),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "selection %s: %d of %d pages, %d sheets x %d copies @ %.2f = %.2f\n",
				sel, q.Pages, total, q.BilledSheets, q.Copies, q.Rate, q.Total)
			return nil
		},
	}
	cmd.Flags().StringVarP(&printType, "type", "t", string(model.PrintBlackAndWhite), "Print type: blackAndWhite or color")
	cmd.Flags().StringVarP(&side, "side", "s", string(model.SideSingle), "Print side: single or double")
	cmd.Flags().IntVarP(&copies, "copies", "c", 1, "Number of copies")
	cmd.Flags().StringVarP(&selection, "pages", "p", model.AllPages, `Page selection, e.g. "1-5,8" or "all"`)
	cmd.Flags().StringVar(&counting, "counting", "", "Override page counting mode: span or token")
	return cmd
}

func newOrdersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Inspect and update orders in the configured store",
	}
	cmd.AddCommand(newOrdersListCmd(), newOrdersSetStatusCmd())
	return cmd
}

// openService connects the configured backends without a job dispatcher.
func openService(cmd *cobra.Command) (*orders.Service, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	backends, err := app.Open(cmd.Context(), cfg, zap.NewNop())
	if err != nil {
		return nil, nil, err
	}
	svc := orders.NewService(backends.Orders, backends.Files, nil, pages.ParseCountMode(cfg.PageCounting), zap.NewNop())
	return svc, backends.Close, nil
}

func newOrdersListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List orders in submission order",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			all, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDATE\tCUSTOMER\tPHONE\tFILES\tPAGES\tCOPIES\tTOTAL\tSTATUS")
			for _, o := range all {
				if status != "" && string(o.Status) != status {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%d\t%.2f\t%s\n",
					o.OrderID, o.OrderDate.Format("2006-01-02 15:04"), o.FullName, o.PhoneNumber,
					len(o.Files), o.SelectedPages, o.Copies, o.TotalCost, o.Status)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only show orders with this status")
	return cmd
}

func newOrdersSetStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <id> <status>",
		Short: "Move an order to pending, processing, completed or cancelled",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			order, err := svc.ChangeStatus(cmd.Context(), args[0], model.OrderStatus(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", order.OrderID, order.Status)
			return nil
		},
	}
}

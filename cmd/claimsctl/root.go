package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/noah-isme/backend-klaim/internal/app"
	"github.com/noah-isme/backend-klaim/internal/billing"
	"github.com/noah-isme/backend-klaim/internal/cache"
	"github.com/noah-isme/backend-klaim/internal/common"
	"github.com/noah-isme/backend-klaim/internal/jobs"
	"github.com/noah-isme/backend-klaim/internal/ledger"
	"github.com/noah-isme/backend-klaim/internal/pricing"
	"github.com/noah-isme/backend-klaim/internal/store/memory"
	"github.com/noah-isme/backend-klaim/internal/store/postgres"
)

type rootOptions struct {
	seed     string
	timezone string
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "claimsctl",
		Short: "Hospital billing reports from a seed file",
		Long: `claimsctl computes hospital bill reports and ledger balances offline.

Examples:
  claimsctl bill-report --hospital hosp1 --from 2024-01-01 --to 2024-03-31
  claimsctl bill-report --hospital hosp1 --from 2024-01-01 --to 2024-03-31 --output table
  claimsctl balance --seed fixtures/seed.yaml
  claimsctl price --service svc5 --units 8`,
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&opts.seed, "seed", "fixtures/seed.yaml", "seed file with hospitals, services, admissions and transactions")
	root.PersistentFlags().StringVar(&opts.timezone, "timezone", "UTC", "timezone reports are computed in")

	root.AddCommand(newBillReportCmd(opts), newBalanceCmd(opts), newWarmCmd(opts), newMigrateCmd(), newSeedDBCmd(opts), newPriceCmd(opts))
	return root
}

func (o *rootOptions) location() (*time.Location, error) {
	loc, err := time.LoadLocation(o.timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	return loc, nil
}

func newBillReportCmd(opts *rootOptions) *cobra.Command {
	var (
		hospitalID string
		from, to   string
		output     string
		maxSvc     int
	)
	cmd := &cobra.Command{
		Use:   "bill-report",
		Short: "Print the bill report of a hospital for a date range",
		RunE: func(cmd *cobra.Command, _ []string) error {
			loc, err := opts.location()
			if err != nil {
				return err
			}
			filters := billing.Filters{HospitalID: hospitalID}
			if filters.DateFrom, err = common.ParseDateIn(from, loc); err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			if filters.DateTo, err = common.ParseDateIn(to, loc); err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			st, err := memory.LoadFile(opts.seed, loc)
			if err != nil {
				return err
			}
			svc := &billing.Service{Q: st, Builder: billing.Builder{MaxServices: maxSvc, Location: loc}}
			report, err := svc.GenerateHospitalBillReport(cmd.Context(), filters)
			if err != nil {
				return err
			}
			switch output {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			case "table":
				return writeReportTable(cmd.OutOrStdout(), report)
			default:
				return fmt.Errorf("unsupported output %q", output)
			}
		},
	}
	cmd.Flags().StringVar(&hospitalID, "hospital", "", "hospital id")
	cmd.Flags().StringVar(&from, "from", "", "first day of the report (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last day of the report (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format (json, table)")
	cmd.Flags().IntVar(&maxSvc, "max-services", billing.DefaultMaxServices, "hospital services billed per admission")
	_ = cmd.MarkFlagRequired("hospital")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func writeReportTable(w io.Writer, report billing.Report) error {
	fmt.Fprintf(w, "%s (%s)\n%s - %s\n\n", report.HospitalName, report.ReferencePerson, report.DateFrom, report.DateTo)
	if len(report.Entries) == 0 {
		fmt.Fprintln(w, "No billable entries found for the selected criteria.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "ADMISSION\tPATIENT\tDATE\tTOTAL\tCOMMISSION\tNET\tSTATUS\t")
	for _, e := range report.Entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			e.AdmissionID, e.PatientName, e.AdmissionDate,
			e.TotalServiceAmount.StringFixed(2), e.CalculatedCommission.StringFixed(2),
			e.NetAmountToHospital.StringFixed(2), e.PaymentStatus)
	}
	s := report.Summary
	fmt.Fprintf(tw, "\t\tTOTAL\t%s\t%s\t%s\t\t\n",
		s.TotalBillAmount.StringFixed(2), s.TotalCommission.StringFixed(2), s.TotalNetToHospital.StringFixed(2))
	return tw.Flush()
}

func newBalanceCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Print income, expenses and net balance of the ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			loc, err := opts.location()
			if err != nil {
				return err
			}
			st, err := memory.LoadFile(opts.seed, loc)
			if err != nil {
				return err
			}
			summary, err := (&ledger.Service{Q: st}).Balance(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Total income:   %s\n", summary.TotalIncome.StringFixed(2))
			fmt.Fprintf(w, "Total expenses: %s\n", summary.TotalExpenses.StringFixed(2))
			fmt.Fprintf(w, "Net balance:    %s\n", summary.NetBalance.StringFixed(2))
			return nil
		},
	}
}

func newWarmCmd(opts *rootOptions) *cobra.Command {
	var redisURL string
	cmd := &cobra.Command{
		Use:   "warm-previous-month",
		Short: "Queue report warm-ups of last month for every active hospital",
		RunE: func(cmd *cobra.Command, _ []string) error {
			loc, err := opts.location()
			if err != nil {
				return err
			}
			st, err := memory.LoadFile(opts.seed, loc)
			if err != nil {
				return err
			}
			client, err := app.NewRedis(cmd.Context(), redisURL, false)
			if err != nil {
				return err
			}
			defer client.Close()
			tasks := asynq.NewClientFromRedisClient(client)
			enq := jobs.Enqueuer{Client: tasks, Queue: jobs.DefaultQueue}
			n, err := enq.EnqueuePreviousMonth(cmd.Context(), &billing.Service{Q: st}, time.Now(), loc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %d report warm-ups\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&redisURL, "redis-url", "redis://localhost:6379/0", "redis connection url")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	var databaseURL, source string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.RunMigrations(source, databaseURL); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
	cmd.Flags().StringVar(&databaseURL, "database-url", "", "postgres connection url")
	cmd.Flags().StringVar(&source, "source", "file://migrations", "migrations source url")
	_ = cmd.MarkFlagRequired("database-url")
	return cmd
}

func newSeedDBCmd(opts *rootOptions) *cobra.Command {
	var databaseURL, redisURL string
	cmd := &cobra.Command{
		Use:   "seed-db",
		Short: "Upsert the seed file into a migrated postgres database",
		Long: `seed-db upserts the seed file into postgres. With --redis-url it also drops
cached bill reports, which no longer match the imported records.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loc, err := opts.location()
			if err != nil {
				return err
			}
			st, err := memory.LoadFile(opts.seed, loc)
			if err != nil {
				return err
			}
			pool, err := postgres.Connect(cmd.Context(), databaseURL, "klaim-claimsctl")
			if err != nil {
				return err
			}
			defer pool.Close()
			d := st.Dataset()
			if err := postgres.Import(cmd.Context(), pool, d); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d hospitals, %d services, %d admissions, %d claims, %d transactions\n",
				len(d.Hospitals), len(d.Services), len(d.Admissions), len(d.Claims), len(d.Transactions))
			if redisURL == "" {
				return nil
			}
			return invalidateReports(cmd, redisURL)
		},
	}
	cmd.Flags().StringVar(&databaseURL, "database-url", "", "postgres connection url")
	cmd.Flags().StringVar(&redisURL, "redis-url", "", "redis connection url of the report cache")
	_ = cmd.MarkFlagRequired("database-url")
	return cmd
}

func invalidateReports(cmd *cobra.Command, redisURL string) error {
	client, err := app.NewRedis(cmd.Context(), redisURL, false)
	if err != nil {
		return err
	}
	defer client.Close()
	svc := &billing.Service{Cache: cache.NewJSON(client, app.CachePrefix, 0)}
	n, err := svc.InvalidateReports(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "dropped %d cached bill reports\n", n)
	return nil
}

func newPriceCmd(opts *rootOptions) *cobra.Command {
	var serviceID, units string
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Price one service, optionally for a usage magnitude",
		Long: `price resolves the price a service is billed at. Without --units it applies the
billing rule (base price for slab-based services). With --units it prices that
consumption across the service's slabs.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loc, err := opts.location()
			if err != nil {
				return err
			}
			st, err := memory.LoadFile(opts.seed, loc)
			if err != nil {
				return err
			}
			catalog, err := st.GetServices(cmd.Context(), []string{serviceID})
			if err != nil {
				return err
			}
			svc, ok := catalog[serviceID]
			if !ok {
				return fmt.Errorf("service %s: %w", serviceID, billing.ErrServiceNotFound)
			}
			var price decimal.Decimal
			if units == "" {
				price, err = pricing.Resolve(svc.Pricing)
			} else {
				var n decimal.Decimal
				if n, err = decimal.NewFromString(units); err != nil {
					return fmt.Errorf("--units: %w", err)
				}
				price, err = pricing.ResolveUsage(svc.Pricing, n)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s): %s\n", svc.Name, svc.Pricing.Type(), price.StringFixed(2))
			return nil
		},
	}
	cmd.Flags().StringVar(&serviceID, "service", "", "service id")
	cmd.Flags().StringVar(&units, "units", "", "usage magnitude to price")
	_ = cmd.MarkFlagRequired("service")
	return cmd
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mmdatafocus/fieldsales_backend/config"
	"github.com/mmdatafocus/fieldsales_backend/inbox"
	"github.com/mmdatafocus/fieldsales_backend/migrate"
	"github.com/mmdatafocus/fieldsales_backend/migrations"
	"github.com/mmdatafocus/fieldsales_backend/models"
	"github.com/mmdatafocus/fieldsales_backend/snapshot"
	"github.com/mmdatafocus/fieldsales_backend/utils"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Bring the local store to the latest schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := config.ConnectDatabase(settings.DatabasePath); err != nil {
			return err
		}
		defer func() { _ = config.CloseDatabase() }()

		report, err := models.MigrateTable(ctx, settings)
		if err != nil {
			return err
		}
		switch {
		case report.Bootstrapped:
			fmt.Printf("store created at version %d\n", report.To)
		case report.Rebuilt:
			fmt.Printf("store rebuilt at version %d (backup %s)\n", report.To, report.BackupPath)
		case len(report.Applied) == 0:
			fmt.Printf("store already at version %d\n", report.To)
		default:
			fmt.Printf("store migrated %d -> %d (%v)\n", report.From, report.To, report.Applied)
		}
		ledger := migrate.NewStore(config.GetDB())
		for _, m := range migrations.Registry().List() {
			if rec, err := ledger.Get(ctx, m.Version); err == nil {
				fmt.Printf("  v%02d %-9s %s\n", rec.Version, rec.Mode, rec.Description)
			}
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import [kind|all]",
	Short: "Reconcile snapshot files into the store",
	Long: `Reconcile the snapshot files of the snapshot directory into the store.

Without an argument, or with "all", every present snapshot is imported in dependency order:
representatives, partners, members, catalog, credentials, agenda. A kind that fails does not
stop the kinds after it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, closeFn, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		o := newOrchestrator()
		if len(args) == 0 || args[0] == "all" {
			report, err := o.ImportAll(ctx)
			printReport(report)
			return err
		}
		kind, err := snapshot.ParseKind(args[0])
		if err != nil {
			return err
		}
		report, err := o.ImportKind(ctx, kind)
		printReport(report)
		return err
	},
}

var sendExport bool

var exportCmd = &cobra.Command{
	Use:   "export <kind> <mode>",
	Short: "Write a snapshot and its text mirror",
	Long: `Write kind in mode (full, delta or period) to the export directory.

Orders and agenda are scoped to the logged-in representative; pass --login and --password.
With --send the files are also queued in the outbox for the mail client.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := snapshot.ParseKind(args[0])
		if err != nil {
			return err
		}
		mode, ok := models.ParseExportMode(args[1])
		if !ok {
			return utils.UnsupportedKindError("export", args[0]+"/"+args[1])
		}
		ctx, closeFn, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		o := newOrchestrator()
		if sendExport {
			report, err := o.ExportAndSend(ctx, kind, mode)
			printReport(report)
			return err
		}
		report, err := o.Export(ctx, kind, mode)
		printReport(report)
		return err
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Import snapshot files as they are dropped into the snapshot directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		ctx, closeFn, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		w, err := inbox.NewWatcher(settings.SnapshotDir, config.GetLogger())
		if err != nil {
			return err
		}
		if err := w.Start(); err != nil {
			return err
		}
		defer func() { _ = w.Stop() }()
		fmt.Printf("watching %s\n", settings.SnapshotDir)

		o := newOrchestrator()
		for {
			report, err := o.ImportPicked(ctx, w)
			if errors.Is(err, context.Canceled) || errors.Is(err, inbox.ErrStopped) {
				return nil
			}
			printReport(report)
			if err != nil {
				msg, _ := utils.UserMessage(err, settings.Locale)
				fmt.Printf("  %s\n", msg)
			}
		}
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Check a representative's credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		if login == "" {
			return utils.SessionError("login", "--login is required")
		}
		ctx, closeFn, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()
		code, _ := utils.GetRepresentativeCodeFromContext(ctx)
		name, _ := utils.GetRepresentativeNameFromContext(ctx)
		fmt.Printf("signed in as %s (%s)\n", code, name)
		return nil
	},
}

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent sync runs, one JSON object per line",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, closeFn, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		runs, err := models.ListSyncRuns(ctx, runsLimit)
		if err != nil {
			return err
		}
		for _, run := range runs {
			line, err := utils.MarshalToJSON(run)
			if err != nil {
				return err
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().BoolVar(&sendExport, "send", false, "queue the files in the outbox")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 50, "number of runs to list")
}

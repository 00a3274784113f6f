// fieldsync runs sync passes against the local store from the command line.
//
// Usage:
//
//	fieldsync migrate
//	fieldsync import all
//	fieldsync --login ana --password secret export orders delta --send
//	fieldsync watch
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmdatafocus/fieldsales_backend/config"
	"github.com/mmdatafocus/fieldsales_backend/models"
	"github.com/mmdatafocus/fieldsales_backend/outbox"
	"github.com/mmdatafocus/fieldsales_backend/session"
	"github.com/mmdatafocus/fieldsales_backend/syncer"
	"github.com/mmdatafocus/fieldsales_backend/utils"
)

var (
	settings = config.LoadSettings()
	login    string
	password string
)

var rootCmd = &cobra.Command{
	Use:           "fieldsync",
	Short:         "Field-sales snapshot sync",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&settings.DatabasePath, "db", settings.DatabasePath, "path of the local store")
	pf.StringVar(&settings.SnapshotDir, "snapshots", settings.SnapshotDir, "directory snapshots are read from")
	pf.StringVar(&settings.ExportDir, "exports", settings.ExportDir, "directory exports are written to")
	pf.StringVar(&login, "login", os.Getenv("FIELDSYNC_LOGIN"), "representative login for scoped commands")
	pf.StringVar(&password, "password", os.Getenv("FIELDSYNC_PASSWORD"), "representative password")

	rootCmd.AddCommand(migrateCmd, importCmd, exportCmd, watchCmd, loginCmd, runsCmd)
}

// openStore connects and migrates the store; the returned context carries the session when
// credentials were given.
func openStore(ctx context.Context) (context.Context, func(), error) {
	utils.PhoneRegion = settings.PhoneRegion
	if err := config.ConnectDatabase(settings.DatabasePath); err != nil {
		return ctx, nil, err
	}
	closeFn := func() { _ = config.CloseDatabase() }
	if _, err := models.MigrateTable(ctx, settings); err != nil {
		closeFn()
		return ctx, nil, err
	}
	if login == "" {
		return ctx, closeFn, nil
	}
	holder := session.NewHolder()
	if _, err := holder.Authenticate(ctx, login, password); err != nil {
		closeFn()
		return ctx, nil, err
	}
	return holder.Context(ctx), closeFn, nil
}

func newOrchestrator() *syncer.Orchestrator {
	logger := config.GetLogger()
	return syncer.NewOrchestrator(config.GetDB(), syncer.Options{
		SnapshotDir:      settings.SnapshotDir,
		ExportDir:        settings.ExportDir,
		StrictReferences: config.StrictOrdinalReferences(),
		Workbook:         config.ExportWorkbook(),
		Mailer:           outbox.NewDirMailer(settings.OutboxDir, logger),
		Logger:           logger,
	})
}

func printReport(r *syncer.Report) {
	if r == nil {
		return
	}
	fmt.Printf("run %s: %s\n", r.RunID, r.Status)
	for _, k := range r.Kinds {
		switch {
		case k.Missing:
			fmt.Printf("  %-16s not present\n", k.Kind)
		case k.Err != nil:
			fmt.Printf("  %-16s failed: %v\n", k.Kind, k.Err)
		default:
			c := k.Counts
			fmt.Printf("  %-16s +%d ~%d -%d skipped %d degraded %d\n", k.Kind, c.Inserted, c.Updated, c.Deleted, c.Skipped, c.Degraded)
		}
	}
	for _, f := range r.Files {
		fmt.Printf("  wrote %s\n", f)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

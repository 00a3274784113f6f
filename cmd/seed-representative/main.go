// seed-representative creates a representative and its login in the local store, or resets the
// password of an existing login.
//
// Usage:
//
//	go run ./cmd/seed-representative -code R1 -name Ana -login ana -password secret
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/mmdatafocus/fieldsales_backend/config"
	"github.com/mmdatafocus/fieldsales_backend/models"
	"github.com/mmdatafocus/fieldsales_backend/utils"
)

func main() {
	settings := config.LoadSettings()
	dbPath := flag.String("db", settings.DatabasePath, "path of the local store")
	code := flag.String("code", "", "representative code")
	name := flag.String("name", "", "representative name")
	surname := flag.String("surname", "", "representative surname")
	login := flag.String("login", "", "login")
	password := flag.String("password", "", "password")
	flag.Parse()

	if *code == "" || *login == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "-code, -login and -password are required")
		os.Exit(2)
	}

	ctx := context.Background()
	settings.DatabasePath = *dbPath
	if err := config.ConnectDatabase(settings.DatabasePath); err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = config.CloseDatabase() }()
	if _, err := models.MigrateTable(ctx, settings); err != nil {
		fmt.Fprintf(os.Stderr, "failed to migrate store: %v\n", err)
		os.Exit(1)
	}

	rep, err := models.GetRepresentativeByCode(ctx, *code)
	if errors.Is(err, utils.ErrNotFound) {
		if *name == "" {
			fmt.Fprintln(os.Stderr, "-name is required for a new representative")
			os.Exit(2)
		}
		rep, err = models.CreateRepresentative(ctx, &models.NewRepresentative{Code: *code, Name: *name, Surname: *surname})
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to prepare representative: %v\n", err)
		os.Exit(1)
	}
	if _, err := models.SetCredential(ctx, *login, *password, rep.Code); err != nil {
		fmt.Fprintf(os.Stderr, "failed to set credential: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("login %s ready for %s (%s)\n", *login, rep.Code, rep.FullName())
}

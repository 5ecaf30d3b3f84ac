// migrate runs the embedded SQL migrations against the primary store, the legacy store, or both.
//
//	go run ./cmd/migrate -target all -direction up
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"field-capture-ingest/internal/config"
	"field-capture-ingest/internal/db/migrate"
)

func main() {
	target := flag.String("target", "all", "Migration set: primary, legacy, or all")
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var sets []migrate.Set
	if *target == "all" {
		sets = []migrate.Set{migrate.Primary, migrate.Legacy}
	} else {
		set, err := migrate.ParseSet(*target)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		sets = []migrate.Set{set}
	}

	dsn := map[migrate.Set]string{
		migrate.Primary: cfg.DatabaseURL,
		migrate.Legacy:  cfg.LegacyDatabaseURL,
	}
	for _, set := range sets {
		if dsn[set] == "" {
			fmt.Fprintf(os.Stderr, "migrate %s: database URL is not set; create a .env or set DATABASE_URL and LEGACY_DATABASE_URL\n", set)
			os.Exit(1)
		}
		if err := migrate.Run(dsn[set], set, *direction); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				// Already at target version.
				continue
			}
			fmt.Fprintf(os.Stderr, "migrate %s: %v\n", set, err)
			os.Exit(1)
		}
		fmt.Printf("migrate %s: %s ok\n", set, *direction)
	}
}

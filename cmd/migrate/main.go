package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Kvnbbg/cfa/internal/migrate"
)

func main() {
	log.SetFlags(0)
	var (
		dsn            = flag.String("dsn", os.Getenv("CFA_PG_DSN"), "PostgreSQL DSN")
		migrationsPath = flag.String("migrations", migrate.DefaultMigrationsDir, "Path to SQL migrations")
		seedsPath      = flag.String("seeds", migrate.DefaultSeedsDir, "Path to SQL seeds")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or CFA_PG_DSN")
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [up|down|seed|status]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	mgr := migrate.NewManager(db,
		migrate.WithMigrationsDir(*migrationsPath),
		migrate.WithSeedsDir(*seedsPath),
	)

	switch flag.Arg(0) {
	case "up":
		err = mgr.Up(ctx)
	case "down":
		err = mgr.Down(ctx)
	case "seed":
		err = mgr.Seed(ctx)
	case "status":
		var applied []migrate.Applied
		applied, err = mgr.Status(ctx)
		if err == nil {
			for _, a := range applied {
				fmt.Printf("%s\t%s\n", a.Name, a.AppliedAt.Format(time.RFC3339))
			}
		}
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
}

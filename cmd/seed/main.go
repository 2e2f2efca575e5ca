package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/vivaldi20/member-directory/internal/auth"
	"github.com/vivaldi20/member-directory/internal/db"
	"github.com/vivaldi20/member-directory/internal/seeds"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	_ = godotenv.Load(".env.local")

	file := flag.String("file", seeds.DefaultMembersFile, "Path to the members YAML fixture")
	dsn := flag.String("dsn", os.Getenv("DATABASE_URL"), "Postgres DSN (default: env DATABASE_URL)")
	dryRun := flag.Bool("dry-run", false, "Parse + validate only; no DB writes")
	flag.Parse()

	members, err := seeds.LoadMembers(*file)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	if *dryRun {
		if _, err := seeds.SeedMembers(context.Background(), auth.NewMemoryStore(), members, bcrypt.MinCost); err != nil {
			log.Fatalf("❌ Fixture invalid: %v", err)
		}
		log.Printf("Dry run OK: %d members in %s", len(members), *file)
		return
	}

	conn, err := db.Connect(*dsn)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
	defer db.Close(conn)

	if err := auth.Init(conn); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	if _, err := seeds.SeedMembers(context.Background(), auth.NewGormStore(conn), members, bcrypt.DefaultCost); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
}

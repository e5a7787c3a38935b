package main

import (
	"log"
	"os"
	"slices"
	"strings"

	_ "github.com/joho/godotenv/autoload"

	"github.com/fdg312/coach-hub/internal/config"
	"github.com/fdg312/coach-hub/internal/dbmigrate"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: go run ./cmd/migrate [%s|list]", strings.Join(dbmigrate.Commands, "|"))
	}

	command := os.Args[1]
	if command == "list" {
		names, err := dbmigrate.Embedded()
		if err != nil {
			log.Fatal(err)
		}
		for _, n := range names {
			log.Printf("migrate: embedded %s", n)
		}
		return
	}
	if !slices.Contains(dbmigrate.Commands, command) {
		log.Fatalf("unsupported command %q (allowed: %s, list)", command, strings.Join(dbmigrate.Commands, ", "))
	}

	cfg := config.Load()
	target, err := dbmigrate.SelectTarget(cfg, false)
	if err != nil {
		log.Fatal(err)
	}

	if target.Warning != "" {
		log.Printf("WARN migrate: %s", target.Warning)
	}
	log.Printf("migrate: command=%s using=%s", command, target.Source)

	if err := dbmigrate.Run(command, target, dbmigrate.DefaultMigrationsDir); err != nil {
		log.Fatal(err)
	}

	log.Printf("migrate: %s completed successfully", command)
}

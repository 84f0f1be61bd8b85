// cmd/seeder/main.go
package main

import (
	"fmt"
	"os"

	_ "github.com/lib/pq"

	"github.com/unclebandit/dmcampaign-backend/internal/config"
	"github.com/unclebandit/dmcampaign-backend/internal/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	conn, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "db:", err)
		os.Exit(1)
	}
	defer conn.Close()

	seedFiles := []string{
		"seed/schema.sql",
		"seed/accounts.sql",
		"seed/campaigns.sql",
		"seed/targets.sql",
	}

	for _, file := range seedFiles {
		content, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read %s: %v\n", file, err)
			os.Exit(1)
		}
		if _, err := conn.Exec(string(content)); err != nil {
			fmt.Fprintf(os.Stderr, "failed to execute %s: %v\n", file, err)
			os.Exit(1)
		}
		fmt.Printf("Seeded: %s\n", file)
	}

	fmt.Println("Database seeding completed successfully!")
}

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/draftarena/backend/config"
	"github.com/draftarena/backend/db"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	if err := db.Migrate(cfg.DatabaseURL, *direction); err != nil {
		if errors.Is(err, db.ErrNoChange) {
			fmt.Println("database already up to date")
			return
		}
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
	fmt.Printf("migrations applied (%s)\n", *direction)
}

package main

import (
	"context"
	"fmt"
	"log"

	"society-billing/internal/config"
	"society-billing/internal/db"
)

// Billing activity only. Societies, units, fee items and the chart of
// accounts survive so a fresh generation run can start immediately.
var billingTables = []string{
	"online_orders",
	"payments",
	"invoice_line_items",
	"invoices",
	"ledger_entries",
	"invoice_sequences",
	"receipt_sequences",
}

func main() {
	fmt.Println("========================================")
	fmt.Println("   Reset Billing Data")
	fmt.Println("========================================")
	fmt.Println()
	fmt.Println("WARNING: This will DELETE ALL BILLING ACTIVITY!")
	fmt.Println()
	fmt.Println("This will:")
	fmt.Println("  - Delete all invoices and line items")
	fmt.Println("  - Delete all payments, refunds and online orders")
	fmt.Println("  - Delete all ledger entries")
	fmt.Println("  - Restart invoice and receipt numbering")
	fmt.Println()
	fmt.Print("Type 'yes' to confirm: ")

	var confirm string
	fmt.Scanln(&confirm)

	if confirm != "yes" {
		fmt.Println("Reset cancelled.")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}
	defer pool.Close()

	fmt.Println()
	fmt.Println("Resetting billing data...")

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v\n", err)
	}
	defer tx.Rollback(ctx)

	for _, table := range billingTables {
		if _, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)); err != nil {
			log.Fatalf("Failed to truncate %s: %v\n", table, err)
		}
		fmt.Printf("  - Cleared %s\n", table)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit transaction: %v\n", err)
	}

	fmt.Println()
	fmt.Println("Billing data reset. Master data and accounts were kept.")
}

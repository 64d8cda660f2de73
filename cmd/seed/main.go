// Command seed populates a development database with regions, users and
// randomized transactions so the report endpoints have data to serve.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
)

var regionNames = []string{"North", "South", "East", "West"}

func main() {
	_ = godotenv.Load()

	dsn := flag.String("dsn", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	userCount := flag.Int("users", 200, "Number of users to create")
	txCount := flag.Int("transactions", 10000, "Number of transactions to create")
	days := flag.Int("days", 90, "Spread transactions over the trailing N days")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if *dsn == "" {
		slog.Error("No DSN provided (use -dsn or DATABASE_URL)")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", *dsn)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := seed(db, *userCount, *txCount, *days); err != nil {
		slog.Error("Seeding failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Seeding complete", "users", *userCount, "transactions", *txCount)
}

func seed(db *sql.DB, userCount, txCount, days int) error {
	regionIDs, err := seedRegions(db)
	if err != nil {
		return fmt.Errorf("seed regions: %w", err)
	}

	userIDs, err := seedUsers(db, regionIDs, userCount)
	if err != nil {
		return fmt.Errorf("seed users: %w", err)
	}

	if err := seedTransactions(db, userIDs, txCount, days); err != nil {
		return fmt.Errorf("seed transactions: %w", err)
	}
	return nil
}

func seedRegions(db *sql.DB) ([]int, error) {
	ids := make([]int, 0, len(regionNames))
	for _, name := range regionNames {
		var id int
		// Rerunning the seeder must not duplicate regions; name is unique.
		err := db.QueryRow(`
			INSERT INTO regions (name) VALUES ($1)
			ON CONFLICT (name) DO NOTHING
			RETURNING id`, name).Scan(&id)
		if err == sql.ErrNoRows {
			if err := db.QueryRow(`SELECT id FROM regions WHERE name = $1`, name).Scan(&id); err != nil {
				return nil, err
			}
		} else if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func seedUsers(db *sql.DB, regionIDs []int, count int) ([]int, error) {
	ids := make([]int, 0, count)
	for i := 0; i < count; i++ {
		name := fmt.Sprintf("User %d", i+1)
		// uuid suffix keeps emails unique across repeated runs.
		email := fmt.Sprintf("user-%s@example.com", uuid.NewString())
		regionID := regionIDs[rand.Intn(len(regionIDs))]

		var id int
		err := db.QueryRow(`
			INSERT INTO users (name, email, region_id) VALUES ($1, $2, $3)
			RETURNING id`, name, email, regionID).Scan(&id)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func seedTransactions(db *sql.DB, userIDs []int, count, days int) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO transactions (user_id, amount, created_at) VALUES ($1, $2, $3)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	window := time.Duration(days) * 24 * time.Hour
	for i := 0; i < count; i++ {
		userID := userIDs[rand.Intn(len(userIDs))]
		amount := decimal.NewFromFloat(rand.Float64() * 1000).Round(2)
		createdAt := now.Add(-time.Duration(rand.Int63n(int64(window))))

		if _, err := stmt.Exec(userID, amount, createdAt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

package cmd

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/jmehdipour/swap-gateway/internal/config"
	"github.com/jmehdipour/swap-gateway/internal/db"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo reference data",
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1) load config
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		// 2) connect MySQL
		sqlDB, err := db.ConnectMySQL(cfg.MySQL)
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		log.Println(">> Seeding demo reference data...")

		if err := seedCurrencies(sqlDB); err != nil {
			return err
		}
		if err := seedProviders(sqlDB); err != nil {
			return err
		}

		log.Println(">> Seed completed")
		return nil
	},
}

type seedCurrency struct {
	Symbol, Name, Network string
	Memo                  bool
	Min, Max              float64
}

// seedCurrencies inserts a deterministic demo catalog (idempotent). Seeded
// rows carry NULL last_synced_at so the first real read still triggers a sync.
func seedCurrencies(dbx *sqlx.DB) error {
	currencies := []seedCurrency{
		{Symbol: "BTC", Name: "Bitcoin", Network: "Mainnet", Min: 0.0005, Max: 10},
		{Symbol: "ETH", Name: "Ethereum", Network: "Mainnet", Min: 0.01, Max: 250},
		{Symbol: "USDT", Name: "Tether", Network: "ERC20", Min: 10, Max: 500000},
		{Symbol: "USDT", Name: "Tether", Network: "TRC20", Min: 10, Max: 500000},
		{Symbol: "XMR", Name: "Monero", Network: "Mainnet", Min: 0.05, Max: 2000},
		{Symbol: "XRP", Name: "Ripple", Network: "Mainnet", Memo: true, Min: 20, Max: 1000000},
	}

	const q = `
INSERT INTO currencies
    (symbol, name, network, is_active, requires_extra_id, min_amount, max_amount)
VALUES
    (?, ?, ?, TRUE, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    name       = VALUES(name),
    min_amount = VALUES(min_amount),
    max_amount = VALUES(max_amount)
`
	tx, err := dbx.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, c := range currencies {
		if _, err := tx.Exec(q, c.Symbol, c.Name, c.Network, c.Memo, c.Min, c.Max); err != nil {
			return fmt.Errorf("insert currency %s/%s: %w", c.Symbol, c.Network, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit currencies: %w", err)
	}
	return nil
}

type seedProvider struct {
	ID, Name, Rating string
	ETA              int
	Markup           bool
}

func seedProviders(dbx *sqlx.DB) error {
	providers := []seedProvider{
		{ID: "fastswap", Name: "FastSwap", Rating: "A", ETA: 10},
		{ID: "coinshuttle", Name: "CoinShuttle", Rating: "B", ETA: 20, Markup: true},
		{ID: "privexchange", Name: "PrivExchange", Rating: "A", ETA: 30},
	}

	const q = `
INSERT INTO providers
    (id, name, slug, is_active, kyc_rating, eta_minutes, markup_enabled)
VALUES
    (?, ?, ?, TRUE, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    kyc_rating  = VALUES(kyc_rating),
    eta_minutes = VALUES(eta_minutes)
`
	tx, err := dbx.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, p := range providers {
		if _, err := tx.Exec(q, p.ID, p.Name, p.ID, p.Rating, p.ETA, p.Markup); err != nil {
			return fmt.Errorf("insert provider %q: %w", p.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit providers: %w", err)
	}
	return nil
}

package db

import (
	"fmt"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/jmoiron/sqlx"

	"github.com/jmehdipour/swap-gateway/internal/config"
)

// ConnectClickHouse opens the reporting store for recorded swap events.
// DSN example: clickhouse://default:@localhost:9000/swapgw?dial_timeout=5s&compress=true
func ConnectClickHouse(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("empty ClickHouse DSN")
	}
	conn, err := sqlx.Open("clickhouse", cfg.DSN)
	if err != nil {
		return nil, err
	}
	applyPool(conn, cfg)

	if err := ping(conn, cfg.PingTimeout, 3*time.Second); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/finvault/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Ensuring database schema", "databasePath", databasePath)
	} else {
		stdlog.Println("Ensuring database schema for:", databasePath)
	}

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS derivatives_transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		tx_id TEXT NOT NULL,
		asset_type TEXT NOT NULL,
		ticker TEXT NOT NULL,
		type TEXT NOT NULL,
		qty REAL,
		price REAL,
		point_value REAL,
		fill REAL,
		close_price REAL,
		fees REAL,
		gross_pl REAL,
		collateral REAL,
		strikes TEXT,
		open_date TEXT,
		close_date TEXT,
		trade_date TEXT,
		contract_month TEXT,
		notes TEXT,
		roll_over TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(user_id, tx_id)
	);
	CREATE INDEX IF NOT EXISTS idx_derivatives_user_ticker
		ON derivatives_transactions(user_id, ticker);
	`

	_, err = DB.Exec(createTableStatement)
	if err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

// Package store contains GORM-backed SQLite models used by the bridge client.
//
// Database Structure (database file: transfers.db):
//
//	databases/
//	└── transfers.db
//	    └── transfers
package store

import (
	"time"
)

// Transfer is one bridge attempt. A failed attempt is never resumed; the
// next attempt gets a new row, a new ID and a new salt.
type Transfer struct {
	ID             string `gorm:"primaryKey;size:36"` // uuid
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Kind           string  `gorm:"index;not null"` // "sol_native", "spl_token", "ccip_token", "base_bridge_token"
	Network        string  `gorm:"not null"`       // "devnet" or "mainnet"
	Sender         string  // Source chain address in canonical text form
	Recipient      string  // Destination chain address in canonical text form
	Token          string  // Token symbol, empty for native SOL
	Amount         string  // Base units, decimal string
	Salt           *string `gorm:"uniqueIndex"`    // Hex salt; nil on paths without one
	State          string  `gorm:"index;not null"` // Last reported orchestrator state
	TxHash         string  // Transfer transaction hash or signature
	ApprovalTxHash string  // Allowance transaction hash on EVM token paths
	Fee            string  // CCIP fee in wei
	ErrorCode      string  // ChainError code when State is "failed"
	ErrorMessage   string  `gorm:"type:text"`
}

package core

import (
	"encoding/hex"

	"github.com/tipjar/crossbridge/bridgeClient/db"
	bridgeerrors "github.com/tipjar/crossbridge/bridgeClient/errors"
	"github.com/tipjar/crossbridge/bridgeClient/store"
)

// DBRecorder stores transfers in the SQLite transfer history.
type DBRecorder struct {
	db *db.DB
}

func NewDBRecorder(database *db.DB) *DBRecorder {
	return &DBRecorder{db: database}
}

// Create inserts et. A salt that was used before fails with a VALIDATION error.
func (r *DBRecorder) Create(et *EncodedTransfer) error {
	row := &store.Transfer{
		ID:        et.ID,
		Kind:      string(et.Kind),
		Network:   et.Network.String(),
		Sender:    et.Request.Sender,
		Recipient: et.Request.Recipient,
		Token:     et.Request.Token,
		Amount:    et.Request.Amount.String(),
		State:     StateValidating.String(),
	}
	if et.Solana != nil {
		salt := hex.EncodeToString(et.Solana.Salt)
		row.Salt = &salt
	}
	return r.db.CreateTransfer(row)
}

// Transition stores the state, hashes and error carried by update.
func (r *DBRecorder) Transition(update StatusUpdate) error {
	change := db.TransferUpdate{
		State:          update.State.String(),
		TxHash:         update.TxHash,
		ApprovalTxHash: update.ApprovalTxHash,
	}
	if update.Fee != nil {
		change.Fee = update.Fee.String()
	}
	if update.Err != nil {
		change.ErrorCode = string(bridgeerrors.CodeOf(update.Err))
		change.ErrorMessage = update.Err.Error()
	}
	return r.db.UpdateTransfer(update.TransferID, change)
}

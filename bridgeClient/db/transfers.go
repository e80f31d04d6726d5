package db

import (
	stderrors "errors"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	bridgeerrors "github.com/tipjar/crossbridge/bridgeClient/errors"
	"github.com/tipjar/crossbridge/bridgeClient/store"
)

// ErrTransferNotFound is returned when no row matches the requested ID.
var ErrTransferNotFound = stderrors.New("transfer not found")

// TransferUpdate carries the columns a state transition may change. Empty
// strings leave the stored value untouched.
type TransferUpdate struct {
	State          string
	TxHash         string
	ApprovalTxHash string
	Fee            string
	ErrorCode      string
	ErrorMessage   string
}

// CreateTransfer inserts a new transfer. A salt that was already used is
// rejected as a validation error so the orchestrator never signs a replay.
func (d *DB) CreateTransfer(transfer *store.Transfer) error {
	err := d.client.Create(transfer).Error
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return bridgeerrors.NewValidationError("", "transfer salt or id already used").
			WithContext("transfer_id", transfer.ID)
	}
	return errors.Wrap(err, "failed to create transfer")
}

// UpdateTransfer applies update to the transfer with the given ID.
func (d *DB) UpdateTransfer(id string, update TransferUpdate) error {
	result := d.client.Model(&store.Transfer{}).
		Where("id = ?", id).
		Updates(store.Transfer{
			State:          update.State,
			TxHash:         update.TxHash,
			ApprovalTxHash: update.ApprovalTxHash,
			Fee:            update.Fee,
			ErrorCode:      update.ErrorCode,
			ErrorMessage:   update.ErrorMessage,
		})
	if result.Error != nil {
		return errors.Wrapf(result.Error, "failed to update transfer %s", id)
	}
	if result.RowsAffected == 0 {
		return errors.Wrap(ErrTransferNotFound, id)
	}
	return nil
}

// GetTransfer loads one transfer by ID.
func (d *DB) GetTransfer(id string) (*store.Transfer, error) {
	var transfer store.Transfer
	err := d.client.Where("id = ?", id).First(&transfer).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(ErrTransferNotFound, id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load transfer %s", id)
	}
	return &transfer, nil
}

// ListTransfers returns the newest transfers first. An empty state matches
// every state; limit <= 0 means 50.
func (d *DB) ListTransfers(state string, limit int) ([]store.Transfer, error) {
	if limit <= 0 {
		limit = 50
	}

	query := d.client.Order("created_at DESC").Limit(limit)
	if state != "" {
		query = query.Where("state = ?", state)
	}

	var transfers []store.Transfer
	if err := query.Find(&transfers).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list transfers")
	}
	return transfers, nil
}

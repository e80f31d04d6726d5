package api

import (
	"context"

	"github.com/tipjar/crossbridge/bridgeClient/core"
	"github.com/tipjar/crossbridge/bridgeClient/price"
	"github.com/tipjar/crossbridge/bridgeClient/store"
)

// TransferBuilder encodes transfer requests without touching the network.
type TransferBuilder interface {
	BuildTransfer(req core.TransferRequest) (*core.EncodedTransfer, error)
}

// TransferHistory reads recorded transfers.
type TransferHistory interface {
	GetTransfer(id string) (*store.Transfer, error)
	ListTransfers(state string, limit int) ([]store.Transfer, error)
}

// PriceSource supplies display-only USD quotes.
type PriceSource interface {
	Quotes(ctx context.Context) (price.Quotes, error)
}

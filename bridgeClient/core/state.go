package core

import (
	"fmt"
	"math/big"
	"time"

	"github.com/tipjar/crossbridge/bridgeClient/addrcodec"
)

// State is one stage of a transfer. States only move forward.
type State uint8

const (
	StateIdle State = iota
	StateValidating
	StateEstimatingFee
	StateApproving
	StateAwaitingApprovalConfirmation
	StateSubmitting
	StateAwaitingConfirmation
	StateCompleted
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:                         "idle",
	StateValidating:                   "validating",
	StateEstimatingFee:                "estimating_fee",
	StateApproving:                    "approving",
	StateAwaitingApprovalConfirmation: "awaiting_approval_confirmation",
	StateSubmitting:                   "submitting",
	StateAwaitingConfirmation:         "awaiting_confirmation",
	StateCompleted:                    "completed",
	StateFailed:                       "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// MarshalText renders the state by name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// IsTerminal reports whether no further update follows.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// TransferKind selects the bridge path.
type TransferKind string

const (
	// KindSolNative bridges native SOL from Solana to Base through the bridge program.
	KindSolNative TransferKind = "sol_native"
	// KindSplToken bridges an SPL token from Solana to Base through the bridge program.
	KindSplToken TransferKind = "spl_token"
	// KindCCIPToken sends an ERC-20 from Base to Solana through the CCIP router.
	KindCCIPToken TransferKind = "ccip_token"
	// KindBaseBridgeToken sends a bridged ERC-20 from Base back to Solana through the Base bridge.
	KindBaseBridgeToken TransferKind = "base_bridge_token"
)

// AllKinds lists the supported transfer kinds.
var AllKinds = []TransferKind{KindSolNative, KindSplToken, KindCCIPToken, KindBaseBridgeToken}

// ParseTransferKind maps a name such as "sol_native" onto a TransferKind.
func ParseTransferKind(name string) (TransferKind, error) {
	for _, kind := range AllKinds {
		if string(kind) == name {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unknown transfer kind %q", name)
}

// SourceChain is the chain the transfer is signed on.
func (k TransferKind) SourceChain() addrcodec.ChainKind {
	switch k {
	case KindSolNative, KindSplToken:
		return addrcodec.ChainSolana
	default:
		return addrcodec.ChainEVM
	}
}

// DestinationChain is the chain the value arrives on.
func (k TransferKind) DestinationChain() addrcodec.ChainKind {
	if k.SourceChain() == addrcodec.ChainSolana {
		return addrcodec.ChainEVM
	}
	return addrcodec.ChainSolana
}

// StatusUpdate is one entry on the stream returned by SubmitAndTrack.
type StatusUpdate struct {
	TransferID     string    `json:"transfer_id"`
	State          State     `json:"state"`
	TxHash         string    `json:"tx_hash,omitempty"`
	ApprovalTxHash string    `json:"approval_tx_hash,omitempty"`
	Fee            *big.Int  `json:"fee,omitempty"`
	Confirmations  uint64    `json:"confirmations,omitempty"`
	Err            error     `json:"-"`
	Time           time.Time `json:"time"`
}

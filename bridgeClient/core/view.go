package core

import (
	"encoding/hex"

	"github.com/ethereum/go-ethereum/common/hexutil"

	chaincommon "github.com/tipjar/crossbridge/bridgeClient/chains/common"
)

// TransferView is the JSON form of an EncodedTransfer.
type TransferView struct {
	ID        string      `json:"id"`
	Kind      string      `json:"kind"`
	Network   string      `json:"network"`
	Sender    string      `json:"sender"`
	Recipient string      `json:"recipient"`
	Token     string      `json:"token,omitempty"`
	Amount    string      `json:"amount"`
	Solana    *SolanaView `json:"solana,omitempty"`
	Evm       *EvmView    `json:"evm,omitempty"`
}

type SolanaView struct {
	ProgramID       string        `json:"program_id"`
	Data            string        `json:"data"`
	Salt            string        `json:"salt"`
	OutgoingMessage string        `json:"outgoing_message"`
	Accounts        []AccountView `json:"accounts"`
}

type AccountView struct {
	Address  string `json:"address"`
	Signer   bool   `json:"signer"`
	Writable bool   `json:"writable"`
}

type EvmView struct {
	Calls             []CallView `json:"calls"`
	DestChainSelector uint64     `json:"dest_chain_selector,omitempty"`
	ExtraArgs         string     `json:"extra_args,omitempty"`
}

type CallView struct {
	Label string `json:"label"`
	To    string `json:"to"`
	Data  string `json:"data"`
	Value string `json:"value,omitempty"`
}

// View renders et with hex-encoded payload bytes.
func (et *EncodedTransfer) View() TransferView {
	view := TransferView{
		ID:        et.ID,
		Kind:      string(et.Kind),
		Network:   et.Network.String(),
		Sender:    et.Request.Sender,
		Recipient: et.Request.Recipient,
		Token:     et.Request.Token,
	}
	if et.Request.Amount != nil {
		view.Amount = et.Request.Amount.String()
	}

	if p := et.Solana; p != nil {
		data, _ := p.Instruction.Data()
		sv := &SolanaView{
			ProgramID:       p.Instruction.ProgramID().String(),
			Data:            hex.EncodeToString(data),
			Salt:            hex.EncodeToString(p.Salt),
			OutgoingMessage: p.OutgoingMessage.String(),
		}
		for _, meta := range p.Instruction.Accounts() {
			sv.Accounts = append(sv.Accounts, AccountView{
				Address:  meta.PublicKey.String(),
				Signer:   meta.IsSigner,
				Writable: meta.IsWritable,
			})
		}
		view.Solana = sv
	}

	if p := et.Evm; p != nil {
		ev := &EvmView{
			Calls:             []CallView{callView(p.Approve), callView(p.Submit)},
			DestChainSelector: p.DestChainSelector,
		}
		if p.Message != nil {
			ev.ExtraArgs = hexutil.Encode(p.Message.ExtraArgs)
		}
		view.Evm = ev
	}
	return view
}

func callView(call chaincommon.EvmCall) CallView {
	cv := CallView{Label: call.Label, To: call.To.Hex(), Data: hexutil.Encode(call.Data)}
	if call.Value != nil {
		cv.Value = call.Value.String()
	}
	return cv
}

package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/mr-tron/base58"
	"github.com/spf13/cobra"

	"github.com/tipjar/crossbridge/bridgeClient/amount"
	"github.com/tipjar/crossbridge/bridgeClient/chains/svm"
	"github.com/tipjar/crossbridge/bridgeClient/core"
)

// transferFlags are shared by encode and transfer.
type transferFlags struct {
	kind   string
	from   string
	to     string
	token  string
	amount string

	callTarget string
	callValue  string
	callData   string
}

func (f *transferFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.kind, "kind", "", "Transfer kind (sol_native|spl_token|ccip_token|base_bridge_token)")
	cmd.Flags().StringVar(&f.from, "from", "", "Sender address on the source chain")
	cmd.Flags().StringVar(&f.to, "to", "", "Recipient address on the destination chain")
	cmd.Flags().StringVar(&f.token, "token", "", "Token symbol from the config (ignored for sol_native)")
	cmd.Flags().StringVar(&f.amount, "amount", "", "Amount in whole units, e.g. 1.5")
	cmd.Flags().StringVar(&f.callTarget, "call-target", "", "Contract to call on Base after the transfer (sol_native only)")
	cmd.Flags().StringVar(&f.callValue, "call-value", "0", "Wei value forwarded with the call")
	cmd.Flags().StringVar(&f.callData, "call-data", "", "Hex calldata for the call")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("amount")
}

func (f *transferFlags) request(o *core.Orchestrator) (core.TransferRequest, error) {
	kind, err := core.ParseTransferKind(f.kind)
	if err != nil {
		return core.TransferRequest{}, err
	}
	decimals, err := o.AmountDecimals(kind, f.token)
	if err != nil {
		return core.TransferRequest{}, err
	}
	units, err := amount.ParseUnits(f.amount, decimals)
	if err != nil {
		return core.TransferRequest{}, err
	}

	req := core.TransferRequest{
		Kind:      kind,
		Sender:    f.from,
		Recipient: f.to,
		Token:     f.token,
		Amount:    units,
	}
	if f.callTarget != "" {
		value, err := uint256.FromDecimal(f.callValue)
		if err != nil {
			return req, fmt.Errorf("invalid --call-value: %w", err)
		}
		call := &svm.ContractCall{Target: f.callTarget, Value: value}
		if f.callData != "" {
			call.Data, err = hexutil.Decode(f.callData)
			if err != nil {
				return req, fmt.Errorf("invalid --call-data: %w", err)
			}
		}
		req.Call = call
	}
	return req, nil
}

func encodeCmd() *cobra.Command {
	var (
		flags        transferFlags
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode a transfer without signing it",
		Long: `
Encode a transfer into the instruction or contract calls a wallet would sign.
Nothing is sent; only the salt is random.

Examples:
  bridged encode --kind sol_native --from <solana-key> --to 0x... --amount 0.25
  bridged encode --kind ccip_token --from 0x... --to <solana-key> --token USDC --amount 10 -o json
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv()
			if err != nil {
				return err
			}
			o, err := core.NewOrchestrator(env.cfg.Network, env.network, core.Ports{}, nil, nil, env.log)
			if err != nil {
				return err
			}

			req, err := flags.request(o)
			if err != nil {
				return err
			}
			et, err := o.BuildTransfer(req)
			if err != nil {
				return err
			}
			return printOutput(cmd.OutOrStdout(), et.View(), outputFormat)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&outputFormat, "output", "o", OutputFormatYAML, "Output format (yaml|json)")
	return cmd
}

// DecodedOutput is bridge instruction data in readable form.
type DecodedOutput struct {
	Instruction string      `yaml:"instruction" json:"instruction"`
	Salt        string      `yaml:"salt" json:"salt"`
	To          string      `yaml:"to" json:"to"`
	RemoteToken string      `yaml:"remote_token,omitempty" json:"remote_token,omitempty"`
	Amount      uint64      `yaml:"amount" json:"amount"`
	Call        *CallOutput `yaml:"call,omitempty" json:"call,omitempty"`
}

type CallOutput struct {
	Target string `yaml:"target" json:"target"`
	Value  string `yaml:"value" json:"value"`
	Data   string `yaml:"data" json:"data"`
}

func decodeCmd() *cobra.Command {
	var (
		encoding     string
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "decode <instruction-data>",
		Short: "Decode bridge program instruction data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv()
			if err != nil {
				return err
			}
			o, err := core.NewOrchestrator(env.cfg.Network, env.network, core.Ports{}, nil, nil, env.log)
			if err != nil {
				return err
			}

			data, err := decodeInstructionData(args[0], encoding)
			if err != nil {
				return err
			}
			decoded, err := o.DecodeInstruction(data)
			if err != nil {
				return err
			}
			return printOutput(cmd.OutOrStdout(), decodedOutput(decoded), outputFormat)
		},
	}

	cmd.Flags().StringVar(&encoding, "encoding", "hex", "Encoding of the instruction data (hex|base58)")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", OutputFormatYAML, "Output format (yaml|json)")
	return cmd
}

func decodeInstructionData(text, encoding string) ([]byte, error) {
	switch encoding {
	case "hex":
		data, err := hex.DecodeString(strings.TrimPrefix(text, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid hex instruction data: %w", err)
		}
		return data, nil
	case "base58":
		data, err := base58.Decode(text)
		if err != nil {
			return nil, fmt.Errorf("invalid base58 instruction data: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}

func decodedOutput(d *svm.DecodedInstruction) DecodedOutput {
	out := DecodedOutput{
		Instruction: d.Kind.String(),
		Salt:        hex.EncodeToString(d.Salt[:]),
		To:          d.To.String(),
		Amount:      d.Amount,
	}
	if d.RemoteToken != nil {
		out.RemoteToken = d.RemoteToken.String()
	}
	if d.Call != nil {
		out.Call = &CallOutput{
			Target: d.Call.Target.String(),
			Value:  d.Call.Value.Dec(),
			Data:   hexutil.Encode(d.Call.Data),
		}
	}
	return out
}

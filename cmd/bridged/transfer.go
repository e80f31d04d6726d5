package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tipjar/crossbridge/bridgeClient/addrcodec"
	"github.com/tipjar/crossbridge/bridgeClient/chains/evm"
	"github.com/tipjar/crossbridge/bridgeClient/chains/svm"
	"github.com/tipjar/crossbridge/bridgeClient/constant"
	"github.com/tipjar/crossbridge/bridgeClient/core"
	"github.com/tipjar/crossbridge/bridgeClient/db"
	bridgeerrors "github.com/tipjar/crossbridge/bridgeClient/errors"
)

const defaultEvmKeyEnv = "BRIDGED_EVM_PRIVATE_KEY"

func transferCmd() *cobra.Command {
	var (
		flags       transferFlags
		keypairPath string
		evmKeyEnv   string
		assumeYes   bool
	)

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Sign, send and track a transfer",
		Long: `
Build a transfer, sign it with a local key and follow it until it is
confirmed on the source chain. Solana transfers are signed with a
solana-keygen file; EVM transfers with a hex private key read from the
environment (or .env).

Examples:
  bridged transfer --kind sol_native --to 0x... --amount 0.1
  bridged transfer --kind ccip_token --to <solana-key> --token USDC --amount 5
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv()
			if err != nil {
				return err
			}
			kind, err := core.ParseTransferKind(flags.kind)
			if err != nil {
				return err
			}
			confirm, err := newConfirmer(assumeYes)
			if err != nil {
				return err
			}

			var ports core.Ports
			switch kind.SourceChain() {
			case addrcodec.ChainSolana:
				client, err := svm.NewRPCClient(env.network.Solana.RPCURLs, env.network.Solana.GenesisHash, env.log)
				if err != nil {
					return err
				}
				defer client.Close()

				key, err := svm.LoadKeypair(keypairPath)
				if err != nil {
					return err
				}
				wallet, err := svm.NewKeypairWallet(key, client, confirm, env.log)
				if err != nil {
					return err
				}
				ports.SolanaReader, ports.SolanaWallet = client, wallet
				if flags.from == "" {
					flags.from = wallet.PublicKey().String()
				}
			default:
				client, err := evm.NewRPCClient(env.network.Evm.RPCURLs, env.network.Evm.ChainID, env.log)
				if err != nil {
					return err
				}
				defer client.Close()

				keyHex := os.Getenv(evmKeyEnv)
				if keyHex == "" {
					return bridgeerrors.NewConfigError(constant.ChainEVM, fmt.Sprintf("%s is not set", evmKeyEnv))
				}
				key, err := evm.ParsePrivateKey(keyHex)
				if err != nil {
					return err
				}
				wallet, err := evm.NewKeyWallet(key, client.ChainID(), client, confirm, env.log)
				if err != nil {
					return err
				}
				ports.EvmReader, ports.EvmWallet = client, wallet
				if flags.from == "" {
					flags.from = wallet.Address().Hex()
				}
			}

			database, err := db.OpenFileDB(filepath.Join(homeFlag, constant.DatabasesSubdir), constant.TransfersDBName, true)
			if err != nil {
				return err
			}
			defer database.Close()

			o, err := core.NewOrchestrator(env.cfg.Network, env.network, ports, core.NewDBRecorder(database), nil, env.log)
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

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Transfer %s (%s on %s)\n", et.ID, et.Kind, et.Network)
			return followUpdates(out, o.SubmitAndTrack(ctx, et))
		},
	}

	flags.register(cmd)
	home, _ := os.UserHomeDir()
	cmd.Flags().StringVar(&keypairPath, "keypair", filepath.Join(home, ".config", "solana", "id.json"), "Solana keypair file")
	cmd.Flags().StringVar(&evmKeyEnv, "evm-key-env", defaultEvmKeyEnv, "Environment variable holding the EVM private key")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Sign without prompting")
	return cmd
}

// followUpdates prints each status update and returns the failure, if any.
func followUpdates(out io.Writer, updates <-chan core.StatusUpdate) error {
	var failure error
	for update := range updates {
		line := fmt.Sprintf("  %-32s", update.State)
		if update.Fee != nil {
			line += fmt.Sprintf(" fee=%s", update.Fee)
		}
		if update.ApprovalTxHash != "" && update.TxHash == "" {
			line += fmt.Sprintf(" approval=%s", update.ApprovalTxHash)
		}
		if update.TxHash != "" {
			line += fmt.Sprintf(" tx=%s", update.TxHash)
		}
		fmt.Fprintln(out, line)
		if update.State.IsTerminal() {
			failure = update.Err
			fmt.Fprintf(out, "transfer %s %s\n", update.TransferID, update.State)
		}
	}
	return failure
}

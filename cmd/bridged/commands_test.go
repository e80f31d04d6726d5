package main

import (
	"bytes"
	"encoding/json"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tipjar/crossbridge/bridgeClient/core"
	bridgeerrors "github.com/tipjar/crossbridge/bridgeClient/errors"
)

const testSolanaSender = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func initHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	_, err := runCmd(t, "init", "--home", home)
	require.NoError(t, err)
	return home
}

func TestInitCmd(t *testing.T) {
	home := t.TempDir()

	out, err := runCmd(t, "init", "--home", home, "--network", "mainnet")
	require.NoError(t, err)
	assert.Contains(t, out, "Config written to")

	_, err = runCmd(t, "init", "--home", home)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = runCmd(t, "init", "--home", home, "--force")
	assert.NoError(t, err)
}

func TestEncodeAndDecodeCmd(t *testing.T) {
	home := initHome(t)

	out, err := runCmd(t, "encode", "--home", home,
		"--kind", "sol_native",
		"--from", testSolanaSender,
		"--to", "0x1111111111111111111111111111111111111111",
		"--amount", "0.5",
		"-o", "json")
	require.NoError(t, err)

	var view core.TransferView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "500000000", view.Amount)
	require.NotNil(t, view.Solana)

	out, err = runCmd(t, "decode", "--home", home, "-o", "json", view.Solana.Data)
	require.NoError(t, err)

	var decoded DecodedOutput
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "bridge_sol", decoded.Instruction)
	assert.Equal(t, uint64(500_000_000), decoded.Amount)
	assert.Equal(t, view.Solana.Salt, decoded.Salt)
	assert.Nil(t, decoded.Call)
}

func TestEncodeCmdRejectsExcessPrecision(t *testing.T) {
	home := initHome(t)

	_, err := runCmd(t, "encode", "--home", home,
		"--kind", "ccip_token",
		"--from", "0x00000000000000000000000000000000000000e1",
		"--to", testSolanaSender,
		"--token", "USDC",
		"--amount", "1.0000001")
	require.Error(t, err)
	assert.True(t, bridgeerrors.IsKind(err, bridgeerrors.ErrCodeValidation))
}

func TestDecodeInstructionData(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		encoding string
		want     []byte
		wantErr  bool
	}{
		{name: "hex", text: "0a0b", encoding: "hex", want: []byte{0x0a, 0x0b}},
		{name: "hex with prefix", text: "0x0a0b", encoding: "hex", want: []byte{0x0a, 0x0b}},
		{name: "base58", text: "2", encoding: "base58", want: []byte{0x01}},
		{name: "bad hex", text: "zz", encoding: "hex", wantErr: true},
		{name: "unknown encoding", text: "00", encoding: "base64", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeInstructionData(tt.text, tt.encoding)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPromptConfirmer(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		confirm := promptConfirmer(strings.NewReader(tt.input), &out)
		assert.Equal(t, tt.want, confirm("Sign approve?"), "input %q", tt.input)
		assert.Contains(t, out.String(), "Sign approve? [y/N]")
	}
}

func TestFollowUpdates(t *testing.T) {
	updates := make(chan core.StatusUpdate, 3)
	updates <- core.StatusUpdate{State: core.StateEstimatingFee, Fee: big.NewInt(30000), Time: time.Now()}
	updates <- core.StatusUpdate{State: core.StateAwaitingApprovalConfirmation, ApprovalTxHash: "0xa1"}
	failure := bridgeerrors.NewProtocolError("evm", "transfer transaction reverted", nil)
	updates <- core.StatusUpdate{TransferID: "t-1", State: core.StateFailed, TxHash: "0xb2", Err: failure}
	close(updates)

	var out bytes.Buffer
	err := followUpdates(&out, updates)

	assert.Equal(t, failure, err)
	assert.Contains(t, out.String(), "fee=30000")
	assert.Contains(t, out.String(), "approval=0xa1")
	assert.Contains(t, out.String(), "tx=0xb2")
	assert.Contains(t, out.String(), "transfer t-1 failed")
}

func TestFollowUpdatesCompleted(t *testing.T) {
	updates := make(chan core.StatusUpdate, 3)
	updates <- core.StatusUpdate{TransferID: "t-2", State: core.StateSubmitting}
	updates <- core.StatusUpdate{TransferID: "t-2", State: core.StateAwaitingConfirmation, TxHash: "sig"}
	updates <- core.StatusUpdate{TransferID: "t-2", State: core.StateCompleted, TxHash: "sig"}
	close(updates)

	var out bytes.Buffer
	require.NoError(t, followUpdates(&out, updates))
	assert.Equal(t, 1, strings.Count(out.String(), "transfer t-2"))
	assert.Contains(t, out.String(), "transfer t-2 completed")
}

func TestVersionCmd(t *testing.T) {
	out, err := runCmd(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "bridged")
	assert.Contains(t, out, Version)
}

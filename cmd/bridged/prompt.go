package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	chaincommon "github.com/tipjar/crossbridge/bridgeClient/chains/common"
)

// newConfirmer returns the signing prompt for the wallets. Without a
// terminal on stdin there is nobody to ask, so --yes is required.
func newConfirmer(assumeYes bool) (chaincommon.Confirmer, error) {
	if assumeYes {
		return func(string) bool { return true }, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, fmt.Errorf("stdin is not a terminal; pass --yes to sign without prompting")
	}
	return promptConfirmer(os.Stdin, os.Stderr), nil
}

func promptConfirmer(in io.Reader, out io.Writer) chaincommon.Confirmer {
	reader := bufio.NewReader(in)
	return func(prompt string) bool {
		fmt.Fprintf(out, "%s [y/N]: ", prompt)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		default:
			return false
		}
	}
}

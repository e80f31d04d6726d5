package constant

import "os"

// <NodeDir>/                    (e.g., /home/user/.bridged)
// └── config/
//	└── bridged_config.json
// └── databases/
//	└── transfers.db

const (
	NodeDir = ".bridged"

	ConfigSubdir   = "config"
	ConfigFileName = "bridged_config.json"

	DatabasesSubdir = "databases"
	TransfersDBName = "transfers.db"
	EnvPrefix       = "BRIDGED"
)

var DefaultNodeHome = os.ExpandEnv("$HOME/") + NodeDir

// Chain labels carried on errors, logs and metrics.
const (
	ChainSolana = "solana"
	ChainEVM    = "evm"
)

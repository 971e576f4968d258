package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/clydemeng/authrelay/kvdb"
	"github.com/clydemeng/authrelay/params"
)

// defaultDataDir places persistent relay state under the user's home
// directory, falling back to the working directory.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".authrelay"
	}
	return filepath.Join(home, ".authrelay")
}

var (
	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	dataDirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "Data directory for the state database and lock",
		Value: defaultDataDir(),
	}
	dbEngineFlag = &cli.StringFlag{
		Name:  "db.engine",
		Usage: "Backing database implementation to use ('pebble', 'leveldb' or 'memory')",
		Value: kvdb.EnginePebble,
	}
	chainIDFlag = &cli.Uint64Flag{
		Name:  "chainid",
		Usage: "Chain identifier bound into authorization digests",
	}
	invokerFlag = &cli.StringFlag{
		Name:  "invoker",
		Usage: "Address the relay instance executes at",
	}
	gasLimitFlag = &cli.Uint64Flag{
		Name:  "gaslimit",
		Usage: "Gas budget for one relay invocation",
		Value: params.RelayGasLimit,
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: 3,
	}
	logFileFlag = &cli.StringFlag{
		Name:  "log.file",
		Usage: "Write logs to a file",
	}
	logRotateFlag = &cli.BoolFlag{
		Name:  "log.rotate",
		Usage: "Enables log file rotation",
	}
	// The metrics library scans the raw command line at startup; the flag is
	// declared here so the parser accepts it and help lists it.
	metricsFlag = &cli.BoolFlag{
		Name:  "metrics",
		Usage: "Enable metrics collection and reporting",
	}

	keyFileFlag = &cli.StringFlag{
		Name:  "key",
		Usage: "File containing the authorizing secp256k1 key in hex",
	}
	outFlag = &cli.StringFlag{
		Name:  "out",
		Usage: "Output file for the generated key",
		Value: "relay.key",
	}
	commitFlag = &cli.StringFlag{
		Name:  "commit",
		Usage: "32-byte commit in hex",
	}
	toFlag = &cli.StringFlag{
		Name:  "to",
		Usage: "Target address of the inner call",
	}
	valueFlag = &cli.StringFlag{
		Name:  "value",
		Usage: "Value attached to the call, in wei",
		Value: "0",
	}
	dataFlag = &cli.StringFlag{
		Name:  "data",
		Usage: "Calldata for the inner call, in hex",
	}
	saltFlag = &cli.StringFlag{
		Name:  "salt",
		Usage: "32-byte commitment salt in hex (random when omitted)",
	}
	sigFlag = &cli.StringFlag{
		Name:  "signature",
		Usage: "65-byte wire signature in hex",
	}
	payloadFlag = &cli.StringFlag{
		Name:  "payload",
		Usage: "Complete relay payload in hex (overrides the assembly flags)",
	}
	fromFlag = &cli.StringFlag{
		Name:  "from",
		Usage: "Sender address charged for the invocation",
		Value: "0x00000000000000000000000000000000000000c1",
	}
	fundFlag = &cli.StringFlag{
		Name:  "fund",
		Usage: "Credit the sender with this amount of wei before executing",
		Value: "0",
	}
)

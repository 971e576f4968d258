package main

import (
	"bufio"
	"errors"
	"fmt"
	"math/big"
	"os"
	"reflect"
	"unicode"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/naoina/toml"
	"github.com/urfave/cli/v2"

	"github.com/clydemeng/authrelay/kvdb"
	"github.com/clydemeng/authrelay/params"
)

var dumpConfigCommand = &cli.Command{
	Action:    dumpConfig,
	Name:      "dumpconfig",
	Usage:     "Export configuration values in TOML format (to stdout by default)",
	ArgsUsage: "[<filename>]",
	Description: `Exports the effective configuration, merged from defaults, the
configuration file and command line flags.`,
}

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		id := fmt.Sprintf("%s.%s", rt.String(), field)
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", id, rt.String(), link)
	},
}

type nodeConfig struct {
	DataDir  string
	DBEngine string
	GasLimit uint64
}

type relayConfig struct {
	Relay params.Config
	Node  nodeConfig
}

func defaultNodeConfig() nodeConfig {
	return nodeConfig{
		DataDir:  defaultDataDir(),
		DBEngine: kvdb.EnginePebble,
		GasLimit: params.RelayGasLimit,
	}
}

// loadConfig assembles the effective configuration: defaults first, then the
// TOML file, then command line overrides.
func loadConfig(ctx *cli.Context) (*relayConfig, error) {
	cfg := &relayConfig{
		Relay: *params.DefaultConfig(),
		Node:  defaultNodeConfig(),
	}
	if file := ctx.String(configFileFlag.Name); file != "" {
		if err := loadConfigFile(file, cfg); err != nil {
			return nil, err
		}
	}
	if ctx.IsSet(chainIDFlag.Name) {
		cfg.Relay.ChainID = new(big.Int).SetUint64(ctx.Uint64(chainIDFlag.Name))
	}
	if ctx.IsSet(invokerFlag.Name) {
		addr, err := parseAddress(ctx.String(invokerFlag.Name))
		if err != nil {
			return nil, fmt.Errorf("--%s: %v", invokerFlag.Name, err)
		}
		cfg.Relay.Invoker = addr
	}
	if ctx.IsSet(dataDirFlag.Name) {
		cfg.Node.DataDir = ctx.String(dataDirFlag.Name)
	}
	if ctx.IsSet(dbEngineFlag.Name) {
		cfg.Node.DBEngine = ctx.String(dbEngineFlag.Name)
	}
	if ctx.IsSet(gasLimitFlag.Name) {
		cfg.Node.GasLimit = ctx.Uint64(gasLimitFlag.Name)
	}
	cfg.Relay = *cfg.Relay.Sanitize()
	if err := cfg.Relay.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadConfigFile(file string, cfg *relayConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

func dumpConfig(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	out, err := tomlSettings.Marshal(cfg)
	if err != nil {
		return err
	}

	dump := os.Stdout
	if ctx.Args().Len() > 0 {
		dump, err = os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer dump.Close()
	}
	dump.Write(out)
	return nil
}

func parseAddress(s string) (common.Address, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Address{}, err
	}
	if len(b) != common.AddressLength {
		return common.Address{}, fmt.Errorf("address must be %d bytes, got %d", common.AddressLength, len(b))
	}
	return common.BytesToAddress(b), nil
}

func parseHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, err
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("hash must be %d bytes, got %d", common.HashLength, len(b))
	}
	return common.BytesToHash(b), nil
}

func parseValue(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	return uint256.FromDecimal(s)
}

func parseBytes(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return hexutil.Decode(s)
}

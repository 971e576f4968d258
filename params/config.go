package params

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Config identifies one deployed relay instance. Both fields are bound into
// every authorization digest, so a signature produced for one (chain,
// instance) pair is rejected by every other.
type Config struct {
	// ChainID is the identifier of the host chain the instance runs on.
	ChainID *big.Int `toml:",omitempty"`

	// Invoker is the address this instance executes at.
	Invoker common.Address `toml:",omitempty"`
}

// DefaultInvokerAddress is where the relay is installed unless a deployment
// overrides it.
var DefaultInvokerAddress = common.HexToAddress("0x0000000000000000000000000000000000003074")

// DefaultConfig returns the configuration used by tests and by the CLI when
// nothing else is supplied.
func DefaultConfig() *Config {
	return &Config{
		ChainID: big.NewInt(1),
		Invoker: DefaultInvokerAddress,
	}
}

// Sanitize fills in zero-valued fields from the defaults and returns the
// resulting configuration. The receiver is not modified.
func (c *Config) Sanitize() *Config {
	cfg := &Config{ChainID: c.ChainID, Invoker: c.Invoker}
	if cfg.ChainID == nil || cfg.ChainID.Sign() <= 0 {
		cfg.ChainID = DefaultConfig().ChainID
	}
	if cfg.Invoker == (common.Address{}) {
		cfg.Invoker = DefaultInvokerAddress
	}
	return cfg
}

// Validate reports whether the configuration describes a usable instance.
func (c *Config) Validate() error {
	if c.ChainID == nil || c.ChainID.Sign() <= 0 {
		return fmt.Errorf("invalid chain id %v", c.ChainID)
	}
	if c.Invoker == (common.Address{}) {
		return fmt.Errorf("invoker address must not be zero")
	}
	return nil
}

func (c *Config) String() string {
	return fmt.Sprintf("chain=%v invoker=%s", c.ChainID, c.Invoker.Hex())
}

package vm

import (
	ethparams "github.com/ethereum/go-ethereum/params"
)

// GasPool tracks the amount of gas available during execution of an
// invocation. The zero value is a pool with zero gas available.
type GasPool uint64

// AddGas makes gas available for execution.
func (gp *GasPool) AddGas(amount uint64) *GasPool {
	*(*uint64)(gp) += amount
	return gp
}

// SubGas deducts the given amount from the pool if enough gas is available
// and returns an error otherwise.
func (gp *GasPool) SubGas(amount uint64) error {
	if uint64(*gp) < amount {
		return ErrOutOfGas
	}
	*(*uint64)(gp) -= amount
	return nil
}

// Gas returns the amount of gas remaining in the pool.
func (gp *GasPool) Gas() uint64 {
	return uint64(*gp)
}

// IntrinsicGas computes the flat cost of submitting an invocation with the
// given input, charged before any contract code runs. The per-byte rates
// follow the mainline calldata schedule.
func IntrinsicGas(input []byte) uint64 {
	gas := ethparams.TxGas
	for _, b := range input {
		if b == 0 {
			gas += ethparams.TxDataZeroGas
		} else {
			gas += ethparams.TxDataNonZeroGasEIP2028
		}
	}
	return gas
}

// Storage and call costs, following the warm/cold access schedule. Slot
// writes are charged a single flat rate; the refund bookkeeping of the full
// schedule buys nothing for an append-only mapping.
const (
	coldSloadCost         = ethparams.ColdSloadCostEIP2929
	warmStorageReadCost   = ethparams.WarmStorageReadCostEIP2929
	coldAccountAccessCost = ethparams.ColdAccountAccessCostEIP2929
	warmAccountAccessCost = ethparams.WarmStorageReadCostEIP2929
	sstoreSetCost         = ethparams.SstoreSetGasEIP2200
	callValueTransferCost = ethparams.CallValueTransferGas
)

package main

import (
	crand "crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/fatih/color"
	"github.com/gofrs/flock"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/clydemeng/authrelay/core"
	"github.com/clydemeng/authrelay/core/state"
	"github.com/clydemeng/authrelay/core/vm"
	"github.com/clydemeng/authrelay/kvdb"
	"github.com/clydemeng/authrelay/signer"
)

var (
	execCommand = &cli.Command{
		Action: runExec,
		Name:   "exec",
		Usage:  "Execute a relay invocation against the local state database",
		Flags: []cli.Flag{
			payloadFlag,
			keyFileFlag,
			toFlag,
			valueFlag,
			dataFlag,
			saltFlag,
			fromFlag,
			fundFlag,
		},
		Description: `Runs one relay invocation. Either pass a complete --payload, or pass
--key and --to and the request is assembled in place: the commit is derived,
signed and encoded before execution. Results are printed and recorded in the
data directory.`,
	}
	commitsCommand = &cli.Command{
		Action: listCommits,
		Name:   "commits",
		Usage:  "List locally recorded relay invocations",
	}
)

// recordPrefix keys invocation records written by this tool. Relay state
// proper lives under the state layer's own prefixes.
var recordPrefix = []byte("r")

// invocationRecord is persisted per executed relay attempt, RLP encoded.
type invocationRecord struct {
	Commit  common.Hash
	Target  common.Address
	From    common.Address
	Success bool
	GasUsed uint64
	Output  []byte
	Time    uint64
}

// openState opens the configured backend, holding the datadir lock for
// persistent engines until release is called.
func openState(cfg *relayConfig) (kvdb.KeyValueStore, func(), error) {
	if cfg.Node.DBEngine == kvdb.EngineMemory {
		store, err := kvdb.Open(cfg.Node.DBEngine, "")
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	}

	if err := os.MkdirAll(cfg.Node.DataDir, 0700); err != nil {
		return nil, nil, err
	}
	lock := flock.New(filepath.Join(cfg.Node.DataDir, "LOCK"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, nil, err
	}
	if !locked {
		return nil, nil, fmt.Errorf("datadir %s is in use by another instance", cfg.Node.DataDir)
	}
	store, err := kvdb.Open(cfg.Node.DBEngine, filepath.Join(cfg.Node.DataDir, "state"))
	if err != nil {
		lock.Unlock()
		return nil, nil, err
	}
	return store, func() {
		store.Close()
		lock.Unlock()
	}, nil
}

func runExec(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	from, err := parseAddress(ctx.String(fromFlag.Name))
	if err != nil {
		return fmt.Errorf("--%s: %v", fromFlag.Name, err)
	}
	value, err := parseValue(ctx.String(valueFlag.Name))
	if err != nil {
		return fmt.Errorf("--%s: %v", valueFlag.Name, err)
	}
	fund, err := parseValue(ctx.String(fundFlag.Name))
	if err != nil {
		return fmt.Errorf("--%s: %v", fundFlag.Name, err)
	}
	payload, err := buildPayload(ctx, cfg)
	if err != nil {
		return err
	}

	store, release, err := openState(cfg)
	if err != nil {
		return err
	}
	defer release()

	sdb := state.New(store)
	if !fund.IsZero() {
		sdb.AddBalance(from, fund)
		if err := sdb.Commit(); err != nil {
			return err
		}
		log.Debug("Credited sender", "from", from, "amount", fund)
	}

	exec, err := vm.NewExecutor(&cfg.Relay, sdb)
	if err != nil {
		return err
	}
	emu, ok := exec.(*vm.Emulator)
	if !ok {
		return fmt.Errorf("executor %T cannot host local contracts", exec)
	}
	emu.Register(cfg.Relay.Invoker, core.NewInvoker())

	log.Info("Executing relay invocation", "engine", exec.Engine(), "db", cfg.Node.DBEngine, "invoker", cfg.Relay.Invoker)
	start := time.Now()
	res, err := exec.Execute(from, cfg.Relay.Invoker, payload, value, cfg.Node.GasLimit)
	if err != nil {
		return err
	}
	printResult(res, time.Since(start))
	return writeRecord(store, payload, from, res)
}

// buildPayload returns the invocation payload: either the one supplied
// verbatim, or one assembled by deriving, signing and encoding in place.
func buildPayload(ctx *cli.Context, cfg *relayConfig) ([]byte, error) {
	if ctx.IsSet(payloadFlag.Name) {
		return parseBytes(ctx.String(payloadFlag.Name))
	}
	if !ctx.IsSet(keyFileFlag.Name) || !ctx.IsSet(toFlag.Name) {
		return nil, fmt.Errorf("either --%s or both --%s and --%s are required",
			payloadFlag.Name, keyFileFlag.Name, toFlag.Name)
	}

	key, err := crypto.LoadECDSA(ctx.String(keyFileFlag.Name))
	if err != nil {
		return nil, err
	}
	to, err := parseAddress(ctx.String(toFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("--%s: %v", toFlag.Name, err)
	}
	value, err := parseValue(ctx.String(valueFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("--%s: %v", valueFlag.Name, err)
	}
	data, err := parseBytes(ctx.String(dataFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("--%s: %v", dataFlag.Name, err)
	}
	var salt common.Hash
	if ctx.IsSet(saltFlag.Name) {
		if salt, err = parseHash(ctx.String(saltFlag.Name)); err != nil {
			return nil, fmt.Errorf("--%s: %v", saltFlag.Name, err)
		}
	} else if _, err := crand.Read(salt[:]); err != nil {
		return nil, err
	}

	commit := signer.Commitment(to, value, data, salt)
	sig, err := signer.New(cfg.Relay.ChainID, cfg.Relay.Invoker).Sign(key, commit)
	if err != nil {
		return nil, err
	}
	log.Info("Assembled relay request", "commit", commit, "salt", salt, "to", to)
	return core.EncodeRelay(&core.Request{Signature: sig, Data: data, Commit: commit, To: to}), nil
}

func printResult(res *vm.ExecutionResult, elapsed time.Duration) {
	status := color.GreenString("success")
	if res.Failed() {
		status = color.RedString("failed")
	}
	fmt.Printf("Status:  %s\n", status)
	if res.Failed() {
		if re := core.IdentifierToError(res.FailurePayload()); re != nil {
			fmt.Printf("Abort:   %v\n", re)
		} else if res.Err != nil {
			fmt.Printf("Abort:   %v\n", res.Err)
		}
		fmt.Printf("Reason:  %s\n", core.FailureReasonOf(res.Err))
	}
	fmt.Printf("Gas:     %d\n", res.UsedGas)
	fmt.Printf("Output:  %s\n", hexutil.Encode(res.ReturnData))
	fmt.Printf("Elapsed: %v\n", common.PrettyDuration(elapsed))
}

func writeRecord(store kvdb.KeyValueStore, payload []byte, from common.Address, res *vm.ExecutionResult) error {
	rec := &invocationRecord{
		From:    from,
		Success: !res.Failed(),
		GasUsed: res.UsedGas,
		Output:  res.ReturnData,
		Time:    uint64(time.Now().Unix()),
	}
	if req, err := core.DecodeRequest(payload); err == nil {
		rec.Commit = req.Commit
		rec.Target = req.To
	} else {
		// Undecodable payloads are recorded under their own hash.
		rec.Commit = crypto.Keccak256Hash(payload)
	}

	blob, err := rlp.EncodeToBytes(rec)
	if err != nil {
		return err
	}
	return store.Put(append(recordPrefix, rec.Commit.Bytes()...), blob)
}

func listCommits(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	store, release, err := openState(cfg)
	if err != nil {
		return err
	}
	defer release()

	it := store.NewIterator(recordPrefix)
	defer it.Release()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Commit", "Target", "From", "Status", "Gas", "Output", "Time"})
	for it.Next() {
		var rec invocationRecord
		if err := rlp.DecodeBytes(it.Value(), &rec); err != nil {
			log.Warn("Skipping undecodable record", "key", hexutil.Encode(it.Key()), "err", err)
			continue
		}
		status := color.GreenString("ok")
		if !rec.Success {
			status = color.RedString("failed")
		}
		out := hexutil.Encode(rec.Output)
		if len(out) > 22 {
			out = out[:22] + "..."
		}
		table.Append([]string{
			rec.Commit.Hex(),
			rec.Target.Hex(),
			rec.From.Hex(),
			status,
			fmt.Sprintf("%d", rec.GasUsed),
			out,
			time.Unix(int64(rec.Time), 0).Format(time.RFC3339),
		})
	}
	if err := it.Error(); err != nil {
		return err
	}
	table.Render()
	return nil
}

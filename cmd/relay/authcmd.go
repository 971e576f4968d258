package main

import (
	crand "crypto/rand"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/urfave/cli/v2"

	"github.com/clydemeng/authrelay/core"
	"github.com/clydemeng/authrelay/signer"
)

var (
	keygenCommand = &cli.Command{
		Action: keygen,
		Name:   "keygen",
		Usage:  "Generate a new authorizing key",
		Flags:  []cli.Flag{outFlag},
		Description: `Generates a fresh secp256k1 key, stores it hex encoded and prints the
derived address.`,
	}
	signCommand = &cli.Command{
		Action: signCommit,
		Name:   "sign",
		Usage:  "Authorize a commit for the configured relay instance",
		Flags:  []cli.Flag{keyFileFlag, commitFlag},
		Description: `Signs the canonical authorization message over the given commit with the
configured chain id and invoker address. The printed signature is only valid
for that one (chain, invoker, commit) combination.`,
	}
	commitCommand = &cli.Command{
		Action: makeCommit,
		Name:   "commit",
		Usage:  "Derive the conventional commit for an intended call",
		Flags:  []cli.Flag{toFlag, valueFlag, dataFlag, saltFlag},
		Description: `Computes the conventional commit binding a target, value and calldata.
A random salt is generated unless one is supplied; keep it, repeating the
derivation needs it.`,
	}
	encodeCommand = &cli.Command{
		Action: encodePayload,
		Name:   "encode",
		Usage:  "Assemble a relay payload from its parts",
		Flags:  []cli.Flag{sigFlag, commitFlag, toFlag, dataFlag},
	}
)

func keygen(ctx *cli.Context) error {
	key, err := crypto.GenerateKey()
	if err != nil {
		return err
	}
	path := ctx.String(outFlag.Name)
	if err := crypto.SaveECDSA(path, key); err != nil {
		return err
	}
	fmt.Printf("Address:  %s\n", crypto.PubkeyToAddress(key.PublicKey).Hex())
	fmt.Printf("Key file: %s\n", path)
	return nil
}

func signCommit(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	key, err := crypto.LoadECDSA(ctx.String(keyFileFlag.Name))
	if err != nil {
		return err
	}
	commit, err := parseHash(ctx.String(commitFlag.Name))
	if err != nil {
		return fmt.Errorf("--%s: %v", commitFlag.Name, err)
	}

	sig, err := signer.New(cfg.Relay.ChainID, cfg.Relay.Invoker).Sign(key, commit)
	if err != nil {
		return err
	}
	fmt.Printf("Signer:    %s\n", crypto.PubkeyToAddress(key.PublicKey).Hex())
	fmt.Printf("Signature: %s\n", hexutil.Encode(sig))
	return nil
}

func makeCommit(ctx *cli.Context) error {
	to, err := parseAddress(ctx.String(toFlag.Name))
	if err != nil {
		return fmt.Errorf("--%s: %v", toFlag.Name, err)
	}
	value, err := parseValue(ctx.String(valueFlag.Name))
	if err != nil {
		return fmt.Errorf("--%s: %v", valueFlag.Name, err)
	}
	data, err := parseBytes(ctx.String(dataFlag.Name))
	if err != nil {
		return fmt.Errorf("--%s: %v", dataFlag.Name, err)
	}

	var salt common.Hash
	if ctx.IsSet(saltFlag.Name) {
		if salt, err = parseHash(ctx.String(saltFlag.Name)); err != nil {
			return fmt.Errorf("--%s: %v", saltFlag.Name, err)
		}
	} else if _, err := crand.Read(salt[:]); err != nil {
		return err
	}

	commit := signer.Commitment(to, value, data, salt)
	fmt.Printf("Commit: %s\n", commit.Hex())
	fmt.Printf("Salt:   %s\n", salt.Hex())
	return nil
}

func encodePayload(ctx *cli.Context) error {
	sig, err := parseBytes(ctx.String(sigFlag.Name))
	if err != nil {
		return fmt.Errorf("--%s: %v", sigFlag.Name, err)
	}
	commit, err := parseHash(ctx.String(commitFlag.Name))
	if err != nil {
		return fmt.Errorf("--%s: %v", commitFlag.Name, err)
	}
	to, err := parseAddress(ctx.String(toFlag.Name))
	if err != nil {
		return fmt.Errorf("--%s: %v", toFlag.Name, err)
	}
	data, err := parseBytes(ctx.String(dataFlag.Name))
	if err != nil {
		return fmt.Errorf("--%s: %v", dataFlag.Name, err)
	}

	payload := core.EncodeRelay(&core.Request{Signature: sig, Data: data, Commit: commit, To: to})
	fmt.Println(hexutil.Encode(payload))
	return nil
}

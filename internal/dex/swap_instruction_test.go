package dex

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
)

func TestEncodeSwapDataLayout(t *testing.T) {
	data, err := EncodeSwapData(24_084_460_000_000, 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(data) != SwapDataSize {
		t.Fatalf("length %d, want %d", len(data), SwapDataSize)
	}
	if data[0] != SwapOpcode {
		t.Fatalf("opcode %d", data[0])
	}
	if got := binary.LittleEndian.Uint64(data[1:9]); got != 24_084_460_000_000 {
		t.Fatalf("amount in %d", got)
	}
	if got := binary.LittleEndian.Uint64(data[9:17]); got != 0 {
		t.Fatalf("min amount out %d", got)
	}
}

func TestDerivePoolAddressesDeterministic(t *testing.T) {
	pool := solana.MustPublicKeyFromBase58("6GHh9d5bZPcDELedq3ZuB1xTJsGHnKqFL142chpNQCox")

	first, err := DerivePoolAddresses(pool, AMMProgramID)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	second, err := DerivePoolAddresses(pool, AMMProgramID)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if first != second {
		t.Fatalf("derivation not deterministic: %+v != %+v", first, second)
	}
	if first.Authority.Equals(first.PoolSourceToken) || first.PoolSourceToken.Equals(first.PoolDestinationToken) {
		t.Fatalf("derived addresses collide: %+v", first)
	}
}

func TestNewSwapInstructionAccounts(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	pool := solana.NewWallet().PublicKey()
	addrs, err := DerivePoolAddresses(pool, AMMProgramID)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}

	ix, err := NewSwapInstruction(AMMProgramID, SwapAccounts{
		Owner:                owner,
		Pool:                 pool,
		Authority:            addrs.Authority,
		Source:               solana.NewWallet().PublicKey(),
		Destination:          solana.NewWallet().PublicKey(),
		PoolSourceToken:      addrs.PoolSourceToken,
		PoolDestinationToken: addrs.PoolDestinationToken,
	}, 10, 0)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if !ix.ProgramID().Equals(AMMProgramID) {
		t.Fatalf("program id %s", ix.ProgramID())
	}
	accounts := ix.Accounts()
	if len(accounts) != 9 {
		t.Fatalf("accounts %d, want 9", len(accounts))
	}
	if !accounts[0].PublicKey.Equals(owner) || !accounts[0].IsSigner || accounts[0].IsWritable {
		t.Fatalf("owner meta mismatch: %+v", accounts[0])
	}
	if !accounts[1].PublicKey.Equals(pool) || !accounts[1].IsWritable {
		t.Fatalf("pool meta mismatch: %+v", accounts[1])
	}
	if !accounts[7].PublicKey.Equals(solana.TokenProgramID) || !accounts[8].PublicKey.Equals(solana.SysVarRentPubkey) {
		t.Fatalf("fixed program accounts mismatch")
	}
}

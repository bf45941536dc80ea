package dex

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	// SwapOpcode selects the swap handler of the AMM program.
	SwapOpcode uint8 = 1
	// SwapDataSize is opcode(1) + amountIn(8) + minAmountOut(8).
	SwapDataSize = 1 + 8 + 8
)

// SwapAccounts lists the accounts referenced by a swap instruction.
type SwapAccounts struct {
	Owner                solana.PublicKey
	Pool                 solana.PublicKey
	Authority            solana.PublicKey
	Source               solana.PublicKey
	Destination          solana.PublicKey
	PoolSourceToken      solana.PublicKey
	PoolDestinationToken solana.PublicKey
}

// PoolAddresses are the program-derived accounts of a pool.
type PoolAddresses struct {
	Authority            solana.PublicKey
	PoolSourceToken      solana.PublicKey
	PoolDestinationToken solana.PublicKey
}

// DerivePoolAddresses derives the authority and pool token accounts for pool under programID.
func DerivePoolAddresses(pool, programID solana.PublicKey) (PoolAddresses, error) {
	authority, _, err := solana.FindProgramAddress([][]byte{pool.Bytes()}, programID)
	if err != nil {
		return PoolAddresses{}, fmt.Errorf("derive authority: %w", err)
	}
	source, _, err := solana.FindProgramAddress([][]byte{pool.Bytes(), []byte("source")}, programID)
	if err != nil {
		return PoolAddresses{}, fmt.Errorf("derive pool source: %w", err)
	}
	destination, _, err := solana.FindProgramAddress([][]byte{pool.Bytes(), []byte("destination")}, programID)
	if err != nil {
		return PoolAddresses{}, fmt.Errorf("derive pool destination: %w", err)
	}
	return PoolAddresses{
		Authority:            authority,
		PoolSourceToken:      source,
		PoolDestinationToken: destination,
	}, nil
}

// EncodeSwapData encodes the swap payload. A zero minAmountOut accepts any output.
func EncodeSwapData(amountIn, minAmountOut uint64) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Grow(SwapDataSize)
	enc := bin.NewBinEncoder(buf)
	if err := enc.WriteUint8(SwapOpcode); err != nil {
		return nil, fmt.Errorf("encode opcode: %w", err)
	}
	if err := enc.WriteUint64(amountIn, bin.LE); err != nil {
		return nil, fmt.Errorf("encode amount in: %w", err)
	}
	if err := enc.WriteUint64(minAmountOut, bin.LE); err != nil {
		return nil, fmt.Errorf("encode min amount out: %w", err)
	}
	return buf.Bytes(), nil
}

// NewSwapInstruction builds the AMM swap instruction.
func NewSwapInstruction(programID solana.PublicKey, accounts SwapAccounts, amountIn, minAmountOut uint64) (solana.Instruction, error) {
	data, err := EncodeSwapData(amountIn, minAmountOut)
	if err != nil {
		return nil, err
	}
	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(accounts.Owner, false, true),
		solana.NewAccountMeta(accounts.Pool, true, false),
		solana.NewAccountMeta(accounts.Authority, false, false),
		solana.NewAccountMeta(accounts.Source, true, false),
		solana.NewAccountMeta(accounts.Destination, true, false),
		solana.NewAccountMeta(accounts.PoolSourceToken, true, false),
		solana.NewAccountMeta(accounts.PoolDestinationToken, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.SysVarRentPubkey, false, false),
	}
	return solana.NewInstruction(programID, metas, data), nil
}

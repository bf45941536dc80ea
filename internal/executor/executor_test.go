package executor

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tony-42069/sol-liquidity-monitor/internal/chain"
	"github.com/tony-42069/sol-liquidity-monitor/internal/dex"
)

type fakeLedger struct {
	raw        []byte
	sendOpts   chain.SendOptions
	level      rpc.CommitmentType
	confirmErr interface{}
	sendErr    error
	sends      int
}

func (f *fakeLedger) GetLatestBlockhash(context.Context) (solana.Hash, error) {
	return solana.Hash{1, 2, 3}, nil
}

func (f *fakeLedger) GetMinimumBalanceForRentExemption(_ context.Context, size uint64) (uint64, error) {
	return size * 10, nil
}

func (f *fakeLedger) SendRawTransaction(ctx context.Context, raw []byte, opts chain.SendOptions) (solana.Signature, error) {
	f.sends++
	if err := ctx.Err(); err != nil {
		return solana.Signature{}, err
	}
	if f.sendErr != nil {
		return solana.Signature{}, f.sendErr
	}
	f.raw = raw
	f.sendOpts = opts
	return solana.Signature{9}, nil
}

func (f *fakeLedger) ConfirmTransaction(ctx context.Context, _ solana.Signature, level rpc.CommitmentType) (chain.Confirmation, error) {
	f.level = level
	if err := ctx.Err(); err != nil {
		return chain.Confirmation{}, err
	}
	if f.confirmErr != nil {
		return chain.Confirmation{Slot: 7, Err: f.confirmErr}, nil
	}
	return chain.Confirmation{Slot: 7, Status: rpc.ConfirmationStatusConfirmed}, nil
}

type keySigner struct {
	key solana.PrivateKey
}

func newKeySigner(t *testing.T) *keySigner {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("new key: %v", err)
	}
	return &keySigner{key: key}
}

func (s *keySigner) PublicKey() solana.PublicKey { return s.key.PublicKey() }

func (s *keySigner) Sign(message []byte) (solana.Signature, error) { return s.key.Sign(message) }

type staticPool solana.PublicKey

func (p staticPool) PoolAddress() solana.PublicKey { return solana.PublicKey(p) }

var (
	testPool = solana.MustPublicKeyFromBase58("6GHh9d5bZPcDELedq3ZuB1xTJsGHnKqFL142chpNQCox")
	testMint = solana.MustPublicKeyFromBase58("7N17vqQVJKK2TY5gcdLXwgnsRx4X3c3vczau578Rpump")
)

func testConfig() Config {
	return Config{
		TokenMint:        testMint,
		SellAmount:       decimal.RequireFromString("24084.46"),
		SubmitMaxRetries: 3,
		Commitment:       rpc.CommitmentConfirmed,
	}
}

func TestBuildInstructionsOrder(t *testing.T) {
	for _, amount := range []uint64{0, 1, 24_084_460_000_000, ^uint64(0)} {
		ixs, err := BuildInstructions(SaleInstructions{
			Payer:        solana.NewWallet().PublicKey(),
			Scratch:      solana.NewWallet().PublicKey(),
			Pool:         testPool,
			Source:       solana.NewWallet().PublicKey(),
			ProgramID:    dex.AMMProgramID,
			RentLamports: 2_039_280,
			AmountIn:     amount,
		})
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		if len(ixs) != 3 {
			t.Fatalf("instructions = %d, want 3", len(ixs))
		}
		if !ixs[0].ProgramID().Equals(solana.SystemProgramID) {
			t.Fatalf("first instruction should create the scratch account, got %s", ixs[0].ProgramID())
		}
		if !ixs[1].ProgramID().Equals(dex.AMMProgramID) {
			t.Fatalf("second instruction should be the swap, got %s", ixs[1].ProgramID())
		}
		if !ixs[2].ProgramID().Equals(solana.TokenProgramID) {
			t.Fatalf("third instruction should close the scratch account, got %s", ixs[2].ProgramID())
		}

		data, err := ixs[1].Data()
		if err != nil {
			t.Fatalf("swap data: %v", err)
		}
		if got := binary.LittleEndian.Uint64(data[1:9]); got != amount {
			t.Fatalf("amount in = %d, want %d", got, amount)
		}
		if got := binary.LittleEndian.Uint64(data[9:17]); got != 0 {
			t.Fatalf("min amount out = %d, want 0", got)
		}
	}
}

func TestExecuteSaleSubmitsSignedTransaction(t *testing.T) {
	ledger := &fakeLedger{}
	signer := newKeySigner(t)
	exec := New(testConfig(), ledger, signer, staticPool(testPool), zap.NewNop(), nil)

	outcome, err := exec.ExecuteSale(context.Background())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if outcome.AmountIn != 24_084_460_000_000 {
		t.Fatalf("amount in = %d", outcome.AmountIn)
	}
	if outcome.Signature != (solana.Signature{9}).String() || outcome.Slot != 7 {
		t.Fatalf("outcome mismatch: %+v", outcome)
	}
	if outcome.Status != string(rpc.ConfirmationStatusConfirmed) {
		t.Fatalf("status = %s", outcome.Status)
	}
	if ledger.sendOpts.SkipPreflight || ledger.sendOpts.MaxRetries != 3 {
		t.Fatalf("send options mismatch: %+v", ledger.sendOpts)
	}
	if ledger.level != rpc.CommitmentConfirmed {
		t.Fatalf("confirm level = %s", ledger.level)
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(ledger.raw))
	if err != nil {
		t.Fatalf("decode transaction: %v", err)
	}
	if len(tx.Signatures) != 2 {
		t.Fatalf("signatures = %d, want 2", len(tx.Signatures))
	}
	if err := tx.VerifySignatures(); err != nil {
		t.Fatalf("verify signatures: %v", err)
	}
	if !tx.Message.AccountKeys[0].Equals(signer.PublicKey()) {
		t.Fatalf("fee payer = %s", tx.Message.AccountKeys[0])
	}
	if len(tx.Message.Instructions) != 3 {
		t.Fatalf("compiled instructions = %d", len(tx.Message.Instructions))
	}
	wantPrograms := []solana.PublicKey{solana.SystemProgramID, dex.AMMProgramID, solana.TokenProgramID}
	for i, ix := range tx.Message.Instructions {
		program := tx.Message.AccountKeys[ix.ProgramIDIndex]
		if !program.Equals(wantPrograms[i]) {
			t.Fatalf("instruction %d program = %s, want %s", i, program, wantPrograms[i])
		}
	}
	if tx.Message.RecentBlockhash != (solana.Hash{1, 2, 3}) {
		t.Fatalf("blockhash mismatch")
	}
}

func TestExecuteSaleProgramError(t *testing.T) {
	ledger := &fakeLedger{confirmErr: map[string]interface{}{"InstructionError": []interface{}{1, map[string]interface{}{"Custom": 30}}}}
	exec := New(testConfig(), ledger, newKeySigner(t), staticPool(testPool), zap.NewNop(), nil)

	_, err := exec.ExecuteSale(context.Background())
	var failed *TransactionFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected TransactionFailedError, got %v", err)
	}
	if failed.Detail != `{"InstructionError":[1,{"Custom":30}]}` {
		t.Fatalf("detail = %s", failed.Detail)
	}
	if ledger.sends != 1 {
		t.Fatalf("sends = %d, failed sale must not be retried", ledger.sends)
	}
}

func TestExecuteSaleNoPool(t *testing.T) {
	ledger := &fakeLedger{}
	exec := New(testConfig(), ledger, newKeySigner(t), staticPool(solana.PublicKey{}), zap.NewNop(), nil)
	if _, err := exec.ExecuteSale(context.Background()); !errors.Is(err, ErrNoPool) {
		t.Fatalf("expected ErrNoPool, got %v", err)
	}
	if ledger.sends != 0 {
		t.Fatalf("nothing should be submitted without a pool")
	}
}

func TestExecuteSaleSendError(t *testing.T) {
	ledger := &fakeLedger{sendErr: errors.New("blockhash not found")}
	exec := New(testConfig(), ledger, newKeySigner(t), staticPool(testPool), zap.NewNop(), nil)
	_, err := exec.ExecuteSale(context.Background())
	if err == nil {
		t.Fatalf("expected send error")
	}
	var failed *TransactionFailedError
	if errors.As(err, &failed) {
		t.Fatalf("send error should not be a program failure")
	}
}

func TestExecuteSaleCancelledContextStillConfirms(t *testing.T) {
	ledger := &fakeLedger{}
	exec := New(testConfig(), ledger, newKeySigner(t), staticPool(testPool), zap.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := exec.ExecuteSale(ctx); err != nil {
		t.Fatalf("execute: %v", err)
	}
}

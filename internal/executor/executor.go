package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tony-42069/sol-liquidity-monitor/internal/chain"
	"github.com/tony-42069/sol-liquidity-monitor/internal/dex"
	"github.com/tony-42069/sol-liquidity-monitor/internal/model"
	"github.com/tony-42069/sol-liquidity-monitor/internal/pricing"
	"github.com/tony-42069/sol-liquidity-monitor/internal/telemetry"
)

// TokenAccountSize is the storage size of an SPL token account.
const TokenAccountSize = 165

// ErrNoPool is returned when no pool is available to trade against.
var ErrNoPool = errors.New("pool address not found")

// TransactionFailedError reports a transaction the ledger confirmed with a program error.
type TransactionFailedError struct {
	Signature string
	Detail    string
}

func (e *TransactionFailedError) Error() string {
	return fmt.Sprintf("transaction %s failed: %s", e.Signature, e.Detail)
}

// Ledger is the subset of the ledger client used to submit a sale.
type Ledger interface {
	GetLatestBlockhash(ctx context.Context) (solana.Hash, error)
	GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error)
	SendRawTransaction(ctx context.Context, raw []byte, opts chain.SendOptions) (solana.Signature, error)
	ConfirmTransaction(ctx context.Context, sig solana.Signature, level rpc.CommitmentType) (chain.Confirmation, error)
}

// Signer signs transactions on behalf of the seller.
type Signer interface {
	PublicKey() solana.PublicKey
	Sign(message []byte) (solana.Signature, error)
}

// PoolSource provides the pool to trade against.
type PoolSource interface {
	PoolAddress() solana.PublicKey
}

// Config holds sale parameters.
type Config struct {
	TokenMint  solana.PublicKey
	ProgramID  solana.PublicKey
	SellAmount decimal.Decimal
	// MinAmountOut of zero accepts any swap output.
	MinAmountOut     uint64
	SubmitMaxRetries uint
	Commitment       rpc.CommitmentType
}

// Executor builds, signs and submits the sale transaction.
type Executor struct {
	cfg      Config
	ledger   Ledger
	signer   Signer
	pools    PoolSource
	logger   *zap.Logger
	recorder *telemetry.Recorder
	now      func() time.Time
	newKey   func() (solana.PrivateKey, error)
}

// New builds an Executor.
func New(cfg Config, ledger Ledger, signer Signer, pools PoolSource, logger *zap.Logger, recorder *telemetry.Recorder) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProgramID.IsZero() {
		cfg.ProgramID = dex.AMMProgramID
	}
	if cfg.Commitment == "" {
		cfg.Commitment = rpc.CommitmentConfirmed
	}
	return &Executor{
		cfg:      cfg,
		ledger:   ledger,
		signer:   signer,
		pools:    pools,
		logger:   logger.Named("executor"),
		recorder: recorder,
		now:      time.Now,
		newKey:   solana.NewRandomPrivateKey,
	}
}

// SaleInstructions holds everything needed to assemble the sale.
type SaleInstructions struct {
	Payer        solana.PublicKey
	Scratch      solana.PublicKey
	Pool         solana.PublicKey
	Source       solana.PublicKey
	ProgramID    solana.PublicKey
	RentLamports uint64
	AmountIn     uint64
	MinAmountOut uint64
}

// BuildInstructions returns, in order, the scratch account creation, the swap
// and the scratch account close.
func BuildInstructions(p SaleInstructions) ([]solana.Instruction, error) {
	addrs, err := dex.DerivePoolAddresses(p.Pool, p.ProgramID)
	if err != nil {
		return nil, err
	}

	create := system.NewCreateAccountInstruction(
		p.RentLamports,
		TokenAccountSize,
		solana.TokenProgramID,
		p.Payer,
		p.Scratch,
	).Build()

	swap, err := dex.NewSwapInstruction(p.ProgramID, dex.SwapAccounts{
		Owner:                p.Payer,
		Pool:                 p.Pool,
		Authority:            addrs.Authority,
		Source:               p.Source,
		Destination:          p.Scratch,
		PoolSourceToken:      addrs.PoolSourceToken,
		PoolDestinationToken: addrs.PoolDestinationToken,
	}, p.AmountIn, p.MinAmountOut)
	if err != nil {
		return nil, fmt.Errorf("build swap: %w", err)
	}

	closeScratch := token.NewCloseAccountInstruction(p.Scratch, p.Payer, p.Payer, nil).Build()

	return []solana.Instruction{create, swap, closeScratch}, nil
}

// ExecuteSale sells the configured amount into the pool. It is not idempotent:
// every call submits a new transaction.
func (e *Executor) ExecuteSale(ctx context.Context) (model.TradeOutcome, error) {
	outcome, err := e.executeSale(ctx)
	if err != nil {
		e.recorder.Trade(telemetry.ResultFailed)
		e.logger.Error("sale failed", zap.Error(err))
		return outcome, err
	}
	e.recorder.Trade(telemetry.ResultConfirmed)
	e.logger.Info("sale confirmed", zap.String("signature", outcome.Signature), zap.Uint64("slot", outcome.Slot))
	return outcome, nil
}

func (e *Executor) executeSale(ctx context.Context) (model.TradeOutcome, error) {
	var pool solana.PublicKey
	if e.pools != nil {
		pool = e.pools.PoolAddress()
	}
	if pool.IsZero() {
		return model.TradeOutcome{}, ErrNoPool
	}
	if e.signer == nil {
		return model.TradeOutcome{}, fmt.Errorf("signer is nil")
	}
	payer := e.signer.PublicKey()

	source, _, err := solana.FindAssociatedTokenAddress(payer, e.cfg.TokenMint)
	if err != nil {
		return model.TradeOutcome{}, fmt.Errorf("find token account: %w", err)
	}

	scratch, err := e.newKey()
	if err != nil {
		return model.TradeOutcome{}, fmt.Errorf("generate scratch account: %w", err)
	}

	amountIn, err := pricing.ToRaw(e.cfg.SellAmount)
	if err != nil {
		return model.TradeOutcome{}, fmt.Errorf("sell amount: %w", err)
	}

	e.logger.Info("preparing sale",
		zap.Stringer("pool", pool),
		zap.Stringer("payer", payer),
		zap.String("sell_amount", e.cfg.SellAmount.String()),
		zap.Uint64("amount_in", amountIn),
		zap.Uint64("min_amount_out", e.cfg.MinAmountOut),
	)

	rent, err := e.ledger.GetMinimumBalanceForRentExemption(ctx, TokenAccountSize)
	if err != nil {
		return model.TradeOutcome{}, fmt.Errorf("rent exemption: %w", err)
	}

	instructions, err := BuildInstructions(SaleInstructions{
		Payer:        payer,
		Scratch:      scratch.PublicKey(),
		Pool:         pool,
		Source:       source,
		ProgramID:    e.cfg.ProgramID,
		RentLamports: rent,
		AmountIn:     amountIn,
		MinAmountOut: e.cfg.MinAmountOut,
	})
	if err != nil {
		return model.TradeOutcome{}, err
	}

	blockhash, err := e.ledger.GetLatestBlockhash(ctx)
	if err != nil {
		return model.TradeOutcome{}, fmt.Errorf("latest blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return model.TradeOutcome{}, fmt.Errorf("build transaction: %w", err)
	}
	if err := signTransaction(tx, e.signer, scratch); err != nil {
		return model.TradeOutcome{}, err
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		return model.TradeOutcome{}, fmt.Errorf("serialize transaction: %w", err)
	}

	outcome := model.TradeOutcome{
		Pool:           pool.String(),
		Payer:          payer.String(),
		ScratchAccount: scratch.PublicKey().String(),
		AmountIn:       amountIn,
		MinAmountOut:   e.cfg.MinAmountOut,
	}

	// Once submitted, the transaction runs to confirmation regardless of shutdown.
	submitCtx := context.WithoutCancel(ctx)
	sig, err := e.ledger.SendRawTransaction(submitCtx, raw, chain.SendOptions{
		SkipPreflight:       false,
		PreflightCommitment: e.cfg.Commitment,
		MaxRetries:          e.cfg.SubmitMaxRetries,
	})
	if err != nil {
		return outcome, fmt.Errorf("send transaction: %w", err)
	}
	outcome.Signature = sig.String()
	outcome.SubmittedAt = e.now().UTC()
	e.logger.Info("waiting for confirmation", zap.String("signature", outcome.Signature))

	conf, err := e.ledger.ConfirmTransaction(submitCtx, sig, e.cfg.Commitment)
	if err != nil {
		return outcome, fmt.Errorf("confirm transaction: %w", err)
	}
	if conf.Err != nil {
		outcome.Status = telemetry.ResultFailed
		return outcome, &TransactionFailedError{Signature: outcome.Signature, Detail: errorDetail(conf.Err)}
	}

	outcome.Status = string(conf.Status)
	outcome.Slot = conf.Slot
	outcome.ConfirmedAt = e.now().UTC()
	return outcome, nil
}

func signTransaction(tx *solana.Transaction, signer Signer, scratch solana.PrivateKey) error {
	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("serialize message: %w", err)
	}

	payer := signer.PublicKey()
	scratchKey := scratch.PublicKey()
	required := int(tx.Message.Header.NumRequiredSignatures)
	if required > len(tx.Message.AccountKeys) {
		return fmt.Errorf("message requires %d signatures for %d accounts", required, len(tx.Message.AccountKeys))
	}

	tx.Signatures = make([]solana.Signature, 0, required)
	for _, key := range tx.Message.AccountKeys[:required] {
		var sig solana.Signature
		switch {
		case key.Equals(payer):
			sig, err = signer.Sign(msg)
		case key.Equals(scratchKey):
			sig, err = scratch.Sign(msg)
		default:
			return fmt.Errorf("no key for required signer %s", key)
		}
		if err != nil {
			return fmt.Errorf("sign transaction: %w", err)
		}
		tx.Signatures = append(tx.Signatures, sig)
	}
	return nil
}

func errorDetail(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// ErrAccountNotFound is returned when the ledger has no account at the address.
var ErrAccountNotFound = errors.New("account not found")

// SendOptions configures a raw transaction submission.
type SendOptions struct {
	SkipPreflight       bool
	PreflightCommitment rpc.CommitmentType
	MaxRetries          uint
}

// Confirmation is the final status of a submitted transaction.
type Confirmation struct {
	Slot   uint64
	Status rpc.ConfirmationStatusType
	// Err holds the program error reported by the ledger, if any.
	Err interface{}
}

// Client wraps the solana-go RPC client and provides the ledger capabilities.
type Client struct {
	rpcClient      *rpc.Client
	commitment     rpc.CommitmentType
	confirmTimeout time.Duration
	pollInterval   time.Duration
}

// Options tunes Client behavior.
type Options struct {
	Commitment     rpc.CommitmentType
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
}

// NewClient creates a ledger client for the RPC URL.
func NewClient(rpcURL string, opts Options) (*Client, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	if opts.Commitment == "" {
		opts.Commitment = rpc.CommitmentConfirmed
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = 60 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 500 * time.Millisecond
	}

	return &Client{
		rpcClient:      rpc.New(rpcURL),
		commitment:     opts.Commitment,
		confirmTimeout: opts.ConfirmTimeout,
		pollInterval:   opts.PollInterval,
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() error {
	if c.rpcClient != nil {
		return c.rpcClient.Close()
	}
	return nil
}

// GetAccountInfo returns the raw data of the account at address.
func (c *Client) GetAccountInfo(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	out, err := c.rpcClient.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: c.commitment,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	if out == nil || out.Value == nil || out.Value.Data == nil {
		return nil, ErrAccountNotFound
	}
	return out.Value.Data.GetBinary(), nil
}

// GetLatestBlockhash returns a recent blockhash for transaction stamping.
func (c *Client) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	out, err := c.rpcClient.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		return solana.Hash{}, err
	}
	if out == nil || out.Value == nil {
		return solana.Hash{}, fmt.Errorf("empty blockhash response")
	}
	return out.Value.Blockhash, nil
}

// GetMinimumBalanceForRentExemption returns the rent-exempt lamports for size bytes.
func (c *Client) GetMinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error) {
	return c.rpcClient.GetMinimumBalanceForRentExemption(ctx, size, c.commitment)
}

// SendRawTransaction submits a signed, serialized transaction.
func (c *Client) SendRawTransaction(ctx context.Context, raw []byte, opts SendOptions) (solana.Signature, error) {
	maxRetries := opts.MaxRetries
	txOpts := rpc.TransactionOpts{
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: opts.PreflightCommitment,
		MaxRetries:          &maxRetries,
	}
	if txOpts.PreflightCommitment == "" {
		txOpts.PreflightCommitment = c.commitment
	}
	return c.rpcClient.SendRawTransactionWithOpts(ctx, raw, txOpts)
}

// ConfirmTransaction polls the signature status until it reaches level, the
// transaction reports an error, or the confirm timeout elapses.
func (c *Client) ConfirmTransaction(ctx context.Context, sig solana.Signature, level rpc.CommitmentType) (Confirmation, error) {
	ctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		out, err := c.rpcClient.GetSignatureStatuses(ctx, false, sig)
		if err == nil && out != nil && len(out.Value) > 0 && out.Value[0] != nil {
			status := out.Value[0]
			if status.Err != nil {
				return Confirmation{Slot: status.Slot, Status: status.ConfirmationStatus, Err: status.Err}, nil
			}
			if reached(status.ConfirmationStatus, level) {
				return Confirmation{Slot: status.Slot, Status: status.ConfirmationStatus}, nil
			}
		}

		select {
		case <-ctx.Done():
			if err != nil {
				return Confirmation{}, fmt.Errorf("confirm %s: %w (last error: %v)", sig, ctx.Err(), err)
			}
			return Confirmation{}, fmt.Errorf("confirm %s: %w", sig, ctx.Err())
		case <-ticker.C:
		}
	}
}

func reached(status rpc.ConfirmationStatusType, level rpc.CommitmentType) bool {
	rank := func(s string) int {
		switch s {
		case string(rpc.ConfirmationStatusProcessed):
			return 1
		case string(rpc.ConfirmationStatusConfirmed):
			return 2
		case string(rpc.ConfirmationStatusFinalized):
			return 3
		default:
			return 0
		}
	}
	want := rank(string(level))
	if want == 0 {
		want = rank(string(rpc.ConfirmationStatusConfirmed))
	}
	return rank(string(status)) >= want
}

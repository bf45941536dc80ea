package dex

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// AMMProgramID is the AMM program that owns the watched pool.
var AMMProgramID = solana.MustPublicKeyFromBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")

// ErrDecode is matched by every pool account decode failure.
var ErrDecode = errors.New("decode pool state")

// DecodeError describes a pool account buffer that does not fit the layout.
type DecodeError struct {
	Length int
	Want   int
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode pool state (%d bytes, want %d): %v", e.Length, e.Want, e.Err)
	}
	return fmt.Sprintf("decode pool state: got %d bytes, want %d", e.Length, e.Want)
}

func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDecode}
	}
	return []error{ErrDecode, e.Err}
}

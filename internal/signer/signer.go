package signer

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/tyler-smith/go-bip39"
)

// DefaultDerivationPath is the standard Solana wallet account path.
const DefaultDerivationPath = "m/44'/501'/0'/0'"

const hardenedOffset uint32 = 0x80000000

var (
	// ErrMissingMnemonic is returned when no recovery phrase is configured.
	ErrMissingMnemonic = errors.New("recovery phrase is required")
	// ErrInvalidMnemonic is returned for phrases that fail BIP39 validation.
	ErrInvalidMnemonic = errors.New("invalid recovery phrase")
)

// Keypair is a single signing key.
type Keypair struct {
	key solana.PrivateKey
}

// FromMnemonic derives the keypair for path from a BIP39 recovery phrase.
// Surrounding quotes and whitespace are ignored.
func FromMnemonic(mnemonic, path string) (*Keypair, error) {
	clean := strings.TrimSpace(strings.NewReplacer(`"`, "", `'`, "").Replace(mnemonic))
	if clean == "" {
		return nil, ErrMissingMnemonic
	}
	if !bip39.IsMnemonicValid(clean) {
		return nil, ErrInvalidMnemonic
	}
	if path == "" {
		path = DefaultDerivationPath
	}

	seed := bip39.NewSeed(clean, "")
	key, err := DeriveEd25519(seed, path)
	if err != nil {
		return nil, fmt.Errorf("derive keypair: %w", err)
	}
	return &Keypair{key: solana.PrivateKey(ed25519.NewKeyFromSeed(key))}, nil
}

// PublicKey returns the signer's address.
func (k *Keypair) PublicKey() solana.PublicKey {
	return k.key.PublicKey()
}

// Sign signs message with the private key.
func (k *Keypair) Sign(message []byte) (solana.Signature, error) {
	return k.key.Sign(message)
}

// DeriveEd25519 performs SLIP-10 ed25519 derivation of seed along path.
// Only hardened segments are valid for ed25519.
func DeriveEd25519(seed []byte, path string) ([]byte, error) {
	indexes, err := parsePath(path)
	if err != nil {
		return nil, err
	}

	key, chainCode := hmacSplit([]byte("ed25519 seed"), seed)
	for _, index := range indexes {
		data := make([]byte, 0, 1+32+4)
		data = append(data, 0x00)
		data = append(data, key...)
		data = binary.BigEndian.AppendUint32(data, index)
		key, chainCode = hmacSplit(chainCode, data)
	}
	return key, nil
}

func hmacSplit(key, data []byte) ([]byte, []byte) {
	mac := hmac.New(sha512.New, key)
	mac.Write(data)
	sum := mac.Sum(nil)
	return sum[:32], sum[32:]
}

func parsePath(path string) ([]uint32, error) {
	parts := strings.Split(strings.TrimSpace(path), "/")
	if len(parts) == 0 || parts[0] != "m" {
		return nil, fmt.Errorf("derivation path must start with m: %q", path)
	}

	indexes := make([]uint32, 0, len(parts)-1)
	for _, part := range parts[1:] {
		if !strings.HasSuffix(part, "'") {
			return nil, fmt.Errorf("ed25519 path segment must be hardened: %q", part)
		}
		n, err := strconv.ParseUint(strings.TrimSuffix(part, "'"), 10, 31)
		if err != nil {
			return nil, fmt.Errorf("invalid path segment %q: %w", part, err)
		}
		indexes = append(indexes, uint32(n)+hardenedOffset)
	}
	return indexes, nil
}

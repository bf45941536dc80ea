package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tony-42069/sol-liquidity-monitor/internal/model"
)

const (
	DefaultRPC        = "https://api.mainnet-beta.solana.com"
	DefaultPool       = "6GHh9d5bZPcDELedq3ZuB1xTJsGHnKqFL142chpNQCox"
	DefaultTokenMint  = "7N17vqQVJKK2TY5gcdLXwgnsRx4X3c3vczau578Rpump"
	DefaultAMMProgram = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL           string
	Pool             string
	TokenMint        string
	AMMProgram       string
	SellAmount       string
	PriceMin         float64
	PriceMax         float64
	MinLiquidity     float64
	ReferencePrice   float64
	PollInterval     time.Duration
	MaxRetries       int
	RetryDelay       time.Duration
	SubmitMaxRetries uint
	ConfirmTimeout   time.Duration
	Commitment       string
	MinAmountOut     uint64
	SeedPhrase       string
	DerivationPath   string
	Listen           string
	StreamInterval   time.Duration
	Stream           bool
	Journal          string
	PgDSN            string
	LogLevel         string
}

// Addresses are the parsed on-chain identities.
type Addresses struct {
	Pool       solana.PublicKey
	TokenMint  solana.PublicKey
	AMMProgram solana.PublicKey
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MONITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("rpc", DefaultRPC)
	v.SetDefault("pool", DefaultPool)
	v.SetDefault("token-mint", DefaultTokenMint)
	v.SetDefault("amm-program", DefaultAMMProgram)
	v.SetDefault("sell-amount", "24084.46")
	v.SetDefault("price-min", 4.0)
	v.SetDefault("price-max", 5.0)
	v.SetDefault("min-liquidity", 300000.0)
	v.SetDefault("reference-price", 100.0)
	v.SetDefault("poll-interval", 5*time.Second)
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-delay", time.Second)
	v.SetDefault("submit-max-retries", uint(3))
	v.SetDefault("confirm-timeout", 60*time.Second)
	v.SetDefault("commitment", string(rpc.CommitmentConfirmed))
	v.SetDefault("min-amount-out", uint64(0))
	v.SetDefault("derivation-path", "m/44'/501'/0'/0'")
	v.SetDefault("listen", ":3001")
	v.SetDefault("stream-interval", 5*time.Second)
	v.SetDefault("stream", false)
	v.SetDefault("journal", "./data/trades.jsonl")
	v.SetDefault("log-level", "info")

	if err := v.BindEnv("seed-phrase", "MONITOR_SEED_PHRASE", "WALLET_SEED_PHRASE"); err != nil {
		return Config{}, fmt.Errorf("bind env: %w", err)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:           v.GetString("rpc"),
		Pool:             strings.TrimSpace(v.GetString("pool")),
		TokenMint:        strings.TrimSpace(v.GetString("token-mint")),
		AMMProgram:       strings.TrimSpace(v.GetString("amm-program")),
		SellAmount:       v.GetString("sell-amount"),
		PriceMin:         v.GetFloat64("price-min"),
		PriceMax:         v.GetFloat64("price-max"),
		MinLiquidity:     v.GetFloat64("min-liquidity"),
		ReferencePrice:   v.GetFloat64("reference-price"),
		PollInterval:     v.GetDuration("poll-interval"),
		MaxRetries:       v.GetInt("max-retries"),
		RetryDelay:       v.GetDuration("retry-delay"),
		SubmitMaxRetries: v.GetUint("submit-max-retries"),
		ConfirmTimeout:   v.GetDuration("confirm-timeout"),
		Commitment:       v.GetString("commitment"),
		MinAmountOut:     v.GetUint64("min-amount-out"),
		SeedPhrase:       v.GetString("seed-phrase"),
		DerivationPath:   v.GetString("derivation-path"),
		Listen:           v.GetString("listen"),
		StreamInterval:   v.GetDuration("stream-interval"),
		Stream:           v.GetBool("stream"),
		Journal:          v.GetString("journal"),
		PgDSN:            v.GetString("pg-dsn"),
		LogLevel:         v.GetString("log-level"),
	}

	return cfg, nil
}

// Addresses parses the pool, mint and program identities.
func (c Config) Addresses() (Addresses, error) {
	var out Addresses
	var err error
	if out.Pool, err = solana.PublicKeyFromBase58(c.Pool); err != nil {
		return Addresses{}, fmt.Errorf("invalid pool %q: %w", c.Pool, err)
	}
	if out.TokenMint, err = solana.PublicKeyFromBase58(c.TokenMint); err != nil {
		return Addresses{}, fmt.Errorf("invalid token mint %q: %w", c.TokenMint, err)
	}
	if out.AMMProgram, err = solana.PublicKeyFromBase58(c.AMMProgram); err != nil {
		return Addresses{}, fmt.Errorf("invalid amm program %q: %w", c.AMMProgram, err)
	}
	return out, nil
}

// Thresholds builds the trade thresholds.
func (c Config) Thresholds() (model.Thresholds, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(c.SellAmount))
	if err != nil {
		return model.Thresholds{}, fmt.Errorf("invalid sell amount %q: %w", c.SellAmount, err)
	}
	return model.Thresholds{
		PriceMin:        c.PriceMin,
		PriceMax:        c.PriceMax,
		MinLiquidityUSD: c.MinLiquidity,
		SellAmount:      amount,
		PollInterval:    c.PollInterval,
		MaxRetries:      c.MaxRetries,
		RetryDelay:      c.RetryDelay,
	}, nil
}

// CommitmentType returns the configured commitment level.
func (c Config) CommitmentType() rpc.CommitmentType {
	return rpc.CommitmentType(strings.ToLower(strings.TrimSpace(c.Commitment)))
}

// Validate reports every configuration error found. The seed phrase is
// checked separately when the signer is built.
func (c Config) Validate() error {
	var errs []error
	if c.RPCURL == "" {
		errs = append(errs, errors.New("rpc url is required"))
	}
	if _, err := c.Addresses(); err != nil {
		errs = append(errs, err)
	}
	if t, err := c.Thresholds(); err != nil {
		errs = append(errs, err)
	} else if !t.SellAmount.IsPositive() {
		errs = append(errs, fmt.Errorf("sell amount must be positive, got %s", t.SellAmount))
	}
	if c.PriceMin < 0 || c.PriceMax < c.PriceMin {
		errs = append(errs, fmt.Errorf("invalid price band [%g, %g]", c.PriceMin, c.PriceMax))
	}
	if c.MinLiquidity < 0 {
		errs = append(errs, fmt.Errorf("min liquidity must not be negative, got %g", c.MinLiquidity))
	}
	if c.ReferencePrice <= 0 {
		errs = append(errs, fmt.Errorf("reference price must be positive, got %g", c.ReferencePrice))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll interval must be positive, got %s", c.PollInterval))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max retries must not be negative, got %d", c.MaxRetries))
	}
	switch c.CommitmentType() {
	case rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
	default:
		errs = append(errs, fmt.Errorf("unsupported commitment %q", c.Commitment))
	}
	return errors.Join(errs...)
}

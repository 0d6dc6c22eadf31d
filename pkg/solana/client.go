// Package solana provides the ledger gateway: balance reads, transaction
// signing and submission, and confirmation polling against a Solana RPC node.
package solana

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

const (
	// defaultConfirmAttempts bounds the confirmation poll loop.
	defaultConfirmAttempts = 30

	// defaultConfirmInterval is the spacing between status polls.
	defaultConfirmInterval = 2 * time.Second
)

// Confirmation outcomes that callers need to tell apart: an on-chain failure
// is final and safe to retry with a fresh quote, while a timeout leaves the
// submitted transaction in an unknown state that needs manual reconciliation.
var (
	ErrTransactionFailed   = errors.New("transaction failed on-chain")
	ErrConfirmationTimeout = errors.New("transaction confirmation timed out")
)

// Client wraps the Solana RPC client with signing capabilities.
type Client struct {
	rpc             *rpc.Client
	privateKey      solana.PrivateKey
	publicKey       solana.PublicKey
	confirmAttempts int
	confirmInterval time.Duration
}

// ClientConfig contains configuration for the Solana client.
type ClientConfig struct {
	RPCURL          string // Solana RPC endpoint
	PrivateKey      string // Base58 encoded private key
	WalletAddress   string // Optional: validated against the private key if provided
	ConfirmAttempts int    // Optional: confirmation poll attempts (default 30)
	ConfirmInterval time.Duration
}

// NewClient creates a new Solana client with signing capabilities.
func NewClient(config *ClientConfig) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if config.PrivateKey == "" {
		return nil, fmt.Errorf("private key is required")
	}

	rpcURL := config.RPCURL
	if rpcURL == "" {
		rpcURL = rpc.MainNetBeta_RPC
	}

	privateKey, err := solana.PrivateKeyFromBase58(config.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	publicKey := privateKey.PublicKey()

	if config.WalletAddress != "" {
		expected, err := solana.PublicKeyFromBase58(config.WalletAddress)
		if err != nil {
			return nil, fmt.Errorf("invalid wallet address: %w", err)
		}
		if !publicKey.Equals(expected) {
			return nil, fmt.Errorf("wallet address does not match private key: expected %s, got %s",
				publicKey.String(), expected.String())
		}
	}

	attempts := config.ConfirmAttempts
	if attempts <= 0 {
		attempts = defaultConfirmAttempts
	}
	interval := config.ConfirmInterval
	if interval <= 0 {
		interval = defaultConfirmInterval
	}

	return &Client{
		rpc:             rpc.New(rpcURL),
		privateKey:      privateKey,
		publicKey:       publicKey,
		confirmAttempts: attempts,
		confirmInterval: interval,
	}, nil
}

// WalletAddress returns the wallet's public key as a Base58 string.
func (c *Client) WalletAddress() string {
	return c.publicKey.String()
}

// Balance returns the wallet's native balance in lamports.
func (c *Client) Balance(ctx context.Context) (uint64, error) {
	balance, err := c.rpc.GetBalance(ctx, c.publicKey, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance.Value, nil
}

// TokenBalance returns the wallet's balance for an SPL token in the token's
// minor units, summed across all token accounts for the mint.
func (c *Client) TokenBalance(ctx context.Context, mintAddress string) (uint64, error) {
	mint, err := solana.PublicKeyFromBase58(mintAddress)
	if err != nil {
		return 0, fmt.Errorf("invalid mint address: %w", err)
	}

	accounts, err := c.rpc.GetTokenAccountsByOwner(
		ctx,
		c.publicKey,
		&rpc.GetTokenAccountsConfig{Mint: &mint},
		&rpc.GetTokenAccountsOpts{Encoding: solana.EncodingJSONParsed},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to get token accounts: %w", err)
	}

	// The parsed account data carries the raw integer amount as a string;
	// uiAmount is a float and is not used here.
	var total uint64
	for _, account := range accounts.Value {
		raw := account.Account.Data.GetRawJSON()
		if raw == nil {
			continue
		}
		var parsed struct {
			Parsed struct {
				Info struct {
					TokenAmount struct {
						Amount string `json:"amount"`
					} `json:"tokenAmount"`
				} `json:"info"`
			} `json:"parsed"`
		}
		if err := json.Unmarshal(raw, &parsed); err != nil {
			continue
		}
		amount, err := strconv.ParseUint(parsed.Parsed.Info.TokenAmount.Amount, 10, 64)
		if err != nil {
			continue
		}
		total += amount
	}

	return total, nil
}

// VerifyMinimumBalance reports whether the wallet holds at least min lamports.
func (c *Client) VerifyMinimumBalance(ctx context.Context, min uint64) (bool, error) {
	balance, err := c.Balance(ctx)
	if err != nil {
		return false, err
	}
	return balance >= min, nil
}

// SignAndSend deserializes a Base64-encoded transaction, signs it with the
// held key, and submits it. The returned signature identifies the submission;
// it says nothing about confirmation.
func (c *Client) SignAndSend(ctx context.Context, txBase64 string) (string, error) {
	txBytes, err := base64.StdEncoding.DecodeString(txBase64)
	if err != nil {
		return "", fmt.Errorf("failed to decode transaction: %w", err)
	}

	tx, err := solana.TransactionFromBytes(txBytes)
	if err != nil {
		return "", fmt.Errorf("failed to parse transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if c.publicKey.Equals(key) {
			return &c.privateKey
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := c.rpc.SendTransactionWithOpts(
		ctx,
		tx,
		rpc.TransactionOpts{
			SkipPreflight:       false,
			PreflightCommitment: rpc.CommitmentConfirmed,
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}

	return sig.String(), nil
}

// WaitForConfirmation polls the transaction status until it reaches
// confirmed/finalized, fails on-chain, or the attempt budget is exhausted.
// Returns nil on success, ErrTransactionFailed (wrapped) on an on-chain
// error, and ErrConfirmationTimeout when the budget runs out. The loop is
// cancellable through ctx at every suspend point.
func (c *Client) WaitForConfirmation(ctx context.Context, signature string) error {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return fmt.Errorf("invalid signature: %w", err)
	}

	ticker := time.NewTicker(c.confirmInterval)
	defer ticker.Stop()

	for attempt := 0; attempt < c.confirmAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		statuses, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			// Transient RPC errors burn an attempt but do not abort the wait.
			continue
		}
		if len(statuses.Value) == 0 || statuses.Value[0] == nil {
			continue // Not observed by the cluster yet
		}

		status := statuses.Value[0]
		if status.Err != nil {
			return fmt.Errorf("%w: %v", ErrTransactionFailed, status.Err)
		}
		if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
			status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrConfirmationTimeout, signature)
}

package ports

import "context"

// Signer is the opaque signing capability. Key management lives behind it.
type Signer interface {
	// PublicKey returns the wallet public identifier in base58.
	PublicKey() string

	// Sign signs an unsigned transaction payload and returns the signed bytes.
	Sign(unsignedTx []byte) ([]byte, error)
}

// Venue submits transactions and answers balance queries on the execution venue.
type Venue interface {
	// SubmitAndConfirm submits a signed transaction and waits for venue-level
	// confirmation. Returns the transaction signature.
	SubmitAndConfirm(ctx context.Context, signedTx []byte) (string, error)

	// TokenBalance returns the raw token balance (base units) held by wallet.
	// Zero if no holding.
	TokenBalance(ctx context.Context, wallet, mint string) (uint64, error)

	// SOLBalance returns the wallet's native SOL balance.
	SOLBalance(ctx context.Context, wallet string) (float64, error)
}

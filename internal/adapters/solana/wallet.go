package solana

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

const signatureLen = 64

// Wallet es la capacidad de firma local. Implementa ports.Signer.
// La clave privada es el formato estándar de 64 bytes (seed + pubkey)
// codificado en base58.
type Wallet struct {
	key    ed25519.PrivateKey
	pubkey string
}

// NewWallet construye el wallet desde la clave privada en base58.
func NewWallet(privateKeyB58 string) (*Wallet, error) {
	raw, err := base58.Decode(privateKeyB58)
	if err != nil {
		return nil, fmt.Errorf("solana.NewWallet: decode key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("solana.NewWallet: key must be %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}

	key := ed25519.PrivateKey(raw)
	pub := key.Public().(ed25519.PublicKey)
	return &Wallet{key: key, pubkey: base58.Encode(pub)}, nil
}

// PublicKey devuelve la clave pública del wallet en base58.
func (w *Wallet) PublicKey() string {
	return w.pubkey
}

// Sign firma una transacción sin firmar (legacy o versioned) colocando la
// firma en el slot 0. El mensaje empieza después del array compacto de
// firmas; el builder del agregador deja los slots a cero.
func (w *Wallet) Sign(unsignedTx []byte) ([]byte, error) {
	numSigs, headerLen, err := decodeCompactU16(unsignedTx)
	if err != nil {
		return nil, fmt.Errorf("solana.Sign: parse signature count: %w", err)
	}
	if numSigs == 0 {
		return nil, fmt.Errorf("solana.Sign: transaction reserves no signature slots")
	}

	msgStart := headerLen + numSigs*signatureLen
	if len(unsignedTx) < msgStart {
		return nil, fmt.Errorf("solana.Sign: truncated transaction (%d bytes)", len(unsignedTx))
	}

	signed := make([]byte, len(unsignedTx))
	copy(signed, unsignedTx)

	sig := ed25519.Sign(w.key, unsignedTx[msgStart:])
	copy(signed[headerLen:headerLen+signatureLen], sig)
	return signed, nil
}

// decodeCompactU16 decodifica el prefijo compact-u16 del wire format.
func decodeCompactU16(b []byte) (value, size int, err error) {
	for i := 0; i < 3; i++ {
		if i >= len(b) {
			return 0, 0, fmt.Errorf("unexpected end of input")
		}
		value |= int(b[i]&0x7f) << (7 * i)
		if b[i]&0x80 == 0 {
			return value, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("compact-u16 too long")
}

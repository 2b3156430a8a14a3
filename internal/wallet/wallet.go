// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// ErrUnknownKey возвращается, когда кошелёк не владеет запрошенным ключом.
var ErrUnknownKey = errors.New("wallet does not hold key")

// Wallet представляет кошелёк Solana. Приватный ключ наружу не отдаётся.
type Wallet struct {
	privateKey solana.PrivateKey
	PublicKey  solana.PublicKey
}

// NewWallet создаёт новый кошелёк из base58-encoded приватного ключа.
func NewWallet(privateKeyBase58 string) (*Wallet, error) {
	privateKeyBytes, err := base58.Decode(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	if len(privateKeyBytes) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(privateKeyBytes))
	}
	return FromPrivateKey(solana.PrivateKey(privateKeyBytes)), nil
}

// FromPrivateKey оборачивает уже загруженный ключ.
func FromPrivateKey(privateKey solana.PrivateKey) *Wallet {
	return &Wallet{
		privateKey: privateKey,
		PublicKey:  privateKey.PublicKey(),
	}
}

// Sign подписывает сообщение, если key принадлежит кошельку.
func (w *Wallet) Sign(key solana.PublicKey, message []byte) (solana.Signature, error) {
	if !key.Equals(w.PublicKey) {
		return solana.Signature{}, fmt.Errorf("%w %s", ErrUnknownKey, key)
	}
	return w.privateKey.Sign(message)
}

// String возвращает строковое представление кошелька (его публичный ключ).
func (w *Wallet) String() string {
	return w.PublicKey.String()
}

// Keyring signs for several wallets, e.g. a fee payer plus extra signers.
type Keyring struct {
	wallets map[solana.PublicKey]*Wallet
}

// NewKeyring builds a keyring from wallets.
func NewKeyring(wallets ...*Wallet) *Keyring {
	k := &Keyring{wallets: make(map[solana.PublicKey]*Wallet, len(wallets))}
	for _, w := range wallets {
		k.wallets[w.PublicKey] = w
	}
	return k
}

// Sign подписывает сообщение кошельком, владеющим key.
func (k *Keyring) Sign(key solana.PublicKey, message []byte) (solana.Signature, error) {
	w, ok := k.wallets[key]
	if !ok {
		return solana.Signature{}, fmt.Errorf("%w %s", ErrUnknownKey, key)
	}
	return w.Sign(key, message)
}

// Keys returns the public keys held by the keyring.
func (k *Keyring) Keys() []solana.PublicKey {
	keys := make([]solana.PublicKey, 0, len(k.wallets))
	for key := range k.wallets {
		keys = append(keys, key)
	}
	return keys
}

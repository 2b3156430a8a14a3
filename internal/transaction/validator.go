package transaction

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Signer produces signatures for the keys it holds without exposing them.
type Signer interface {
	Sign(key solana.PublicKey, message []byte) (solana.Signature, error)
}

type Validator struct {
	logger *zap.Logger
}

func NewValidator(logger *zap.Logger) *Validator {
	return &Validator{
		logger: logger.Named("tx-validator"),
	}
}

// ValidateTransaction checks a signed transaction before it is sent.
func (v *Validator) ValidateTransaction(tx *solana.Transaction) error {
	if err := v.ValidateBlockhash(tx); err != nil {
		return err
	}
	if err := v.ValidateInstructions(tx.Message.Instructions); err != nil {
		return err
	}
	return v.ValidateSignatures(tx)
}

// ValidateSignatures requires one valid signature per required signer.
func (v *Validator) ValidateSignatures(tx *solana.Transaction) error {
	required := int(tx.Message.Header.NumRequiredSignatures)
	if required == 0 || len(tx.Signatures) != required {
		return fmt.Errorf("%w: have %d signatures, need %d", ErrInvalidSignature, len(tx.Signatures), required)
	}
	message, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	for i, sig := range tx.Signatures {
		key := tx.Message.AccountKeys[i]
		if sig.IsZero() || !sig.Verify(key, message) {
			v.logger.Warn("Signature does not verify", zap.String("key", key.String()))
			return fmt.Errorf("%w: signer %s", ErrInvalidSignature, key)
		}
	}
	return nil
}

func (v *Validator) ValidateBlockhash(tx *solana.Transaction) error {
	if tx.Message.RecentBlockhash.IsZero() {
		return ErrInvalidBlockhash
	}
	return nil
}

func (v *Validator) ValidateInstructions(instructions []solana.CompiledInstruction) error {
	if len(instructions) == 0 {
		return ErrInvalidInstruction
	}
	return nil
}

// signTransaction signs every required signer of tx with signer.
func signTransaction(tx *solana.Transaction, signer Signer) error {
	message, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	required := int(tx.Message.Header.NumRequiredSignatures)
	signatures := make([]solana.Signature, required)
	for i := 0; i < required; i++ {
		key := tx.Message.AccountKeys[i]
		sig, err := signer.Sign(key, message)
		if err != nil {
			return fmt.Errorf("%w %s: %v", ErrMissingSigner, key, err)
		}
		signatures[i] = sig
	}
	tx.Signatures = signatures
	return nil
}

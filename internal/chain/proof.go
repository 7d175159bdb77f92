package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Wallet ownership proof via EIP-191 personal_sign. The server hands out a
// one-shot nonce; the wallet signs SignableMessage(nonce); the server recovers
// the signing address and binds it to the user.

const signMessagePrefix = "JobMate wallet verification\nnonce: "

// SignableMessage is the exact text the wallet is asked to sign.
func SignableMessage(nonce string) string {
	return signMessagePrefix + nonce
}

// RecoverSigner returns the address that produced a personal_sign signature
// over message. Accepts both 0/1 and 27/28 recovery id encodings.
func RecoverSigner(message string, signature []byte) (common.Address, error) {
	if len(signature) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("invalid signature length %d", len(signature))
	}

	sig := make([]byte, crypto.SignatureLength)
	copy(sig, signature)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// VerifyOwnership checks that signature over SignableMessage(nonce) was made
// by wallet.
func VerifyOwnership(nonce string, signature []byte, wallet common.Address) error {
	recovered, err := RecoverSigner(SignableMessage(nonce), signature)
	if err != nil {
		return err
	}
	if recovered != wallet {
		return fmt.Errorf("signature was made by %s, not %s", recovered.Hex(), wallet.Hex())
	}
	return nil
}

package chain

import (
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
)

func TestVerifyOwnershipRoundTrip(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	wallet := crypto.PubkeyToAddress(key.PublicKey)

	nonce := "d9f1a2b3-nonce"
	sig, err := crypto.Sign(accounts.TextHash([]byte(SignableMessage(nonce))), key)
	if err != nil {
		t.Fatal(err)
	}

	if err := VerifyOwnership(nonce, sig, wallet); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}

	// Browser wallets encode the recovery id as 27/28.
	legacy := make([]byte, len(sig))
	copy(legacy, sig)
	legacy[crypto.RecoveryIDOffset] += 27
	if err := VerifyOwnership(nonce, legacy, wallet); err != nil {
		t.Fatalf("27/28 encoded signature rejected: %v", err)
	}
}

func TestVerifyOwnershipRejectsWrongWallet(t *testing.T) {
	key, _ := crypto.GenerateKey()
	other, _ := crypto.GenerateKey()
	otherWallet := crypto.PubkeyToAddress(other.PublicKey)

	nonce := "single-use"
	sig, err := crypto.Sign(accounts.TextHash([]byte(SignableMessage(nonce))), key)
	if err != nil {
		t.Fatal(err)
	}

	if err := VerifyOwnership(nonce, sig, otherWallet); err == nil {
		t.Fatal("signature from a different key must not verify")
	}
}

func TestVerifyOwnershipRejectsWrongNonce(t *testing.T) {
	key, _ := crypto.GenerateKey()
	wallet := crypto.PubkeyToAddress(key.PublicKey)

	sig, err := crypto.Sign(accounts.TextHash([]byte(SignableMessage("nonce-a"))), key)
	if err != nil {
		t.Fatal(err)
	}

	if err := VerifyOwnership("nonce-b", sig, wallet); err == nil {
		t.Fatal("signature over a different nonce must not verify")
	}
}

func TestRecoverSignerRejectsShortSignature(t *testing.T) {
	if _, err := RecoverSigner("msg", []byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for truncated signature")
	}
}

package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer holds a private key able to transact as one wallet address.
type Signer struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

func NewSigner(hexKey string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid signer key: %w", err)
	}
	return &Signer{key: key, addr: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

func (s *Signer) Address() common.Address {
	return s.addr
}

// TransactOpts builds confirmed-write options bound to ctx, so an abandoned
// caller cancels the confirmation wait without leaving local state behind.
func (s *Signer) TransactOpts(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, chainID)
	if err != nil {
		return nil, fmt.Errorf("build transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

// Keyring maps wallet addresses to their signers. Keys are loaded from config
// at startup; a wallet without a signer counts as "not connected".
type Keyring struct {
	chainID *big.Int
	signers map[common.Address]*Signer
}

func NewKeyring(chainID *big.Int, hexKeys []string) (*Keyring, error) {
	k := &Keyring{chainID: chainID, signers: make(map[common.Address]*Signer, len(hexKeys))}
	for _, raw := range hexKeys {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		s, err := NewSigner(raw)
		if err != nil {
			return nil, err
		}
		k.signers[s.Address()] = s
	}
	return k, nil
}

func (k *Keyring) ChainID() *big.Int {
	return k.chainID
}

// Signer resolves the signer for a wallet, if one is connected.
func (k *Keyring) Signer(addr common.Address) (*Signer, bool) {
	s, ok := k.signers[addr]
	return s, ok
}

func (k *Keyring) Addresses() []common.Address {
	addrs := make([]common.Address, 0, len(k.signers))
	for addr := range k.signers {
		addrs = append(addrs, addr)
	}
	return addrs
}

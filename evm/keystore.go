package evm

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"

	checkout "github.com/lumenlabs/checkout-go"
)

// WithKeystore loads the session key from an encrypted V3 keystore file.
func WithKeystore(path, password string) SignerOption {
	return func(s *Signer) error {
		encrypted, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("%w: %v", checkout.ErrInvalidKeystore, err)
		}

		key, err := keystore.DecryptKey(encrypted, password)
		if err != nil {
			return fmt.Errorf("%w: %v", checkout.ErrInvalidKeystore, err)
		}

		s.privateKey = key.PrivateKey
		return nil
	}
}

// sessionKeyPath is the hardened prefix of the BIP-44 derivation path used
// for session keys, m/44'/60'/0'/0; the account index is appended per key.
var sessionKeyPath = []uint32{
	bip32.FirstHardenedChild + 44,
	bip32.FirstHardenedChild + 60,
	bip32.FirstHardenedChild,
	0,
}

// WithMnemonic derives the session key at m/44'/60'/0'/0/{index} from a
// BIP-39 recovery phrase.
func WithMnemonic(mnemonic string, index uint32) SignerOption {
	return func(s *Signer) error {
		if !bip39.IsMnemonicValid(mnemonic) {
			return checkout.ErrInvalidMnemonic
		}

		node, err := bip32.NewMasterKey(bip39.NewSeed(mnemonic, ""))
		if err != nil {
			return fmt.Errorf("%w: %v", checkout.ErrInvalidMnemonic, err)
		}
		for _, step := range sessionKeyPath {
			if node, err = node.NewChildKey(step); err != nil {
				return fmt.Errorf("%w: %v", checkout.ErrInvalidMnemonic, err)
			}
		}
		if node, err = node.NewChildKey(index); err != nil {
			return fmt.Errorf("%w: %v", checkout.ErrInvalidMnemonic, err)
		}

		privateKey, err := crypto.ToECDSA(node.Key)
		if err != nil {
			return fmt.Errorf("%w: %v", checkout.ErrInvalidMnemonic, err)
		}

		s.privateKey = privateKey
		return nil
	}
}

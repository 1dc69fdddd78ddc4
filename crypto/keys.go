package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix defines the human-readable part of an encoded identity.
type AddressPrefix string

// WLDPrefix is used for every identity on the node: donors, recipients,
// assets and badge holders share the same address space.
const WLDPrefix AddressPrefix = "wld"

// AddressLength is the size in bytes of a raw identity.
const AddressLength = 20

var (
	// ErrInvalidSignature marks signatures that cannot be recovered.
	ErrInvalidSignature = errors.New("crypto: invalid signature")
	// ErrUnexpectedPrefix marks addresses encoded for a different network.
	ErrUnexpectedPrefix = errors.New("crypto: unexpected address prefix")
)

// Address represents a 20-byte identity with a specific prefix.
type Address struct {
	prefix AddressPrefix
	bytes  []byte
}

func NewAddress(prefix AddressPrefix, b []byte) Address {
	if len(b) != AddressLength {
		panic("address must be 20 bytes long")
	}
	return Address{prefix: prefix, bytes: append([]byte(nil), b...)}
}

// AddressFromRaw wraps a raw identity with the node prefix.
func AddressFromRaw(raw [20]byte) Address {
	return NewAddress(WLDPrefix, raw[:])
}

func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes, 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

func (a Address) Bytes() []byte {
	return a.bytes
}

// Raw returns the address as a fixed-size array suitable for state keys.
func (a Address) Raw() [20]byte {
	var out [20]byte
	copy(out[:], a.bytes)
	return out
}

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix {
	return a.prefix
}

func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(strings.TrimSpace(addrStr))
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	if len(conv) != AddressLength {
		return Address{}, fmt.Errorf("invalid address length %d", len(conv))
	}
	return NewAddress(AddressPrefix(prefix), conv), nil
}

// ParseAddress decodes a wld1… string into a raw identity, rejecting other
// prefixes.
func ParseAddress(addrStr string) ([20]byte, error) {
	addr, err := DecodeAddress(addrStr)
	if err != nil {
		return [20]byte{}, err
	}
	if addr.Prefix() != WLDPrefix {
		return [20]byte{}, fmt.Errorf("%w: %s", ErrUnexpectedPrefix, addr.Prefix())
	}
	return addr.Raw(), nil
}

// --- Key Management ---

type PrivateKey struct {
	*ecdsa.PrivateKey
}

type PublicKey struct {
	*ecdsa.PublicKey
}

func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := ecdsa.GenerateKey(crypto.S256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// Bytes returns the byte representation of the private key.
func (k *PrivateKey) Bytes() []byte {
	return crypto.FromECDSA(k.PrivateKey)
}

func (k *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{&k.PrivateKey.PublicKey}
}

// Sign produces a 65-byte recoverable signature over a 32-byte digest.
func (k *PrivateKey) Sign(digest []byte) ([]byte, error) {
	return crypto.Sign(digest, k.PrivateKey)
}

func (k *PublicKey) Address() Address {
	addrBytes := crypto.PubkeyToAddress(*k.PublicKey).Bytes()
	return NewAddress(WLDPrefix, addrBytes)
}

func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	key, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// RecoverAddress returns the identity whose key produced sig over digest.
func RecoverAddress(digest, sig []byte) ([20]byte, error) {
	if len(sig) != crypto.SignatureLength || len(digest) != crypto.DigestLength {
		return [20]byte{}, ErrInvalidSignature
	}
	pubKey, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return [20]byte{}, ErrInvalidSignature
	}
	var out [20]byte
	copy(out[:], crypto.PubkeyToAddress(*pubKey).Bytes())
	return out, nil
}

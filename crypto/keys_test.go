package crypto

import (
	"errors"
	"path/filepath"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

func TestAddressRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	addr := key.PubKey().Address()
	encoded := addr.String()
	if encoded[:4] != "wld1" {
		t.Fatalf("unexpected encoding %s", encoded)
	}
	raw, err := ParseAddress(encoded)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if raw != addr.Raw() {
		t.Fatalf("round trip mismatch")
	}
	if AddressFromRaw(raw).String() != encoded {
		t.Fatalf("AddressFromRaw mismatch")
	}
}

func TestParseAddressRejectsForeignPrefix(t *testing.T) {
	var raw [20]byte
	raw[0] = 1
	foreign := NewAddress(AddressPrefix("nhb"), raw[:]).String()
	if _, err := ParseAddress(foreign); !errors.Is(err, ErrUnexpectedPrefix) {
		t.Fatalf("expected prefix error, got %v", err)
	}
	if _, err := ParseAddress("not-an-address"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestSignAndRecover(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	digest := ethcrypto.Keccak256([]byte("donate"))
	sig, err := key.Sign(digest)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	recovered, err := RecoverAddress(digest, sig)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if recovered != key.PubKey().Address().Raw() {
		t.Fatalf("recovered wrong signer")
	}
	if _, err := RecoverAddress(digest, sig[:10]); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected invalid signature, got %v", err)
	}
}

func TestKeystoreRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	path := filepath.Join(t.TempDir(), "keys", "donor.keystore")
	if err := SaveToKeystore(path, key, "secret"); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadFromKeystore(path, "secret")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.PubKey().Address().String() != key.PubKey().Address().String() {
		t.Fatalf("loaded key does not match")
	}
	if _, err := LoadFromKeystore(path, "wrong"); err == nil {
		t.Fatalf("expected wrong passphrase to fail")
	}
}

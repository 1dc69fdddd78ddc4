package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/lober-org/welovedogs/crypto"
)

// DefaultChainID is the chain identifier bound into every signed call digest.
const DefaultChainID uint64 = 0x776c64

var (
	// ErrInvalidSignature indicates the envelope signature does not recover to
	// the declared signer.
	ErrInvalidSignature = errors.New("core: invalid signature")
	// ErrNonceMismatch indicates the envelope nonce is not the signer's next nonce.
	ErrNonceMismatch = errors.New("core: nonce mismatch")
	// ErrMethodMismatch indicates an envelope was submitted to the wrong operation.
	ErrMethodMismatch = errors.New("core: method mismatch")
	// ErrInvalidPayload indicates the envelope payload could not be decoded.
	ErrInvalidPayload = errors.New("core: invalid payload")
)

// SignedCall is the envelope proving that Signer authorised a contract call.
type SignedCall struct {
	Method    string          `json:"method"`
	Payload   json.RawMessage `json:"payload"`
	Signer    string          `json:"signer"`
	Nonce     uint64          `json:"nonce"`
	Signature string          `json:"signature,omitempty"`
}

// NewSignedCall builds an unsigned envelope for method with the JSON encoding
// of payload.
func NewSignedCall(method string, payload interface{}) (*SignedCall, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &SignedCall{Method: method, Payload: raw}, nil
}

// CanonicalJSON returns the byte string covered by the signature.
func (c *SignedCall) CanonicalJSON(chainID uint64) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil call", ErrInvalidPayload)
	}
	method := strings.TrimSpace(c.Method)
	if method == "" {
		return nil, fmt.Errorf("method required")
	}
	signer := strings.TrimSpace(c.Signer)
	if signer == "" {
		return nil, fmt.Errorf("signer required")
	}
	payload := []byte("{}")
	if len(bytes.TrimSpace(c.Payload)) > 0 {
		var compact bytes.Buffer
		if err := json.Compact(&compact, c.Payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		payload = compact.Bytes()
	}
	canonical := struct {
		ChainID uint64          `json:"chainId"`
		Method  string          `json:"method"`
		Signer  string          `json:"signer"`
		Nonce   uint64          `json:"nonce"`
		Payload json.RawMessage `json:"payload"`
	}{
		ChainID: chainID,
		Method:  method,
		Signer:  signer,
		Nonce:   c.Nonce,
		Payload: payload,
	}
	return json.Marshal(canonical)
}

// Digest computes the keccak256 hash over the canonical JSON representation.
func (c *SignedCall) Digest(chainID uint64) ([]byte, error) {
	canonical, err := c.CanonicalJSON(chainID)
	if err != nil {
		return nil, err
	}
	return ethcrypto.Keccak256(canonical), nil
}

// Sign fills in Signer and Signature using key.
func (c *SignedCall) Sign(key *crypto.PrivateKey, chainID uint64) error {
	if c == nil || key == nil {
		return fmt.Errorf("%w: nil call or key", ErrInvalidPayload)
	}
	c.Signer = key.PubKey().Address().String()
	digest, err := c.Digest(chainID)
	if err != nil {
		return err
	}
	sig, err := key.Sign(digest)
	if err != nil {
		return err
	}
	c.Signature = hexutil.Encode(sig)
	return nil
}

// Verify recovers the signer and checks it against the declared identity.
func (c *SignedCall) Verify(chainID uint64) ([20]byte, error) {
	if c == nil {
		return [20]byte{}, ErrInvalidSignature
	}
	declared, err := crypto.ParseAddress(c.Signer)
	if err != nil {
		return [20]byte{}, fmt.Errorf("%w: signer: %v", ErrInvalidSignature, err)
	}
	sig, err := hexutil.Decode(strings.TrimSpace(c.Signature))
	if err != nil {
		return [20]byte{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	digest, err := c.Digest(chainID)
	if err != nil {
		return [20]byte{}, err
	}
	recovered, err := crypto.RecoverAddress(digest, sig)
	if err != nil {
		return [20]byte{}, ErrInvalidSignature
	}
	if recovered != declared {
		return [20]byte{}, ErrInvalidSignature
	}
	return recovered, nil
}

func (c *SignedCall) decode(method string, out interface{}) error {
	if c == nil {
		return fmt.Errorf("%w: nil call", ErrInvalidPayload)
	}
	if strings.TrimSpace(c.Method) != method {
		return fmt.Errorf("%w: expected %s, got %s", ErrMethodMismatch, method, c.Method)
	}
	if len(bytes.TrimSpace(c.Payload)) == 0 {
		return fmt.Errorf("%w: empty payload", ErrInvalidPayload)
	}
	dec := json.NewDecoder(bytes.NewReader(c.Payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

package wallet

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/dmitrymomot/authkit/pkg/sanitizer"
	"github.com/dmitrymomot/authkit/pkg/siwe"
)

// NonceConsumer burns a challenge nonce for an address. Satisfied by
// *nonce.Service; an interface keeps the verifier testable in isolation.
type NonceConsumer interface {
	Consume(ctx context.Context, address, token string) (bool, error)
}

// Verifier checks that a signed sign-in message proves control of a claimed
// wallet address.
type Verifier struct {
	nonces NonceConsumer
}

// NewVerifier creates a signature verifier that validates challenge nonces
// through the given consumer.
func NewVerifier(nonces NonceConsumer) *Verifier {
	return &Verifier{nonces: nonces}
}

// Verify runs the full proof-of-ownership check:
//
//  1. parse the message; reject malformed input;
//  2. compare the claimed address to the embedded one (case-insensitive);
//  3. consume the embedded nonce against the message address;
//  4. recover the signer from the personal-message signature;
//  5. compare the recovered address to the claimed one.
//
// Nonce consumption happens only after steps 1-2 succeed, so malformed input
// can never burn a legitimate nonce. Any failure after step 3 still leaves the
// nonce consumed: a spent challenge cannot be retried even on a signature
// mismatch, which blocks nonce-grinding.
func (v *Verifier) Verify(ctx context.Context, message, signature, claimedAddress string) error {
	msg := siwe.Parse(message)
	if msg == nil {
		return ErrMalformedMessage
	}

	claimed := sanitizer.NormalizeWalletAddress(claimedAddress)
	if claimed != sanitizer.NormalizeWalletAddress(msg.Address) {
		return ErrAddressMismatch
	}

	ok, err := v.nonces.Consume(ctx, msg.Address, msg.Nonce)
	if err != nil {
		return fmt.Errorf("nonce check failed: %w", err)
	}
	if !ok {
		return ErrNonceInvalid
	}

	recovered, err := RecoverAddress(message, signature)
	if err != nil {
		return ErrInvalidSignature
	}

	if sanitizer.NormalizeWalletAddress(recovered) != claimed {
		return ErrInvalidSignature
	}

	return nil
}

// RecoverAddress derives the address that produced the given personal-message
// signature over the given message text.
func RecoverAddress(message, signature string) (string, error) {
	sig, err := decodeSignature(signature)
	if err != nil {
		return "", err
	}

	pub, err := crypto.SigToPub(personalHash(message), sig)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	return crypto.PubkeyToAddress(*pub).Hex(), nil
}

// personalHash computes the EIP-191 personal-message digest wallets sign.
func personalHash(message string) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return crypto.Keccak256([]byte(prefixed))
}

// decodeSignature parses a 65-byte r||s||v hex signature, normalizing the
// legacy recovery id (27/28) wallets produce to the 0/1 form secp256k1 expects.
func decodeSignature(signature string) ([]byte, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(signature), "0x")

	sig, err := hex.DecodeString(raw)
	if err != nil {
		return nil, ErrInvalidSignature
	}
	if len(sig) != crypto.SignatureLength {
		return nil, ErrInvalidSignature
	}

	if sig[64] >= 27 {
		sig[64] -= 27
	}
	if sig[64] > 1 {
		return nil, ErrInvalidSignature
	}

	return sig, nil
}

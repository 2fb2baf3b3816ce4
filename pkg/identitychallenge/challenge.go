// Package identitychallenge implements the one-shot liveness proof of §4.4:
// a verifier issues a random nonce, a prover signs it, and the verifier
// checks the signature against an expected set of verified parties.
package identitychallenge

import (
	"crypto/rand"
	"errors"
	"io"

	"github.com/luxfi/wamu/pkg/identity"
	"github.com/luxfi/wamu/pkg/wamucrypto"
)

const nonceSize = 32

// ErrUnauthorizedParty is returned when the signature is valid but the
// signer's verifying key is not among the expected verified parties.
var ErrUnauthorizedParty = errors.New("identitychallenge: signer is not a verified party")

// NewNonce generates a fresh 32-byte random challenge nonce.
func NewNonce() ([nonceSize]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nonce, err
	}
	return nonce, nil
}

// Respond has the prover sign the challenge nonce.
func Respond(prover identity.Provider, nonce [nonceSize]byte) (wamucrypto.Signature, error) {
	return prover.Sign(nonce[:])
}

// Verify checks that sig is a valid signature over nonce under
// verifyingKey, and that verifyingKey belongs to one of the
// verifiedParties.
func Verify(verifiedParties []wamucrypto.VerifyingKey, verifyingKey wamucrypto.VerifyingKey, nonce [nonceSize]byte, sig wamucrypto.Signature) error {
	if err := wamucrypto.Verify(verifyingKey, nonce[:], sig); err != nil {
		return err
	}
	found := false
	for _, vp := range verifiedParties {
		if vp.Equal(verifyingKey) {
			found = true
			break
		}
	}
	if !found {
		return ErrUnauthorizedParty
	}
	return nil
}

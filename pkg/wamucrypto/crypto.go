// Package wamucrypto provides the signature verification and random
// sampling primitives described in §4.1. It is intentionally narrow:
// Verify accepts ECDSA over secp256k1 with a SHA-256 digest, a SEC1-encoded
// verifying key and a DER-encoded signature, and EdDSA over Curve25519
// (Ed25519, with the signature's Enc tagged DER); every other combination is
// accepted as a value but rejected by Verify with an UnsupportedX error,
// mirroring `original_source/crates/core/src/crypto.rs`'s `verify_signature`.
package wamucrypto

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"

	"github.com/luxfi/wamu/pkg/curve"
)

// Algorithm is a signature scheme.
type Algorithm int

const (
	ECDSA Algorithm = iota
	EdDSA
)

// EllipticCurve identifies the curve a key or signature is defined over.
type EllipticCurve int

const (
	Secp256k1 EllipticCurve = iota
	Curve25519
)

// MessageDigest identifies the hash function a signature was computed over.
type MessageDigest int

const (
	SHA256 MessageDigest = iota
	Keccak256
)

// KeyEncoding identifies the byte encoding of a VerifyingKey.
type KeyEncoding int

const (
	SEC1 KeyEncoding = iota
	EIP55
)

// SignatureEncoding identifies the byte encoding of a Signature.
type SignatureEncoding int

const (
	DER SignatureEncoding = iota
	RLP
)

// VerifyingKey is a party's public signing key, tagged with the scheme it
// belongs to so verification can detect a scheme mismatch before attempting
// to decode any bytes.
type VerifyingKey struct {
	KeyBytes []byte
	Algo     Algorithm
	Curve    EllipticCurve
	Enc      KeyEncoding
}

// Equal performs a byte-for-byte comparison including scheme tags.
func (v VerifyingKey) Equal(other VerifyingKey) bool {
	if v.Algo != other.Algo || v.Curve != other.Curve || v.Enc != other.Enc {
		return false
	}
	if len(v.KeyBytes) != len(other.KeyBytes) {
		return false
	}
	for i := range v.KeyBytes {
		if v.KeyBytes[i] != other.KeyBytes[i] {
			return false
		}
	}
	return true
}

// Signature is a signature over some message, tagged with the scheme,
// digest and encoding used to produce it.
type Signature struct {
	SigBytes []byte
	Algo     Algorithm
	Curve    EllipticCurve
	Digest   MessageDigest
	Enc      SignatureEncoding
}

// Error kinds for Verify, per §4.1.
var (
	ErrSchemeMismatch      = errors.New("wamucrypto: verifying key and signature scheme mismatch")
	ErrUnsupportedScheme   = errors.New("wamucrypto: unsupported (algorithm, curve) combination")
	ErrUnsupportedDigest   = errors.New("wamucrypto: unsupported message digest")
	ErrUnsupportedEncoding = errors.New("wamucrypto: unsupported key or signature encoding")
	ErrInvalidVerifyingKey = errors.New("wamucrypto: invalid verifying key bytes")
	ErrInvalidSignature    = errors.New("wamucrypto: signature failed to verify")
)

// Verify checks that signature is a valid signature over msg under
// verifyingKey, returning one of the sentinel errors above on failure.
func Verify(verifyingKey VerifyingKey, msg []byte, signature Signature) error {
	if verifyingKey.Algo != signature.Algo || verifyingKey.Curve != signature.Curve {
		return ErrSchemeMismatch
	}

	switch {
	case verifyingKey.Algo == ECDSA && verifyingKey.Curve == Secp256k1:
		return verifyECDSASecp256k1(verifyingKey, msg, signature)
	case verifyingKey.Algo == EdDSA && verifyingKey.Curve == Curve25519:
		return verifyEdDSACurve25519(verifyingKey, msg, signature)
	default:
		return ErrUnsupportedScheme
	}
}

func verifyECDSASecp256k1(verifyingKey VerifyingKey, msg []byte, signature Signature) error {
	if signature.Digest != SHA256 {
		return ErrUnsupportedDigest
	}
	if verifyingKey.Enc != SEC1 || signature.Enc != DER {
		return ErrUnsupportedEncoding
	}
	pub, err := secp256k1.ParsePubKey(verifyingKey.KeyBytes)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidVerifyingKey, err)
	}
	sig, err := ecdsa.ParseDERSignature(signature.SigBytes)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	digest := sha256.Sum256(msg)
	if !sig.Verify(digest[:], pub) {
		return ErrInvalidSignature
	}
	return nil
}

func verifyEdDSACurve25519(verifyingKey VerifyingKey, msg []byte, signature Signature) error {
	if verifyingKey.Enc != SEC1 && verifyingKey.Enc != EIP55 {
		return ErrUnsupportedEncoding
	}
	if len(verifyingKey.KeyBytes) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: expected %d bytes", ErrInvalidVerifyingKey, ed25519.PublicKeySize)
	}
	if signature.Enc != DER {
		return ErrUnsupportedEncoding
	}
	if !ed25519.Verify(ed25519.PublicKey(verifyingKey.KeyBytes), msg, signature.SigBytes) {
		return ErrInvalidSignature
	}
	return nil
}

// DigestMessage applies the digest named by d, used by callers that need to
// hash a message the same way Verify will before comparing against a
// pre-computed digest (e.g. the signing augmentation's message prefixing).
func DigestMessage(d MessageDigest, msg []byte) ([]byte, error) {
	switch d {
	case SHA256:
		sum := sha256.Sum256(msg)
		return sum[:], nil
	case Keccak256:
		h := sha3.NewLegacyKeccak256()
		h.Write(msg)
		return h.Sum(nil), nil
	default:
		return nil, ErrUnsupportedDigest
	}
}

// RandomScalar re-exports curve.RandomScalar so callers only need to import
// one package for both verification and sampling, matching the pairing of
// `verify_signature`/`random_mod` in §4.1.
var RandomScalar = curve.RandomScalar

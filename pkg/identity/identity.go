// Package identity defines the decentralized-identity capability the core
// consumes (§4.2) and a deterministic mock implementation used by
// tests and the CLI's simulation mode. The core never stores or generates
// identity private keys itself — it only ever calls back into a Provider
// supplied by the host.
package identity

import (
	"crypto/rand"
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/luxfi/wamu/pkg/wamucrypto"
)

// Provider is the capability set §4.2 requires of a decentralized identity:
// a stable public key, and the ability to sign arbitrary messages both as a
// portable Signature and as raw (r, s) scalars. Implementations are
// supplied by the host (hardware wallet, browser extension, mobile secure
// enclave, ...).
type Provider interface {
	// VerifyingKey returns the identity's durable public key.
	VerifyingKey() wamucrypto.VerifyingKey
	// Sign computes a portable signature over an arbitrary message.
	Sign(msg []byte) (wamucrypto.Signature, error)
	// SignRaw computes a signature over msg and returns its (r, s)
	// components as big-endian 32-byte scalars. It MUST be deterministic
	// (e.g. RFC 6979) — reconstruct (§4.3) silently returns garbage for a
	// non-deterministic provider. See SelfTestDeterminism.
	SignRaw(msg []byte) (r [32]byte, s [32]byte, err error)
}

// ErrNonDeterministic is returned by SelfTestDeterminism when a provider's
// SignRaw does not reproduce the same output for the same input.
var ErrNonDeterministic = errors.New("identity: provider is not deterministic")

// SelfTestDeterminism signs a fixed input twice and compares the outputs.
// share.Split runs it first, so no share pair relying on §4.3's reconstruct
// is produced under a provider that fails the determinism precondition.
func SelfTestDeterminism(p Provider) error {
	const fixedInput = "wamu-identity-determinism-self-test"
	r1, s1, err := p.SignRaw([]byte(fixedInput))
	if err != nil {
		return err
	}
	r2, s2, err := p.SignRaw([]byte(fixedInput))
	if err != nil {
		return err
	}
	if r1 != r2 || s1 != s2 {
		return ErrNonDeterministic
	}
	return nil
}

// MockECDSAIdentityProvider is a deterministic ECDSA/secp256k1 identity
// provider, used for tests and for the CLI's `simulate` command. It signs
// with RFC 6979 deterministic nonces, matching
// `wamu-rs`'s `MockECDSAIdentityProvider` test fixture.
type MockECDSAIdentityProvider struct {
	priv *secp256k1.PrivateKey
}

// NewMockECDSAIdentityProvider generates a fresh identity keypair.
func NewMockECDSAIdentityProvider() (*MockECDSAIdentityProvider, error) {
	priv, err := secp256k1.GeneratePrivateKeyFromRand(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &MockECDSAIdentityProvider{priv: priv}, nil
}

// VerifyingKey implements Provider.
func (m *MockECDSAIdentityProvider) VerifyingKey() wamucrypto.VerifyingKey {
	return wamucrypto.VerifyingKey{
		KeyBytes: m.priv.PubKey().SerializeCompressed(),
		Algo:     wamucrypto.ECDSA,
		Curve:    wamucrypto.Secp256k1,
		Enc:      wamucrypto.SEC1,
	}
}

// Sign implements Provider, returning a DER-encoded ECDSA/SHA-256 signature.
func (m *MockECDSAIdentityProvider) Sign(msg []byte) (wamucrypto.Signature, error) {
	digest, err := wamucrypto.DigestMessage(wamucrypto.SHA256, msg)
	if err != nil {
		return wamucrypto.Signature{}, err
	}
	sig := ecdsa.Sign(m.priv, digest)
	return wamucrypto.Signature{
		SigBytes: sig.Serialize(),
		Algo:     wamucrypto.ECDSA,
		Curve:    wamucrypto.Secp256k1,
		Digest:   wamucrypto.SHA256,
		Enc:      wamucrypto.DER,
	}, nil
}

// SignRaw implements Provider.
func (m *MockECDSAIdentityProvider) SignRaw(msg []byte) (r [32]byte, s [32]byte, err error) {
	digest, err := wamucrypto.DigestMessage(wamucrypto.SHA256, msg)
	if err != nil {
		return r, s, err
	}
	sig := ecdsa.Sign(m.priv, digest)
	rs := sig.R()
	ss := sig.S()
	return rs.Bytes(), ss.Bytes(), nil
}

// Package share implements the §3 share model and the §4.3 split/reconstruct
// transform that binds a party's raw ECDSA secret share to its identity.
package share

import (
	"crypto/rand"

	"github.com/luxfi/wamu/pkg/curve"
	"github.com/luxfi/wamu/pkg/identity"
)

// SecretShare is a party's raw additive/Shamir share x_i of the wallet's
// secret key, reduced modulo q. It is never persisted: it exists only
// transiently during Split or Reconstruct and must be zeroized on every
// exit path.
type SecretShare struct {
	scalar curve.Scalar
}

// NewSecretShare wraps a 32-byte big-endian scalar as a SecretShare.
func NewSecretShare(b [32]byte) SecretShare {
	return SecretShare{scalar: curve.NewScalarFromBytes(b)}
}

// Bytes returns the big-endian encoding of the share.
func (s SecretShare) Bytes() [32]byte { return s.scalar.Bytes() }

// Equal reports whether s and other encode the same scalar.
func (s SecretShare) Equal(other SecretShare) bool { return s.scalar.Equal(other.scalar) }

// Zeroize overwrites the share's in-memory representation.
func (s *SecretShare) Zeroize() { s.scalar.Zeroize() }

// SigningShare is the γ half of a split (SigningShare, SubShare) pair: a
// uniformly random scalar, independent of x_i, persisted by the party.
type SigningShare struct {
	scalar curve.Scalar
}

// NewSigningShare wraps a 32-byte big-endian scalar as a SigningShare, for
// reconstituting a persisted share (e.g. from an EncryptedShareBackup).
func NewSigningShare(b [32]byte) SigningShare {
	return SigningShare{scalar: curve.NewScalarFromBytes(b)}
}

// Bytes returns the big-endian encoding of the signing share.
func (g SigningShare) Bytes() [32]byte { return g.scalar.Bytes() }

// Equal reports whether g and other encode the same scalar.
func (g SigningShare) Equal(other SigningShare) bool { return g.scalar.Equal(other.scalar) }

// Zeroize overwrites the signing share's in-memory representation.
func (g *SigningShare) Zeroize() { g.scalar.Zeroize() }

// SubShare is the (α, β) half of a split pair. β is a random blinding
// nonce; α is chosen so that SigningShare + α ≡ x_i (mod q) once combined
// with the identity's deterministic signature over β. Both components are
// treated as secret: β is itself an input to the identity's signing
// oracle, so disclosing it weakens the blinding it provides (§9 open
// question, resolved here in favor of secrecy).
type SubShare struct {
	alpha, beta curve.Scalar
}

// NewSubShare wraps a 32-byte big-endian (α, β) pair as a SubShare, for
// reconstituting a persisted share (e.g. from an EncryptedShareBackup).
func NewSubShare(alpha, beta [32]byte) SubShare {
	return SubShare{alpha: curve.NewScalarFromBytes(alpha), beta: curve.NewScalarFromBytes(beta)}
}

// AsTuple returns the (α, β) pair as big-endian byte arrays.
func (s SubShare) AsTuple() ([32]byte, [32]byte) {
	return s.alpha.Bytes(), s.beta.Bytes()
}

// Equal reports whether s and other encode the same (α, β) pair.
func (s SubShare) Equal(other SubShare) bool {
	return s.alpha.Equal(other.alpha) && s.beta.Equal(other.beta)
}

// Zeroize overwrites both components of the sub-share.
func (s *SubShare) Zeroize() {
	s.alpha.Zeroize()
	s.beta.Zeroize()
}

// Split transforms a raw secret share into a (SigningShare, SubShare) pair
// bound to identityProvider, per §4.3:
//
//	β ← random_scalar()
//	R_β := identityProvider.SignRaw(β).r
//	γ ← random_scalar()
//	α := (x_i - γ - R_β) mod q
//
// Split first runs identity.SelfTestDeterminism and rejects a provider
// that fails it. Split zeroizes x_i on every exit path once it has been
// consumed. It takes secretShare by pointer specifically so that
// zeroization is visible to the caller, not just to a local copy.
func Split(identityProvider identity.Provider, secretShare *SecretShare) (SigningShare, SubShare, error) {
	defer secretShare.Zeroize()

	if err := identity.SelfTestDeterminism(identityProvider); err != nil {
		return SigningShare{}, SubShare{}, err
	}

	beta, err := curve.RandomScalar(rand.Reader)
	if err != nil {
		return SigningShare{}, SubShare{}, err
	}
	betaBytes := beta.Bytes()

	rBytes, _, err := identityProvider.SignRaw(betaBytes[:])
	if err != nil {
		return SigningShare{}, SubShare{}, err
	}
	rBeta := curve.NewScalarFromBytes(rBytes)

	gamma, err := curve.RandomScalar(rand.Reader)
	if err != nil {
		return SigningShare{}, SubShare{}, err
	}

	alpha := secretShare.scalar.Sub(gamma).Sub(rBeta)

	return SigningShare{scalar: gamma}, SubShare{alpha: alpha, beta: beta}, nil
}

// Reconstruct recovers the original secret share from a (SigningShare,
// SubShare) pair bound to identityProvider, per §4.3:
//
//	R_β := identityProvider.SignRaw(β).r
//	x_i := (γ + α + R_β) mod q
//
// Reconstruct requires identityProvider.SignRaw to be deterministic over β
// (e.g. RFC 6979); see identity.SelfTestDeterminism. A non-deterministic
// provider causes Reconstruct to silently return an unrelated value rather
// than an error, since there is no way to distinguish "wrong identity" from
// "non-deterministic identity" from the output alone.
func Reconstruct(identityProvider identity.Provider, signingShare SigningShare, subShare SubShare) (SecretShare, error) {
	betaBytes := subShare.beta.Bytes()
	rBytes, _, err := identityProvider.SignRaw(betaBytes[:])
	if err != nil {
		return SecretShare{}, err
	}
	rBeta := curve.NewScalarFromBytes(rBytes)

	x := signingShare.scalar.Add(subShare.alpha).Add(rBeta)
	return SecretShare{scalar: x}, nil
}

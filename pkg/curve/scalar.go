// Package curve wraps the secp256k1 scalar field and group needed by the
// share-split/reconstruct scheme and the identity-authentication layer. It
// intentionally exposes a much smaller surface than a general-purpose curve
// abstraction, since this core never performs curve arithmetic beyond scalar
// split/combine.
package curve

import (
	"crypto/rand"
	"errors"
	"io"

	"github.com/cronokirby/saferith"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// ErrInvalidScalar is returned when 32 bytes do not decode to a canonical
// scalar representation.
var ErrInvalidScalar = errors.New("curve: invalid scalar encoding")

// groupOrder is the secp256k1 group order q, used by NewScalarFromWideBytes
// to perform an explicit mod-q reduction via saferith.Nat before a hash
// digest is turned into a scalar, rather than relying on ModNScalar's own
// truncate-and-reduce behavior.
var groupOrder = saferith.ModulusFromBytes([]byte{
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFE,
	0xBA, 0xAE, 0xDC, 0xE6, 0xAF, 0x48, 0xA0, 0x3B,
	0xBF, 0xD2, 0x5E, 0x8C, 0xD0, 0x36, 0x41, 0x41,
})

// NewScalarFromWideBytes reduces an arbitrary-length big-endian digest
// modulo q using saferith's constant-time Nat arithmetic, for converting a
// hash (e.g. a message digest wider or narrower than 32 bytes) into a
// scalar without depending on ModNScalar's own reduction semantics.
func NewScalarFromWideBytes(b []byte) Scalar {
	nat := new(saferith.Nat).SetBytes(b)
	reduced := nat.Mod(nat, groupOrder)
	reducedBytes := reduced.Bytes()

	if len(reducedBytes) > 32 {
		reducedBytes = reducedBytes[len(reducedBytes)-32:]
	}
	var out [32]byte
	copy(out[32-len(reducedBytes):], reducedBytes)
	return NewScalarFromBytes(out)
}

// Scalar is an element of the secp256k1 scalar field, i.e. an integer
// reduced modulo the group order q.
type Scalar struct {
	v secp256k1.ModNScalar
}

// NewScalarFromBytes interprets b as a big-endian 256-bit integer and
// reduces it modulo q, matching the `mod q` reductions required throughout
// §4.3.
func NewScalarFromBytes(b [32]byte) Scalar {
	var s Scalar
	s.v.SetByteSlice(b[:])
	return s
}

// NewScalarFromUint32 reduces v modulo q, used for small constants such as
// Lagrange-interpolation party indices.
func NewScalarFromUint32(v uint32) Scalar {
	var s Scalar
	s.v.SetInt(v)
	return s
}

// RandomScalar samples a scalar uniformly from [0, q) using a cryptographically
// secure source, implementing §4.1's `random_scalar`.
//
// Rejection sampling over the 256-bit space is used so the output
// distribution is uniform to within negligible statistical distance: values
// that don't fit in [0, q) are discarded and resampled, rather than reduced,
// which would bias the low end of the range.
func RandomScalar(rnd io.Reader) (Scalar, error) {
	if rnd == nil {
		rnd = rand.Reader
	}
	for {
		var buf [32]byte
		if _, err := io.ReadFull(rnd, buf[:]); err != nil {
			return Scalar{}, err
		}
		var s secp256k1.ModNScalar
		overflow := s.SetByteSlice(buf[:])
		if overflow {
			continue
		}
		return Scalar{v: s}, nil
	}
}

// Bytes returns the big-endian 32-byte encoding of s.
func (s Scalar) Bytes() [32]byte {
	return s.v.Bytes()
}

// Add returns s + other mod q.
func (s Scalar) Add(other Scalar) Scalar {
	out := s.v
	out.Add(&other.v)
	return Scalar{v: out}
}

// Sub returns s - other mod q.
func (s Scalar) Sub(other Scalar) Scalar {
	neg := other.v
	neg.Negate()
	out := s.v
	out.Add(&neg)
	return Scalar{v: out}
}

// Mul returns s * other mod q.
func (s Scalar) Mul(other Scalar) Scalar {
	out := s.v
	out.Mul(&other.v)
	return Scalar{v: out}
}

// Invert returns the multiplicative inverse of s mod q. Only used by the
// toy Lagrange interpolation in the mock ceremony, never on secret
// application scalars (§1 Non-goals on curve arithmetic).
func (s Scalar) Invert() Scalar {
	var out secp256k1.ModNScalar
	out.InverseValNonConst(&s.v)
	return Scalar{v: out}
}

// Negate returns -s mod q.
func (s Scalar) Negate() Scalar {
	out := s.v
	out.Negate()
	return Scalar{v: out}
}

// IsZero reports whether s is the additive identity.
func (s Scalar) IsZero() bool {
	return s.v.IsZero()
}

// Equal reports whether s and other represent the same residue mod q.
func (s Scalar) Equal(other Scalar) bool {
	return s.v.Equals(&other.v)
}

// Zeroize overwrites the scalar's internal representation with zeros. Call
// this on every exit path once a secret scalar is no longer needed (§5
// zeroization discipline).
func (s *Scalar) Zeroize() {
	s.v.Zero()
}

// ActOnBase returns the public point s*G, i.e. the public key share
// corresponding to secret scalar s.
func (s Scalar) ActOnBase() Point {
	var j secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(&s.v, &j)
	j.ToAffine()
	return Point{x: j.X, y: j.Y}
}

// Point is a point on the secp256k1 curve, used only to derive and compare
// public key shares; the core never performs EC arithmetic on secret
// scalars beyond this (§1 Non-goals).
type Point struct {
	x, y secp256k1.FieldVal
}

// Add returns p + other.
func (p Point) Add(other Point) Point {
	pa := secp256k1.MakeJacobianPoint(&p.x, &p.y, new(secp256k1.FieldVal).SetInt(1))
	oa := secp256k1.MakeJacobianPoint(&other.x, &other.y, new(secp256k1.FieldVal).SetInt(1))
	var sum secp256k1.JacobianPoint
	secp256k1.AddNonConst(&pa, &oa, &sum)
	sum.ToAffine()
	return Point{x: sum.X, y: sum.Y}
}

// Equal reports whether p and other are the same point.
func (p Point) Equal(other Point) bool {
	return p.x.Equals(&other.x) && p.y.Equals(&other.y)
}

// MarshalBinary returns the SEC1 compressed encoding of p.
func (p Point) MarshalBinary() ([]byte, error) {
	pk := secp256k1.NewPublicKey(&p.x, &p.y)
	return pk.SerializeCompressed(), nil
}

package wamucrypto_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/wamu/pkg/wamucrypto"
)

func signWithPrivateKey(t *testing.T, priv *secp256k1.PrivateKey, msg []byte) wamucrypto.Signature {
	t.Helper()
	digest, err := wamucrypto.DigestMessage(wamucrypto.SHA256, msg)
	require.NoError(t, err)
	sig := ecdsa.Sign(priv, digest)
	return wamucrypto.Signature{
		SigBytes: sig.Serialize(),
		Algo:     wamucrypto.ECDSA,
		Curve:    wamucrypto.Secp256k1,
		Digest:   wamucrypto.SHA256,
		Enc:      wamucrypto.DER,
	}
}

func TestVerifyAcceptsValidECDSASignature(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKeyFromRand(rand.Reader)
	require.NoError(t, err)
	key := wamucrypto.VerifyingKey{
		KeyBytes: priv.PubKey().SerializeCompressed(),
		Algo:     wamucrypto.ECDSA,
		Curve:    wamucrypto.Secp256k1,
		Enc:      wamucrypto.SEC1,
	}
	msg := []byte("Hello, world!")
	sig := signWithPrivateKey(t, priv, msg)

	require.NoError(t, wamucrypto.Verify(key, msg, sig))
}

func TestVerifyRejectsWrongMessage(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKeyFromRand(rand.Reader)
	require.NoError(t, err)
	key := wamucrypto.VerifyingKey{
		KeyBytes: priv.PubKey().SerializeCompressed(),
		Algo:     wamucrypto.ECDSA,
		Curve:    wamucrypto.Secp256k1,
		Enc:      wamucrypto.SEC1,
	}
	sig := signWithPrivateKey(t, priv, []byte("original message"))

	err = wamucrypto.Verify(key, []byte("tampered message"), sig)
	require.ErrorIs(t, err, wamucrypto.ErrInvalidSignature)
}

func TestVerifyRejectsSchemeMismatch(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKeyFromRand(rand.Reader)
	require.NoError(t, err)
	key := wamucrypto.VerifyingKey{
		KeyBytes: priv.PubKey().SerializeCompressed(),
		Algo:     wamucrypto.EdDSA,
		Curve:    wamucrypto.Curve25519,
		Enc:      wamucrypto.SEC1,
	}
	sig := signWithPrivateKey(t, priv, []byte("msg"))

	err = wamucrypto.Verify(key, []byte("msg"), sig)
	require.ErrorIs(t, err, wamucrypto.ErrSchemeMismatch)
}

func TestVerifyAcceptsValidEdDSASignature(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	key := wamucrypto.VerifyingKey{
		KeyBytes: []byte(pub),
		Algo:     wamucrypto.EdDSA,
		Curve:    wamucrypto.Curve25519,
		Enc:      wamucrypto.SEC1,
	}
	msg := []byte("Hello, world!")
	sig := wamucrypto.Signature{
		SigBytes: ed25519.Sign(priv, msg),
		Algo:     wamucrypto.EdDSA,
		Curve:    wamucrypto.Curve25519,
		Enc:      wamucrypto.DER,
	}

	require.NoError(t, wamucrypto.Verify(key, msg, sig))

	err = wamucrypto.Verify(key, []byte("tampered"), sig)
	require.ErrorIs(t, err, wamucrypto.ErrInvalidSignature)
}

func TestDigestMessageVariants(t *testing.T) {
	sha, err := wamucrypto.DigestMessage(wamucrypto.SHA256, []byte("abc"))
	require.NoError(t, err)
	require.Len(t, sha, 32)

	keccak, err := wamucrypto.DigestMessage(wamucrypto.Keccak256, []byte("abc"))
	require.NoError(t, err)
	require.Len(t, keccak, 32)
	require.NotEqual(t, sha, keccak)

	_, err = wamucrypto.DigestMessage(wamucrypto.MessageDigest(99), []byte("abc"))
	require.ErrorIs(t, err, wamucrypto.ErrUnsupportedDigest)
}

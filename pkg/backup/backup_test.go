package backup_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/wamu/pkg/backup"
	"github.com/luxfi/wamu/pkg/identity"
	"github.com/luxfi/wamu/pkg/share"
)

func TestBackupRoundTrip(t *testing.T) {
	provider, err := identity.NewMockECDSAIdentityProvider()
	require.NoError(t, err)

	secret := share.NewSecretShare([32]byte{5, 4, 3, 2, 1})
	signingShare, subShare, err := share.Split(provider, &secret)
	require.NoError(t, err)

	encrypted, err := backup.Encrypt(provider, signingShare, subShare, []byte("party-1"))
	require.NoError(t, err)

	gotSigning, gotSub, err := backup.Decrypt(provider, encrypted)
	require.NoError(t, err)

	require.True(t, signingShare.Equal(gotSigning))
	require.True(t, subShare.Equal(gotSub))
}

func TestBackupDecryptFailsWithMismatchedIdentity(t *testing.T) {
	provider, err := identity.NewMockECDSAIdentityProvider()
	require.NoError(t, err)
	other, err := identity.NewMockECDSAIdentityProvider()
	require.NoError(t, err)

	secret := share.NewSecretShare([32]byte{8, 8, 8})
	signingShare, subShare, err := share.Split(provider, &secret)
	require.NoError(t, err)

	encrypted, err := backup.Encrypt(provider, signingShare, subShare, []byte("party-1"))
	require.NoError(t, err)

	_, _, err = backup.Decrypt(other, encrypted)
	require.Error(t, err)
	var encErr *backup.ErrEncryption
	require.ErrorAs(t, err, &encErr)
}

func TestBackupDecryptFailsWithTamperedCiphertext(t *testing.T) {
	provider, err := identity.NewMockECDSAIdentityProvider()
	require.NoError(t, err)

	secret := share.NewSecretShare([32]byte{1})
	signingShare, subShare, err := share.Split(provider, &secret)
	require.NoError(t, err)

	encrypted, err := backup.Encrypt(provider, signingShare, subShare, []byte("party-1"))
	require.NoError(t, err)
	encrypted.Ciphertext[0] ^= 0xFF

	_, _, err = backup.Decrypt(provider, encrypted)
	require.Error(t, err)
}

func TestBackupDecryptFailsWithWrongAssociatedData(t *testing.T) {
	provider, err := identity.NewMockECDSAIdentityProvider()
	require.NoError(t, err)

	secret := share.NewSecretShare([32]byte{1})
	signingShare, subShare, err := share.Split(provider, &secret)
	require.NoError(t, err)

	encrypted, err := backup.Encrypt(provider, signingShare, subShare, []byte("party-1"))
	require.NoError(t, err)
	encrypted.AssociatedData = []byte("party-2")

	_, _, err = backup.Decrypt(provider, encrypted)
	require.Error(t, err)
}

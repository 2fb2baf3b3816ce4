package quorum_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/wamu/pkg/identity"
	"github.com/luxfi/wamu/pkg/quorum"
	"github.com/luxfi/wamu/pkg/wamucrypto"
)

func rosterOf(t *testing.T, n int) ([]identity.Provider, []wamucrypto.VerifyingKey) {
	t.Helper()
	providers := make([]identity.Provider, n)
	keys := make([]wamucrypto.VerifyingKey, n)
	for i := 0; i < n; i++ {
		p, err := identity.NewMockECDSAIdentityProvider()
		require.NoError(t, err)
		providers[i] = p
		keys[i] = p.VerifyingKey()
	}
	return providers, keys
}

func TestQuorumReachedAtThresholdBoundary(t *testing.T) {
	const n, threshold = 4, 2 // (t, n) = (2, 4) -> t+1 = 3 approvals required
	providers, keys := rosterOf(t, n)

	challenge, err := quorum.NewChallenge("identity-rotation", nil)
	require.NoError(t, err)
	collector := quorum.NewCollector(challenge, keys, threshold+1)

	for i := 0; i < threshold; i++ {
		a, err := quorum.Approve(providers[i], challenge)
		require.NoError(t, err)
		require.NoError(t, collector.Collect(a))
		require.False(t, collector.HasQuorum(), "quorum must not be reached at %d/%d approvals", i+1, threshold+1)
	}

	last, err := quorum.Approve(providers[threshold], challenge)
	require.NoError(t, err)
	require.NoError(t, collector.Collect(last))

	require.True(t, collector.HasQuorum())
	require.NoError(t, collector.Finalize())
}

func TestQuorumRejectsUnauthorizedApprover(t *testing.T) {
	providers, keys := rosterOf(t, 3)
	impostor, err := identity.NewMockECDSAIdentityProvider()
	require.NoError(t, err)

	challenge, err := quorum.NewChallenge("share-recovery", nil)
	require.NoError(t, err)
	collector := quorum.NewCollector(challenge, keys[:2], 2)

	a, err := quorum.Approve(impostor, challenge)
	require.NoError(t, err)
	require.ErrorIs(t, collector.Collect(a), quorum.ErrUnauthorized)

	_ = providers
}

func TestQuorumRejectsDuplicateApprover(t *testing.T) {
	providers, keys := rosterOf(t, 3)

	challenge, err := quorum.NewChallenge("share-recovery", nil)
	require.NoError(t, err)
	collector := quorum.NewCollector(challenge, keys, 2)

	a, err := quorum.Approve(providers[0], challenge)
	require.NoError(t, err)
	require.NoError(t, collector.Collect(a))
	require.ErrorIs(t, collector.Collect(a), quorum.ErrDuplicateApprover)
}

func TestQuorumFinalizeFailsBelowThreshold(t *testing.T) {
	providers, keys := rosterOf(t, 4)

	challenge, err := quorum.NewChallenge("identity-rotation", nil)
	require.NoError(t, err)
	collector := quorum.NewCollector(challenge, keys, 3)

	a, err := quorum.Approve(providers[0], challenge)
	require.NoError(t, err)
	require.NoError(t, collector.Collect(a))

	require.ErrorIs(t, collector.Finalize(), quorum.ErrInsufficientApprovals)
}

func TestQuorumBindsToPayload(t *testing.T) {
	providers, keys := rosterOf(t, 2)

	challengeA, err := quorum.NewChallenge("identity-rotation", []byte("payload-a"))
	require.NoError(t, err)
	challengeB, err := quorum.NewChallenge("identity-rotation", []byte("payload-b"))
	require.NoError(t, err)

	approvalForA, err := quorum.Approve(providers[0], challengeA)
	require.NoError(t, err)

	collector := quorum.NewCollector(challengeB, keys, 1)
	require.Error(t, collector.Collect(approvalForA), "an approval over a different payload must not verify")
}

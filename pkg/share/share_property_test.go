package share_test

import (
	"testing"
	"testing/quick"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/luxfi/wamu/pkg/identity"
	"github.com/luxfi/wamu/pkg/share"
)

func TestShareProperties(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Share Split/Reconstruct Property Suite")
}

var _ = Describe("Split/Reconstruct", func() {
	It("reconstructs exactly the original share for any input bytes, under the identity that split it", func() {
		provider, err := identity.NewMockECDSAIdentityProvider()
		Expect(err).NotTo(HaveOccurred())

		property := func(seed [32]byte) bool {
			original := share.NewSecretShare(seed)
			originalCopy := original

			signingShare, subShare, err := share.Split(provider, &original)
			if err != nil {
				return false
			}

			recovered, err := share.Reconstruct(provider, signingShare, subShare)
			if err != nil {
				return false
			}
			return originalCopy.Equal(recovered)
		}

		Expect(quick.Check(property, &quick.Config{MaxCount: 50})).To(Succeed())
	})

	It("never reconstructs to the original share under a different identity", func() {
		provider, err := identity.NewMockECDSAIdentityProvider()
		Expect(err).NotTo(HaveOccurred())
		other, err := identity.NewMockECDSAIdentityProvider()
		Expect(err).NotTo(HaveOccurred())

		property := func(seed [32]byte) bool {
			original := share.NewSecretShare(seed)
			originalCopy := original

			signingShare, subShare, err := share.Split(provider, &original)
			if err != nil {
				return false
			}

			recovered, err := share.Reconstruct(other, signingShare, subShare)
			if err != nil {
				return false
			}
			return !originalCopy.Equal(recovered)
		}

		Expect(quick.Check(property, &quick.Config{MaxCount: 50})).To(Succeed())
	})
})

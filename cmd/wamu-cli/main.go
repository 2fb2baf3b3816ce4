package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/luxfi/wamu/pkg/backup"
	"github.com/luxfi/wamu/pkg/ceremony"
	"github.com/luxfi/wamu/pkg/identity"
	"github.com/luxfi/wamu/pkg/mockceremony"
	"github.com/luxfi/wamu/pkg/party"
	"github.com/luxfi/wamu/pkg/quorum"
	"github.com/luxfi/wamu/pkg/share"
	"github.com/luxfi/wamu/pkg/wamucrypto"
)

var (
	threshold   int
	numParties  int
	messageHex  string
	purposeTag  string
	verbose     bool

	rootCmd = &cobra.Command{
		Use:   "wamu-cli",
		Short: "CLI tool for the identity-authenticated threshold wallet core",
		Long:  `A tool for exercising identity-authenticated keygen, signing, share recovery and backup against the mock ceremony engine.`,
	}

	simulateCmd = &cobra.Command{
		Use:   "simulate",
		Short: "Simulate an identity-authenticated keygen and signing ceremony",
		Long:  `Runs a full in-process simulation: n mock identities complete the §4.5 roll-call, run a mock keygen, then sign a message.`,
		RunE:  runSimulate,
	}

	quorumCmd = &cobra.Command{
		Use:   "quorum",
		Short: "Simulate a quorum-approved request",
		Long:  `Issues a challenge and collects approvals from n mock identities until threshold is reached.`,
		RunE:  runQuorum,
	}

	backupCmd = &cobra.Command{
		Use:   "backup",
		Short: "Round-trip a share pair through encrypted backup",
		RunE:  runBackup,
	}

	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Print the compiled-in signing message prefix and ceremony kinds",
		RunE:  runInfo,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	simulateCmd.Flags().IntVarP(&threshold, "threshold", "t", 2, "Quorum threshold (t+1 parties required)")
	simulateCmd.Flags().IntVarP(&numParties, "parties", "n", 4, "Total number of parties")
	simulateCmd.Flags().StringVarP(&messageHex, "message", "m", hex.EncodeToString([]byte("Hello, world!")), "Message to sign (hex encoded)")

	quorumCmd.Flags().IntVarP(&threshold, "threshold", "t", 2, "Quorum threshold (t+1 parties required)")
	quorumCmd.Flags().IntVarP(&numParties, "parties", "n", 4, "Total number of parties")
	quorumCmd.Flags().StringVar(&purposeTag, "purpose", "identity-rotation", "Purpose tag for the quorum challenge")

	rootCmd.AddCommand(simulateCmd, quorumCmd, backupCmd, infoCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func makeParties(n int) ([]party.ID, []identity.Provider, []wamucrypto.VerifyingKey, error) {
	ids := make([]party.ID, n)
	providers := make([]identity.Provider, n)
	keys := make([]wamucrypto.VerifyingKey, n)
	for i := 0; i < n; i++ {
		ids[i] = party.ID(fmt.Sprintf("%d", i+1))
		p, err := identity.NewMockECDSAIdentityProvider()
		if err != nil {
			return nil, nil, nil, err
		}
		providers[i] = p
		keys[i] = p.VerifyingKey()
	}
	return ids, providers, keys, nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	n := numParties
	message, err := hex.DecodeString(messageHex)
	if err != nil {
		return fmt.Errorf("invalid --message hex: %w", err)
	}

	ids, providers, keys, err := makeParties(n)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Printf("simulating keygen+signing with %d parties, threshold %d\n", n, threshold)
	}

	// Phase 1: identity-authenticated keygen.
	handlers := make(map[party.ID]*ceremony.AugmentedHandler, n)
	keygenUnderlying := make(map[party.ID]*mockceremony.Keygen, n)
	for i, id := range ids {
		underlying, err := mockceremony.NewKeygen(id, party.IDSlice(ids), threshold)
		if err != nil {
			return err
		}
		keygenUnderlying[id] = underlying
		h, err := ceremony.New(ceremony.Keygen, "keygen:sim", providers[i], keys, i+1, n, i == 0, underlying)
		if err != nil {
			return err
		}
		handlers[id] = h
	}

	keygenNetwork := make(map[party.ID]mockceremony.Participant, n)
	for _, id := range ids {
		keygenNetwork[id] = handlers[id]
	}
	if err := mockceremony.RunNetwork(cmd.Context(), keygenNetwork, 4*n); err != nil {
		return fmt.Errorf("keygen network simulation: %w", err)
	}

	results := make(map[party.ID]mockceremony.KeygenResult, n)
	for _, id := range ids {
		h := handlers[id]
		if !h.IsFinished() {
			return fmt.Errorf("keygen did not finish for party %s", id)
		}
		res, err := h.Result()
		if err != nil {
			return fmt.Errorf("keygen failed for party %s: %w", id, err)
		}
		results[id] = res.(mockceremony.KeygenResult)
	}

	if verbose {
		fmt.Printf("keygen complete, public key: %x\n", results[ids[0]].PublicKey)
	}

	// Phase 2: identity-authenticated signing over the requested message.
	signPurpose := ceremony.SigningMessagePrefix + string(message)
	signHandlers := make(map[party.ID]*ceremony.AugmentedHandler, n)
	for i, id := range ids {
		share := results[id].Share
		underlying, err := mockceremony.NewSigning(id, party.IDSlice(ids), threshold, string(message), share)
		if err != nil {
			return err
		}
		h, err := ceremony.New(ceremony.Signing, signPurpose, providers[i], keys, i+1, n, i == 0, underlying)
		if err != nil {
			return err
		}
		signHandlers[id] = h
	}

	signNetwork := make(map[party.ID]mockceremony.Participant, n)
	for _, id := range ids {
		signNetwork[id] = signHandlers[id]
	}
	if err := mockceremony.RunNetwork(cmd.Context(), signNetwork, 4*n); err != nil {
		return fmt.Errorf("signing network simulation: %w", err)
	}

	for _, id := range ids {
		h := signHandlers[id]
		if !h.IsFinished() {
			return fmt.Errorf("signing did not finish for party %s", id)
		}
		res, err := h.Result()
		if err != nil {
			return fmt.Errorf("signing failed for party %s: %w", id, err)
		}
		sig := res.(mockceremony.Signature)
		if verbose || id == ids[0] {
			fmt.Printf("party %s: signature r=%x s=%x\n", id, sig.R, sig.S)
		}
	}

	return nil
}

func runQuorum(cmd *cobra.Command, args []string) error {
	n := numParties
	_, providers, keys, err := makeParties(n)
	if err != nil {
		return err
	}

	challenge, err := quorum.NewChallenge(purposeTag, nil)
	if err != nil {
		return err
	}
	collector := quorum.NewCollector(challenge, keys, threshold+1)

	for i := 0; i < threshold+1; i++ {
		approval, err := quorum.Approve(providers[i], challenge)
		if err != nil {
			return err
		}
		if err := collector.Collect(approval); err != nil {
			return err
		}
	}

	if err := collector.Finalize(); err != nil {
		return err
	}
	fmt.Printf("quorum reached: %d/%d approvals collected (threshold %d)\n", collector.Count(), n, threshold+1)
	return nil
}

func runBackup(cmd *cobra.Command, args []string) error {
	provider, err := identity.NewMockECDSAIdentityProvider()
	if err != nil {
		return err
	}
	secret := share.NewSecretShare([32]byte{1, 2, 3})
	signingShare, subShare, err := share.Split(provider, &secret)
	if err != nil {
		return err
	}

	encrypted, err := backup.Encrypt(provider, signingShare, subShare, []byte("party-1"))
	if err != nil {
		return err
	}

	decryptedSigning, decryptedSub, err := backup.Decrypt(provider, encrypted)
	if err != nil {
		return err
	}

	ok := signingShare.Equal(decryptedSigning) && subShare.Equal(decryptedSub)
	fmt.Printf("backup round-trip succeeded: %v\n", ok)
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	info := map[string]interface{}{
		"signing_message_prefix": ceremony.SigningMessagePrefix,
		"ceremony_kinds":         []string{"keygen", "signing", "key-refresh", "share-recovery-quorum"},
	}
	out, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

package mockceremony

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/luxfi/wamu/pkg/party"
	"github.com/luxfi/wamu/pkg/protocol"
)

// Participant is the minimal shape shared by a mock ceremony (Keygen,
// Signing) and anything wrapping one (e.g. ceremony.AugmentedHandler),
// letting RunNetwork drive either in tests and the CLI's simulate command.
type Participant interface {
	HandleIncoming(msg protocol.Message) error
	Outbox() []protocol.Message
	IsFinished() bool
}

// RunNetwork repeatedly drains every participant's outbox and delivers the
// messages to every other participant, stopping once a round produces no
// new messages or maxRounds is reached. Each round's deliveries run
// concurrently across participants via errgroup.
func RunNetwork(ctx context.Context, participants map[party.ID]Participant, maxRounds int) error {
	for round := 0; round < maxRounds; round++ {
		inbox := make(map[party.ID][]protocol.Message, len(participants))
		for from, p := range participants {
			for _, msg := range p.Outbox() {
				for to := range participants {
					if to == from {
						continue
					}
					inbox[to] = append(inbox[to], msg)
				}
			}
		}
		if len(inbox) == 0 {
			return nil
		}

		// One goroutine per recipient: messages destined for the same
		// participant are delivered in order on a single goroutine, since a
		// Participant's HandleIncoming mutates its own internal state and is
		// not safe for concurrent calls. Different recipients, each with
		// disjoint state, proceed in parallel.
		g, _ := errgroup.WithContext(ctx)
		for to, msgs := range inbox {
			recipient := participants[to]
			msgs := msgs
			g.Go(func() error {
				for _, msg := range msgs {
					if err := recipient.HandleIncoming(msg); err != nil {
						return err
					}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

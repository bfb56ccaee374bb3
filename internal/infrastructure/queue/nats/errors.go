package nats

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/complaint-desk/internal/core/domain"
	"github.com/kirillkom/complaint-desk/internal/infrastructure/resilience"
)

// connectivityErrors mark a broker that is unreachable for now.
var connectivityErrors = []error{
	nats.ErrNoServers,
	nats.ErrTimeout,
	nats.ErrConnectionClosed,
	nats.ErrDisconnected,
	nats.ErrConnectionReconnecting,
}

// tripsBreaker reports whether a failed publish counts against the breaker.
// A caller that gave up is not the broker's fault.
func tripsBreaker(err error) bool {
	return err != nil &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// publishError tags broker outages as temporary so the submission workflow
// logs them without failing the complaint.
func publishError(err error) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, "publish complaint submitted", err)
	}
	for _, target := range connectivityErrors {
		if errors.Is(err, target) {
			return domain.WrapError(domain.ErrTemporary, "publish complaint submitted", err)
		}
	}
	return err
}

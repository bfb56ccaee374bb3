package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/complaint-desk/internal/core/domain"
	"github.com/kirillkom/complaint-desk/internal/infrastructure/resilience"
)

type msgPublisherFake struct {
	msgs []*nats.Msg
	err  error
}

func (f *msgPublisherFake) PublishMsg(msg *nats.Msg) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func TestPublishComplaintSubmittedEncodesEvent(t *testing.T) {
	fake := &msgPublisherFake{}
	pub := newPublisher(fake, "", nil, nil)

	event := domain.ComplaintSubmittedEvent{
		TrackingCode:  "DEN-2024-0017",
		ComplaintID:   "17",
		ComplaintType: "Acoso Laboral",
		EvidenceCount: 2,
		Evidence:      domain.EvidenceUploaded,
		OccurredAt:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := pub.PublishComplaintSubmitted(context.Background(), event); err != nil {
		t.Fatalf("PublishComplaintSubmitted() error = %v", err)
	}
	if len(fake.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(fake.msgs))
	}
	msg := fake.msgs[0]
	if msg.Subject != DefaultSubject {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if got := msg.Header.Get(nats.MsgIdHdr); got != "DEN-2024-0017:uploaded" {
		t.Fatalf("unexpected msg id %q", got)
	}
	var decoded domain.ComplaintSubmittedEvent
	if err := json.Unmarshal(msg.Data, &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.TrackingCode != event.TrackingCode || decoded.EvidenceCount != 2 {
		t.Fatalf("unexpected payload %+v", decoded)
	}
}

func TestPublishWrapsConnectionErrorsAsTemporary(t *testing.T) {
	fake := &msgPublisherFake{err: nats.ErrConnectionClosed}
	guard := resilience.NewGuard(resilience.Config{BreakerEnabled: true}, nil, nil)
	pub := newPublisher(fake, "complaints.test", guard, nil)

	err := pub.PublishComplaintSubmitted(context.Background(), domain.ComplaintSubmittedEvent{TrackingCode: "X"})
	if !errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}

	fake.err = errors.New("permissions violation")
	err = pub.PublishComplaintSubmitted(context.Background(), domain.ComplaintSubmittedEvent{TrackingCode: "X"})
	if err == nil || errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestTripsBreakerIgnoresCancellation(t *testing.T) {
	if tripsBreaker(context.Canceled) {
		t.Fatalf("cancellation must not count as failure")
	}
	if !tripsBreaker(nats.ErrTimeout) {
		t.Fatalf("timeout must count as failure")
	}
}

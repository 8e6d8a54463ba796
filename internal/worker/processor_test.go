package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"campaigns/internal/domain"
	sqs "campaigns/internal/queue/sqs"
)

type scriptedDispatcher struct {
	errs  []error
	calls int
}

func (d *scriptedDispatcher) Dispatch(ctx context.Context, campaignID string, now time.Time) (domain.DispatchResult, error) {
	i := d.calls
	d.calls++
	if i < len(d.errs) && d.errs[i] != nil {
		return domain.DispatchResult{}, d.errs[i]
	}
	return domain.DispatchResult{CampaignID: campaignID, OK: true, Status: domain.StatusSuccess}, nil
}

func TestProcessSucceedsFirstTry(t *testing.T) {
	d := &scriptedDispatcher{}
	p := &Processor{Dispatcher: d, Attempts: 3, RetryDelay: time.Millisecond}
	if err := p.Process(context.Background(), sqs.DispatchJob{CampaignID: "wac_1"}); err != nil {
		t.Fatalf("process: %v", err)
	}
	if d.calls != 1 {
		t.Fatalf("expected one attempt, got %d", d.calls)
	}
}

func TestProcessRetriesInfrastructureErrors(t *testing.T) {
	d := &scriptedDispatcher{errs: []error{errors.New("db down"), errors.New("db down")}}
	p := &Processor{Dispatcher: d, Attempts: 3, RetryDelay: time.Millisecond}
	if err := p.Process(context.Background(), sqs.DispatchJob{CampaignID: "wac_1"}); err != nil {
		t.Fatalf("process: %v", err)
	}
	if d.calls != 3 {
		t.Fatalf("expected third attempt to succeed, got %d calls", d.calls)
	}
}

func TestProcessAbandonsAfterMaxAttempts(t *testing.T) {
	d := &scriptedDispatcher{errs: []error{errors.New("x"), errors.New("x"), errors.New("x")}}
	p := &Processor{Dispatcher: d, Attempts: 3, RetryDelay: time.Millisecond}
	// abandoned, not redriven: the consumer deletes the message on nil
	if err := p.Process(context.Background(), sqs.DispatchJob{CampaignID: "wac_1"}); err != nil {
		t.Fatalf("expected nil after exhaustion, got %v", err)
	}
	if d.calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", d.calls)
	}
}

func TestProcessDropsUnknownCampaign(t *testing.T) {
	d := &scriptedDispatcher{errs: []error{domain.ErrNotFound}}
	p := &Processor{Dispatcher: d, Attempts: 3, RetryDelay: time.Millisecond}
	if err := p.Process(context.Background(), sqs.DispatchJob{CampaignID: "wac_gone"}); err != nil {
		t.Fatalf("unknown campaign should be dropped, got %v", err)
	}
	if d.calls != 1 {
		t.Fatalf("no retry for unknown campaign, got %d calls", d.calls)
	}
}

func TestProcessHonorsContextCancellation(t *testing.T) {
	d := &scriptedDispatcher{errs: []error{errors.New("x"), errors.New("x")}}
	p := &Processor{Dispatcher: d, Attempts: 3, RetryDelay: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Process(ctx, sqs.DispatchJob{CampaignID: "wac_1"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

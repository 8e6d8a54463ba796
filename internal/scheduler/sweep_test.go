package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"campaigns/internal/domain"
)

type fakeDueStore struct {
	due    []domain.WhatsAppCampaign
	err    error
	failed map[string]string
}

func (f *fakeDueStore) ListDueWhatsAppCampaigns(ctx context.Context, now time.Time, limit int) ([]domain.WhatsAppCampaign, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.due) {
		return f.due[:limit], nil
	}
	return f.due, nil
}

func (f *fakeDueStore) MarkWhatsAppFailed(ctx context.Context, id, errorMessage string, now time.Time) error {
	if f.failed == nil {
		f.failed = map[string]string{}
	}
	f.failed[id] = errorMessage
	return nil
}

type fakeDispatcher struct {
	results map[string]domain.DispatchResult
	errs    map[string]error
	calls   []string
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, campaignID string, now time.Time) (domain.DispatchResult, error) {
	f.calls = append(f.calls, campaignID)
	if err := f.errs[campaignID]; err != nil {
		return domain.DispatchResult{}, err
	}
	return f.results[campaignID], nil
}

type recordingQueue struct {
	enqueued []string
	err      error
}

func (r *recordingQueue) EnqueueDispatch(ctx context.Context, campaignID string, delay time.Duration) error {
	if r.err != nil {
		return r.err
	}
	r.enqueued = append(r.enqueued, campaignID)
	return nil
}

func TestSweepDispatchesEveryDueCampaign(t *testing.T) {
	store := &fakeDueStore{due: []domain.WhatsAppCampaign{
		{ID: "wac_1"}, {ID: "wac_2"}, {ID: "wac_3"},
	}}
	dispatcher := &fakeDispatcher{
		results: map[string]domain.DispatchResult{
			"wac_1": {CampaignID: "wac_1", OK: true, Status: domain.StatusSuccess},
			"wac_3": {CampaignID: "wac_3", OK: false, Status: domain.StatusFailed},
		},
		errs: map[string]error{"wac_2": errors.New("db gone")},
	}

	sweeper := &Sweeper{Store: store, Dispatcher: dispatcher}
	report, err := sweeper.Sweep(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if report.Processed != 3 || report.Succeeded != 1 || report.Failed != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
	// an error on one campaign must not stop the sweep
	if len(dispatcher.calls) != 3 {
		t.Fatalf("expected all campaigns attempted: %v", dispatcher.calls)
	}
	// the erroring row is marked failed so it is not stranded in processing
	if store.failed["wac_2"] != "db gone" {
		t.Fatalf("error text not recorded on campaign: %+v", store.failed)
	}
	if len(store.failed) != 1 {
		t.Fatalf("only the erroring campaign should be marked: %+v", store.failed)
	}
}

func TestSweepListError(t *testing.T) {
	sweeper := &Sweeper{Store: &fakeDueStore{err: errors.New("down")}, Dispatcher: &fakeDispatcher{}}
	if _, err := sweeper.Sweep(context.Background(), time.Now().UTC()); err == nil {
		t.Fatal("expected error")
	}
}

func TestPollerTickEnqueuesDue(t *testing.T) {
	store := &fakeDueStore{due: []domain.WhatsAppCampaign{{ID: "wac_1"}, {ID: "wac_2"}}}
	queue := &recordingQueue{}
	poller := &Poller{Store: store, Queue: queue}

	poller.tick(context.Background())

	if len(queue.enqueued) != 2 {
		t.Fatalf("expected both enqueued: %v", queue.enqueued)
	}
}

func TestPollerTickSurvivesEnqueueError(t *testing.T) {
	store := &fakeDueStore{due: []domain.WhatsAppCampaign{{ID: "wac_1"}}}
	queue := &recordingQueue{err: errors.New("sqs down")}
	poller := &Poller{Store: store, Queue: queue}

	poller.tick(context.Background()) // must not panic
}

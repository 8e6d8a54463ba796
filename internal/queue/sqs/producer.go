package sqsqueue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQS caps per-message delay at 15 minutes. Callers keep longer deferrals
// off the queue entirely (the due-campaign poller enqueues those once the
// row comes due); the clamp below only guards against an out-of-range
// DelaySeconds reaching the API.
const MaxDelay = 900 * time.Second

type Producer struct {
	SQS      *sqs.Client
	QueueURL string
}

// DispatchJob asks the worker to attempt one WhatsApp campaign dispatch.
// The campaign row itself is the source of truth; the job carries only the id.
type DispatchJob struct {
	CampaignID string    `json:"campaignId"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

func (p *Producer) EnqueueDispatch(ctx context.Context, campaignID string, delay time.Duration) error {
	job := DispatchJob{CampaignID: campaignID, EnqueuedAt: time.Now().UTC()}
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}

	if delay < 0 {
		delay = 0
	}
	if delay > MaxDelay {
		delay = MaxDelay
	}

	_, err = p.SQS.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:     &p.QueueURL,
		MessageBody:  str(string(body)),
		DelaySeconds: int32(delay / time.Second),
	})
	return err
}

func str(s string) *string { return &s }

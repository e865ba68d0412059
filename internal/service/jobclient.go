package service

import (
	"time"

	"github.com/hibiken/asynq"
)

// JobClient schedules background work for invitations.
type JobClient interface {
	ScheduleExpiry(invitationID string, at time.Time) error
}

// AsynqJobClient implements JobClient using asynq
type AsynqJobClient struct {
	client *asynq.Client
}

func NewAsynqJobClient(client *asynq.Client) *AsynqJobClient {
	return &AsynqJobClient{client: client}
}

// ScheduleExpiry enqueues a task that fires at the invitation's expiry
// time. The handler uses a conditional update, so firing against an
// already-terminal invitation is a no-op.
func (c *AsynqJobClient) ScheduleExpiry(invitationID string, at time.Time) error {
	task := asynq.NewTask("invitation:expire", []byte(invitationID))
	_, err := c.client.Enqueue(task, asynq.ProcessIn(time.Until(at)))
	return err
}

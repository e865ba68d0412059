package jobs

import (
	"context"
	"fmt"

	"formgate/internal/db"
	"formgate/internal/pubsub"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type JobServer struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	client    *asynq.Client
	db        *db.Pool
	bus       *pubsub.Bus
	log       *zap.Logger
}

// NewJobServer wires the asynq server, the periodic sweep scheduler and
// a client for per-invitation expiry tasks.
func NewJobServer(redisAddr string, dbPool *db.Pool, bus *pubsub.Bus, log *zap.Logger) (*JobServer, *asynq.Client) {
	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 5,
				"low":     1,
			},
		},
	)

	scheduler := asynq.NewScheduler(redisOpt, nil)
	client := asynq.NewClient(redisOpt)

	return &JobServer{
		server:    server,
		scheduler: scheduler,
		client:    client,
		db:        dbPool,
		bus:       bus,
		log:       log,
	}, client
}

func (js *JobServer) Start() error {
	mux := asynq.NewServeMux()

	mux.HandleFunc("invitation:expire", js.handleInvitationExpiry)
	mux.HandleFunc("invitation:sweep", js.handleExpirySweep)

	// Safety net for invitations whose scheduled task was lost.
	if _, err := js.scheduler.Register("@every 10m", asynq.NewTask("invitation:sweep", nil, asynq.Queue("low"))); err != nil {
		return fmt.Errorf("failed to register sweep: %w", err)
	}
	go func() {
		if err := js.scheduler.Run(); err != nil {
			js.log.Error("Scheduler stopped", zap.Error(err))
		}
	}()

	return js.server.Start(mux)
}

func (js *JobServer) Stop() {
	js.scheduler.Shutdown()
	js.server.Shutdown()
	js.client.Close()
}

// handleInvitationExpiry fires at one invitation's expiresAt. The
// conditional update makes it a no-op when the invitation answered or
// failed in the meantime, and safe against a concurrent sweep.
func (js *JobServer) handleInvitationExpiry(ctx context.Context, t *asynq.Task) error {
	invitationID := string(t.Payload())

	inv, err := js.db.Queries.GetInvitationByID(ctx, invitationID)
	if err != nil {
		return fmt.Errorf("failed to get invitation: %w", err)
	}

	if err := js.db.Queries.ExpireInvitation(ctx, invitationID); err != nil {
		// Not in an expirable state anymore; nothing to do.
		return nil
	}

	_ = js.bus.PublishOrg(inv.OrgID, map[string]interface{}{
		"type":          "invitation.expired",
		"invitationId":  invitationID,
		"applicationId": inv.ApplicationID,
	})

	js.log.Info("Invitation expired", zap.String("invitation_id", invitationID))
	return nil
}

// handleExpirySweep marks every overdue active invitation expired.
func (js *JobServer) handleExpirySweep(ctx context.Context, t *asynq.Task) error {
	ids, err := js.db.Queries.ExpireOverdueInvitations(ctx)
	if err != nil {
		return fmt.Errorf("failed to sweep expired invitations: %w", err)
	}
	if len(ids) > 0 {
		js.log.Info("Expiry sweep completed", zap.Int("expired", len(ids)))
	}
	return nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"formgate/internal/db"
	"formgate/internal/mail"
	"formgate/internal/model"
	"formgate/internal/quota"
	"formgate/internal/token"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// EventBus publishes invitation lifecycle events for dashboards.
type EventBus interface {
	PublishOrg(orgID string, event map[string]interface{}) error
}

type InvitationService struct {
	queries   *db.Queries
	ledger    quota.Ledger
	mailer    mail.Sender
	bus       EventBus
	jobClient JobClient
	log       *zap.Logger

	ttl         time.Duration
	publicBase  string
	fromSubject string
}

type InvitationConfig struct {
	TTL         time.Duration // default expiry horizon for new invitations
	PublicBase  string        // base URL candidate links are built on
	FromSubject string        // email subject line
}

func NewInvitationService(queries *db.Queries, ledger quota.Ledger, mailer mail.Sender, bus EventBus, cfg InvitationConfig, log *zap.Logger) *InvitationService {
	if cfg.TTL <= 0 {
		cfg.TTL = 7 * 24 * time.Hour
	}
	if cfg.FromSubject == "" {
		cfg.FromSubject = "You have been invited to complete a form"
	}
	return &InvitationService{
		queries:     queries,
		ledger:      ledger,
		mailer:      mailer,
		bus:         bus,
		log:         log,
		ttl:         cfg.TTL,
		publicBase:  cfg.PublicBase,
		fromSubject: cfg.FromSubject,
	}
}

// SetJobClient sets the job client for scheduling expiry jobs
func (s *InvitationService) SetJobClient(client JobClient) {
	s.jobClient = client
}

type IssueInput struct {
	ApplicationID  string  `json:"applicationId"`
	FormID         string  `json:"formId"`
	CandidateEmail string  `json:"candidateEmail"`
	CustomMessage  *string `json:"customMessage,omitempty"`

	OrgID       string
	RecruiterID string
}

// Issue creates a new invitation for an (application, form) pair and
// asks the email collaborator to deliver the link. Exactly one active
// invitation may exist per pair; the recruiter's daily send quota is
// consumed before anything is persisted and is not refunded on
// delivery failure (resends are deliberately not free).
func (s *InvitationService) Issue(ctx context.Context, input IssueInput) (*model.FormInvitation, error) {
	if input.ApplicationID == "" || input.FormID == "" {
		return nil, &ValidationError{Field: "applicationId/formId", Reason: "both are required"}
	}
	if input.CandidateEmail == "" {
		return nil, &ValidationError{Field: "candidateEmail", Reason: "candidate email is required"}
	}

	tpl, err := s.queries.GetTemplateByID(ctx, input.FormID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to load template: %w", err)
	}
	if tpl.OrgID != input.OrgID {
		return nil, ErrForbidden
	}
	if !tpl.IsPublished {
		return nil, &ValidationError{Field: "formId", Reason: "template is not published"}
	}

	active, err := s.queries.HasActiveInvitation(ctx, input.ApplicationID, input.FormID)
	if err != nil {
		return nil, fmt.Errorf("failed to check active invitations: %w", err)
	}
	if active {
		return nil, ErrDuplicateActive
	}

	res, err := s.ledger.TryConsume(ctx, input.RecruiterID, model.QuotaInvitationsSent)
	if err != nil {
		return nil, fmt.Errorf("failed to consume quota: %w", err)
	}
	if !res.Allowed {
		resetAt, _ := time.Parse(time.RFC3339, res.ResetAt)
		return nil, &QuotaExceededError{Kind: string(model.QuotaInvitationsSent), Limit: res.Limit, ResetAt: resetAt}
	}

	tok, err := token.Issue()
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	// The snapshot is the template's fields column verbatim. Future
	// template edits cannot reach this invitation.
	inv, err := s.queries.CreateInvitation(ctx, db.CreateInvitationParams{
		ID:            ulid.Make().String(),
		OrgID:         input.OrgID,
		ApplicationID: input.ApplicationID,
		FormID:        input.FormID,
		Token:         tok,
		Status:        string(model.StatusPending),
		FieldSnapshot: tpl.Fields,
		CustomMessage: input.CustomMessage,
		SentBy:        input.RecruiterID,
		ExpiresAt:     time.Now().Add(s.ttl),
	})
	if err != nil {
		// The partial unique index on active (application, form) pairs is
		// the real guard; the pre-check above only loses under
		// concurrency.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "idx_form_invitations_active_pair" {
			return nil, ErrDuplicateActive
		}
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	if s.jobClient != nil {
		if err := s.jobClient.ScheduleExpiry(inv.ID, inv.ExpiresAt); err != nil {
			s.log.Warn("Failed to schedule expiry job", zap.String("invitation_id", inv.ID), zap.Error(err))
		}
	}

	// Delivery is the only step that may block on external I/O. Failure
	// here is the one path straight from issuance to FAILED.
	sendErr := s.mailer.Send(ctx, mail.Message{
		To:      input.CandidateEmail,
		Subject: s.fromSubject,
		Body:    s.buildBody(tok, input.CustomMessage),
	})
	if sendErr != nil {
		s.log.Warn("Invitation delivery failed", zap.String("invitation_id", inv.ID), zap.Error(sendErr))
		if err := s.queries.MarkInvitationFailed(ctx, inv.ID); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to mark invitation failed: %w", err)
		}
		s.publish(input.OrgID, "invitation.failed", inv.ID, input.ApplicationID)
	} else {
		if err := s.queries.MarkInvitationSent(ctx, inv.ID); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to mark invitation sent: %w", err)
		}
		s.publish(input.OrgID, "invitation.sent", inv.ID, input.ApplicationID)
	}

	fresh, err := s.queries.GetInvitationByID(ctx, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload invitation: %w", err)
	}
	return dbInvitationToModel(fresh)
}

// Resend creates a brand-new invitation for the pair of a failed or
// expired one. The old row stays untouched as a historical record; the
// new invitation gets a fresh token, expiry and snapshot and consumes a
// new quota unit.
func (s *InvitationService) Resend(ctx context.Context, orgID, recruiterID, invitationID, candidateEmail string, customMessage *string) (*model.FormInvitation, error) {
	old, err := s.queries.GetInvitationByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to load invitation: %w", err)
	}
	if old.OrgID != orgID {
		return nil, ErrForbidden
	}
	status := model.InvitationStatus(old.Status)
	if status != model.StatusFailed && status != model.StatusExpired {
		return nil, ErrNotResendable
	}

	msg := customMessage
	if msg == nil {
		msg = old.CustomMessage
	}
	return s.Issue(ctx, IssueInput{
		ApplicationID:  old.ApplicationID,
		FormID:         old.FormID,
		CandidateEmail: candidateEmail,
		CustomMessage:  msg,
		OrgID:          orgID,
		RecruiterID:    recruiterID,
	})
}

// Resolve handles a candidate opening the link. The first resolution of
// a SENT invitation marks it VIEWED; repeats are no-ops. Expiry is
// checked here so stale links die even if the sweep has not run yet.
func (s *InvitationService) Resolve(ctx context.Context, tok string) (*model.FormInvitation, error) {
	inv, err := s.lookupByToken(ctx, tok)
	if err != nil {
		return nil, err
	}

	status := model.InvitationStatus(inv.Status)
	switch {
	case status == model.StatusAnswered:
		return dbInvitationToModelOrNil(inv), ErrAlreadyAnswered
	case status == model.StatusFailed:
		// Delivery never completed; the link was never handed out.
		return nil, ErrTokenNotFound
	case status == model.StatusExpired:
		return nil, ErrTokenExpired
	}

	if time.Now().After(inv.ExpiresAt) {
		if err := s.queries.ExpireInvitation(ctx, inv.ID); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to expire invitation: %w", err)
		}
		s.publish(inv.OrgID, "invitation.expired", inv.ID, inv.ApplicationID)
		return nil, ErrTokenExpired
	}

	if status == model.StatusSent {
		err := s.queries.MarkInvitationViewed(ctx, inv.ID)
		switch {
		case err == nil:
			s.publish(inv.OrgID, "invitation.viewed", inv.ID, inv.ApplicationID)
		case errors.Is(err, pgx.ErrNoRows):
			// Lost the race against another resolution, the sweep, or a
			// submission. Re-read and report the real state.
			return s.Resolve(ctx, tok)
		default:
			return nil, fmt.Errorf("failed to mark invitation viewed: %w", err)
		}
	}

	fresh, err := s.queries.GetInvitationByID(ctx, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload invitation: %w", err)
	}
	return dbInvitationToModel(fresh)
}

// GetInvitation returns one invitation scoped to the caller's org.
func (s *InvitationService) GetInvitation(ctx context.Context, orgID, id string) (*model.FormInvitation, error) {
	inv, err := s.queries.GetInvitationByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to load invitation: %w", err)
	}
	if inv.OrgID != orgID {
		return nil, ErrForbidden
	}
	return dbInvitationToModel(inv)
}

func (s *InvitationService) ListByApplication(ctx context.Context, orgID, applicationID string) ([]*model.FormInvitation, error) {
	rows, err := s.queries.ListInvitationsByApplication(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	invitations := make([]*model.FormInvitation, 0, len(rows))
	for _, row := range rows {
		if row.OrgID != orgID {
			continue
		}
		inv, err := dbInvitationToModel(row)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}
	return invitations, nil
}

func (s *InvitationService) lookupByToken(ctx context.Context, tok string) (db.Invitation, error) {
	if !token.WellFormed(tok) {
		return db.Invitation{}, ErrTokenNotFound
	}
	inv, err := s.queries.GetInvitationByToken(ctx, tok)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.Invitation{}, ErrTokenNotFound
		}
		return db.Invitation{}, fmt.Errorf("failed to look up token: %w", err)
	}
	return inv, nil
}

func (s *InvitationService) buildBody(tok string, customMessage *string) string {
	link := fmt.Sprintf("%s/forms/%s", s.publicBase, tok)
	if customMessage != nil && *customMessage != "" {
		return fmt.Sprintf("%s\n\n%s", *customMessage, link)
	}
	return link
}

func (s *InvitationService) publish(orgID, eventType, invitationID, applicationID string) {
	if s.bus == nil {
		return
	}
	_ = s.bus.PublishOrg(orgID, map[string]interface{}{
		"type":          eventType,
		"invitationId":  invitationID,
		"applicationId": applicationID,
	})
}

func dbInvitationToModelOrNil(inv db.Invitation) *model.FormInvitation {
	m, err := dbInvitationToModel(inv)
	if err != nil {
		return nil
	}
	return m
}

package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Queries wraps database queries
type Queries struct {
	*pgxpool.Pool
}

// NewQueries creates a new Queries instance
func NewQueries(pool *pgxpool.Pool) *Queries {
	return &Queries{Pool: pool}
}

// Template represents a form_templates row. Fields is raw JSONB.
type Template struct {
	ID          string
	OrgID       string
	Name        string
	Description *string
	IsPublished bool
	Fields      []byte
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const templateColumns = `id, org_id, name, description, is_published, fields, created_by, created_at, updated_at`

type CreateTemplateParams struct {
	ID          string
	OrgID       string
	Name        string
	Description *string
	IsPublished bool
	Fields      []byte
	CreatedBy   string
}

func (q *Queries) CreateTemplate(ctx context.Context, p CreateTemplateParams) (Template, error) {
	var t Template
	err := q.Pool.QueryRow(ctx,
		`INSERT INTO form_templates (id, org_id, name, description, is_published, fields, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+templateColumns,
		p.ID, p.OrgID, p.Name, p.Description, p.IsPublished, p.Fields, p.CreatedBy,
	).Scan(&t.ID, &t.OrgID, &t.Name, &t.Description, &t.IsPublished, &t.Fields, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (q *Queries) UpdateTemplate(ctx context.Context, id string, name string, description *string, isPublished bool, fields []byte) (Template, error) {
	var t Template
	err := q.Pool.QueryRow(ctx,
		`UPDATE form_templates
		SET name = $2, description = $3, is_published = $4, fields = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING `+templateColumns,
		id, name, description, isPublished, fields,
	).Scan(&t.ID, &t.OrgID, &t.Name, &t.Description, &t.IsPublished, &t.Fields, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (q *Queries) GetTemplateByID(ctx context.Context, id string) (Template, error) {
	var t Template
	err := q.Pool.QueryRow(ctx,
		`SELECT `+templateColumns+` FROM form_templates WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.OrgID, &t.Name, &t.Description, &t.IsPublished, &t.Fields, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (q *Queries) ListTemplates(ctx context.Context, orgID string, limit, offset int) ([]Template, error) {
	rows, err := q.Pool.Query(ctx,
		`SELECT `+templateColumns+` FROM form_templates
		WHERE org_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		orgID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := make([]Template, 0)
	for rows.Next() {
		var t Template
		if err := rows.Scan(&t.ID, &t.OrgID, &t.Name, &t.Description, &t.IsPublished, &t.Fields, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// Invitation represents a form_invitations row. FieldSnapshot is raw JSONB.
type Invitation struct {
	ID            string
	OrgID         string
	ApplicationID string
	FormID        string
	Token         string
	Status        string
	FieldSnapshot []byte
	CustomMessage *string
	SentBy        string
	ExpiresAt     time.Time
	SentAt        *time.Time
	ViewedAt      *time.Time
	AnsweredAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

const invitationColumns = `id, org_id, application_id, form_id, token, status, field_snapshot,
	custom_message, sent_by, expires_at, sent_at, viewed_at, answered_at, created_at, updated_at`

func scanInvitation(row pgx.Row) (Invitation, error) {
	var i Invitation
	err := row.Scan(
		&i.ID, &i.OrgID, &i.ApplicationID, &i.FormID, &i.Token, &i.Status, &i.FieldSnapshot,
		&i.CustomMessage, &i.SentBy, &i.ExpiresAt, &i.SentAt, &i.ViewedAt, &i.AnsweredAt,
		&i.CreatedAt, &i.UpdatedAt,
	)
	return i, err
}

type CreateInvitationParams struct {
	ID            string
	OrgID         string
	ApplicationID string
	FormID        string
	Token         string
	Status        string
	FieldSnapshot []byte
	CustomMessage *string
	SentBy        string
	ExpiresAt     time.Time
}

func (q *Queries) CreateInvitation(ctx context.Context, p CreateInvitationParams) (Invitation, error) {
	return scanInvitation(q.Pool.QueryRow(ctx,
		`INSERT INTO form_invitations (
			id, org_id, application_id, form_id, token, status, field_snapshot,
			custom_message, sent_by, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+invitationColumns,
		p.ID, p.OrgID, p.ApplicationID, p.FormID, p.Token, p.Status, p.FieldSnapshot,
		p.CustomMessage, p.SentBy, p.ExpiresAt,
	))
}

func (q *Queries) GetInvitationByID(ctx context.Context, id string) (Invitation, error) {
	return scanInvitation(q.Pool.QueryRow(ctx,
		`SELECT `+invitationColumns+` FROM form_invitations WHERE id = $1`, id))
}

// GetInvitationByToken resolves the unique token index. Token lookup is
// the only query the public surface performs.
func (q *Queries) GetInvitationByToken(ctx context.Context, token string) (Invitation, error) {
	return scanInvitation(q.Pool.QueryRow(ctx,
		`SELECT `+invitationColumns+` FROM form_invitations WHERE token = $1`, token))
}

// HasActiveInvitation reports whether a non-terminal invitation exists
// for the (application, form) pair.
func (q *Queries) HasActiveInvitation(ctx context.Context, applicationID, formID string) (bool, error) {
	var exists bool
	err := q.Pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM form_invitations
			WHERE application_id = $1 AND form_id = $2
			  AND status IN ('PENDING', 'SENT', 'VIEWED')
		)`,
		applicationID, formID,
	).Scan(&exists)
	return exists, err
}

func (q *Queries) ListInvitationsByApplication(ctx context.Context, applicationID string) ([]Invitation, error) {
	rows, err := q.Pool.Query(ctx,
		`SELECT `+invitationColumns+` FROM form_invitations
		WHERE application_id = $1
		ORDER BY created_at DESC`,
		applicationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invitations := make([]Invitation, 0)
	for rows.Next() {
		i, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, i)
	}
	return invitations, rows.Err()
}

// Status transitions. Each is a conditional update keyed on the expected
// prior status; pgx.ErrNoRows means the row was not in that status and
// the caller must re-read and report a conflict.

func (q *Queries) MarkInvitationSent(ctx context.Context, id string) error {
	result, err := q.Pool.Exec(ctx,
		`UPDATE form_invitations
		SET status = 'SENT', sent_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'`,
		id,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (q *Queries) MarkInvitationFailed(ctx context.Context, id string) error {
	result, err := q.Pool.Exec(ctx,
		`UPDATE form_invitations
		SET status = 'FAILED', updated_at = NOW()
		WHERE id = $1 AND status IN ('PENDING', 'SENT')`,
		id,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (q *Queries) MarkInvitationViewed(ctx context.Context, id string) error {
	result, err := q.Pool.Exec(ctx,
		`UPDATE form_invitations
		SET status = 'VIEWED', viewed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'SENT'`,
		id,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (q *Queries) ExpireInvitation(ctx context.Context, id string) error {
	result, err := q.Pool.Exec(ctx,
		`UPDATE form_invitations
		SET status = 'EXPIRED', updated_at = NOW()
		WHERE id = $1 AND status IN ('PENDING', 'SENT', 'VIEWED') AND expires_at < NOW()`,
		id,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ExpireOverdueInvitations marks every active invitation past its expiry
// and returns the affected ids. Safe to run concurrently with resolve:
// both paths use conditional updates.
func (q *Queries) ExpireOverdueInvitations(ctx context.Context) ([]string, error) {
	rows, err := q.Pool.Query(ctx,
		`UPDATE form_invitations
		SET status = 'EXPIRED', updated_at = NOW()
		WHERE status IN ('PENDING', 'SENT', 'VIEWED') AND expires_at < NOW()
		RETURNING id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Response represents a form_responses row. Answers is raw JSONB.
type Response struct {
	ID            string
	InvitationID  string
	ApplicationID string
	SubmittedAt   time.Time
	Answers       []byte
}

const responseColumns = `id, invitation_id, application_id, submitted_at, answers`

type SubmitResponseParams struct {
	ID            string
	InvitationID  string
	ApplicationID string
	Answers       []byte
}

// SubmitResponse persists the response and transitions the invitation to
// ANSWERED as a single transaction. The conditional update on the
// invitation row is the serialization point: if the status changed
// concurrently the whole transaction rolls back with pgx.ErrNoRows and
// no response row survives.
func (q *Queries) SubmitResponse(ctx context.Context, p SubmitResponseParams) (Response, error) {
	var r Response
	tx, err := q.Pool.Begin(ctx)
	if err != nil {
		return r, err
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx,
		`UPDATE form_invitations
		SET status = 'ANSWERED', answered_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status IN ('SENT', 'VIEWED')`,
		p.InvitationID,
	)
	if err != nil {
		return r, err
	}
	if result.RowsAffected() == 0 {
		return r, pgx.ErrNoRows
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO form_responses (id, invitation_id, application_id, answers)
		VALUES ($1, $2, $3, $4)
		RETURNING `+responseColumns,
		p.ID, p.InvitationID, p.ApplicationID, p.Answers,
	).Scan(&r.ID, &r.InvitationID, &r.ApplicationID, &r.SubmittedAt, &r.Answers)
	if err != nil {
		return r, err
	}

	if err := tx.Commit(ctx); err != nil {
		return r, err
	}
	return r, nil
}

func (q *Queries) GetResponseByInvitationID(ctx context.Context, invitationID string) (Response, error) {
	var r Response
	err := q.Pool.QueryRow(ctx,
		`SELECT `+responseColumns+` FROM form_responses WHERE invitation_id = $1`,
		invitationID,
	).Scan(&r.ID, &r.InvitationID, &r.ApplicationID, &r.SubmittedAt, &r.Answers)
	return r, err
}

// ExportFilter narrows the streamed response set.
type ExportFilter struct {
	OrgID         string
	FormID        *string
	ApplicationID *string
	From          *time.Time
	To            *time.Time
}

// StreamResponses walks matching responses row by row, invoking fn for
// each. The result set is never buffered; fn returning an error aborts
// the scan.
func (q *Queries) StreamResponses(ctx context.Context, f ExportFilter, fn func(Response) error) error {
	rows, err := q.Pool.Query(ctx,
		`SELECT r.id, r.invitation_id, r.application_id, r.submitted_at, r.answers
		FROM form_responses r
		JOIN form_invitations i ON i.id = r.invitation_id
		WHERE i.org_id = $1
		  AND ($2::text IS NULL OR i.form_id = $2)
		  AND ($3::text IS NULL OR r.application_id = $3)
		  AND ($4::timestamptz IS NULL OR r.submitted_at >= $4)
		  AND ($5::timestamptz IS NULL OR r.submitted_at <= $5)
		ORDER BY r.submitted_at ASC`,
		f.OrgID, f.FormID, f.ApplicationID, f.From, f.To,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var r Response
		if err := rows.Scan(&r.ID, &r.InvitationID, &r.ApplicationID, &r.SubmittedAt, &r.Answers); err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return rows.Err()
}

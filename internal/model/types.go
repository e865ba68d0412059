package model

// InvitationStatus represents the lifecycle state of a form invitation
type InvitationStatus string

const (
	StatusPending  InvitationStatus = "PENDING"
	StatusSent     InvitationStatus = "SENT"
	StatusViewed   InvitationStatus = "VIEWED"
	StatusAnswered InvitationStatus = "ANSWERED"
	StatusExpired  InvitationStatus = "EXPIRED"
	StatusFailed   InvitationStatus = "FAILED"
)

// Terminal reports whether no further transitions are permitted from s.
func (s InvitationStatus) Terminal() bool {
	return s == StatusAnswered || s == StatusExpired || s == StatusFailed
}

// Active reports whether s still counts against the one-active-invitation
// rule for an (application, form) pair.
func (s InvitationStatus) Active() bool {
	return s == StatusPending || s == StatusSent || s == StatusViewed
}

// transitions is the full set of legal status edges. Terminal states
// have no outgoing edges.
var transitions = map[InvitationStatus][]InvitationStatus{
	StatusPending: {StatusSent, StatusFailed, StatusExpired},
	StatusSent:    {StatusViewed, StatusAnswered, StatusFailed, StatusExpired},
	StatusViewed:  {StatusAnswered, StatusExpired},
}

// CanTransition reports whether from -> to is a legal status edge.
func CanTransition(from, to InvitationStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// FieldType represents the kind of a form field
type FieldType string

const (
	FieldShortText FieldType = "short_text"
	FieldLongText  FieldType = "long_text"
	FieldEmail     FieldType = "email"
	FieldYesNo     FieldType = "yes_no"
	FieldSelect    FieldType = "select"
	FieldDate      FieldType = "date"
	FieldFile      FieldType = "file"
)

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case FieldShortText, FieldLongText, FieldEmail, FieldYesNo, FieldSelect, FieldDate, FieldFile:
		return true
	}
	return false
}

// QuotaKind represents a daily counter class
type QuotaKind string

const (
	QuotaInvitationsSent QuotaKind = "invitations_sent"
	QuotaAISuggestions   QuotaKind = "ai_suggestions"
)

// FormField is one field definition inside a template. Invitation
// snapshots copy fields verbatim at issuance.
type FormField struct {
	ID       string    `json:"id"`
	Type     FieldType `json:"type"`
	Label    string    `json:"label"`
	Required bool      `json:"required"`
	Options  []string  `json:"options,omitempty"`
	Order    int       `json:"order"`
}

// FormTemplate is a recruiter-owned form definition. Mutations apply to
// future invitations only; issued invitations keep their own snapshot.
type FormTemplate struct {
	ID          string      `json:"id"`
	OrgID       string      `json:"orgId"`
	Name        string      `json:"name"`
	Description *string     `json:"description,omitempty"`
	IsPublished bool        `json:"isPublished"`
	Fields      []FormField `json:"fields"`
	CreatedBy   string      `json:"createdBy"`
	CreatedAt   string      `json:"createdAt,omitempty"`
	UpdatedAt   string      `json:"updatedAt,omitempty"`
}

// FormInvitation is a single tokenized, expiring offer for a candidate
// to fill out one form instance tied to one application.
type FormInvitation struct {
	ID            string           `json:"id"`
	OrgID         string           `json:"orgId"`
	ApplicationID string           `json:"applicationId"`
	FormID        string           `json:"formId"`
	Token         string           `json:"-"`
	Status        InvitationStatus `json:"status"`
	FieldSnapshot []FormField      `json:"fieldSnapshot"`
	CustomMessage *string          `json:"customMessage,omitempty"`
	SentBy        string           `json:"sentBy"`
	ExpiresAt     string           `json:"expiresAt"`
	SentAt        *string          `json:"sentAt,omitempty"`
	ViewedAt      *string          `json:"viewedAt,omitempty"`
	AnsweredAt    *string          `json:"answeredAt,omitempty"`
	CreatedAt     string           `json:"createdAt,omitempty"`
}

// FormResponseAnswer is one answered field. The question wording is
// copied from the snapshot so later template edits never rewrite it.
type FormResponseAnswer struct {
	FieldID   string    `json:"fieldId"`
	Question  string    `json:"question"`
	FieldType FieldType `json:"fieldType"`
	Answer    *string   `json:"answer,omitempty"`
	FileURL   *string   `json:"fileUrl,omitempty"`
}

// FormResponse is the single submission recorded against an answered
// invitation.
type FormResponse struct {
	ID            string               `json:"id"`
	InvitationID  string               `json:"invitationId"`
	ApplicationID string               `json:"applicationId"`
	SubmittedAt   string               `json:"submittedAt"`
	Answers       []FormResponseAnswer `json:"answers"`
}

// QuotaResult reports the outcome of a quota consumption or peek.
type QuotaResult struct {
	Allowed   bool   `json:"allowed"`
	Remaining int    `json:"remaining"`
	Limit     int    `json:"limit"`
	ResetAt   string `json:"resetAt"`
}

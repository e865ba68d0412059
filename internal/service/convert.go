package service

import (
	"encoding/json"
	"fmt"
	"time"

	"formgate/internal/db"
	"formgate/internal/model"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

func dbTemplateToModel(t db.Template) (*model.FormTemplate, error) {
	var fields []model.FormField
	if err := json.Unmarshal(t.Fields, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode template fields: %w", err)
	}
	return &model.FormTemplate{
		ID:          t.ID,
		OrgID:       t.OrgID,
		Name:        t.Name,
		Description: t.Description,
		IsPublished: t.IsPublished,
		Fields:      fields,
		CreatedBy:   t.CreatedBy,
		CreatedAt:   t.CreatedAt.Format(timeLayout),
		UpdatedAt:   t.UpdatedAt.Format(timeLayout),
	}, nil
}

func dbInvitationToModel(i db.Invitation) (*model.FormInvitation, error) {
	var snapshot []model.FormField
	if err := json.Unmarshal(i.FieldSnapshot, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode field snapshot: %w", err)
	}
	return &model.FormInvitation{
		ID:            i.ID,
		OrgID:         i.OrgID,
		ApplicationID: i.ApplicationID,
		FormID:        i.FormID,
		Token:         i.Token,
		Status:        model.InvitationStatus(i.Status),
		FieldSnapshot: snapshot,
		CustomMessage: i.CustomMessage,
		SentBy:        i.SentBy,
		ExpiresAt:     i.ExpiresAt.Format(timeLayout),
		SentAt:        timePtrToString(i.SentAt),
		ViewedAt:      timePtrToString(i.ViewedAt),
		AnsweredAt:    timePtrToString(i.AnsweredAt),
		CreatedAt:     i.CreatedAt.Format(timeLayout),
	}, nil
}

func dbResponseToModel(r db.Response) (*model.FormResponse, error) {
	var answers []model.FormResponseAnswer
	if err := json.Unmarshal(r.Answers, &answers); err != nil {
		return nil, fmt.Errorf("failed to decode response answers: %w", err)
	}
	return &model.FormResponse{
		ID:            r.ID,
		InvitationID:  r.InvitationID,
		ApplicationID: r.ApplicationID,
		SubmittedAt:   r.SubmittedAt.Format(timeLayout),
		Answers:       answers,
	}, nil
}

func timePtrToString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(timeLayout)
	return &s
}

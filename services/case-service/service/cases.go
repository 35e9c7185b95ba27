package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strconv"
	"time"
	"unicode/utf8"

	"resolveit/pkg/apperror"
	"resolveit/pkg/middleware"
	"resolveit/pkg/queue"
	"resolveit/pkg/storage"
	"resolveit/pkg/validation"
	"resolveit/services/case-service/models"
	"resolveit/services/case-service/store"
)

// RegisterCaseInput is the case registration form. CaseType arrives as text
// and is range-checked after the presence check.
type RegisterCaseInput struct {
	CaseType             string `validate:"required"`
	Description          string `validate:"required"`
	OppositePartyName    string `validate:"required"`
	OppositePartyContact string `validate:"required"`
	OppositePartyAddress string `validate:"required"`
	IssuePendingStatus   string `validate:"required"`
	Proof                *multipart.FileHeader
}

// Cases runs the case lifecycle: registration by the owner, field updates by
// an administrator and the two listings.
type Cases struct {
	cases      store.CaseStore
	identities store.IdentityStore
	uploads    Uploader
	events     queue.Publisher
	metrics    *Metrics
	now        func() time.Time
}

func NewCases(cases store.CaseStore, identities store.IdentityStore, uploads Uploader, events queue.Publisher, metrics *Metrics) *Cases {
	if events == nil {
		events = queue.NopPublisher{}
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Cases{
		cases:      cases,
		identities: identities,
		uploads:    uploads,
		events:     events,
		metrics:    metrics,
		now:        time.Now,
	}
}

// Register files a case owned by ownerID. Nothing is written unless every
// check passes.
func (s *Cases) Register(ctx context.Context, ownerID string, in RegisterCaseInput) error {
	if validation.MissingRequired(in) {
		return apperror.Validation("All fields are required")
	}
	n, ok := validation.IntInRange(in.CaseType, 0, 2)
	if !ok {
		return apperror.Validation("Invalid case type")
	}
	category, err := models.ParseCategory(n)
	if err != nil {
		return apperror.Validation("Invalid case type")
	}
	if utf8.RuneCountInString(in.Description) < models.MinDescriptionLength {
		return apperror.Validation("Description must be at least 50 characters")
	}
	if in.Proof == nil {
		return apperror.New(apperror.KindMissingAttachment, "Proof document is required")
	}

	proofURI, err := s.uploads.Save(ctx, storage.EvidencePolicy, in.Proof)
	if err != nil {
		return uploadError(err, "Error in case registration, please retry")
	}

	c := &models.Case{
		OwnerID:              ownerID,
		Category:             category,
		Description:          in.Description,
		OppositePartyName:    in.OppositePartyName,
		OppositePartyContact: in.OppositePartyContact,
		OppositePartyAddress: in.OppositePartyAddress,
		IssuePendingStatus:   in.IssuePendingStatus,
		ProofURI:             proofURI,
	}
	if err := s.cases.Create(ctx, c); err != nil {
		if rmErr := s.uploads.Discard(ctx, proofURI); rmErr != nil {
			middleware.LogWarn(ctx, "failed to remove orphaned upload", "ref", proofURI, "error", rmErr.Error())
		}
		return apperror.Internal("Error in case registration, please retry", err)
	}

	s.metrics.casesRegistered.WithLabelValues(category.String()).Inc()
	middleware.LogInfo(ctx, "case registered", "case_id", c.ID, "owner_id", ownerID, "category", category.String())
	s.publish(ctx, models.CaseEvent{
		Type:     models.EventCaseRegistered,
		CaseID:   c.ID,
		OwnerID:  ownerID,
		ActorID:  ownerID,
		Category: category.String(),
	})
	return nil
}

// update applies one admin field write. The write is unconditional; the
// store never checks the previous value.
func (s *Cases) update(ctx context.Context, actorID, caseID, field, value, failMsg string, apply func() (*models.Case, error)) error {
	c, err := apply()
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.New(apperror.KindNotFound, "Case not found")
		}
		return apperror.Internal(failMsg, err)
	}

	s.metrics.transitions.WithLabelValues(field, value).Inc()
	middleware.LogInfo(ctx, "case updated", "case_id", caseID, "actor_id", actorID, "field", field, "value", value)
	s.publish(ctx, models.CaseEvent{
		Type:    models.EventCaseUpdated,
		CaseID:  c.ID,
		OwnerID: c.OwnerID,
		ActorID: actorID,
		Field:   field,
		Value:   value,
	})
	return nil
}

func (s *Cases) SetVerification(ctx context.Context, actorID, caseID string, verified bool) error {
	return s.update(ctx, actorID, caseID, "verifiedByAdmin", strconv.FormatBool(verified),
		"Error in case verification status update, please retry",
		func() (*models.Case, error) { return s.cases.SetVerified(ctx, caseID, verified) })
}

func (s *Cases) SetOppositeStatus(ctx context.Context, actorID, caseID string, status models.OppositeStatus) error {
	if !status.Valid() {
		return apperror.Validation("Invalid opposite status")
	}
	return s.update(ctx, actorID, caseID, "oppositeStatus", status.String(),
		"Error in opposite status update, please retry",
		func() (*models.Case, error) { return s.cases.SetOppositeStatus(ctx, caseID, status) })
}

func (s *Cases) SetCaseStatus(ctx context.Context, actorID, caseID string, status models.Status) error {
	if !status.Valid() {
		return apperror.Validation("Invalid case status")
	}
	return s.update(ctx, actorID, caseID, "caseStatus", status.String(),
		"Error in case status update, please retry",
		func() (*models.Case, error) { return s.cases.SetCaseStatus(ctx, caseID, status) })
}

// ListAll returns every case with its owner's public profile joined in.
func (s *Cases) ListAll(ctx context.Context) ([]models.CaseView, error) {
	cases, err := s.cases.ListAll(ctx)
	if err != nil {
		return nil, apperror.Internal("Error in fetching cases, please retry", err)
	}

	ids := make([]string, 0, len(cases))
	seen := make(map[string]struct{}, len(cases))
	for _, c := range cases {
		if _, ok := seen[c.OwnerID]; !ok {
			seen[c.OwnerID] = struct{}{}
			ids = append(ids, c.OwnerID)
		}
	}
	owners, err := s.identities.FindByIDs(ctx, ids)
	if err != nil {
		return nil, apperror.Internal("Error in fetching cases, please retry", err)
	}

	views := make([]models.CaseView, 0, len(cases))
	for _, c := range cases {
		view := models.CaseView{Case: c, Owner: models.PublicProfile{ID: c.OwnerID}}
		if owner, ok := owners[c.OwnerID]; ok {
			view.Owner = owner.PublicProfile()
		}
		views = append(views, view)
	}
	return views, nil
}

// ListForOwner returns the cases owned by requestedID, scoped by the store
// query. An empty requestedID means the caller; only an administrator may
// list another identity's cases.
func (s *Cases) ListForOwner(ctx context.Context, caller middleware.Principal, requestedID string) ([]models.CaseView, error) {
	ownerID := requestedID
	if ownerID == "" {
		ownerID = caller.ID
	}
	if ownerID != caller.ID && !caller.Admin {
		middleware.LogWarn(ctx, "case list for another identity denied", "identity_id", caller.ID, "requested_id", requestedID)
		return nil, apperror.New(apperror.KindForbidden, "Access denied")
	}

	cases, err := s.cases.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperror.Internal("Error in fetching case, please retry", err)
	}

	profile := models.PublicProfile{ID: ownerID}
	if len(cases) > 0 {
		owner, err := s.identities.FindByID(ctx, ownerID)
		switch {
		case err == nil:
			profile = owner.PublicProfile()
		case !errors.Is(err, apperror.ErrNotFound):
			return nil, apperror.Internal("Error in fetching case, please retry", err)
		}
	}

	views := make([]models.CaseView, 0, len(cases))
	for _, c := range cases {
		views = append(views, models.CaseView{Case: c, Owner: profile})
	}
	return views, nil
}

// publish emits a case event. Delivery is best effort: the write it reports
// has already succeeded.
func (s *Cases) publish(ctx context.Context, event models.CaseEvent) {
	event.OccurredAt = s.now().UTC()
	routingKey := event.Type
	if err := s.events.Publish(ctx, routingKey, event); err != nil {
		s.metrics.eventFailures.Inc()
		middleware.LogError(ctx, "failed to publish case event", err, "case_id", event.CaseID, "type", event.Type)
	}
}

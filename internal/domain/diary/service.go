package diary

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carelab/carelab/internal/domain/errs"
	"github.com/carelab/carelab/internal/domain/identity"
	"github.com/carelab/carelab/internal/platform/audit"
	"github.com/carelab/carelab/internal/platform/auth"
)

// Service handles blood sugar diary submission and viewing. Patients write
// and read their own diary; attending clinicians may read any patient's.
type Service struct {
	entries EntryRepository
	users   identity.UserRepository
	audit   audit.Sink
	now     func() time.Time
}

func NewService(entries EntryRepository, users identity.UserRepository, sink audit.Sink) *Service {
	return &Service{entries: entries, users: users, audit: sink, now: time.Now}
}

// SubmitInput carries one day of readings. The acting patient is taken from
// the principal, never from the payload.
type SubmitInput struct {
	Date      string `json:"date"`
	Fasting   int    `json:"fasting"`
	Breakfast int    `json:"breakfast"`
	Lunch     int    `json:"lunch"`
	Dinner    int    `json:"dinner"`
}

// Submit creates or replaces the caller's entry for the given date.
func (s *Service) Submit(ctx context.Context, p auth.Principal, in SubmitInput) (*Entry, error) {
	if p.Role != auth.RolePatient {
		return nil, errs.ErrAccessDenied
	}
	e := &Entry{
		Patient:   p.Username,
		Date:      in.Date,
		Fasting:   in.Fasting,
		Breakfast: in.Breakfast,
		Lunch:     in.Lunch,
		Dinner:    in.Dinner,
	}
	if err := e.Validate(s.now()); err != nil {
		return nil, err
	}
	if err := s.entries.Upsert(ctx, e); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.New(p.Username, p.Role, "diary.submit", fmt.Sprintf("diary/%s/%s", e.Patient, e.Date)))
	return e, nil
}

// ListOwn returns the caller's diary, oldest entry first.
func (s *Service) ListOwn(ctx context.Context, p auth.Principal, limit, offset int) ([]*Entry, int, error) {
	if p.Role != auth.RolePatient {
		return nil, 0, errs.ErrAccessDenied
	}
	entries, total, err := s.entries.ListByPatient(ctx, p.Username, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	s.audit.Record(ctx, audit.New(p.Username, p.Role, "diary.view", fmt.Sprintf("diary/%s", p.Username)))
	return entries, total, nil
}

// ListForPatient returns a named patient's diary for an attending clinician.
// Lab techs have no diary access.
func (s *Service) ListForPatient(ctx context.Context, p auth.Principal, patient string, limit, offset int) ([]*Entry, int, error) {
	if !auth.IsClinicalViewer(p.Role) {
		return nil, 0, errs.ErrAccessDenied
	}
	if _, err := s.users.GetByUsernameAndRole(ctx, patient, auth.RolePatient); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, 0, errs.ErrNotFound
		}
		return nil, 0, err
	}
	entries, total, err := s.entries.ListByPatient(ctx, patient, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	s.audit.Record(ctx, audit.New(p.Username, p.Role, "diary.view", fmt.Sprintf("diary/%s", patient)))
	return entries, total, nil
}

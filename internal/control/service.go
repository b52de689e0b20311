// Package control is the application facade: every teacher action and student
// agent call goes through one Service method, which runs a single atomic
// read-modify-write pass against the shared document.
package control

import (
	"context"
	"fmt"
	"time"

	"github.com/G-districts/Gschool-connect/internal/domain"
	"github.com/G-districts/Gschool-connect/internal/policy"
	"github.com/G-districts/Gschool-connect/internal/queue"
	"github.com/G-districts/Gschool-connect/internal/scene"
	"github.com/G-districts/Gschool-connect/internal/session"
	"github.com/G-districts/Gschool-connect/internal/store"
)

// Notifier receives live events for connected teacher dashboards. A nil
// notifier drops events.
type Notifier interface {
	Publish(event string, payload any)
}

// Service wires the document store, the relational side store, the scene
// store and the event feed together.
type Service struct {
	docs   store.DocumentStore
	repo   store.Repository
	scenes *scene.Store
	events Notifier
	now    func() time.Time
}

// New creates the control service. events may be nil.
func New(docs store.DocumentStore, repo store.Repository, scenes *scene.Store, events Notifier) *Service {
	return &Service{
		docs:   docs,
		repo:   repo,
		scenes: scenes,
		events: events,
		now:    time.Now,
	}
}

func (s *Service) publish(event string, payload any) {
	if s.events != nil {
		s.events.Publish(event, payload)
	}
}

// audit appends a best-effort audit record, capped.
func (s *Service) audit(d *domain.Document, e domain.AuditEntry) {
	e.TS = s.now().Unix()
	d.Audit = append(d.Audit, e)
	if len(d.Audit) > domain.AuditCap {
		d.Audit = d.Audit[len(d.Audit)-domain.AuditCap:]
	}
}

// Document returns the current shared document.
func (s *Service) Document(ctx context.Context) (*domain.Document, error) {
	return s.docs.Load(ctx)
}

// ReconcileAndGetActive recomputes and persists the active-session set.
func (s *Service) ReconcileAndGetActive(ctx context.Context) ([]string, error) {
	var active []string
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		active = session.Apply(d, s.now())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile sessions: %w", err)
	}
	return active, nil
}

// StartSession sets the manual override and activates the session now.
func (s *Service) StartSession(ctx context.Context, sessionID, by string) ([]string, error) {
	var active []string
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		if err := session.Start(d, sessionID); err != nil {
			return err
		}
		s.audit(d, domain.AuditEntry{Event: "session_start", Target: sessionID, By: by})
		active = d.ActiveSessions
		return nil
	})
	return active, err
}

// EndSession clears the manual override and deactivates the session now.
func (s *Service) EndSession(ctx context.Context, sessionID, by string) ([]string, error) {
	var active []string
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		if err := session.End(d, sessionID); err != nil {
			return err
		}
		s.audit(d, domain.AuditEntry{Event: "session_end", Target: sessionID, By: by})
		active = d.ActiveSessions
		return nil
	})
	return active, err
}

// requireActive reconciles then checks the session exists and is active.
func (s *Service) requireActive(d *domain.Document, sessionID string) error {
	if sessionID == "" {
		return domain.ErrSessionRequired
	}
	if d.FindSession(sessionID) == nil {
		return domain.ErrSessionNotFound
	}
	session.Apply(d, s.now())
	if !d.IsActive(sessionID) {
		return domain.ErrSessionNotActive
	}
	return nil
}

// SendCommand queues a command on an active session. When targetStudent is
// set, a session-stamped copy also goes to that student's one-shot mailbox.
func (s *Service) SendCommand(ctx context.Context, sessionID, targetStudent string, cmd domain.Command, by string) (domain.Command, error) {
	if cmd.Type == "" {
		return domain.Command{}, fmt.Errorf("%w: command type required", domain.ErrValidation)
	}
	var stamped domain.Command
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		if err := s.requireActive(d, sessionID); err != nil {
			return err
		}
		cmd.TS = s.now().Unix()
		stamped = queue.EnqueueSession(d, sessionID, cmd)
		if targetStudent != "" {
			queue.EnqueueStudent(d, targetStudent, stamped)
		}
		target := "session:" + sessionID
		if targetStudent != "" {
			target = targetStudent
		}
		s.audit(d, domain.AuditEntry{Event: "command", Target: target, Detail: cmd.Type, By: by})
		return nil
	})
	return stamped, err
}

// SendStudentCommand queues a one-shot command directly to a student,
// bypassing session scoping. When sessionID is set the session must be active
// and the command carries its stamp.
func (s *Service) SendStudentCommand(ctx context.Context, studentID, sessionID string, cmd domain.Command, by string) (domain.Command, error) {
	if studentID == "" {
		return domain.Command{}, fmt.Errorf("%w: student required", domain.ErrValidation)
	}
	if cmd.Type == "" {
		return domain.Command{}, fmt.Errorf("%w: command type required", domain.ErrValidation)
	}
	var stamped domain.Command
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		if sessionID != "" {
			if err := s.requireActive(d, sessionID); err != nil {
				return err
			}
			cmd.SessionID = sessionID
		}
		cmd.TS = s.now().Unix()
		stamped = queue.EnqueueStudent(d, studentID, cmd)
		s.audit(d, domain.AuditEntry{Event: "student_command", Student: studentID, Detail: cmd.Type, By: by})
		return nil
	})
	return stamped, err
}

// PollCommands drains everything addressed to the student: the one-shot
// mailbox plus undelivered commands from every active session enrolling them.
func (s *Service) PollCommands(ctx context.Context, studentID string) ([]domain.Command, error) {
	out := []domain.Command{}
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		active := session.ActiveForStudent(d, studentID, s.now())
		out = append(out, queue.DrainStudent(d, studentID)...)
		out = append(out, queue.DrainSessions(d, studentID, active)...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("poll commands for %s: %w", studentID, err)
	}
	return out, nil
}

// EffectiveState composes the per-student session-layer policy, persisting
// the reconciled active set as a side effect.
func (s *Service) EffectiveState(ctx context.Context, studentID string) (domain.EffectivePolicy, error) {
	var merged domain.EffectivePolicy
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		merged = policy.Compose(d, studentID, s.now())
		return nil
	})
	return merged, err
}

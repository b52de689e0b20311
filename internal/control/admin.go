package control

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/G-districts/Gschool-connect/internal/domain"
	"github.com/G-districts/Gschool-connect/internal/identity"
	"github.com/G-districts/Gschool-connect/internal/queue"
	"github.com/G-districts/Gschool-connect/internal/session"
)

// Sessions reconciles and returns all session definitions plus the active set.
func (s *Service) Sessions(ctx context.Context) ([]*domain.Session, []string, error) {
	var (
		sessions []*domain.Session
		active   []string
	)
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		active = session.Apply(d, s.now())
		sessions = d.Sessions
		return nil
	})
	return sessions, active, err
}

// Session returns one session and whether it is currently active.
func (s *Service) Session(ctx context.Context, id string) (*domain.Session, bool, error) {
	var (
		sess   *domain.Session
		active bool
	)
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		sess = d.FindSession(id)
		if sess == nil {
			return domain.ErrSessionNotFound
		}
		session.Apply(d, s.now())
		active = d.IsActive(id)
		return nil
	})
	return sess, active, err
}

// CreateSession registers a session, replacing any prior one with the same id.
func (s *Service) CreateSession(ctx context.Context, sess domain.Session, by string) (*domain.Session, error) {
	if sess.ID == "" {
		sess.ID = "sess_" + uuid.NewString()[:8]
	}
	if sess.Name == "" {
		sess.Name = "New Session"
	}
	if sess.Students == nil {
		sess.Students = []string{}
	}
	if sess.Controls.Allowlist == nil {
		sess.Controls.Allowlist = []string{}
	}
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		kept := d.Sessions[:0]
		for _, existing := range d.Sessions {
			if existing.ID != sess.ID {
				kept = append(kept, existing)
			}
		}
		d.Sessions = append(kept, &sess)
		s.audit(d, domain.AuditEntry{Event: "session_create", Target: sess.ID, By: by})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// SessionPatch carries partial session updates; nil fields stay untouched.
type SessionPatch struct {
	Name     *string          `json:"name"`
	Teacher  *string          `json:"teacher"`
	Students *[]string        `json:"students"`
	Controls *domain.Controls `json:"controls"`
	Schedule *domain.Schedule `json:"schedule"`
	Manual   *bool            `json:"manual"`
}

// UpdateSession applies a partial update to an existing session.
func (s *Service) UpdateSession(ctx context.Context, id string, patch SessionPatch, by string) (*domain.Session, error) {
	var updated *domain.Session
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		sess := d.FindSession(id)
		if sess == nil {
			return domain.ErrSessionNotFound
		}
		if patch.Name != nil {
			sess.Name = *patch.Name
		}
		if patch.Teacher != nil {
			sess.Teacher = *patch.Teacher
		}
		if patch.Students != nil {
			sess.Students = *patch.Students
		}
		if patch.Controls != nil {
			sess.Controls = *patch.Controls
		}
		if patch.Schedule != nil {
			sess.Schedule = *patch.Schedule
		}
		if patch.Manual != nil {
			sess.Manual = *patch.Manual
		}
		s.audit(d, domain.AuditEntry{Event: "session_update", Target: id, By: by})
		updated = sess
		return nil
	})
	return updated, err
}

// DeleteSession removes a session, its queue, counters and cursors.
func (s *Service) DeleteSession(ctx context.Context, id, by string) error {
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		kept := d.Sessions[:0]
		for _, sess := range d.Sessions {
			if sess.ID != id {
				kept = append(kept, sess)
			}
		}
		d.Sessions = kept
		queue.DropSession(d, id)
		session.Apply(d, s.now())
		s.audit(d, domain.AuditEntry{Event: "session_delete", Target: id, By: by})
		return nil
	})
	return err
}

// Students returns the student registry.
func (s *Service) Students(ctx context.Context) ([]domain.Student, error) {
	d, err := s.docs.Load(ctx)
	if err != nil {
		return nil, err
	}
	return d.Students, nil
}

// Student looks a registry entry up by id or email.
func (s *Service) Student(ctx context.Context, idOrEmail string) (*domain.Student, error) {
	d, err := s.docs.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range d.Students {
		if d.Students[i].ID == idOrEmail || d.Students[i].Email == idOrEmail {
			return &d.Students[i], nil
		}
	}
	return nil, domain.ErrStudentNotFound
}

// UpsertStudent registers or replaces a student. Falls back to the email as
// id, or a generated one when neither is given.
func (s *Service) UpsertStudent(ctx context.Context, st domain.Student) (domain.Student, error) {
	if st.ID == "" {
		st.ID = st.Email
	}
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	if st.Email == "" {
		st.Email = st.ID
	}
	st.Email = identity.Normalize(st.Email)
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		kept := d.Students[:0]
		for _, existing := range d.Students {
			if existing.ID != st.ID && existing.Email != st.ID {
				kept = append(kept, existing)
			}
		}
		d.Students = append(kept, st)
		return nil
	})
	return st, err
}

// DeleteStudent removes a registry entry by id or email.
func (s *Service) DeleteStudent(ctx context.Context, idOrEmail string) error {
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		kept := d.Students[:0]
		for _, st := range d.Students {
			if st.ID != idOrEmail && st.Email != idOrEmail {
				kept = append(kept, st)
			}
		}
		d.Students = kept
		return nil
	})
	return err
}

// ImportStudents replaces the whole registry. Entries without ids get their
// email, or a generated id.
func (s *Service) ImportStudents(ctx context.Context, students []domain.Student) (int, error) {
	norm := make([]domain.Student, 0, len(students))
	for _, st := range students {
		if st.ID == "" {
			st.ID = st.Email
		}
		if st.ID == "" {
			st.ID = uuid.NewString()
		}
		if st.Email == "" {
			st.Email = st.ID
		}
		st.Email = identity.Normalize(st.Email)
		norm = append(norm, st)
	}
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		d.Students = norm
		return nil
	})
	return len(norm), err
}

// SettingsPatch carries partial settings updates.
type SettingsPatch struct {
	BlockedRedirect *string `json:"blocked_redirect"`
	ChatEnabled     *bool   `json:"chat_enabled"`
	Passcode        *string `json:"passcode"`
}

// UpdateSettings applies a partial settings update, mirroring the chat toggle
// into the relational side store for clients reading it from there.
func (s *Service) UpdateSettings(ctx context.Context, patch SettingsPatch) (domain.Settings, error) {
	var out domain.Settings
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		if patch.BlockedRedirect != nil {
			d.Settings.BlockedRedirect = *patch.BlockedRedirect
		}
		if patch.ChatEnabled != nil {
			d.Settings.ChatEnabled = *patch.ChatEnabled
		}
		if patch.Passcode != nil && *patch.Passcode != "" {
			d.Settings.Passcode = *patch.Passcode
		}
		out = d.Settings
		return nil
	})
	if err != nil {
		return domain.Settings{}, err
	}
	if patch.ChatEnabled != nil {
		if err := s.repo.SetSetting(ctx, "chat_enabled", *patch.ChatEnabled); err != nil {
			return out, fmt.Errorf("mirror chat setting: %w", err)
		}
	}
	return out, nil
}

// SetCategory creates or replaces an admin URL category.
func (s *Service) SetCategory(ctx context.Context, name string, cat domain.Category) error {
	if name == "" {
		return fmt.Errorf("%w: name required", domain.ErrValidation)
	}
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		d.Categories[name] = cat
		return nil
	})
	return err
}

// DeleteCategory removes a category, a no-op for unknown names.
func (s *Service) DeleteCategory(ctx context.Context, name string) error {
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		delete(d.Categories, name)
		return nil
	})
	return err
}

// GlobalOverrides returns the admin-level allowlist and block list.
func (s *Service) GlobalOverrides(ctx context.Context) ([]string, []string, error) {
	d, err := s.docs.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	return d.Allowlist, d.TeacherBlocks, nil
}

// SetGlobalOverrides replaces the admin-level allowlist and block list.
func (s *Service) SetGlobalOverrides(ctx context.Context, allowlist, blocks []string, by string) error {
	if allowlist == nil {
		allowlist = []string{}
	}
	if blocks == nil {
		blocks = []string{}
	}
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		d.Allowlist = allowlist
		d.TeacherBlocks = blocks
		s.audit(d, domain.AuditEntry{Event: "overrides_save", By: by})
		return nil
	})
	return err
}

// SetStudentOverride layers per-student focus/pause flags over the class
// defaults. Nil fields leave the existing override untouched.
func (s *Service) SetStudentOverride(ctx context.Context, student string, focusMode, paused *bool, by string) (*domain.Override, error) {
	if student == "" {
		return nil, fmt.Errorf("%w: student required", domain.ErrValidation)
	}
	var out *domain.Override
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		ov := d.StudentOverrides[student]
		if ov == nil {
			ov = &domain.Override{}
			d.StudentOverrides[student] = ov
		}
		if focusMode != nil {
			ov.FocusMode = focusMode
		}
		if paused != nil {
			ov.Paused = paused
		}
		s.audit(d, domain.AuditEntry{Event: "student_set", Student: student, By: by})
		out = ov
		return nil
	})
	return out, err
}

// ClassState returns the legacy class block and settings.
func (s *Service) ClassState(ctx context.Context) (*domain.Class, domain.Settings, error) {
	d, err := s.docs.Load(ctx)
	if err != nil {
		return nil, domain.Settings{}, err
	}
	return d.Classes[domain.DefaultClassID], d.Settings, nil
}

// ClassPatch carries partial class updates.
type ClassPatch struct {
	TeacherBlocks *[]string `json:"teacher_blocks"`
	Allowlist     *[]string `json:"allowlist"`
	ChatEnabled   *bool     `json:"chat_enabled"`
	Active        *bool     `json:"active"`
	Passcode      *string   `json:"passcode"`
}

// UpdateClass applies teacher-level class settings, mirroring list changes to
// the relational side store.
func (s *Service) UpdateClass(ctx context.Context, patch ClassPatch, by string) (*domain.Class, domain.Settings, error) {
	var (
		cls      *domain.Class
		settings domain.Settings
	)
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		cls = d.Classes[domain.DefaultClassID]
		if patch.TeacherBlocks != nil {
			cls.TeacherBlocks = append([]string{}, (*patch.TeacherBlocks)...)
		}
		if patch.Allowlist != nil {
			cls.Allowlist = append([]string{}, (*patch.Allowlist)...)
		}
		if patch.ChatEnabled != nil {
			d.Settings.ChatEnabled = *patch.ChatEnabled
		}
		if patch.Active != nil {
			cls.Active = *patch.Active
		}
		if patch.Passcode != nil && *patch.Passcode != "" {
			d.Settings.Passcode = *patch.Passcode
		}
		settings = d.Settings
		s.audit(d, domain.AuditEntry{Event: "class_set", By: by})
		return nil
	})
	if err != nil {
		return nil, domain.Settings{}, err
	}
	if patch.TeacherBlocks != nil {
		if err := s.repo.SetSetting(ctx, "teacher_blocks", *patch.TeacherBlocks); err != nil {
			return cls, settings, fmt.Errorf("mirror teacher blocks: %w", err)
		}
	}
	if patch.Allowlist != nil {
		if err := s.repo.SetSetting(ctx, "teacher_allow", *patch.Allowlist); err != nil {
			return cls, settings, fmt.Errorf("mirror teacher allowlist: %w", err)
		}
	}
	if patch.ChatEnabled != nil {
		if err := s.repo.SetSetting(ctx, "chat_enabled", *patch.ChatEnabled); err != nil {
			return cls, settings, fmt.Errorf("mirror chat setting: %w", err)
		}
	}
	return cls, settings, nil
}

// ToggleClassFlag flips focus_mode or paused on the class.
func (s *Service) ToggleClassFlag(ctx context.Context, key string, value bool, by string) (*domain.Class, error) {
	if key != "focus_mode" && key != "paused" {
		return nil, fmt.Errorf("%w: invalid class flag %q", domain.ErrValidation, key)
	}
	var cls *domain.Class
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		cls = d.Classes[domain.DefaultClassID]
		if key == "focus_mode" {
			cls.FocusMode = value
		} else {
			cls.Paused = value
		}
		s.audit(d, domain.AuditEntry{Event: "class_toggle", Detail: key, By: by})
		return nil
	})
	return cls, err
}

// SetExtensionEnabled flips the global kill switch for every student agent.
func (s *Service) SetExtensionEnabled(ctx context.Context, enabled bool, by string) error {
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		d.ExtensionEnabled = enabled
		s.audit(d, domain.AuditEntry{Event: "extension_toggle", Detail: fmt.Sprint(enabled), By: by})
		return nil
	})
	return err
}

// AuditLog returns the most recent audit records.
func (s *Service) AuditLog(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	limit = clamp(limit, 1, domain.AuditCap, 200)
	d, err := s.docs.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := d.Audit
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

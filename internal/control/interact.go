package control

import (
	"context"
	"fmt"
	"strconv"

	"github.com/G-districts/Gschool-connect/internal/domain"
	"github.com/G-districts/Gschool-connect/internal/queue"
)

// Truncation limits for free-text fields.
const (
	maxNotifyTitle   = 120
	maxNotifyMessage = 500
	maxChatText      = 500
)

// Notify queues a notification to every member of an active session.
func (s *Service) Notify(ctx context.Context, sessionID, title, message, by string) error {
	if title == "" {
		title = "G School"
	}
	_, err := s.SendCommand(ctx, sessionID, "", domain.Command{
		Type:    domain.CommandNotify,
		Title:   truncate(title, maxNotifyTitle),
		Message: truncate(message, maxNotifyMessage),
	}, by)
	return err
}

// OpenTabs pushes URLs to a whole session, or to one student's one-shot
// mailbox when studentID is set.
func (s *Service) OpenTabs(ctx context.Context, sessionID, studentID string, urls []string, by string) error {
	if len(urls) == 0 {
		return fmt.Errorf("%w: urls required", domain.ErrValidation)
	}
	cmd := domain.Command{Type: domain.CommandOpenTabs, URLs: urls}
	if studentID != "" {
		_, err := s.SendStudentCommand(ctx, studentID, sessionID, cmd, by)
		return err
	}
	_, err := s.SendCommand(ctx, sessionID, "", cmd, by)
	return err
}

// TabsAction queues a restore/close tabs command for one student.
func (s *Service) TabsAction(ctx context.Context, studentID, action, by string) error {
	if action != domain.CommandRestoreTabs && action != domain.CommandCloseTabs {
		return fmt.Errorf("%w: invalid tabs action %q", domain.ErrValidation, action)
	}
	_, err := s.SendStudentCommand(ctx, studentID, "", domain.Command{Type: action}, by)
	return err
}

// CreatePoll registers a poll and queues it to the session.
func (s *Service) CreatePoll(ctx context.Context, sessionID, question string, options []string, by string) (string, error) {
	opts := []string{}
	for _, o := range options {
		if o != "" {
			opts = append(opts, o)
		}
	}
	if question == "" || len(opts) == 0 {
		return "", fmt.Errorf("%w: question and options required", domain.ErrValidation)
	}

	pollID := "poll_" + strconv.FormatInt(s.now().UnixMilli(), 10)
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		if err := s.requireActive(d, sessionID); err != nil {
			return err
		}
		d.Polls[pollID] = &domain.Poll{Question: question, Options: opts, Responses: []domain.PollResponse{}}
		queue.EnqueueSession(d, sessionID, domain.Command{
			Type:     domain.CommandPoll,
			PollID:   pollID,
			Question: question,
			Options:  opts,
			TS:       s.now().Unix(),
		})
		s.audit(d, domain.AuditEntry{Event: "poll_create", Target: pollID, By: by})
		return nil
	})
	if err != nil {
		return "", err
	}
	return pollID, nil
}

// RecordPollResponse stores one student's answer.
func (s *Service) RecordPollResponse(ctx context.Context, pollID, student, answer string) error {
	if pollID == "" {
		return fmt.Errorf("%w: poll id required", domain.ErrValidation)
	}
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		poll, ok := d.Polls[pollID]
		if !ok {
			return fmt.Errorf("poll %s: %w", pollID, domain.ErrNotFound)
		}
		poll.Responses = append(poll.Responses, domain.PollResponse{
			Student: student,
			Answer:  answer,
			TS:      s.now().Unix(),
		})
		return nil
	})
	return err
}

// Polls returns every poll with its responses.
func (s *Service) Polls(ctx context.Context) (map[string]*domain.Poll, error) {
	d, err := s.docs.Load(ctx)
	if err != nil {
		return nil, err
	}
	return d.Polls, nil
}

// StartAttentionCheck queues an attention check to a session and resets the
// persisted response state. The timeout is advisory; late responses are still
// recorded.
func (s *Service) StartAttentionCheck(ctx context.Context, sessionID, title string, timeout int, by string) error {
	if title == "" {
		title = "Are you paying attention?"
	}
	if timeout <= 0 {
		timeout = 30
	}
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		if err := s.requireActive(d, sessionID); err != nil {
			return err
		}
		now := s.now().Unix()
		queue.EnqueueSession(d, sessionID, domain.Command{
			Type:    domain.CommandAttentionCheck,
			Title:   title,
			Timeout: timeout,
			TS:      now,
		})
		d.AttentionCheck = &domain.AttentionCheck{
			Title:     title,
			Timeout:   timeout,
			SessionID: sessionID,
			Started:   now,
			Responses: map[string]domain.AttentionResponse{},
		}
		s.audit(d, domain.AuditEntry{Event: "attention_check_start", Target: sessionID, By: by})
		return nil
	})
	return err
}

// RecordAttentionResponse stores a student's acknowledgement of the current
// check.
func (s *Service) RecordAttentionResponse(ctx context.Context, student, response string) error {
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		if d.AttentionCheck == nil {
			return fmt.Errorf("%w: no active attention check", domain.ErrValidation)
		}
		if d.AttentionCheck.Responses == nil {
			d.AttentionCheck.Responses = map[string]domain.AttentionResponse{}
		}
		d.AttentionCheck.Responses[student] = domain.AttentionResponse{
			Response: response,
			TS:       s.now().Unix(),
		}
		return nil
	})
	return err
}

// AttentionResults returns the current check state, nil when none ran yet.
func (s *Service) AttentionResults(ctx context.Context) (*domain.AttentionCheck, error) {
	d, err := s.docs.Load(ctx)
	if err != nil {
		return nil, err
	}
	return d.AttentionCheck, nil
}

// Exam actions.
const (
	ExamStart = "start"
	ExamEnd   = "end"
)

// Exam starts or ends exam lock for a session.
func (s *Service) Exam(ctx context.Context, sessionID, action, examURL, by string) error {
	if action != ExamStart && action != ExamEnd {
		return fmt.Errorf("%w: invalid exam action %q", domain.ErrValidation, action)
	}
	if action == ExamStart && examURL == "" {
		return fmt.Errorf("%w: url required", domain.ErrValidation)
	}
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		if err := s.requireActive(d, sessionID); err != nil {
			return err
		}
		if action == ExamStart {
			queue.EnqueueSession(d, sessionID, domain.Command{
				Type: domain.CommandExamStart,
				URL:  examURL,
				TS:   s.now().Unix(),
			})
			d.ExamState = domain.ExamState{Active: true, URL: examURL}
		} else {
			queue.EnqueueSession(d, sessionID, domain.Command{
				Type: domain.CommandExamEnd,
				TS:   s.now().Unix(),
			})
			d.ExamState.Active = false
		}
		s.audit(d, domain.AuditEntry{Event: "exam_" + action, Target: sessionID, By: by})
		return nil
	})
	return err
}

// ReportExamViolation records a student-reported exam lock breach.
func (s *Service) ReportExamViolation(ctx context.Context, v domain.ExamViolation) error {
	if v.Student == "" {
		return fmt.Errorf("%w: student required", domain.ErrValidation)
	}
	if v.Reason == "" {
		v.Reason = "tab_violation"
	}
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		v.TS = s.now().Unix()
		d.ExamViolations = append(d.ExamViolations, v)
		if len(d.ExamViolations) > domain.ExamViolationCap {
			d.ExamViolations = d.ExamViolations[len(d.ExamViolations)-domain.ExamViolationCap:]
		}
		s.audit(d, domain.AuditEntry{Event: "exam_violation", Student: v.Student, Detail: v.Reason})
		return nil
	})
	if err == nil {
		s.publish("exam_violation", v)
	}
	return err
}

// ExamViolations returns the most recent breaches.
func (s *Service) ExamViolations(ctx context.Context, limit int) ([]domain.ExamViolation, error) {
	limit = clamp(limit, 1, domain.ExamViolationCap, 200)
	d, err := s.docs.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := d.ExamViolations
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// ClearExamViolations drops breaches for one student, or all of them.
func (s *Service) ClearExamViolations(ctx context.Context, student string) error {
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		if student == "" {
			d.ExamViolations = []domain.ExamViolation{}
			return nil
		}
		kept := d.ExamViolations[:0]
		for _, v := range d.ExamViolations {
			if v.Student != student {
				kept = append(kept, v)
			}
		}
		d.ExamViolations = kept
		return nil
	})
	return err
}

// RaiseHand records a pending hand-raise.
func (s *Service) RaiseHand(ctx context.Context, student, note string) error {
	if student == "" {
		return fmt.Errorf("%w: student required", domain.ErrValidation)
	}
	var raise domain.RaiseHand
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		raise = domain.RaiseHand{Student: student, Note: note, TS: s.now().Unix()}
		d.Raises = append(d.Raises, raise)
		if len(d.Raises) > domain.RaiseCap {
			d.Raises = d.Raises[len(d.Raises)-domain.RaiseCap:]
		}
		s.audit(d, domain.AuditEntry{Event: "raise_hand", Student: student})
		return nil
	})
	if err == nil {
		s.publish("raise_hand", raise)
	}
	return err
}

// Hands returns pending hand-raises.
func (s *Service) Hands(ctx context.Context) ([]domain.RaiseHand, error) {
	d, err := s.docs.Load(ctx)
	if err != nil {
		return nil, err
	}
	return d.Raises, nil
}

// ClearHands lowers one student's hand, or everyone's. Returns how many
// remain.
func (s *Service) ClearHands(ctx context.Context, student string) (int, error) {
	remaining := 0
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		if student == "" {
			d.Raises = []domain.RaiseHand{}
			return nil
		}
		kept := d.Raises[:0]
		for _, r := range d.Raises {
			if r.Student != student {
				kept = append(kept, r)
			}
		}
		d.Raises = kept
		remaining = len(kept)
		return nil
	})
	return remaining, err
}

// PostChat appends a class-chat message.
func (s *Service) PostChat(ctx context.Context, classID, from, text string) error {
	if text == "" {
		return fmt.Errorf("%w: empty message", domain.ErrValidation)
	}
	if from == "" {
		from = "student"
	}
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		msgs := append(d.Chat[classID], domain.ChatMessage{
			From: from,
			Text: truncate(text, maxChatText),
			TS:   s.now().Unix(),
		})
		if len(msgs) > domain.ChatCap {
			msgs = msgs[len(msgs)-domain.ChatCap:]
		}
		d.Chat[classID] = msgs
		return nil
	})
	return err
}

// ChatMessages returns whether chat is enabled and the most recent messages
// for a class.
func (s *Service) ChatMessages(ctx context.Context, classID string, limit int) (bool, []domain.ChatMessage, error) {
	limit = clamp(limit, 1, domain.ChatCap, 100)
	d, err := s.docs.Load(ctx)
	if err != nil {
		return false, nil, err
	}
	msgs := d.Chat[classID]
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return d.Settings.ChatEnabled, msgs, nil
}

// SendDM appends to a student's DM thread in the relational store.
func (s *Service) SendDM(ctx context.Context, student, role, userID, text string) error {
	if text == "" {
		return fmt.Errorf("%w: empty message", domain.ErrValidation)
	}
	if student == "" {
		return fmt.Errorf("%w: student required", domain.ErrValidation)
	}
	room := "dm:" + student
	if err := s.repo.AppendMessage(ctx, room, userID, role, text, s.now().Unix()); err != nil {
		return fmt.Errorf("send dm: %w", err)
	}
	return nil
}

// DMThread returns a student's DM transcript.
func (s *Service) DMThread(ctx context.Context, student string) ([]domain.DirectMessage, error) {
	if student == "" {
		return nil, fmt.Errorf("%w: student required", domain.ErrValidation)
	}
	return s.repo.Messages(ctx, "dm:"+student)
}

// Announce sets the global announcement banner.
func (s *Service) Announce(ctx context.Context, message, by string) error {
	_, err := s.docs.Update(ctx, func(d *domain.Document) error {
		d.Announcement = message
		s.audit(d, domain.AuditEntry{Event: "announce", By: by})
		return nil
	})
	return err
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

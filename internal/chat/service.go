// Package chat builds the units of work behind the conversational API:
// answering questions about patients and recording caregiver notes, both
// backed by the generation service.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/irzumbm/pulseai/internal/executor"
	"github.com/irzumbm/pulseai/internal/llm"
	"github.com/irzumbm/pulseai/internal/model"
	"github.com/irzumbm/pulseai/internal/notes"
	"github.com/irzumbm/pulseai/internal/patients"
)

// generateTimeout bounds one call to the generation service.
const generateTimeout = 2 * time.Minute

const noNotesText = "No notes available for this patient."

// Submission is the validated payload of one conversational request.
type Submission struct {
	Owner    string
	Message  string
	Language string
}

// Service builds units of work over the patient directory, note store, and
// generation client. It is safe for concurrent use; per-owner state lives in
// the ContextStore.
type Service struct {
	directory *patients.Directory
	notes     notes.Store
	llm       llm.Client
	contexts  *ContextStore
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires a chat service. now may be nil for the wall clock.
func NewService(dir *patients.Directory, store notes.Store, client llm.Client, contexts *ContextStore, logger *slog.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		directory: dir,
		notes:     store,
		llm:       client,
		contexts:  contexts,
		logger:    logger,
		now:       now,
	}
}

// Contexts exposes the per-owner context store for reset operations.
func (s *Service) Contexts() *ContextStore {
	return s.contexts
}

// ChatUnit returns the unit of work answering one nurse question. The unit
// checks the cancellation flag before each generation call and releases all
// context state between those calls.
func (s *Service) ChatUnit(sub Submission, cancelled *atomic.Bool) executor.Func {
	return func() (any, error) {
		if cancelled.Load() {
			return nil, model.ErrCancelled
		}

		// Patient detection may replace the owner's context wholesale.
		if p, ok := s.directory.Detect(sub.Message); ok {
			summary, err := s.summarizeNotes(p.ID, cancelled)
			if err != nil {
				return nil, err
			}
			s.contexts.ApplyPatient(sub.Owner, p.ID, p.Name, p.Details(), p.SSN, summary)
		}

		snap := s.contexts.Snapshot(sub.Owner)
		promptContext := s.contexts.Global() + "\n" + languageInstruction(sub.Language) +
			"\nChat History:\n" + snap.HistoryText()

		prompt, err := renderChatPrompt(chatPromptData{
			CurrentTime:    s.now().Format("2006-01-02 15:04:05"),
			Context:        promptContext,
			PatientDetails: snap.PatientDetails,
			NurseNotes:     snap.NotesSummary,
			Question:       sub.Message,
		})
		if err != nil {
			return nil, fmt.Errorf("render chat prompt: %w", err)
		}

		if cancelled.Load() {
			return nil, model.ErrCancelled
		}
		answer, err := s.generate(prompt)
		if err != nil {
			return nil, &model.DomainError{Msg: fmt.Sprintf("generation service unavailable: %v", err)}
		}

		s.contexts.AppendExchange(sub.Owner, sub.Message, answer)

		return &model.Result{
			Response:    answer,
			PatientName: snap.PatientName,
			SSN:         snap.SSN,
		}, nil
	}
}

// RecordUnit returns the unit of work that persists a caregiver note and
// produces the conversational confirmation. A note with no patient in
// context and none detectable in its text is a domain error.
func (s *Service) RecordUnit(sub Submission, cancelled *atomic.Bool) executor.Func {
	return func() (any, error) {
		if cancelled.Load() {
			return nil, model.ErrCancelled
		}

		snap := s.contexts.Snapshot(sub.Owner)
		if snap.PatientID == "" {
			p, ok := s.directory.Detect(sub.Message)
			if !ok {
				return nil, &model.DomainError{Msg: "patient room number or name required to save note"}
			}
			summary, err := s.summarizeNotes(p.ID, cancelled)
			if err != nil {
				return nil, err
			}
			s.contexts.ApplyPatient(sub.Owner, p.ID, p.Name, p.Details(), p.SSN, summary)
			snap = s.contexts.Snapshot(sub.Owner)
		}

		ctx, cancel := context.WithTimeout(context.Background(), generateTimeout)
		err := s.notes.Append(ctx, &notes.Note{
			PatientID: snap.PatientID,
			NurseID:   sub.Owner,
			Note:      sub.Message,
			CreatedAt: s.now().UTC(),
		})
		cancel()
		if err != nil {
			return nil, fmt.Errorf("append note: %w", err)
		}

		// Refresh the cached summary now that the note set changed.
		summary, err := s.summarizeNotes(snap.PatientID, cancelled)
		if err != nil {
			return nil, err
		}
		s.contexts.SetNotesSummary(sub.Owner, summary)

		prompt, err := renderRecordPrompt(recordPromptData{
			Context:        s.contexts.Global() + "\nChat History:\n" + snap.HistoryText(),
			PatientDetails: snap.PatientDetails,
			PatientNote:    sub.Message,
		})
		if err != nil {
			return nil, fmt.Errorf("render record prompt: %w", err)
		}

		if cancelled.Load() {
			return nil, model.ErrCancelled
		}
		confirmation, err := s.generate(prompt)
		if err != nil {
			return nil, &model.DomainError{Msg: fmt.Sprintf("generation service unavailable: %v", err)}
		}

		response := fmt.Sprintf("Confirmed Note: '%s'\n\n%s", sub.Message, confirmation)
		s.contexts.AppendExchange(sub.Owner, sub.Message, response)

		return &model.Result{
			Response:    response,
			PatientName: snap.PatientName,
			SSN:         snap.SSN,
		}, nil
	}
}

// summarizeNotes loads a patient's notes and asks the model to group them by
// theme. A generation failure falls back to the raw notes so a flaky model
// never blocks patient lookups; cancellation is checked before the call.
func (s *Service) summarizeNotes(patientID string, cancelled *atomic.Bool) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), generateTimeout)
	list, err := s.notes.ListByPatient(ctx, patientID)
	cancel()
	if err != nil {
		return "", fmt.Errorf("list notes: %w", err)
	}
	if len(list) == 0 {
		return noNotesText, nil
	}

	var raw strings.Builder
	for _, n := range list {
		fmt.Fprintf(&raw, "%s: %s\n", n.CreatedAt.Format("2006-01-02 15:04:05"), n.Note)
	}

	if cancelled.Load() {
		return "", model.ErrCancelled
	}

	prompt, err := renderNotesPrompt(notesPromptData{NurseNotes: raw.String()})
	if err != nil {
		return "", fmt.Errorf("render notes prompt: %w", err)
	}

	summary, err := s.generate(prompt)
	if err != nil {
		s.logger.Warn("notes summarization failed, using raw notes",
			"patient_id", patientID, "error", err)
		return raw.String(), nil
	}
	return summary, nil
}

func (s *Service) generate(prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), generateTimeout)
	defer cancel()
	return s.llm.Generate(ctx, prompt)
}

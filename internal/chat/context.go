package chat

import (
	"strings"
	"sync"
)

// historyCap bounds the rolling exchange history kept per owner.
const historyCap = 20

// Exchange is one user/assistant turn in a conversation.
type Exchange struct {
	User string
	AI   string
}

// Context is the conversation state for one owner: the patient currently
// under discussion, derived summaries, and the recent exchange history.
type Context struct {
	PatientID      string
	PatientName    string
	PatientDetails string
	SSN            string
	NotesSummary   string
	History        []Exchange
}

// HistoryText renders the rolling history the way prompts consume it.
func (c *Context) HistoryText() string {
	var b strings.Builder
	for _, e := range c.History {
		b.WriteString("User: ")
		b.WriteString(e.User)
		b.WriteString("\nAI: ")
		b.WriteString(e.AI)
		b.WriteString("\n")
	}
	return b.String()
}

// ContextStore holds per-owner conversation contexts plus the shared global
// context string. It has its own lock, independent of the request registry,
// so slow model calls for one owner never serialize unrelated owners. Units
// of work take snapshots rather than holding the lock across LLM calls.
type ContextStore struct {
	mu      sync.Mutex
	global  string
	byOwner map[string]*Context
}

// NewContextStore creates an empty context store.
func NewContextStore() *ContextStore {
	return &ContextStore{
		byOwner: make(map[string]*Context),
	}
}

// SetGlobal replaces the shared global context string.
func (s *ContextStore) SetGlobal(ctx string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global = ctx
}

// Global returns the shared global context string.
func (s *ContextStore) Global() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.global
}

// Snapshot returns a copy of the owner's context, creating an empty one
// lazily on first use.
func (s *ContextStore) Snapshot(owner string) Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.getLocked(owner)
	snap := *c
	snap.History = append([]Exchange(nil), c.History...)
	return snap
}

// ApplyPatient records a detected patient on the owner's context. Detecting
// a different patient than the one already in context replaces the context
// wholesale, resetting the history.
func (s *ContextStore) ApplyPatient(owner, patientID, name, details, ssn, notesSummary string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.getLocked(owner)
	if c.PatientID != "" && c.PatientID != patientID {
		c = &Context{}
		s.byOwner[owner] = c
	}
	c.PatientID = patientID
	c.PatientName = name
	c.PatientDetails = details
	c.SSN = ssn
	c.NotesSummary = notesSummary
}

// SetNotesSummary refreshes the cached notes summary for the owner's
// current patient.
func (s *ContextStore) SetNotesSummary(owner, summary string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getLocked(owner).NotesSummary = summary
}

// AppendExchange adds one turn to the owner's rolling history, dropping the
// oldest turn once the cap is reached. Appends from concurrent requests are
// serialized by the store lock; order between them is lock acquisition
// order, not submission order.
func (s *ContextStore) AppendExchange(owner, user, ai string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.getLocked(owner)
	c.History = append(c.History, Exchange{User: user, AI: ai})
	if len(c.History) > historyCap {
		c.History = c.History[len(c.History)-historyCap:]
	}
}

// Reset replaces the owner's context with an empty one.
func (s *ContextStore) Reset(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byOwner[owner] = &Context{}
}

func (s *ContextStore) getLocked(owner string) *Context {
	c, ok := s.byOwner[owner]
	if !ok {
		c = &Context{}
		s.byOwner[owner] = c
	}
	return c
}

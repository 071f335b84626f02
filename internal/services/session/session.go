// Package session holds the per-client comparison state: the two uploads,
// the script, the last result and any inline notices.
package session

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"salonrecon/internal/models"
	"salonrecon/internal/services/ingest"
	"salonrecon/internal/services/vault"
)

var (
	ErrNotFound      = errors.New("session not found")
	ErrRunInProgress = errors.New("a comparison is already running")
	ErrIncomplete    = errors.New("both files and a script are required")
	ErrInvalidSlot   = errors.New("slot must be 1 or 2")
)

// Notice is an inline message next to an upload control
type Notice struct {
	Slot      int       `json:"slot"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Session is a snapshot of one client's comparison state
type Session struct {
	ID         string                 `json:"id"`
	Email      string                 `json:"email"`
	CreatedAt  time.Time              `json:"createdAt"`
	UpdatedAt  time.Time              `json:"updatedAt"`
	Uploads    [2]*ingest.Upload      `json:"uploads"`
	ScriptName string                 `json:"scriptName,omitempty"`
	Script     string                 `json:"-"`
	Result     models.Table           `json:"-"`
	Analysis   *models.AnalysisResult `json:"-"`
	Notices    []Notice               `json:"notices"`
	Running    bool                   `json:"running"`

	// generation changes whenever an input does; a run only stores its
	// result if the inputs it started from are still loaded
	generation uint64
}

// RunInput is what a comparison needs, copied out of the session
type RunInput struct {
	Script     string
	File1      models.Table
	File2      models.Table
	Generation uint64
}

// Store keeps sessions in memory and mirrors uploads into the vault
type Store struct {
	mu        sync.Mutex
	saveMu    sync.Mutex // orders snapshot writes
	sessions  map[string]*Session
	vault     *vault.Vault
	noticeTTL time.Duration
	now       func() time.Time
}

// NewStore creates a store. A nil vault disables snapshots.
func NewStore(v *vault.Vault, noticeTTL time.Duration) *Store {
	if noticeTTL <= 0 {
		noticeTTL = 5 * time.Second
	}
	return &Store{
		sessions:  make(map[string]*Session),
		vault:     v,
		noticeTTL: noticeTTL,
		now:       time.Now,
	}
}

// Create starts a new session for the given client email
func (s *Store) Create(email string) Session {
	now := s.now()
	sess := &Session{
		ID:        uuid.New().String(),
		Email:     strings.TrimSpace(email),
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return sess.view(now)
}

// Get returns a copy of the session with expired notices dropped
func (s *Store) Get(id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sess.view(s.now()), nil
}

// Count returns the number of live sessions
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// SetUpload stores a parsed upload in slot 1 or 2. Any previous result is
// dropped since it no longer matches the inputs.
func (s *Store) SetUpload(id string, slot int, u *ingest.Upload) error {
	if slot != 1 && slot != 2 {
		return ErrInvalidSlot
	}

	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	sess.Uploads[slot-1] = u
	sess.invalidate()
	sess.UpdatedAt = s.now()
	s.mu.Unlock()

	if err := s.persist(id); err != nil {
		log.Printf("Warning: failed to save snapshot for session %s: %v", id, err)
	}
	return nil
}

// persist writes the session's current uploads to the vault. The state is
// read after taking saveMu so a later write always carries the newer uploads.
func (s *Store) persist(id string) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	snap := sess.snapshot()
	s.mu.Unlock()

	return s.SaveSnapshot(snap)
}

// SetScript stores the script body
func (s *Store) SetScript(id, name, body string) error {
	return s.update(id, func(sess *Session) {
		sess.ScriptName = name
		sess.Script = body
		sess.invalidate()
	})
}

// BeginRun marks the session busy and returns its inputs. Only one run per
// session may be in flight; EndRun must follow.
func (s *Store) BeginRun(id string) (RunInput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return RunInput{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if sess.Running {
		return RunInput{}, ErrRunInProgress
	}
	if sess.Uploads[0] == nil || sess.Uploads[1] == nil || sess.Script == "" {
		return RunInput{}, ErrIncomplete
	}

	sess.Running = true
	sess.UpdatedAt = s.now()
	return RunInput{
		Script:     sess.Script,
		File1:      sess.Uploads[0].Table,
		File2:      sess.Uploads[1].Table,
		Generation: sess.generation,
	}, nil
}

// EndRun releases the session and, on success, records the result. The result
// is dropped when an upload or script replaced the run's inputs meanwhile;
// the return value reports whether it was stored.
func (s *Store) EndRun(id string, gen uint64, result models.Table, analysis *models.AnalysisResult) bool {
	var stored bool
	s.update(id, func(sess *Session) {
		sess.Running = false
		if result == nil {
			return
		}
		if sess.generation != gen {
			log.Printf("Discarding comparison result for session %s: inputs changed during the run", id)
			return
		}
		sess.Result = result
		sess.Analysis = analysis
		stored = true
	})
	return stored
}

// AddNotice records a message for an upload slot. Each notice carries its own
// expiry so a newer notice is never cleared early by an older one.
func (s *Store) AddNotice(id string, slot int, msg string) error {
	return s.update(id, func(sess *Session) {
		now := s.now()
		sess.Notices = append(activeNotices(sess.Notices, now), Notice{
			Slot:      slot,
			Message:   msg,
			ExpiresAt: now.Add(s.noticeTTL),
		})
	})
}

// Notices returns the unexpired notices of a session
func (s *Store) Notices(id string) ([]Notice, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return sess.Notices, nil
}

// Purge drops sessions idle for longer than maxAge and returns how many went
func (s *Store) Purge(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge)
	var purged int
	for id, sess := range s.sessions {
		if sess.Running {
			continue
		}
		if sess.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			purged++
		}
	}
	return purged
}

// IDs returns the live session ids, sorted
func (s *Store) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) update(id string, fn func(*Session)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	fn(sess)
	sess.UpdatedAt = s.now()
	return nil
}

// invalidate drops the result since it no longer matches the inputs
func (sess *Session) invalidate() {
	sess.generation++
	sess.Result = nil
	sess.Analysis = nil
}

// view copies the session; callers never see the stored pointer
func (sess *Session) view(now time.Time) Session {
	v := *sess
	v.Notices = activeNotices(sess.Notices, now)
	return v
}

func activeNotices(notices []Notice, now time.Time) []Notice {
	active := make([]Notice, 0, len(notices))
	for _, n := range notices {
		if now.Before(n.ExpiresAt) {
			active = append(active, n)
		}
	}
	return active
}

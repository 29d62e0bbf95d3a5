package voiceclient

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/lkrilov/voicelive/internal/utils"
)

type Role string

const (
	RoleUser   Role = "user"
	RoleModel  Role = "model"
	RoleSystem Role = "system"
)

// TranscriptEntry is one line of the conversation transcript. While a turn
// is open its last entry may be rewritten in place (interim text); once
// IsFinal is set to true the entry is frozen and never mutated again. A nil
// IsFinal marks entries that never go through an interim phase.
type TranscriptEntry struct {
	ID        string
	Role      Role
	Text      string
	Timestamp time.Time
	IsFinal   *bool
}

func (e TranscriptEntry) isOpen() bool {
	return e.IsFinal != nil && !*e.IsFinal
}

// transcriptLog is an append-mostly ordered sequence of entries with at most
// one open (non-final) entry per role. It survives disconnects and is only
// dropped when the caller clears it.
type transcriptLog struct {
	mu      sync.Mutex
	entries []TranscriptEntry
}

func newTranscriptLog() *transcriptLog {
	return &transcriptLog{}
}

// Append adds a closed entry, such as a system notice.
func (l *transcriptLog) Append(role Role, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, TranscriptEntry{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now(),
	})
}

// UpdateInterim rewrites the open entry for the role, creating it first if
// the role has no open entry. Frozen entries are never touched.
func (l *transcriptLog) UpdateInterim(role Role, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry := l.openEntryLocked(role); entry != nil {
		entry.Text = text
		return
	}

	l.entries = append(l.entries, TranscriptEntry{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now(),
		IsFinal:   utils.Ptr(false),
	})
}

// OpenTurn makes sure the role has an open entry without changing any
// text. It reports whether a new entry was created.
func (l *transcriptLog) OpenTurn(role Role) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.openEntryLocked(role) != nil {
		return false
	}

	l.entries = append(l.entries, TranscriptEntry{
		ID:        uuid.NewString(),
		Role:      role,
		Timestamp: time.Now(),
		IsFinal:   utils.Ptr(false),
	})
	return true
}

// AppendFinal adds an already-frozen entry, used when a final transcript
// arrives without a preceding interim phase.
func (l *transcriptLog) AppendFinal(role Role, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, TranscriptEntry{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now(),
		IsFinal:   utils.Ptr(true),
	})
}

// Finalize freezes the role's open entry, optionally replacing its text
// first. finalText == nil keeps the interim text. Returns false when the
// role has no open entry.
func (l *transcriptLog) Finalize(role Role, finalText *string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := l.openEntryLocked(role)
	if entry == nil {
		return false
	}

	if finalText != nil {
		entry.Text = *finalText
	}
	entry.IsFinal = utils.Ptr(true)
	return true
}

func (l *transcriptLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

func (l *transcriptLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Snapshot returns a deep copy safe to hand outside the lock. IsFinal
// pointers are duplicated so callers cannot flip a frozen entry.
func (l *transcriptLog) Snapshot() []TranscriptEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return copyEntries(l.entries)
}

func (l *transcriptLog) openEntryLocked(role Role) *TranscriptEntry {
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].Role != role {
			continue
		}
		if l.entries[i].isOpen() {
			return &l.entries[i]
		}
		// Entries for one role freeze in order, so the first hit decides.
		return nil
	}
	return nil
}

func copyEntries(entries []TranscriptEntry) []TranscriptEntry {
	copied := make([]TranscriptEntry, 0, len(entries))
	if err := copier.CopyWithOption(&copied, entries, copier.Option{DeepCopy: true}); err != nil {
		// copier only fails on incompatible shapes; fall back to a manual
		// duplicate so broadcasts still never alias the log.
		copied = make([]TranscriptEntry, len(entries))
		copy(copied, entries)
		for i := range copied {
			if copied[i].IsFinal != nil {
				copied[i].IsFinal = utils.Ptr(*copied[i].IsFinal)
			}
		}
	}
	return copied
}

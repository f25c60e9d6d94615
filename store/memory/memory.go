// Package memory provides in-memory store implementations (for testing/dev).
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/billing-engine/posting"
	"github.com/warp/billing-engine/schedule"
)

// =============================================================================
// MEMORY STORE - Implements posting.RuleStore and posting.EntryStore
// =============================================================================

type Store struct {
	mu       sync.RWMutex
	rules    map[schedule.RuleID]schedule.RecurrenceRule
	entries  []posting.PostedEntry
	entryKey map[string]bool
	nextPos  int
}

func New() *Store {
	return &Store{
		rules:    make(map[schedule.RuleID]schedule.RecurrenceRule),
		entryKey: make(map[string]bool),
		nextPos:  1,
	}
}

// -----------------------------------------------------------------------------
// RuleStore
// -----------------------------------------------------------------------------

func (s *Store) ListRules(_ context.Context) ([]schedule.RecurrenceRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]schedule.RecurrenceRule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (s *Store) GetRule(_ context.Context, id schedule.RuleID) (*schedule.RecurrenceRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rules[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *Store) SaveRule(_ context.Context, rule schedule.RecurrenceRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.rules[rule.ID]; ok {
		rule.Position = existing.Position
	} else if rule.Position == 0 {
		rule.Position = s.nextPos
	}
	if rule.Position >= s.nextPos {
		s.nextPos = rule.Position + 1
	}
	s.rules[rule.ID] = rule
	return nil
}

func (s *Store) DeleteRule(_ context.Context, id schedule.RuleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rules, id)
	return nil
}

func (s *Store) AdvanceCursor(_ context.Context, id schedule.RuleID, next schedule.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rules[id]
	if !ok {
		return posting.ErrRuleNotFound
	}
	r.CursorDate = next
	s.rules[id] = r
	return nil
}

func (s *Store) SetActive(_ context.Context, id schedule.RuleID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rules[id]
	if !ok {
		return posting.ErrRuleNotFound
	}
	r.IsActive = active
	s.rules[id] = r
	return nil
}

// -----------------------------------------------------------------------------
// EntryStore
// -----------------------------------------------------------------------------

func (s *Store) AppendEntry(_ context.Context, entry posting.PostedEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entryKey[entry.ID] {
		return posting.ErrDuplicateEntry
	}
	s.entries = append(s.entries, entry)
	s.entryKey[entry.ID] = true
	return nil
}

func (s *Store) ListEntries(_ context.Context, ruleID schedule.RuleID) ([]posting.PostedEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []posting.PostedEntry
	for _, e := range s.entries {
		if ruleID == "" || e.RuleID == ruleID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

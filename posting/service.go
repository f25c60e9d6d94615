/*
service.go - Posting workflow

PURPOSE:
  Materializes due occurrences into posted ledger entries and advances
  each rule's cursor. This is the only code in the repository that mutates
  schedule state, and it advances cursors through the SAME schedule.Step
  function the forecasting path iterates - so what the dashboard predicted
  is exactly what posts.

CURSOR ADVANCEMENT:
  PostNext records an entry for the rule's current cursor date, then:
  - steps the cursor forward for repeating frequencies
  - deactivates the rule for ONCE (no further occurrence exists)

BATCH ISOLATION:
  PostDue sweeps all auto-post rules. Per-rule failures are logged and
  skipped; one broken schedule never stalls the rest of the sweep.

SEE ALSO:
  - schedule/step.go: the shared stepping function
  - api/scheduler.go: cron-driven invocation of PostDue
*/
package posting

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/warp/billing-engine/schedule"
)

// Service runs the posting workflow against a rule and entry store.
type Service struct {
	Rules   RuleStore
	Entries EntryStore

	// Now supplies the posted-at timestamp. Defaults to time.Now;
	// injectable for tests.
	Now func() time.Time
}

func NewService(rules RuleStore, entries EntryStore) *Service {
	return &Service{Rules: rules, Entries: entries, Now: time.Now}
}

// PostNext posts the rule's current cursor occurrence and advances the
// cursor. Posting the same occurrence twice returns ErrDuplicateEntry
// with the rule left untouched.
func (s *Service) PostNext(ctx context.Context, ruleID schedule.RuleID) (*PostedEntry, error) {
	rule, err := s.Rules.GetRule(ctx, ruleID)
	if err != nil {
		return nil, fmt.Errorf("load schedule %s: %w", ruleID, err)
	}
	if rule == nil {
		return nil, ErrRuleNotFound
	}
	if !rule.IsActive {
		return nil, ErrRuleInactive
	}

	entry := PostedEntry{
		ID:           EntryKey(rule.ID, rule.CursorDate),
		RuleID:       rule.ID,
		DueDate:      rule.CursorDate,
		Amount:       rule.Amount,
		CurrencyCode: rule.CurrencyCode,
		DisplayName:  rule.DisplayName,
		PostedAt:     s.now(),
	}
	if err := s.Entries.AppendEntry(ctx, entry); err != nil {
		return nil, err
	}

	next, ok := schedule.Step(rule.CursorDate, rule.Frequency)
	if !ok {
		// ONCE: nothing further can ever come due.
		if err := s.Rules.SetActive(ctx, rule.ID, false); err != nil {
			return nil, fmt.Errorf("deactivate %s after final post: %w", rule.ID, err)
		}
		return &entry, nil
	}
	if err := s.Rules.AdvanceCursor(ctx, rule.ID, next); err != nil {
		return nil, fmt.Errorf("advance cursor for %s: %w", rule.ID, err)
	}
	return &entry, nil
}

// PostDue posts every elapsed occurrence of every active auto-post rule
// whose cursor is on or before today. Returns the number of entries
// posted. Per-rule errors are isolated.
func (s *Service) PostDue(ctx context.Context, today schedule.Date) (int, error) {
	rules, err := s.Rules.ListRules(ctx)
	if err != nil {
		return 0, fmt.Errorf("list schedules: %w", err)
	}

	posted := 0
	for _, rule := range rules {
		if !rule.IsActive || !rule.AutoPost {
			continue
		}
		n, err := s.postElapsed(ctx, rule.ID, today)
		posted += n
		if err != nil {
			log.Printf("[Posting] schedule %s: posted %d then failed: %v", rule.ID, n, err)
		}
	}
	return posted, nil
}

// postElapsed posts rule occurrences one at a time until the cursor moves
// past today. Bounded by the engine's per-rule cap so a misconfigured
// daily rule with an ancient cursor cannot run away.
func (s *Service) postElapsed(ctx context.Context, ruleID schedule.RuleID, today schedule.Date) (int, error) {
	posted := 0
	for i := 0; i < schedule.DefaultMaxOccurrencesPerRule; i++ {
		rule, err := s.Rules.GetRule(ctx, ruleID)
		if err != nil {
			return posted, err
		}
		if rule == nil || !rule.IsActive || rule.CursorDate.After(today) {
			return posted, nil
		}

		if _, err := s.PostNext(ctx, ruleID); err != nil {
			return posted, err
		}
		posted++
	}
	return posted, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

package quota

import (
	"fmt"
	"sync"
	"time"

	"github.com/ik-labs/route-pilot/pkg/apperrors"
	"github.com/ik-labs/route-pilot/pkg/ledger"
	"github.com/ik-labs/route-pilot/pkg/telemetry/metrics"
)

// Store gates RPM and daily-token usage against a *ledger.Ledger, one
// per-user mutex at a time.
type Store struct {
	l       *ledger.Ledger
	metrics *metrics.Quota
	locks   sync.Map // map[string]*sync.Mutex, keyed by user_ref
}

// New builds a Store over l. m may be nil.
func New(l *ledger.Ledger, m *metrics.Quota) *Store {
	return &Store{l: l, metrics: m}
}

func (s *Store) lockFor(userRef string) *sync.Mutex {
	v, _ := s.locks.LoadOrStore(userRef, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// AssertWithinRPM prunes rpm_events older than 60s, counts the remainder
// for userRef, and — if below limit — records a new event. Returns
// *apperrors.QuotaError{Kind:"rpm"} when the caller is already at limit,
// without recording anything: a rejected call never grows the window.
// limit <= 0 disables the check.
func (s *Store) AssertWithinRPM(userRef string, limit int) error {
	if limit <= 0 {
		return nil
	}
	mu := s.lockFor(userRef)
	mu.Lock()
	defer mu.Unlock()

	nowMs := time.Now().UnixMilli()
	_, allowed, err := s.l.RecordRPMEvent(userRef, nowMs, limit)
	if err != nil {
		return err
	}
	if !allowed {
		if s.metrics != nil {
			s.metrics.RecordRejection("rpm")
		}
		return apperrors.NewRPMQuotaError(limit)
	}
	return nil
}

// AddDailyTokens computes day as YYYY-MM-DD in tz and, if existing+tokens
// would exceed cap, fails with *apperrors.QuotaError{Kind:"daily"} without
// writing. Otherwise it upserts and returns the new total. cap <= 0
// disables the check (the write still happens, uncapped).
func (s *Store) AddDailyTokens(userRef string, tokens int, cap int, tz string) (int, error) {
	mu := s.lockFor(userRef)
	mu.Lock()
	defer mu.Unlock()

	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	day := time.Now().In(loc).Format("2006-01-02")

	if cap > 0 {
		existing, err := s.l.DailyTokens(userRef, day)
		if err != nil {
			return 0, err
		}
		if existing+tokens > cap {
			if s.metrics != nil {
				s.metrics.RecordRejection("daily")
			}
			return 0, apperrors.NewDailyQuotaError(cap, day)
		}
	}
	return s.l.AddDailyTokens(userRef, day, tokens)
}

// Summary is a user's current usage snapshot.
type Summary struct {
	Day          string
	TokensToday  int
	TokensMonth  int
	ResetsAt     string
}

// UsageSummary returns today's token count, the month-to-date sum (days
// 01..31 of the current month; day 31 is simply absent in short months),
// and the ISO timestamp of the next local midnight reset.
func (s *Store) UsageSummary(userRef, tz string) (Summary, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	now := time.Now().In(loc)
	day := now.Format("2006-01-02")

	today, err := s.l.DailyTokens(userRef, day)
	if err != nil {
		return Summary{}, err
	}

	monthPrefix := now.Format("2006-01")
	var monthTotal int
	for d := 1; d <= 31; d++ {
		dayStr := fmt.Sprintf("%s-%02d", monthPrefix, d)
		n, err := s.l.DailyTokens(userRef, dayStr)
		if err != nil {
			return Summary{}, err
		}
		monthTotal += n
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	return Summary{
		Day:         day,
		TokensToday: today,
		TokensMonth: monthTotal,
		ResetsAt:    midnight.UTC().Format(time.RFC3339),
	}, nil
}


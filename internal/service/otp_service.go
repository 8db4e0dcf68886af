package service

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

const (
	// OTPTTL is how long an approval code stays valid.
	OTPTTL = 10 * time.Minute
	// otpSweepInterval is how often expired codes are evicted.
	otpSweepInterval = time.Minute
)

type otpEntry struct {
	code    string
	expires time.Time
}

// OTPService issues single-use approval codes keyed by timesheet ID. Entries
// are time-bounded and an explicit sweep evicts expired ones, so the store
// cannot grow without bound.
type OTPService struct {
	mu      sync.Mutex
	entries map[string]otpEntry
	stopCh  chan struct{}
	once    sync.Once
}

// NewOTPService creates an OTPService and starts its expiry sweep.
func NewOTPService() *OTPService {
	s := &OTPService{
		entries: make(map[string]otpEntry),
		stopCh:  make(chan struct{}),
	}
	go s.sweep()
	return s
}

// Generate issues a fresh six-digit code for a timesheet, replacing any code
// previously issued for it.
func (s *OTPService) Generate(timesheetID string) string {
	code := fmt.Sprintf("%06d", rand.IntN(900000)+100000)
	s.mu.Lock()
	s.entries[timesheetID] = otpEntry{code: code, expires: time.Now().Add(OTPTTL)}
	s.mu.Unlock()
	return code
}

// Validate checks a code against the one issued for the timesheet. A valid
// code is consumed and cannot be used again.
func (s *OTPService) Validate(timesheetID, code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[timesheetID]
	if !ok || entry.code != code || time.Now().After(entry.expires) {
		return false
	}
	delete(s.entries, timesheetID)
	return true
}

// Stop halts the expiry sweep. Safe to call more than once.
func (s *OTPService) Stop() {
	s.once.Do(func() { close(s.stopCh) })
}

func (s *OTPService) sweep() {
	ticker := time.NewTicker(otpSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for id, entry := range s.entries {
				if now.After(entry.expires) {
					delete(s.entries, id)
				}
			}
			s.mu.Unlock()
		}
	}
}

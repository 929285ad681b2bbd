package strategy

import (
	"sort"
	"time"

	"github.com/akshayinamdar/LowVolatilityScalper/broker"
)

// TrackingRecord is the strategy's own state for one open position. Exactly
// one record exists per open ticket; the record is removed once the venue no
// longer reports the ticket.
type TrackingRecord struct {
	Ticket   string
	OpenTime time.Time

	TrailActivated       bool
	TrailActivatedAt     time.Time
	ActivationProfitPips float64

	LossTimeChecked bool
}

// Tracker owns the tracking records and reconciles them against the venue's
// live position list each cycle. Closure is inferred by absence: there is no
// explicit close event from the venue.
type Tracker struct {
	records map[string]*TrackingRecord
}

func NewTracker() *Tracker {
	return &Tracker{records: make(map[string]*TrackingRecord)}
}

// Add creates a record for a confirmed fill. Calling Add twice for the same
// ticket keeps the original record.
func (t *Tracker) Add(ticket string, openTime time.Time) *TrackingRecord {
	if rec, ok := t.records[ticket]; ok {
		return rec
	}
	rec := &TrackingRecord{Ticket: ticket, OpenTime: openTime}
	t.records[ticket] = rec
	return rec
}

func (t *Tracker) Get(ticket string) (*TrackingRecord, bool) {
	rec, ok := t.records[ticket]
	return rec, ok
}

func (t *Tracker) Len() int { return len(t.records) }

// Reconcile drops records whose tickets the venue no longer reports and
// returns the removed tickets, sorted for stable logging. This is the only
// path by which records leave the tracker.
func (t *Tracker) Reconcile(open []broker.Position) []string {
	live := make(map[string]struct{}, len(open))
	for _, p := range open {
		live[p.Ticket] = struct{}{}
	}

	var removed []string
	for ticket := range t.records {
		if _, ok := live[ticket]; !ok {
			removed = append(removed, ticket)
			delete(t.records, ticket)
		}
	}
	sort.Strings(removed)
	return removed
}

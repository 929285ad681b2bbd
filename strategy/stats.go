package strategy

import (
	"fmt"
	"time"
)

type Activation struct {
	Ticket     string
	Time       time.Time
	ProfitPips float64
}

type ForcedClose struct {
	Ticket   string
	Time     time.Time
	LossPips float64
}

// Stats accumulates session-level observability counters. Owned by the cycle
// handler; no locking needed under the single-threaded model.
type Stats struct {
	Cycles       int
	ChecksRun    int
	TradesOpened int
	StopMoves    int

	Activations  []Activation
	ForcedCloses []ForcedClose
}

func (s *Stats) recordActivation(ticket string, at time.Time, profitPips float64) {
	s.Activations = append(s.Activations, Activation{Ticket: ticket, Time: at, ProfitPips: profitPips})
}

func (s *Stats) recordForcedClose(ticket string, at time.Time, lossPips float64) {
	s.ForcedCloses = append(s.ForcedCloses, ForcedClose{Ticket: ticket, Time: at, LossPips: lossPips})
}

// Summary renders a one-line digest for end-of-run logging.
func (s *Stats) Summary() string {
	return fmt.Sprintf("cycles=%d checks=%d trades=%d stop_moves=%d trail_activations=%d forced_closes=%d",
		s.Cycles, s.ChecksRun, s.TradesOpened, s.StopMoves, len(s.Activations), len(s.ForcedCloses))
}

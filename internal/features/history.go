package features

import "time"

// History is an entity's record strictly before a reference time.
type History struct {
	Starts int
	Wins   int
	Top3   int
}

// WinRate is Wins/Starts, or 0 without history.
func (h History) WinRate() float64 {
	if h.Starts == 0 {
		return 0
	}
	return float64(h.Wins) / float64(h.Starts)
}

// PlaceRate is Top3/Starts, or 0 without history.
func (h History) PlaceRate() float64 {
	if h.Starts == 0 {
		return 0
	}
	return float64(h.Top3) / float64(h.Starts)
}

func (h *History) add(rank *int) {
	h.Starts++
	if rank == nil {
		return
	}
	if *rank == 1 {
		h.Wins++
	}
	if *rank >= 1 && *rank <= 3 {
		h.Top3++
	}
}

// rollingHistory is the per-entity running state. A row's outcome is only
// folded in once a row with a strictly later reference time is scored.
type rollingHistory struct {
	state   map[string]*History
	pending []*candidate
}

func newRollingHistory() *rollingHistory {
	return &rollingHistory{state: make(map[string]*History)}
}

// score returns the history of c's entity before c's reference time and
// queues c's own outcome. Rows must arrive in reference order.
func (r *rollingHistory) score(c *candidate) History {
	r.foldBefore(c.refTime())

	var h History
	if s, ok := r.state[c.participant.HorseID]; ok {
		h = *s
	}
	r.pending = append(r.pending, c)
	return h
}

func (r *rollingHistory) foldBefore(t time.Time) {
	kept := r.pending[:0]
	for _, p := range r.pending {
		if !p.refTime().Before(t) {
			kept = append(kept, p)
			continue
		}
		if !p.started() {
			continue
		}
		s, ok := r.state[p.participant.HorseID]
		if !ok {
			s = &History{}
			r.state[p.participant.HorseID] = s
		}
		s.add(p.rank())
	}
	r.pending = kept
}

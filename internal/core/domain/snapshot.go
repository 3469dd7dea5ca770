package domain

import (
	"math"
	"sort"
	"time"
)

// EstimatedMinutesPerPerson is the fixed heuristic used for per-ticket wait
// estimates. It is not measured.
const EstimatedMinutesPerPerson = 2

// RecentHistorySize caps the served-ticket history exposed by the stats view.
const RecentHistorySize = 10

// ServiceShare is one row of the per-service breakdown over served tickets.
type ServiceShare struct {
	Name       string
	Count      int
	Percentage int
}

// HistoryEntry is one recently served ticket.
type HistoryEntry struct {
	TicketNumber int
	ServiceType  string
	WaitMinutes  int
	ServedAt     time.Time
}

// QueueStats is the full projection over a queue's ticket set. It is
// recomputed from scratch on every read; there is no incremental state.
type QueueStats struct {
	WaitingCount       int
	ServedCount        int
	NowServingNumber   *int
	AverageWaitMinutes int
	ServiceBreakdown   []ServiceShare
	RecentHistory      []HistoryEntry
}

// Board is the public monitor projection: the currently served number and the
// length of the waiting line.
type Board struct {
	NowServingNumber *int
	WaitingCount     int
}

// BuildQueueStats derives the aggregate view from the current ticket set.
func BuildQueueStats(tickets []*Ticket) QueueStats {
	stats := QueueStats{
		ServiceBreakdown: []ServiceShare{},
		RecentHistory:    []HistoryEntry{},
	}

	var (
		waitTotal int
		waitCount int
		done      []*Ticket
		byService = map[string]int{}
	)

	for _, t := range tickets {
		switch t.Status {
		case StatusWaiting:
			stats.WaitingCount++
		case StatusServing:
			n := t.TicketNumber
			stats.NowServingNumber = &n
		case StatusDone:
			stats.ServedCount++
			byService[t.DisplayServiceType()]++
			if t.WaitMinutes != nil {
				waitTotal += *t.WaitMinutes
				waitCount++
			}
			// A done ticket without a served timestamp cannot be placed in
			// the history timeline; it still counts toward the totals.
			if t.ServedAt != nil {
				done = append(done, t)
			}
		}
	}

	if waitCount > 0 {
		stats.AverageWaitMinutes = int(math.Round(float64(waitTotal) / float64(waitCount)))
	}

	for name, count := range byService {
		stats.ServiceBreakdown = append(stats.ServiceBreakdown, ServiceShare{
			Name:       name,
			Count:      count,
			Percentage: int(math.Round(100 * float64(count) / float64(stats.ServedCount))),
		})
	}
	sort.Slice(stats.ServiceBreakdown, func(i, j int) bool {
		a, b := stats.ServiceBreakdown[i], stats.ServiceBreakdown[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Name < b.Name
	})

	sort.Slice(done, func(i, j int) bool {
		return done[i].ServedAt.After(*done[j].ServedAt)
	})
	for i, t := range done {
		if i == RecentHistorySize {
			break
		}
		var wait int
		if t.WaitMinutes != nil {
			wait = *t.WaitMinutes
		}
		stats.RecentHistory = append(stats.RecentHistory, HistoryEntry{
			TicketNumber: t.TicketNumber,
			ServiceType:  t.DisplayServiceType(),
			WaitMinutes:  wait,
			ServedAt:     *t.ServedAt,
		})
	}

	return stats
}

// BuildBoard derives the monitor view from the current ticket set.
func BuildBoard(tickets []*Ticket) Board {
	var board Board
	for _, t := range tickets {
		switch t.Status {
		case StatusWaiting:
			board.WaitingCount++
		case StatusServing:
			n := t.TicketNumber
			board.NowServingNumber = &n
		}
	}
	return board
}

// PeopleAhead computes how many positions remain before a ticket is served.
func PeopleAhead(ticketNumber int, nowServing *int) int {
	if nowServing == nil {
		return 0
	}
	ahead := ticketNumber - *nowServing
	if ahead < 0 {
		return 0
	}
	return ahead
}

// EstimatedWaitMinutes converts a queue position into the fixed wait
// heuristic of two minutes per person ahead.
func EstimatedWaitMinutes(peopleAhead int) int {
	return peopleAhead * EstimatedMinutesPerPerson
}

package entity

import (
	"sort"
	"time"

	"github.com/garyjia/overtime-claims/internal/domain/workflow"
)

// GroupKey identifies one employee on one calendar day
type GroupKey struct {
	EmployeeID string    `json:"employee_id"`
	OTDate     time.Time `json:"ot_date"`
}

// Session is one request's time slice inside a group
type Session struct {
	RequestID    int64          `json:"request_id"`
	TicketNumber string         `json:"ticket_number"`
	StartTime    string         `json:"start_time"`
	EndTime      string         `json:"end_time"`
	Hours        float64        `json:"hours"`
	Status       workflow.State `json:"status"`
	OTAmount     *float64       `json:"ot_amount,omitempty"`
}

// RequestGroup merges every request of one employee on one day
type RequestGroup struct {
	GroupKey
	Sessions   []Session            `json:"sessions"`
	TotalHours float64              `json:"total_hours"`
	Violations map[string]Violation `json:"violations"`
	Statuses   []workflow.State     `json:"statuses"`
}

// IsMixed reports whether members of the group sit in different states
func (g *RequestGroup) IsMixed() bool {
	return len(g.Statuses) > 1
}

// GroupByEmployeeAndDate projects requests into per-employee, per-day groups.
// Groups come back ordered by date then employee; sessions by start time.
// The input is not modified.
func GroupByEmployeeAndDate(requests []*OvertimeRequest) []*RequestGroup {
	index := make(map[string]*RequestGroup)
	var groups []*RequestGroup

	for _, r := range requests {
		if r == nil {
			continue
		}
		key := r.EmployeeID + "|" + FormatDate(r.OTDate)
		g, ok := index[key]
		if !ok {
			g = &RequestGroup{
				GroupKey:   GroupKey{EmployeeID: r.EmployeeID, OTDate: r.OTDate},
				Violations: make(map[string]Violation),
			}
			index[key] = g
			groups = append(groups, g)
		}

		g.Sessions = append(g.Sessions, Session{
			RequestID:    r.ID,
			TicketNumber: r.TicketNumber,
			StartTime:    r.StartTime,
			EndTime:      r.EndTime,
			Hours:        r.TotalHours,
			Status:       r.Status,
			OTAmount:     r.OTAmount,
		})
		g.TotalHours += r.TotalHours
		for k, v := range r.Violations {
			g.Violations[k] = v
		}
		if !containsState(g.Statuses, r.Status) {
			g.Statuses = append(g.Statuses, r.Status)
		}
	}

	for _, g := range groups {
		sort.SliceStable(g.Sessions, func(i, j int) bool {
			return clockLess(g.Sessions[i].StartTime, g.Sessions[j].StartTime)
		})
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if !groups[i].OTDate.Equal(groups[j].OTDate) {
			return groups[i].OTDate.Before(groups[j].OTDate)
		}
		return groups[i].EmployeeID < groups[j].EmployeeID
	})

	return groups
}

func containsState(states []workflow.State, s workflow.State) bool {
	for _, x := range states {
		if x == s {
			return true
		}
	}
	return false
}

// clockLess orders "HH:MM" values, falling back to string order when unparsable
func clockLess(a, b string) bool {
	ma, errA := ClockMinutes(a)
	mb, errB := ClockMinutes(b)
	if errA != nil || errB != nil {
		return a < b
	}
	return ma < mb
}

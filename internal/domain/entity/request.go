package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/overtime-claims/internal/domain/workflow"
)

// DateLayout is the storage and wire format of OT dates
const DateLayout = "2006-01-02"

// ClockLayout is the storage and wire format of start and end times
const ClockLayout = "15:04"

// DayType classifies the claim date and selects the formula variant
type DayType string

const (
	DayTypeWeekday       DayType = "weekday"
	DayTypeSaturday      DayType = "saturday"
	DayTypeSunday        DayType = "sunday"
	DayTypePublicHoliday DayType = "public_holiday"
)

// IsValid returns true for the four known day types
func (d DayType) IsValid() bool {
	switch d {
	case DayTypeWeekday, DayTypeSaturday, DayTypeSunday, DayTypePublicHoliday:
		return true
	}
	return false
}

// DayTypes returns every day type
func DayTypes() []DayType {
	return []DayType{DayTypeWeekday, DayTypeSaturday, DayTypeSunday, DayTypePublicHoliday}
}

// ClassifyDate derives the day type of a date. Holidays win over weekends.
func ClassifyDate(date time.Time, holiday bool) DayType {
	if holiday {
		return DayTypePublicHoliday
	}
	switch date.Weekday() {
	case time.Saturday:
		return DayTypeSaturday
	case time.Sunday:
		return DayTypeSunday
	}
	return DayTypeWeekday
}

// ViolationType names which limit a threshold breach refers to
type ViolationType string

const (
	ViolationDailyHours   ViolationType = "daily_hours"
	ViolationWeeklyHours  ViolationType = "weekly_hours"
	ViolationMonthlyHours ViolationType = "monthly_hours"
	ViolationMaxAmount    ViolationType = "max_amount"
)

// Violation records one exceeded limit
type Violation struct {
	Type   ViolationType `json:"type"`
	Limit  float64       `json:"limit"`
	Actual float64       `json:"actual"`
}

// StageStamp is the actor, time and remarks written by one review stage
type StageStamp struct {
	ActorID string     `json:"actor_id,omitempty"`
	At      *time.Time `json:"at,omitempty"`
	Remarks string     `json:"remarks,omitempty"`
}

// IsZero reports whether the stage has not been stamped
func (s StageStamp) IsZero() bool {
	return s.ActorID == "" && s.At == nil && s.Remarks == ""
}

// OvertimeRequest is a single OT claim and its lifecycle state
type OvertimeRequest struct {
	ID           int64   `json:"id"`
	TicketNumber string  `json:"ticket_number"`
	EmployeeID   string  `json:"employee_id"`
	SupervisorID *string `json:"supervisor_id,omitempty"`

	OTDate     time.Time `json:"ot_date"`
	StartTime  string    `json:"start_time"`
	EndTime    string    `json:"end_time"`
	TotalHours float64   `json:"total_hours"`
	DayType    DayType   `json:"day_type"`

	ORP          *float64 `json:"orp"`
	HRP          *float64 `json:"hrp"`
	OTAmount     *float64 `json:"ot_amount"`
	FormulaError string   `json:"formula_error,omitempty"`

	Reason      string   `json:"reason"`
	Attachments []string `json:"attachments"`

	Status     workflow.State `json:"status"`
	Supervisor StageStamp     `json:"supervisor"`
	HR         StageStamp     `json:"hr"`
	Management StageStamp     `json:"management"`

	RejectionStage   workflow.Role `json:"rejection_stage,omitempty"`
	RejectionRemarks string        `json:"rejection_remarks,omitempty"`

	ParentRequestID   *int64 `json:"parent_request_id,omitempty"`
	IsResubmission    bool   `json:"is_resubmission"`
	ResubmissionCount int    `json:"resubmission_count"`

	Violations map[string]Violation `json:"violations"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stamp returns a pointer to the stage fields a role writes
func (r *OvertimeRequest) Stamp(stage workflow.Stage) *StageStamp {
	switch stage {
	case workflow.StageSupervisor:
		return &r.Supervisor
	case workflow.StageHR:
		return &r.HR
	case workflow.StageManagement:
		return &r.Management
	}
	return nil
}

// HasPay reports whether pay fields were computed
func (r *OvertimeRequest) HasPay() bool {
	return r.OTAmount != nil
}

// LatestRejectionRemark picks the most specific remark available,
// preferring management over HR over supervisor.
func (r *OvertimeRequest) LatestRejectionRemark() string {
	for _, s := range []string{r.Management.Remarks, r.HR.Remarks, r.Supervisor.Remarks} {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return r.RejectionRemarks
}

// ClockMinutes parses "HH:MM" into minutes past midnight
func ClockMinutes(clock string) (int, error) {
	t, err := time.Parse(ClockLayout, strings.TrimSpace(clock))
	if err != nil {
		return 0, NewValidationError("time", "%q is not HH:MM", clock)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// ComputeHours returns end minus start in hours. The range must be positive
// and must not cross midnight.
func ComputeHours(start, end string) (float64, error) {
	s, err := ClockMinutes(start)
	if err != nil {
		return 0, err
	}
	e, err := ClockMinutes(end)
	if err != nil {
		return 0, err
	}
	if e <= s {
		return 0, NewValidationError("end_time", "end time %s must be after start time %s", end, start)
	}
	return float64(e-s) / 60, nil
}

// Overlaps reports whether [start1,end1) and [start2,end2) intersect.
// Unparsable clocks never overlap.
func Overlaps(start1, end1, start2, end2 string) bool {
	s1, err1 := ClockMinutes(start1)
	e1, err2 := ClockMinutes(end1)
	s2, err3 := ClockMinutes(start2)
	e2, err4 := ClockMinutes(end2)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return false
	}
	return s1 < e2 && e1 > s2
}

// ParseDate parses an OT date in DateLayout
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, NewValidationError("ot_date", "%q is not YYYY-MM-DD", s)
	}
	return d, nil
}

// FormatDate renders a date in DateLayout
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

// String returns a short identification of the request for logs
func (r *OvertimeRequest) String() string {
	return fmt.Sprintf("%s(%d) %s %s %s-%s", r.TicketNumber, r.ID, r.EmployeeID, FormatDate(r.OTDate), r.StartTime, r.EndTime)
}

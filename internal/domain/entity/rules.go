package entity

import "strconv"

// EligibilityRule is an HR-configured predicate over employee profiles.
// Empty sets apply to everyone. Salary bounds are inclusive.
type EligibilityRule struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	MinSalary       *float64 `json:"min_salary,omitempty"`
	MaxSalary       *float64 `json:"max_salary,omitempty"`
	Departments     []string `json:"departments"`
	Roles           []string `json:"roles"`
	EmploymentTypes []string `json:"employment_types"`
	Active          bool     `json:"active"`
}

// ApprovalThreshold holds hour and amount ceilings scoped to departments and roles
type ApprovalThreshold struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	DailyLimit   *float64 `json:"daily_limit,omitempty"`
	WeeklyLimit  *float64 `json:"weekly_limit,omitempty"`
	MonthlyLimit *float64 `json:"monthly_limit,omitempty"`
	MaxAmount    *float64 `json:"max_amount,omitempty"`
	AutoBlock    bool     `json:"auto_block"`
	Departments  []string `json:"departments"`
	Roles        []string `json:"roles"`
	Active       bool     `json:"active"`
}

// ViolationKey is the map key a threshold breach is stored under
func (t *ApprovalThreshold) ViolationKey(vt ViolationType) string {
	return "threshold-" + strconv.FormatInt(t.ID, 10) + ":" + string(vt)
}

package policy

import (
	"strings"

	"github.com/garyjia/overtime-claims/internal/domain/entity"
)

// EligibilityResult tells whether an employee may submit and which rule allowed it
type EligibilityResult struct {
	Eligible bool
	RuleID   int64
	// NoRules is set when nothing active is configured, which admits everyone
	NoRules bool
}

// EvaluateEligibility checks a profile against the active rules.
// The employee is eligible when any active rule matches.
func EvaluateEligibility(profile *entity.EmployeeProfile, rules []*entity.EligibilityRule) EligibilityResult {
	active := 0
	for _, rule := range rules {
		if rule == nil || !rule.Active {
			continue
		}
		active++
		if RuleMatches(rule, profile) {
			return EligibilityResult{Eligible: true, RuleID: rule.ID}
		}
	}
	if active == 0 {
		return EligibilityResult{Eligible: true, NoRules: true}
	}
	return EligibilityResult{}
}

// RuleMatches applies one rule to a profile. Empty sets match everything
// and salary bounds are inclusive.
func RuleMatches(rule *entity.EligibilityRule, profile *entity.EmployeeProfile) bool {
	if profile == nil {
		return false
	}
	if rule.MinSalary != nil && profile.BasicSalary < *rule.MinSalary {
		return false
	}
	if rule.MaxSalary != nil && profile.BasicSalary > *rule.MaxSalary {
		return false
	}
	return inSet(rule.Departments, profile.Department) &&
		inSet(rule.Roles, profile.Role) &&
		inSet(rule.EmploymentTypes, profile.EmploymentType)
}

// inSet treats an empty set as "applies to all"; comparison ignores case
func inSet(set []string, v string) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(v)) {
			return true
		}
	}
	return false
}

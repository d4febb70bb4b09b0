package entity

// EmployeeProfile is the read-only view of an employee the engine needs
type EmployeeProfile struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	BasicSalary    float64 `json:"basic_salary"`
	Department     string  `json:"department"`
	Role           string  `json:"role"`
	EmploymentType string  `json:"employment_type"`
	SupervisorID   *string `json:"supervisor_id,omitempty"`
}

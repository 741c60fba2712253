package model

import "time"

type User struct {
	ID               string           `json:"id"`
	Email            string           `json:"email"`
	Name             string           `json:"name"`
	IsVerified       bool             `json:"is_verified"`
	IsOrgAdmin       bool             `json:"is_org_admin"`
	IsSuperuser      bool             `json:"is_superuser"`
	OrganizationID   string           `json:"organization_id,omitempty"`
	OrganizationName string           `json:"organization_name,omitempty"`
	Profile          *EmployeeProfile `json:"profile,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// EmployeeProfile is the employment record evaluation reads subject
// attributes from. Users without one (platform accounts, pending invites)
// simply contribute fewer attributes.
type EmployeeProfile struct {
	DepartmentID       string     `json:"department_id,omitempty"`
	DepartmentName     string     `json:"department_name,omitempty"`
	DesignationID      string     `json:"designation_id,omitempty"`
	DesignationName    string     `json:"designation_name,omitempty"`
	JobLevel           *int       `json:"job_level,omitempty"`
	LocationID         string     `json:"location_id,omitempty"`
	LocationName       string     `json:"location_name,omitempty"`
	EmploymentStatus   string     `json:"employment_status,omitempty"`
	EmploymentType     string     `json:"employment_type,omitempty"`
	JoinDate           *time.Time `json:"join_date,omitempty"`
	HasDirectReports   bool       `json:"has_direct_reports"`
	ReportingManagerID string     `json:"reporting_manager_id,omitempty"`
}

type UserSearchCriteria struct {
	Email          string `json:"email,omitempty"`
	Name           string `json:"name,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`
	Limit          int    `json:"limit,omitempty"`
	Offset         int    `json:"offset,omitempty"`
}

// api/pdp/engine/attributes.go
package engine

import (
	"strconv"
	"time"

	"github.com/lumenhr/aegis/api/model"
)

// SubjectAttributes flattens a user into the attribute map policy rules
// evaluate against. Users without an employment profile simply contribute
// fewer attributes; rules over the missing paths evaluate false.
func SubjectAttributes(user *model.User) map[string]any {
	attrs := map[string]any{
		"id":           user.ID,
		"email":        user.Email,
		"is_verified":  user.IsVerified,
		"is_org_admin": user.IsOrgAdmin,
		"is_superuser": user.IsSuperuser,
	}
	if user.OrganizationID != "" {
		attrs["organization_id"] = user.OrganizationID
		attrs["organization_name"] = user.OrganizationName
	}

	profile := user.Profile
	if profile == nil {
		return attrs
	}

	if profile.DepartmentID != "" {
		attrs["department"] = map[string]any{
			"id":   profile.DepartmentID,
			"name": profile.DepartmentName,
		}
	}
	if profile.DesignationID != "" {
		designation := map[string]any{
			"id":   profile.DesignationID,
			"name": profile.DesignationName,
		}
		if profile.JobLevel != nil {
			designation["job_level"] = *profile.JobLevel
		}
		attrs["designation"] = designation
	}
	if profile.LocationID != "" {
		attrs["location"] = map[string]any{
			"id":   profile.LocationID,
			"name": profile.LocationName,
		}
	}
	if profile.EmploymentStatus != "" {
		attrs["employment_status"] = profile.EmploymentStatus
	}
	if profile.EmploymentType != "" {
		attrs["employment_type"] = profile.EmploymentType
	}
	if profile.JoinDate != nil {
		attrs["join_date"] = profile.JoinDate.Format("2006-01-02")
	}
	attrs["has_direct_reports"] = profile.HasDirectReports
	if profile.ReportingManagerID != "" {
		attrs["reporting_manager_id"] = profile.ReportingManagerID
	}

	return attrs
}

// EnvironmentAttributes captures the ambient request context at the given
// instant.
func EnvironmentAttributes(now time.Time) map[string]any {
	weekday := now.Weekday()
	return map[string]any{
		"current_time": now.Format("15:04:05"),
		"current_date": now.Format("2006-01-02"),
		"day_of_week":  dayNames[weekday],
		"is_weekend":   weekday == time.Saturday || weekday == time.Sunday,
		"hour":         now.Hour(),
	}
}

var dayNames = map[time.Weekday]string{
	time.Monday:    "monday",
	time.Tuesday:   "tuesday",
	time.Wednesday: "wednesday",
	time.Thursday:  "thursday",
	time.Friday:    "friday",
	time.Saturday:  "saturday",
	time.Sunday:    "sunday",
}

// GroupMatchValue computes the subject attribute a policy group of the given
// type matches against. The second return is false when the subject has no
// value on that dimension.
func GroupMatchValue(user *model.User, groupType string) (string, bool) {
	if user.Profile == nil {
		return "", false
	}
	switch groupType {
	case model.GroupTypeDepartment:
		return user.Profile.DepartmentName, user.Profile.DepartmentName != ""
	case model.GroupTypeLocation:
		return user.Profile.LocationName, user.Profile.LocationName != ""
	case model.GroupTypeJobLevel:
		if user.Profile.JobLevel == nil {
			return "", false
		}
		return strconv.Itoa(*user.Profile.JobLevel), true
	case model.GroupTypeEmploymentType:
		return user.Profile.EmploymentType, user.Profile.EmploymentType != ""
	default:
		return "", false
	}
}

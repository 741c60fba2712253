// api/pdp/engine/attributes_test.go
package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenhr/aegis/api/model"
)

func TestSubjectAttributesFullProfile(t *testing.T) {
	jobLevel := 4
	joined := time.Date(2023, 4, 1, 10, 0, 0, 0, time.UTC)
	user := &model.User{
		ID:               "u-1",
		Email:            "rhea@example.com",
		IsVerified:       true,
		OrganizationID:   "org-1",
		OrganizationName: "Lumen Retail",
		Profile: &model.EmployeeProfile{
			DepartmentID:       "d-1",
			DepartmentName:     "Engineering",
			DesignationID:      "des-1",
			DesignationName:    "Senior Engineer",
			JobLevel:           &jobLevel,
			LocationID:         "loc-1",
			LocationName:       "Pune",
			EmploymentStatus:   "active",
			EmploymentType:     "full_time",
			JoinDate:           &joined,
			HasDirectReports:   true,
			ReportingManagerID: "u-9",
		},
	}

	attrs := SubjectAttributes(user)

	assert.Equal(t, "u-1", attrs["id"])
	assert.Equal(t, "rhea@example.com", attrs["email"])
	assert.Equal(t, true, attrs["is_verified"])
	assert.Equal(t, false, attrs["is_superuser"])
	assert.Equal(t, "org-1", attrs["organization_id"])
	assert.Equal(t, "Lumen Retail", attrs["organization_name"])

	department, ok := attrs["department"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Engineering", department["name"])

	designation, ok := attrs["designation"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Senior Engineer", designation["name"])
	assert.Equal(t, 4, designation["job_level"])

	location, ok := attrs["location"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Pune", location["name"])

	assert.Equal(t, "active", attrs["employment_status"])
	assert.Equal(t, "full_time", attrs["employment_type"])
	assert.Equal(t, "2023-04-01", attrs["join_date"])
	assert.Equal(t, true, attrs["has_direct_reports"])
	assert.Equal(t, "u-9", attrs["reporting_manager_id"])
}

func TestSubjectAttributesWithoutProfile(t *testing.T) {
	user := &model.User{ID: "u-2", Email: "invite@example.com"}

	attrs := SubjectAttributes(user)

	assert.Equal(t, "u-2", attrs["id"])
	assert.NotContains(t, attrs, "organization_id")
	assert.NotContains(t, attrs, "department")
	assert.NotContains(t, attrs, "employment_status")
}

func TestSubjectAttributesPartialProfile(t *testing.T) {
	user := &model.User{
		ID:             "u-3",
		OrganizationID: "org-1",
		Profile:        &model.EmployeeProfile{EmploymentType: "contract"},
	}

	attrs := SubjectAttributes(user)

	assert.Equal(t, "contract", attrs["employment_type"])
	assert.NotContains(t, attrs, "department")
	assert.NotContains(t, attrs, "designation")
	assert.NotContains(t, attrs, "join_date")
}

func TestEnvironmentAttributes(t *testing.T) {
	// A Tuesday afternoon.
	attrs := EnvironmentAttributes(time.Date(2025, 6, 10, 14, 30, 45, 0, time.UTC))

	assert.Equal(t, "14:30:45", attrs["current_time"])
	assert.Equal(t, "2025-06-10", attrs["current_date"])
	assert.Equal(t, "tuesday", attrs["day_of_week"])
	assert.Equal(t, false, attrs["is_weekend"])
	assert.Equal(t, 14, attrs["hour"])

	weekend := EnvironmentAttributes(time.Date(2025, 6, 14, 9, 0, 0, 0, time.UTC))
	assert.Equal(t, "saturday", weekend["day_of_week"])
	assert.Equal(t, true, weekend["is_weekend"])
}

func TestGroupMatchValue(t *testing.T) {
	user := engineerUser()

	value, ok := GroupMatchValue(user, model.GroupTypeDepartment)
	assert.True(t, ok)
	assert.Equal(t, "Engineering", value)

	value, ok = GroupMatchValue(user, model.GroupTypeLocation)
	assert.True(t, ok)
	assert.Equal(t, "Pune", value)

	value, ok = GroupMatchValue(user, model.GroupTypeJobLevel)
	assert.True(t, ok)
	assert.Equal(t, "4", value)

	value, ok = GroupMatchValue(user, model.GroupTypeEmploymentType)
	assert.True(t, ok)
	assert.Equal(t, "full_time", value)

	_, ok = GroupMatchValue(user, "cost_center")
	assert.False(t, ok)
}

func TestGroupMatchValueMissingDimensions(t *testing.T) {
	noProfile := &model.User{ID: "u-2"}
	_, ok := GroupMatchValue(noProfile, model.GroupTypeDepartment)
	assert.False(t, ok)

	sparse := &model.User{ID: "u-3", Profile: &model.EmployeeProfile{}}

	_, ok = GroupMatchValue(sparse, model.GroupTypeDepartment)
	assert.False(t, ok)
	_, ok = GroupMatchValue(sparse, model.GroupTypeJobLevel)
	assert.False(t, ok)
	_, ok = GroupMatchValue(sparse, model.GroupTypeEmploymentType)
	assert.False(t, ok)
}

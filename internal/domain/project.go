package domain

import (
	"strings"
	"time"

	"taskboard/internal/fault"
)

type ProjectStatus string

const (
	StatusNotStarted ProjectStatus = "Not Started"
	StatusInProgress ProjectStatus = "In Progress"
	StatusCompleted  ProjectStatus = "Completed"
	StatusCancelled  ProjectStatus = "Cancelled"
)

var ProjectStatuses = []ProjectStatus{StatusNotStarted, StatusInProgress, StatusCompleted, StatusCancelled}

func (s ProjectStatus) Valid() bool {
	for _, v := range ProjectStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParseProjectStatus accepts the display form ("In Progress") as well as
// compact forms such as "in-progress" or "InProgress".
func ParseProjectStatus(s string) (ProjectStatus, error) {
	norm := strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range ProjectStatuses {
		if strings.ReplaceAll(strings.ToLower(string(v)), " ", "") == norm {
			return v, nil
		}
	}
	return "", fault.Validationf("invalid project status %q", s)
}

type Project struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	StartDate   *time.Time    `json:"startDate,omitempty"`
	EndDate     *time.Time    `json:"endDate,omitempty"`
	Status      ProjectStatus `json:"status"`
	Tags        []string      `json:"tags,omitempty"`
	CreatedOn   time.Time     `json:"createdOn"`
	ModifiedOn  time.Time     `json:"modifiedOn"`
}

// ParseTags splits a comma-separated tag string, trimming entries and dropping empty ones.
func ParseTags(s string) []string {
	var tags []string
	for _, part := range strings.Split(s, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// JoinTags is the inverse of ParseTags for already-clean tags.
func JoinTags(tags []string) string {
	return strings.Join(ParseTags(strings.Join(tags, ",")), ",")
}

type ProjectInput struct {
	Name        string
	Description string
	StartDate   *time.Time
	EndDate     *time.Time
	Status      ProjectStatus
	Tags        []string
}

func (in ProjectInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fault.Validationf("name is required").WithFields(fault.FieldError{FieldLabel: "name", Message: "is required"})
	}
	if in.Status != "" && !in.Status.Valid() {
		return fault.Validationf("invalid project status %q", in.Status)
	}
	return checkDates(in.StartDate, in.EndDate)
}

type ProjectUpdate struct {
	Name        Opt[string]
	Description Opt[string]
	StartDate   Opt[time.Time]
	EndDate     Opt[time.Time]
	Status      Opt[ProjectStatus]
	Tags        Opt[[]string]
}

func (u ProjectUpdate) IsEmpty() bool {
	return !u.Name.IsSet() && !u.Description.IsSet() && !u.StartDate.IsSet() && !u.EndDate.IsSet() &&
		!u.Status.IsSet() && !u.Tags.IsSet()
}

// Validate checks the update on its own. Date ordering against the stored
// counterpart is checked by the caller, which knows the current record.
func (u ProjectUpdate) Validate() error {
	if u.IsEmpty() {
		return fault.Validationf("nothing to update")
	}
	if u.Name.IsSet() {
		if v, ok := u.Name.Value(); !ok || strings.TrimSpace(v) == "" {
			return fault.Validationf("name is required").WithFields(fault.FieldError{FieldLabel: "name", Message: "is required"})
		}
	}
	if u.Status.IsSet() {
		if v, ok := u.Status.Value(); !ok || !v.Valid() {
			return fault.Validationf("invalid project status %q", v)
		}
	}
	return checkDates(u.StartDate.Ptr(), u.EndDate.Ptr())
}

// ApplyDates returns the start/end pair p would have after u.
func (u ProjectUpdate) ApplyDates(p Project) (start, end *time.Time) {
	start, end = p.StartDate, p.EndDate
	if u.StartDate.IsSet() {
		start = u.StartDate.Ptr()
	}
	if u.EndDate.IsSet() {
		end = u.EndDate.Ptr()
	}
	return start, end
}

func checkDates(start, end *time.Time) error {
	if start != nil && end != nil && !start.Before(*end) {
		return fault.Validationf("end date must be after start date").WithFields(fault.FieldError{FieldLabel: "endDate", Message: "must be after start date"})
	}
	return nil
}

// CheckDates is exported for callers that merge an update with a stored project.
func CheckDates(start, end *time.Time) error { return checkDates(start, end) }

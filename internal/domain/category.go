package domain

import (
	"strings"

	"taskboard/internal/fault"
)

// Category groups tasks. TaskCount is derived and may lag behind the task collection.
type Category struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color,omitempty"`
	Icon      string `json:"icon,omitempty"`
	TaskCount int    `json:"taskCount"`
}

type CategoryInput struct {
	Name  string
	Color string
	Icon  string
}

func (in CategoryInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fault.Validationf("name is required").WithFields(fault.FieldError{FieldLabel: "name", Message: "is required"})
	}
	return nil
}

type CategoryUpdate struct {
	Name  Opt[string]
	Color Opt[string]
	Icon  Opt[string]
}

func (u CategoryUpdate) Validate() error {
	if !u.Name.IsSet() && !u.Color.IsSet() && !u.Icon.IsSet() {
		return fault.Validationf("nothing to update")
	}
	if u.Name.IsSet() {
		if v, ok := u.Name.Value(); !ok || strings.TrimSpace(v) == "" {
			return fault.Validationf("name is required").WithFields(fault.FieldError{FieldLabel: "name", Message: "is required"})
		}
	}
	return nil
}

// Package models contains domain types for the data-terminal control plane.
package models

import (
	"time"

	"github.com/hww/data-terminal/pkg/apperrors"
)

// CreateStatus tracks the provisioning lifecycle of a project's backing store.
type CreateStatus string

const (
	CreateStatusPending CreateStatus = "pending"
	CreateStatusRunning CreateStatus = "running"
	CreateStatusSuccess CreateStatus = "success"
	CreateStatusFail    CreateStatus = "fail"
)

// Project is the tenant root. Its code is the sole tenant-routing key and is
// immutable after creation.
type Project struct {
	Code         string       `json:"code"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	CreateStatus CreateStatus `json:"create_status"`
	CreateMsg    string       `json:"create_msg"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Validate checks project invariants: code and name are required, and the
// code must be usable as a database name component.
func (p *Project) Validate() error {
	if p.Code == "" {
		return apperrors.Validationf("code is required")
	}
	if p.Name == "" {
		return apperrors.Validationf("name is required")
	}
	if len(p.Code) > 32 {
		return apperrors.Validationf("code length must be at most 32 characters")
	}
	for _, r := range p.Code {
		if !isIdentChar(r) {
			return apperrors.Validationf("code may only contain lowercase letters, digits and underscores")
		}
	}
	return nil
}

func isIdentChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_'
}

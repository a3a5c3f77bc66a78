package services

import "giftstudio/internal/domain/models/gift"

// ValidationMessage is a single validation problem
type ValidationMessage struct {
	Message string `json:"message"`
}

// ValidationResult is returned by ImportValidator. Project is set only when IsValid.
type ValidationResult struct {
	IsValid bool
	Errors  []ValidationMessage
	Project *gift.Project
}

// ImportValidator checks the structure of imported project JSON
type ImportValidator interface {
	ValidateImport(raw []byte) ValidationResult
}

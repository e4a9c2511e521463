package order

import (
	"Go-Order-Intake/domain"
	"Go-Order-Intake/pkg/record"
	"fmt"
	"slices"
)

// DefaultManagers is the manager list used when none is configured.
var DefaultManagers = []string{"태일", "서지은", "자인"}

type Policy struct {
	Managers             []string
	RequiredFields       []string
	RequireManualApplied bool
}

// GateError is a submission refused before any request is sent. Message is
// the banner text.
type GateError struct {
	Position int
	Message  string
}

func (e *GateError) Error() string {
	return e.Message
}

func (e *GateError) Is(target error) bool {
	return target == domain.ErrSubmissionBlocked
}

// AllowsManager reports whether name is one of the configured managers.
func (p Policy) AllowsManager(name string) bool {
	return name != "" && slices.Contains(p.managers(), name)
}

func (p Policy) managers() []string {
	if len(p.Managers) == 0 {
		return DefaultManagers
	}
	return p.Managers
}

func (p Policy) required() []string {
	if len(p.RequiredFields) == 0 {
		return record.DefaultRequiredFields
	}
	return p.RequiredFields
}

// CheckSubmission returns the first reason f cannot be submitted, or nil.
func CheckSubmission(f Form, p Policy) error {
	if f.Submitting {
		return domain.ErrSubmissionInProgress
	}
	if f.Manager == "" {
		return &GateError{Message: domain.MessageSelectManager}
	}

	for i, it := range f.Items {
		if _, ok := it.Image.(Analyzing); ok {
			return &GateError{Position: i + 1, Message: fmt.Sprintf(domain.MessageAnalysisInProgress, i+1)}
		}
	}

	for i, it := range f.Items {
		if _, ok := it.Image.(Analyzed); !ok {
			return &GateError{Position: i + 1, Message: domain.MessageAnalysisIncomplete}
		}
	}

	if p.RequireManualApplied {
		for i, it := range f.Items {
			if _, ok := it.Manual.(Applied); !ok {
				return &GateError{Position: i + 1, Message: fmt.Sprintf(domain.MessageManualNotApplied, i+1)}
			}
		}
	}

	required := p.required()
	for i, it := range f.Items {
		if field, missing := record.Missing(it.Merged(), required); missing {
			return &GateError{Position: i + 1, Message: fmt.Sprintf(domain.MessageRequiredFieldEmpty, i+1, field)}
		}
	}
	return nil
}

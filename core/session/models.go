package session

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

type Term string

const (
	TermFirst  Term = "First"
	TermSecond Term = "Second"
	TermThird  Term = "Third"
)

var Terms = []Term{TermFirst, TermSecond, TermThird}

func (t Term) IsValid() bool {
	for _, term := range Terms {
		if t == term {
			return true
		}
	}
	return false
}

type PublicationStatus string

const (
	NotReady  PublicationStatus = "NotReady"
	Published PublicationStatus = "Published"
	Archived  PublicationStatus = "Archived" // superseded by a newer session
)

// Session is one academic period (year + term), optionally scoped to a branch.
type Session struct {
	ID                string            `json:"id" db:"id"`
	AcademicYear      string            `json:"academic_year" db:"academic_year"`
	Term              Term              `json:"term" db:"term"`
	BranchID          string            `json:"branch_id" db:"branch_id"` // empty: all branches
	IsResultEntryOpen bool              `json:"is_result_entry_open" db:"is_result_entry_open"`
	PublicationStatus PublicationStatus `json:"publication_status" db:"publication_status"`
	CreatedBy         string            `json:"created_by" db:"created_by"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"` // UTC
	UpdatedAt         time.Time         `json:"updated_at" db:"updated_at"` // UTC
}

func (s Session) IsPublished() bool { return s.PublicationStatus == Published }
func (s Session) IsArchived() bool  { return s.PublicationStatus == Archived }

// NewSession contains information needed to create a new Session.
type NewSession struct {
	AcademicYear string `json:"academic_year" validate:"required,notblank,max=20"`
	Term         Term   `json:"term" validate:"required,term"`
	BranchID     string `json:"branch_id"`
}

func (ns *NewSession) Validate(validate *validator.Validate) error {
	ns.AcademicYear = core.CleanString(ns.AcademicYear)
	ns.BranchID = core.CleanString(ns.BranchID)
	return validate.Struct(ns)
}

type QueryFilter struct {
	AcademicYear      string `query:"academic_year"`
	Term              Term   `query:"term"`
	BranchID          string `query:"branch_id"`
	IsResultEntryOpen *bool  `query:"is_result_entry_open"`
}

var (
	termTag  = "term"
	termText = "term must be one of First, Second or Third"
)

// RegisterValidators registers the session validation tags.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(termTag, func(fl validator.FieldLevel) bool {
		return Term(fl.Field().String()).IsValid()
	})
	core.RegisterCustomTranslation(validate, translator, termTag, termText)
}

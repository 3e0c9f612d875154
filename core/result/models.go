package result

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

type Status string

const (
	Draft    Status = "Draft"
	Approved Status = "Approved" // frozen: components, total & grade are read-only
)

func (s Status) IsValid() bool { return s == Draft || s == Approved }

// Components are the raw marks of a result. Absent components count as 0.
type Components struct {
	FirstCA  float64 `json:"first_ca" db:"first_ca"`
	SecondCA float64 `json:"second_ca" db:"second_ca"`
	ThirdCA  float64 `json:"third_ca" db:"third_ca"`
	Exam     float64 `json:"exam" db:"exam"`
}

func (c Components) Total() float64 {
	return round2(c.FirstCA + c.SecondCA + c.ThirdCA + c.Exam)
}

// Result is one student's marks for a subject in a session.
type Result struct {
	ID        string `json:"id"`
	StudentID string `json:"student_id"`
	SubjectID string `json:"subject_id"`
	ClassID   string `json:"class_id"`
	BranchID  string `json:"branch_id"`
	SessionID string `json:"session_id"`
	Components
	Total            float64    `json:"total"`
	Grade            string     `json:"grade"`
	Status           Status     `json:"status"`
	Position         *int       `json:"position"` // set by the ranking pass
	Average          *float64   `json:"average"`  // set by the ranking pass
	Remarks          string     `json:"remarks"`
	TeacherComment   string     `json:"teacher_comment"`
	PrincipalComment string     `json:"principal_comment"`
	RecordedBy       string     `json:"recorded_by"`
	ApprovedBy       string     `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"` // UTC
	CreatedAt        time.Time  `json:"created_at"`            // UTC
	UpdatedAt        time.Time  `json:"updated_at"`            // UTC
}

func (r Result) IsApproved() bool { return r.Status == Approved }

// ClearRanking drops stale ranking output.
func (r *Result) ClearRanking() {
	r.Position = nil
	r.Average = nil
}

// Entry contains information needed to create or update a Result.
type Entry struct {
	StudentID      string `json:"student_id" validate:"required,notblank"`
	SubjectID      string `json:"subject_id" validate:"required,notblank"`
	ClassID        string `json:"class_id" validate:"required,notblank"`
	BranchID       string `json:"branch_id"`
	SessionID      string `json:"session_id" validate:"required,notblank"`
	Components     `validate:"-"`
	Remarks        string `json:"remarks" validate:"max=500"`
	TeacherComment string `json:"teacher_comment" validate:"max=500"`
}

func (e *Entry) clean() {
	e.StudentID = core.CleanString(e.StudentID)
	e.SubjectID = core.CleanString(e.SubjectID)
	e.ClassID = core.CleanString(e.ClassID)
	e.BranchID = core.CleanString(e.BranchID)
	e.SessionID = core.CleanString(e.SessionID)
	e.Remarks = core.CleanString(e.Remarks)
	e.TeacherComment = core.CleanString(e.TeacherComment)
}

func (e *Entry) Validate(validate *validator.Validate) error {
	e.clean()
	return validate.Struct(e)
}

// Row is one line of a bulk entry; class, subject & session come from the batch.
type Row struct {
	StudentID      string `json:"student_id" validate:"required,notblank"`
	Components     `validate:"-"`
	Remarks        string `json:"remarks" validate:"max=500"`
	TeacherComment string `json:"teacher_comment" validate:"max=500"`
}

// BulkEntry is a class sheet for one subject in one session.
type BulkEntry struct {
	ClassID   string `json:"class_id" validate:"required,notblank"`
	SubjectID string `json:"subject_id" validate:"required,notblank"`
	SessionID string `json:"session_id" validate:"required,notblank"`
	BranchID  string `json:"branch_id"`
	Rows      []Row  `json:"rows" validate:"required,min=1,dive"`
}

func (be *BulkEntry) Validate(validate *validator.Validate) error {
	be.ClassID = core.CleanString(be.ClassID)
	be.SubjectID = core.CleanString(be.SubjectID)
	be.SessionID = core.CleanString(be.SessionID)
	be.BranchID = core.CleanString(be.BranchID)
	return validate.Struct(be)
}

// RowOutcome reports the fate of one bulk row. Err is nil on success.
type RowOutcome struct {
	StudentID string  `json:"student_id"`
	Result    *Result `json:"result,omitempty"`
	Err       error   `json:"-"`
	Error     string  `json:"error,omitempty"`
}

func (o RowOutcome) OK() bool { return o.Err == nil }

type QueryFilter struct {
	SessionID string `query:"session_id"`
	ClassID   string `query:"class_id"`
	SubjectID string `query:"subject_id"`
	StudentID string `query:"student_id"`
	BranchID  string `query:"branch_id"`
	Status    Status `query:"status" validate:"omitempty,result_status"`
}

var (
	resultStatusTag  = "result_status"
	resultStatusText = "status must be one of Draft or Approved"
)

// RegisterValidators registers the result validation tags.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(resultStatusTag, func(fl validator.FieldLevel) bool {
		return Status(fl.Field().String()).IsValid()
	})
	core.RegisterCustomTranslation(validate, translator, resultStatusTag, resultStatusText)
}

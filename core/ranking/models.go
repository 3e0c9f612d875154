package ranking

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

type PromotionStatus string

const (
	Promoted PromotionStatus = "Promoted"
	Repeated PromotionStatus = "Repeated"
)

func (s PromotionStatus) IsValid() bool { return s == Promoted || s == Repeated }

// PromotionRecord is the promotion decision of a student leaving a class at the end of a session.
type PromotionRecord struct {
	ID              string          `json:"id"`
	StudentID       string          `json:"student_id"`
	SessionID       string          `json:"session_id"`
	FromClassID     string          `json:"from_class_id"`
	FinalAverage    float64         `json:"final_average"`
	Threshold       float64         `json:"threshold"`
	Status          PromotionStatus `json:"status"`
	Overridden      bool            `json:"overridden"` // sticky: never recomputed by a promotion run
	OverrideComment string          `json:"override_comment,omitempty"`
	OverriddenBy    string          `json:"overridden_by,omitempty"`
	OverriddenAt    *time.Time      `json:"overridden_at,omitempty"` // UTC
	CreatedAt       time.Time       `json:"created_at"`              // UTC
	UpdatedAt       time.Time       `json:"updated_at"`              // UTC
}

// Standing is a student's place in a ranked class.
type Standing struct {
	StudentID string  `json:"student_id"`
	Average   float64 `json:"average"`
	Position  int     `json:"position"`
}

// ClassRef names a class in a session.
type ClassRef struct {
	ClassID   string `json:"class_id" query:"class_id" validate:"required,notblank"`
	SessionID string `json:"session_id" query:"session_id" validate:"required,notblank"`
}

func (cr *ClassRef) Validate(validate *validator.Validate) error {
	cr.ClassID = core.CleanString(cr.ClassID)
	cr.SessionID = core.CleanString(cr.SessionID)
	return validate.Struct(cr)
}

// PromotionRun asks for a promotion run; a nil Threshold uses the configured default.
type PromotionRun struct {
	ClassRef
	Threshold *float64 `json:"threshold" validate:"omitempty,min=0"`
}

func (pr *PromotionRun) Validate(validate *validator.Validate) error {
	pr.ClassID = core.CleanString(pr.ClassID)
	pr.SessionID = core.CleanString(pr.SessionID)
	return validate.Struct(pr)
}

// Override replaces the computed status of a promotion record.
type Override struct {
	Status  PromotionStatus `json:"status" validate:"required,promotion_status"`
	Comment string          `json:"comment" validate:"required,notblank,max=500"`
}

func (o *Override) Validate(validate *validator.Validate) error {
	o.Comment = core.CleanString(o.Comment)
	return validate.Struct(o)
}

var (
	promotionStatusTag  = "promotion_status"
	promotionStatusText = "status must be one of Promoted or Repeated"
)

// RegisterValidators registers the promotion validation tags.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(promotionStatusTag, func(fl validator.FieldLevel) bool {
		return PromotionStatus(fl.Field().String()).IsValid()
	})
	core.RegisterCustomTranslation(validate, translator, promotionStatusTag, promotionStatusText)
}

package validation

import (
	"fmt"

	"github.com/academica/forecast/internal/types"
)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Collector accumulates validation errors without failing on first.
type Collector struct {
	errors []ValidationError
}

// Add appends a validation error to the collector if non-nil.
func (c *Collector) Add(err *ValidationError) {
	if err != nil {
		c.errors = append(c.errors, *err)
	}
}

// HasErrors returns true if the collector has accumulated any errors.
func (c *Collector) HasErrors() bool {
	return len(c.errors) > 0
}

// Errors returns all accumulated validation errors.
func (c *Collector) Errors() []ValidationError {
	return c.errors
}

// ValidateChoice returns an error unless the value is one of the allowed
// choices. The empty string is rejected only when required is true, so
// partial drafts can carry unvisited categorical fields.
func ValidateChoice(field, value string, required bool) *ValidationError {
	if value == "" {
		if required {
			return &ValidationError{Field: field, Message: "is required"}
		}
		return nil
	}
	if value != types.ChoiceYes && value != types.ChoiceNo {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be %q or %q", types.ChoiceYes, types.ChoiceNo),
		}
	}
	return nil
}

// ValidateScale returns an error if the value is outside [min, max].
func ValidateScale(field string, value, min, max int) *ValidationError {
	if value < min || value > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be between %d and %d", min, max),
		}
	}
	return nil
}

// ValidateStep returns an error if the step cursor is outside 1..TotalSteps.
func ValidateStep(field string, step int) *ValidationError {
	if step < 1 || step > types.TotalSteps {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be between 1 and %d", types.TotalSteps),
		}
	}
	return nil
}

// ValidateAnswers checks an answer set. With required false (draft
// buffering) categorical fields may be empty; with required true (commit
// and raw-input inserts) every field must be present and in bounds.
func ValidateAnswers(a types.AnswerSet, required bool) []ValidationError {
	var c Collector
	c.Add(ValidateChoice("repeatedCourse", a.RepeatedCourse, required))
	c.Add(ValidateScale("attendance", a.Attendance, types.AttendanceMin, types.AttendanceMax))
	c.Add(ValidateChoice("job", a.Job, required))
	c.Add(ValidateScale("motivation", a.Motivation, types.ScaleMin, types.ScaleMax))
	c.Add(ValidateChoice("firstGen", a.FirstGen, required))
	c.Add(ValidateScale("friendSupport", a.FriendSupport, types.ScaleMin, types.ScaleMax))
	return c.Errors()
}

// ValidateRawInput checks a raw-input insert in the scoring schema.
func ValidateRawInput(req types.InsertRawInputRequest) []ValidationError {
	var c Collector
	c.Add(validateFlag("repeated_course", req.RepeatedCourse))
	c.Add(validateBoundedFloat("attendance", req.Attendance, types.AttendanceMin, types.AttendanceMax))
	c.Add(validateFlag("part_time_job", req.PartTimeJob))
	c.Add(validateBoundedFloat("motivation_level", req.MotivationLevel, types.ScaleMin, types.ScaleMax))
	c.Add(validateFlag("first_generation", req.FirstGeneration))
	c.Add(validateBoundedFloat("friends_performance", req.FriendsPerformance, types.ScaleMin, types.ScaleMax))
	return c.Errors()
}

// ValidatePrediction checks a prediction insert.
func ValidatePrediction(req types.InsertPredictionRequest) []ValidationError {
	var c Collector
	c.Add(validateBoundedFloat("score", req.Score, 0, 4))
	c.Add(ValidateScale("probability", req.Probability, 0, 100))
	c.Add(validateBoundedFloat("attendance", req.Attendance, types.AttendanceMin, types.AttendanceMax))
	if req.Recommendation == "" {
		c.Add(&ValidationError{Field: "recommendation", Message: "is required"})
	}
	return c.Errors()
}

func validateFlag(field string, value int) *ValidationError {
	if value != 0 && value != 1 {
		return &ValidationError{Field: field, Message: "must be 0 or 1"}
	}
	return nil
}

func validateBoundedFloat(field string, value, min, max float64) *ValidationError {
	if value < min || value > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be between %g and %g", min, max),
		}
	}
	return nil
}

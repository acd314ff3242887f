package validation

import (
	"testing"

	"github.com/academica/forecast/internal/types"
)

func TestValidateAnswers_CompleteSet(t *testing.T) {
	a := types.AnswerSet{
		RepeatedCourse: types.ChoiceNo,
		Attendance:     85,
		Job:            types.ChoiceNo,
		Motivation:     7,
		FirstGen:       types.ChoiceNo,
		FriendSupport:  6,
	}

	if errs := ValidateAnswers(a, true); len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}

func TestValidateAnswers_MissingCategoricalRequired(t *testing.T) {
	a := types.AnswerSet{
		Attendance:    85,
		Motivation:    7,
		FriendSupport: 6,
	}

	errs := ValidateAnswers(a, true)
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(errs), errs)
	}

	fields := map[string]bool{}
	for _, e := range errs {
		fields[e.Field] = true
	}
	for _, want := range []string{"repeatedCourse", "job", "firstGen"} {
		if !fields[want] {
			t.Errorf("expected error for field %q", want)
		}
	}
}

func TestValidateAnswers_PartialDraftAllowed(t *testing.T) {
	// Unvisited categorical fields are empty on partial drafts
	a := types.AnswerSet{
		RepeatedCourse: types.ChoiceYes,
		Attendance:     70,
		Motivation:     5,
		FriendSupport:  5,
	}

	if errs := ValidateAnswers(a, false); len(errs) != 0 {
		t.Errorf("expected no errors for partial draft, got %v", errs)
	}
}

func TestValidateAnswers_OutOfBoundsScale(t *testing.T) {
	a := types.AnswerSet{
		RepeatedCourse: types.ChoiceNo,
		Attendance:     101,
		Job:            types.ChoiceNo,
		Motivation:     11,
		FirstGen:       types.ChoiceNo,
		FriendSupport:  -1,
	}

	errs := ValidateAnswers(a, true)
	if len(errs) != 3 {
		t.Errorf("expected 3 errors, got %d: %v", len(errs), errs)
	}
}

func TestValidateChoice_RejectsUnknownValue(t *testing.T) {
	err := ValidateChoice("repeatedCourse", "Maybe", true)
	if err == nil {
		t.Fatal("expected error for unknown choice")
	}
	if err.Field != "repeatedCourse" {
		t.Errorf("expected field repeatedCourse, got %q", err.Field)
	}
}

func TestValidateStep_Bounds(t *testing.T) {
	if err := ValidateStep("step", 0); err == nil {
		t.Error("expected error for step 0")
	}
	if err := ValidateStep("step", types.TotalSteps+1); err == nil {
		t.Error("expected error for step beyond total")
	}
	if err := ValidateStep("step", 2); err != nil {
		t.Errorf("unexpected error for valid step: %v", err)
	}
}

func TestValidateRawInput_FlagsMustBeBinary(t *testing.T) {
	req := types.InsertRawInputRequest{
		RepeatedCourse:     2,
		Attendance:         85,
		PartTimeJob:        0,
		MotivationLevel:    7,
		FirstGeneration:    1,
		FriendsPerformance: 6,
	}

	errs := ValidateRawInput(req)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d: %v", len(errs), errs)
	}
	if errs[0].Field != "repeated_course" {
		t.Errorf("expected error for repeated_course, got %q", errs[0].Field)
	}
}

func TestValidatePrediction_RequiresRecommendation(t *testing.T) {
	req := types.InsertPredictionRequest{
		Score:       3.2,
		Probability: 80,
		Attendance:  85,
	}

	errs := ValidatePrediction(req)
	if len(errs) != 1 || errs[0].Field != "recommendation" {
		t.Errorf("expected recommendation error, got %v", errs)
	}
}

func TestCollector_AccumulatesAndSkipsNil(t *testing.T) {
	var c Collector
	c.Add(nil)
	if c.HasErrors() {
		t.Error("nil add should not register an error")
	}
	c.Add(&ValidationError{Field: "a", Message: "bad"})
	c.Add(&ValidationError{Field: "b", Message: "bad"})
	if len(c.Errors()) != 2 {
		t.Errorf("expected 2 errors, got %d", len(c.Errors()))
	}
}

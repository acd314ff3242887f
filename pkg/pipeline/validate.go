package pipeline

// ValidateAnswers checks a draft's answers before commit: categorical
// fields must be Yes or No, scale fields within declared bounds. Returns
// a ValidationError naming every failing field, or nil.
func ValidateAnswers(a Answers) error {
	var fields []string

	checkChoice := func(field, value string) {
		if value != ChoiceYes && value != ChoiceNo {
			fields = append(fields, field)
		}
	}

	checkChoice("repeatedCourse", a.RepeatedCourse)
	checkChoice("job", a.Job)
	checkChoice("firstGen", a.FirstGen)

	if a.Attendance < AttendanceMin || a.Attendance > AttendanceMax {
		fields = append(fields, "attendance")
	}
	if a.Motivation < ScaleMin || a.Motivation > ScaleMax {
		fields = append(fields, "motivation")
	}
	if a.FriendSupport < ScaleMin || a.FriendSupport > ScaleMax {
		fields = append(fields, "friendSupport")
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

package inputval

import (
	"testing"
)

func TestIsValidCode(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"AU01", true},
		{" cs-101 ", true},
		{"M001", true},
		{"A", false},
		{"-AB", false},
		{"AB_01", false},
		{"ABCDEFGHIJKLMNOPQRSTU", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsValidCode(tt.in); got != tt.want {
			t.Errorf("IsValidCode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIsValidAcademicYear(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"2024-25", true},
		{"1999-00", true},
		{"2024-26", false},
		{"2024-2025", false},
		{"24-25", false},
		{"abcd-ef", false},
		{"2099-+0", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsValidAcademicYear(tt.in); got != tt.want {
			t.Errorf("IsValidAcademicYear(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestClockMinutes(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"00:00", 0, true},
		{"09:30", 570, true},
		{"23:59", 1439, true},
		{"24:00", 0, false},
		{"9:30", 0, false},
		{"09:60", 0, false},
		{"0930", 0, false},
		{"+9:00", 0, false},
		{"-0:30", 0, false},
		{"09:+5", 0, false},
		{"09:5", 0, false},
		{" 09:30 ", 570, true},
	}
	for _, tt := range tests {
		got, ok := ClockMinutes(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ClockMinutes(%q) = %d, %v, want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
		if IsValidClock(tt.in) != tt.wantOK {
			t.Errorf("IsValidClock(%q) = %v", tt.in, !tt.wantOK)
		}
	}
}

func TestCanonicalClock(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"09:30", "09:30"},
		{" 23:05 ", "23:05"},
		{"+9:00", "+9:00"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CanonicalClock(tt.in); got != tt.want {
			t.Errorf("CanonicalClock(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsValidObjectID(t *testing.T) {
	if !IsValidObjectID("507f1f77bcf86cd799439011") {
		t.Error("valid hex rejected")
	}
	for _, bad := range []string{"", "507f1f77", "zzzzzzzzzzzzzzzzzzzzzzzz"} {
		if IsValidObjectID(bad) {
			t.Errorf("IsValidObjectID(%q) = true", bad)
		}
	}
}

func TestResult(t *testing.T) {
	r := &Result{}
	if r.HasErrors() || r.First() != "" || r.All() != "" {
		t.Error("empty result should report nothing")
	}

	r = &Result{Errors: []FieldError{
		{Field: "code", Label: "Code", Message: "Code is required."},
		{Field: "name", Label: "Name", Message: "Name is required."},
	}}
	if r.First() != "Code is required." {
		t.Errorf("First() = %q", r.First())
	}
	if r.All() != "Code is required.; Name is required." {
		t.Errorf("All() = %q", r.All())
	}
	if m := r.ByField(); m["name"] != "Name is required." || len(m) != 2 {
		t.Errorf("ByField() = %v", m)
	}
}

func TestValidate(t *testing.T) {
	type slotInput struct {
		Day   string `json:"day" validate:"required,weekday" label:"Day"`
		Start string `json:"start" validate:"required,hhmm" label:"Start time"`
		Room  string `json:"room" validate:"required" label:"Room"`
	}

	tests := []struct {
		name string
		in   slotInput
		want string
	}{
		{"valid", slotInput{"Monday", "09:00", "B-204"}, ""},
		{"missing day", slotInput{"", "09:00", "B-204"}, "Day is required."},
		{"bad day", slotInput{"Sunday", "09:00", "B-204"}, "Choose a valid day."},
		{"bad time", slotInput{"Monday", "9am", "B-204"}, "Start time must be a time such as 09:30."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Validate(tt.in).First(); got != tt.want {
				t.Errorf("Validate().First() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidate_LabelFallback(t *testing.T) {
	type input struct {
		Name string `validate:"required"`
	}
	if got := Validate(input{}).First(); got != "Name is required." {
		t.Errorf("First() = %q, want field name in message", got)
	}
	if Validate("not a struct") == nil {
		t.Error("Validate(non-struct) should return a non-nil result")
	}
}

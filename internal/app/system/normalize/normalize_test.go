package normalize

import "testing"

func TestQuery(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"engineering", "engineering"},
		{"  Engineering  ", "engineering"},
		{"\tARTS & Science\n", "arts & science"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Query(tt.input); got != tt.want {
				t.Errorf("Query(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoginID(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"admin", "admin"},
		{"ADMIN", "admin"},
		{"  Registrar.Office  ", "registrar.office"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := LoginID(tt.input); got != tt.want {
				t.Errorf("LoginID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Anna University", "Anna University"},
		{"  Anna University  ", "Anna University"},
		{"\tanna university\n", "anna university"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Name(tt.input); got != tt.want {
				t.Errorf("Name(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCode(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"m001", "M001"},
		{"  cse-101 ", "CSE-101"},
		{"INST01", "INST01"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Code(tt.input); got != tt.want {
				t.Errorf("Code(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStatusAndRole(t *testing.T) {
	if got := Status("  Scheduled "); got != "scheduled" {
		t.Errorf("Status() = %q, want %q", got, "scheduled")
	}
	if got := Role(" ADMIN"); got != "admin" {
		t.Errorf("Role() = %q, want %q", got, "admin")
	}
	if got := QueryParam("  M001 "); got != "M001" {
		t.Errorf("QueryParam() = %q, want %q", got, "M001")
	}
}

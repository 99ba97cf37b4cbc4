package obe

import (
	"strings"
	"testing"

	"github.com/dalemusser/strataportal/internal/domain/models"
)

func TestParseOutcomes(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		withCourse bool
		codes      []string
		wantMsg    string
	}{
		{"program", "po1 | Engineering knowledge\n\nPO2 | Problem analysis", false, []string{"PO1", "PO2"}, ""},
		{"course", "CO1 | cs201 | Explain stacks and queues", true, []string{"CO1"}, ""},
		{"statement keeps pipes", "PO3 | Design | develop solutions", false, []string{"PO3"}, ""},
		{"empty", "  \n", false, nil, ""},
		{"missing separator", "PO1 Engineering knowledge", false, nil, "Line 1: write it as CODE | statement."},
		{"missing course", "CO1 | | Explain", true, nil, "Line 1: the course is missing."},
		{"bad code", "P | Something", false, nil, "is not a valid outcome code"},
		{"duplicate", "PO1 | A\nPO1 | B", false, nil, "Line 2: PO1 is listed twice."},
		{"no statement", "PO1 |  ", false, nil, "Line 1: the statement is missing."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, msg := parseOutcomes(tt.text, tt.withCourse)
			if tt.wantMsg != "" {
				if !strings.Contains(msg, tt.wantMsg) {
					t.Errorf("msg = %q, want %q", msg, tt.wantMsg)
				}
				return
			}
			if msg != "" {
				t.Fatalf("unexpected msg %q", msg)
			}
			var codes []string
			for _, o := range got {
				codes = append(codes, o.Code)
			}
			if strings.Join(codes, ",") != strings.Join(tt.codes, ",") {
				t.Errorf("codes = %v, want %v", codes, tt.codes)
			}
		})
	}
}

func TestParseOutcomes_TooMany(t *testing.T) {
	var b strings.Builder
	for i := 0; i <= maxOutcomes; i++ {
		b.WriteString("PO" + string(rune('A'+i%26)) + string(rune('A'+i/26)) + " | x\n")
	}
	if _, msg := parseOutcomes(b.String(), false); msg == "" {
		t.Error("expected a limit message")
	}
}

func TestOutcomeText_RoundTrip(t *testing.T) {
	in := []models.Outcome{{Code: "CO1", Course: "CS201", Statement: "Explain stacks"}}
	got, msg := parseOutcomes(outcomeText(in, true), true)
	if msg != "" || len(got) != 1 || got[0] != in[0] {
		t.Errorf("got %+v, %q", got, msg)
	}
}

func TestParseMappings(t *testing.T) {
	cos := []models.Outcome{{Code: "CO1"}, {Code: "CO2"}}
	pos := []models.Outcome{{Code: "PO1"}, {Code: "PO2"}}

	form := map[string]string{
		mappingField("CO1", "PO1"): "3",
		mappingField("CO1", "PO2"): "0",
		mappingField("CO2", "PO2"): "1",
		mappingField("CO9", "PO1"): "2",
	}
	got, msg := parseMappings(cos, pos, func(k string) string { return form[k] })
	if msg != "" {
		t.Fatalf("msg = %q", msg)
	}
	want := []models.COPOMapping{{CO: "CO1", PO: "PO1", Level: 3}, {CO: "CO2", PO: "PO2", Level: 1}}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("got %+v, want %+v", got, want)
	}

	form[mappingField("CO2", "PO1")] = "4"
	if _, msg := parseMappings(cos, pos, func(k string) string { return form[k] }); msg != "CO2 to PO1: correlation must be 1, 2 or 3." {
		t.Errorf("msg = %q", msg)
	}
}

func TestPruneMappings(t *testing.T) {
	m := []models.COPOMapping{{CO: "CO1", PO: "PO1", Level: 2}, {CO: "CO2", PO: "PO1", Level: 1}, {CO: "CO1", PO: "PO3", Level: 3}}
	got := pruneMappings(m, []models.Outcome{{Code: "CO1"}}, []models.Outcome{{Code: "PO1"}, {Code: "PO2"}})
	if len(got) != 1 || got[0] != m[0] {
		t.Errorf("got %+v", got)
	}
}

func TestThresholds(t *testing.T) {
	tests := []struct {
		name  string
		in    thresholdInput
		field string
	}{
		{"valid", thresholdInput{"60", "40", "55", "70"}, ""},
		{"equal levels", thresholdInput{"60", "50", "50", "50"}, ""},
		{"not a number", thresholdInput{"sixty", "40", "55", "70"}, "target"},
		{"over 100", thresholdInput{"60", "40", "55", "101"}, "level3"},
		{"decreasing", thresholdInput{"60", "70", "55", "80"}, "level3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errs := tt.in.parse()
			if tt.field == "" {
				if len(errs) > 0 {
					t.Fatalf("errs = %v", errs)
				}
				if thresholdText(got) != tt.in {
					t.Errorf("round trip = %+v", thresholdText(got))
				}
				return
			}
			if _, ok := errs[tt.field]; !ok {
				t.Errorf("errs = %v, want %s", errs, tt.field)
			}
		})
	}
}

// internal/app/features/obe/parse.go
package obe

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dalemusser/strataportal/internal/app/system/inputval"
	"github.com/dalemusser/strataportal/internal/app/system/normalize"
	"github.com/dalemusser/strataportal/internal/domain/models"
)

const maxOutcomes = 30

// parseOutcomes reads one outcome per line. Program outcomes are written
// "PO1 | statement"; course outcomes carry the course as a middle field,
// "CO1 | CS201 | statement". Blank lines are skipped. A non-empty msg
// reports the first bad line.
func parseOutcomes(text string, withCourse bool) (out []models.Outcome, msg string) {
	want := 2
	format := "CODE | statement"
	if withCourse {
		want = 3
		format = "CODE | course | statement"
	}
	seen := map[string]bool{}
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", want)
		if len(parts) != want {
			return nil, fmt.Sprintf("Line %d: write it as %s.", i+1, format)
		}
		for j := range parts {
			parts[j] = strings.TrimSpace(parts[j])
		}
		o := models.Outcome{Code: normalize.Code(parts[0]), Statement: parts[want-1]}
		if withCourse {
			o.Course = normalize.Code(parts[1])
			if o.Course == "" {
				return nil, fmt.Sprintf("Line %d: the course is missing.", i+1)
			}
		}
		if !inputval.IsValidCode(o.Code) {
			return nil, fmt.Sprintf("Line %d: %q is not a valid outcome code.", i+1, parts[0])
		}
		if seen[o.Code] {
			return nil, fmt.Sprintf("Line %d: %s is listed twice.", i+1, o.Code)
		}
		if o.Statement == "" {
			return nil, fmt.Sprintf("Line %d: the statement is missing.", i+1)
		}
		seen[o.Code] = true
		out = append(out, o)
	}
	if len(out) > maxOutcomes {
		return nil, fmt.Sprintf("Enter at most %d outcomes.", maxOutcomes)
	}
	return out, ""
}

// outcomeText is the inverse of parseOutcomes, for the edit textarea.
func outcomeText(list []models.Outcome, withCourse bool) string {
	var b strings.Builder
	for _, o := range list {
		b.WriteString(o.Code)
		b.WriteString(" | ")
		if withCourse {
			b.WriteString(o.Course)
			b.WriteString(" | ")
		}
		b.WriteString(o.Statement)
		b.WriteByte('\n')
	}
	return b.String()
}

// mappingField names the grid select for co/po.
func mappingField(co, po string) string {
	return "map:" + co + ":" + po
}

// parseMappings reads the CO x PO grid. get returns the posted value of a
// field. Empty and "0" mean not mapped.
func parseMappings(cos, pos []models.Outcome, get func(string) string) (out []models.COPOMapping, msg string) {
	for _, co := range cos {
		for _, po := range pos {
			raw := strings.TrimSpace(get(mappingField(co.Code, po.Code)))
			if raw == "" || raw == "0" {
				continue
			}
			level, err := strconv.Atoi(raw)
			if err != nil || level < 1 || level > 3 {
				return nil, fmt.Sprintf("%s to %s: correlation must be 1, 2 or 3.", co.Code, po.Code)
			}
			out = append(out, models.COPOMapping{CO: co.Code, PO: po.Code, Level: level})
		}
	}
	return out, ""
}

// pruneMappings drops mappings whose outcomes no longer exist.
func pruneMappings(m []models.COPOMapping, cos, pos []models.Outcome) []models.COPOMapping {
	has := func(list []models.Outcome, code string) bool {
		for _, o := range list {
			if o.Code == code {
				return true
			}
		}
		return false
	}
	out := make([]models.COPOMapping, 0, len(m))
	for _, x := range m {
		if has(cos, x.CO) && has(pos, x.PO) {
			out = append(out, x)
		}
	}
	return out
}

// thresholdInput is the posted thresholds section.
type thresholdInput struct {
	Target string
	Level1 string
	Level2 string
	Level3 string
}

func (in thresholdInput) parse() (models.Thresholds, map[string]string) {
	errs := map[string]string{}
	num := func(field, label, raw string) int {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n < 0 || n > 100 {
			errs[field] = label + " must be a percentage from 0 to 100."
		}
		return n
	}
	t := models.Thresholds{
		Target: num("target", "Target", in.Target),
		Level1: num("level1", "Level 1", in.Level1),
		Level2: num("level2", "Level 2", in.Level2),
		Level3: num("level3", "Level 3", in.Level3),
	}
	if len(errs) == 0 && !(t.Level1 <= t.Level2 && t.Level2 <= t.Level3) {
		errs["level3"] = "Levels must not decrease from level 1 to level 3."
	}
	return t, errs
}

func thresholdText(t models.Thresholds) thresholdInput {
	return thresholdInput{
		Target: strconv.Itoa(t.Target),
		Level1: strconv.Itoa(t.Level1),
		Level2: strconv.Itoa(t.Level2),
		Level3: strconv.Itoa(t.Level3),
	}
}

// Package inputval validates form input with waffle/pantry/validate.
//
// Populate a struct tagged with validate rules from the form and call
// Validate. Labels make the messages readable:
//
//	type institutionInput struct {
//	    Code     string `json:"code" validate:"required,code" label:"Code"`
//	    Name     string `json:"name" validate:"required,max=200" label:"Name"`
//	    Category string `json:"category" validate:"required,category" label:"Category"`
//	}
//
//	if res := inputval.Validate(in); res.HasErrors() {
//	    data.SetError(res.First())
//	}
package inputval

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/dalemusser/strataportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/validate"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Result holds validation results with user-friendly messages.
type Result struct {
	Errors []FieldError
}

// FieldError is the failure of one field.
type FieldError struct {
	Field   string
	Label   string
	Message string
}

// HasErrors reports whether any field failed.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// First returns the first message, or "".
func (r *Result) First() string {
	if len(r.Errors) > 0 {
		return r.Errors[0].Message
	}
	return ""
}

// All returns every message joined with "; ".
func (r *Result) All() string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// ByField maps field names to their messages, for formutil.
func (r *Result) ByField() map[string]string {
	out := make(map[string]string, len(r.Errors))
	for _, e := range r.Errors {
		if _, ok := out[e.Field]; !ok {
			out[e.Field] = e.Message
		}
	}
	return out
}

// stringRule adapts a string predicate to a validate rule.
func stringRule(pred func(string) bool) func(any) bool {
	return func(value any) bool {
		s, ok := value.(string)
		return ok && pred(s)
	}
}

var (
	validator     *validate.Validator
	validatorOnce sync.Once
)

// rules are the portal-specific validate rules, by tag name.
var rules = map[string]func(string) bool{
	"code":         IsValidCode,
	"academicyear": IsValidAcademicYear,
	"hhmm":         IsValidClock,
	"objectid":     IsValidObjectID,
	"authmethod":   func(s string) bool { return models.IsValidAuthMethod(strings.ToLower(strings.TrimSpace(s))) },
	"role":         func(s string) bool { return models.IsValidRole(strings.ToLower(strings.TrimSpace(s))) },
	"category":     models.IsValidCategory,
	"agency":       models.IsValidAgency,
	"examtype":     models.IsValidExamType,
	"weekday":      models.IsValidWeekday,
	"metrictype":   models.IsValidMetricType,
}

func getValidator() *validate.Validator {
	validatorOnce.Do(func() {
		validator = validate.New(validate.WithStopOnFirstError())
		for name, pred := range rules {
			validator.RegisterRuleFunc(name, stringRule(pred), name)
		}
	})
	return validator
}

// Validate checks s against its validate tags. Besides the built-in rules
// (required, oneof, min, max) the portal registers:
//
//	code          2-20 uppercase letters, digits or dashes
//	academicyear  "2024-25" style, second year following the first
//	hhmm          24-hour clock time
//	objectid      MongoDB ObjectID hex
//	authmethod, role, category, agency, examtype, weekday, metrictype
func Validate(s any) *Result {
	result := &Result{}
	err := getValidator().Struct(s)
	if err == nil {
		return result
	}

	errs, ok := err.(validate.Errors)
	if !ok {
		return result
	}
	labels := fieldLabels(s)
	for _, e := range errs {
		label := labels[e.Field]
		if label == "" {
			label = e.Field
		}
		result.Errors = append(result.Errors, FieldError{
			Field:   e.Field,
			Label:   label,
			Message: message(label, e.Rule, e.Param),
		})
	}
	return result
}

// fieldLabels maps each field's name (json tag when present) to its label tag.
func fieldLabels(s any) map[string]string {
	labels := make(map[string]string)
	val := reflect.Indirect(reflect.ValueOf(s))
	if val.Kind() != reflect.Struct {
		return labels
	}
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		name := f.Name
		if tag, _, _ := strings.Cut(f.Tag.Get("json"), ","); tag != "" && tag != "-" {
			name = tag
		}
		if label := f.Tag.Get("label"); label != "" {
			labels[name] = label
		}
	}
	return labels
}

func message(label, rule, param string) string {
	switch rule {
	case "required":
		return label + " is required."
	case "oneof", "enum":
		return label + " must be one of: " + strings.ReplaceAll(param, " ", ", ") + "."
	case "min":
		return label + " must be at least " + param + " characters."
	case "max":
		return label + " must be at most " + param + " characters."
	case "code":
		return label + " may use only letters, digits and dashes (2 to 20)."
	case "academicyear":
		return label + " must look like 2024-25."
	case "hhmm":
		return label + " must be a time such as 09:30."
	case "objectid":
		return label + " is not a valid ID."
	case "role":
		return label + " must be one of: " + strings.Join(models.AllRoles(), ", ") + "."
	case "category", "agency", "examtype", "weekday", "metrictype", "authmethod":
		return "Choose a valid " + strings.ToLower(label) + "."
	default:
		return label + " is invalid."
	}
}

var codePattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{1,19}$`)

// IsValidCode checks a record code after upper-casing and trimming.
func IsValidCode(s string) bool {
	return codePattern.MatchString(strings.ToUpper(strings.TrimSpace(s)))
}

// IsValidAcademicYear accepts "YYYY-YY" where YY is the year after YYYY.
func IsValidAcademicYear(s string) bool {
	first, second, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok || len(first) != 4 || len(second) != 2 || !allDigits(first) || !allDigits(second) {
		return false
	}
	y1, err1 := strconv.Atoi(first)
	y2, err2 := strconv.Atoi(second)
	if err1 != nil || err2 != nil || y1 < 1900 {
		return false
	}
	return (y1+1)%100 == y2
}

// IsValidClock accepts 24-hour "HH:MM".
func IsValidClock(s string) bool {
	_, ok := ClockMinutes(s)
	return ok
}

// ClockMinutes converts "HH:MM" to minutes after midnight.
// Both parts must be exactly two ASCII digits.
func ClockMinutes(s string) (int, bool) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) != 2 || len(mm) != 2 || !allDigits(hh) || !allDigits(mm) {
		return 0, false
	}
	h, err1 := strconv.Atoi(hh)
	m, err2 := strconv.Atoi(mm)
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// CanonicalClock returns s in zero-padded "HH:MM" form, or s unchanged
// when it is not a valid clock time.
func CanonicalClock(s string) string {
	mins, ok := ClockMinutes(s)
	if !ok {
		return s
	}
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

// IsValidObjectID checks for a MongoDB ObjectID hex string.
func IsValidObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	return err == nil
}

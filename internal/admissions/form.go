package admissions

import (
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

// Programs lists the admission programs in display order.
var Programs = []string{"early-years", "primary", "junior-secondary", "senior-secondary"}

// Grades lists the grades offered by each program.
var Grades = map[string][]string{
	"early-years":      {"playgroup", "pp1", "pp2"},
	"primary":          {"grade-1", "grade-2", "grade-3", "grade-4", "grade-5", "grade-6"},
	"junior-secondary": {"grade-7", "grade-8", "grade-9"},
	"senior-secondary": {"grade-10", "grade-11", "grade-12"},
}

// Genders accepted on step one.
var Genders = []string{"male", "female"}

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// StudentFields is step one.
type StudentFields struct {
	FirstName   string `json:"firstName" validate:"required"`
	MiddleName  string `json:"middleName"`
	LastName    string `json:"lastName" validate:"required"`
	DateOfBirth string `json:"dateOfBirth" validate:"required,past_date"`
	Gender      string `json:"gender" validate:"required,oneof=male female"`
	Nationality string `json:"nationality" validate:"required"`
	Program     string `json:"program" validate:"required,admission_program"`
	Grade       string `json:"grade" validate:"required"`
}

// ParentFields is step two.
type ParentFields struct {
	FirstName    string `json:"firstName" validate:"required"`
	LastName     string `json:"lastName" validate:"required"`
	Relationship string `json:"relationship"`
	Email        string `json:"email" validate:"required,basic_email"`
	Phone        string `json:"phone" validate:"required"`
	Occupation   string `json:"occupation"`
	Address      string `json:"address" validate:"required"`
	City         string `json:"city" validate:"required"`
}

// SchoolFields is step three; everything is optional.
type SchoolFields struct {
	Name             string `json:"name"`
	LastGrade        string `json:"lastGrade"`
	ReasonForLeaving string `json:"reasonForLeaving"`
}

// AdditionalFields is step four; everything is optional.
type AdditionalFields struct {
	MedicalConditions string `json:"medicalConditions"`
	SpecialNeeds      string `json:"specialNeeds"`
	Extracurricular   string `json:"extracurricular"`
	HowDidYouHear     string `json:"howDidYouHear"`
}

// Form holds everything entered in the wizard.
type Form struct {
	Student    StudentFields    `json:"student"`
	Parent     ParentFields     `json:"parent"`
	School     SchoolFields     `json:"previousSchool"`
	Additional AdditionalFields `json:"additional"`
}

var labels = map[string]string{
	"student.firstName":   "First name",
	"student.lastName":    "Last name",
	"student.dateOfBirth": "Date of birth",
	"student.gender":      "Gender",
	"student.nationality": "Nationality",
	"student.program":     "Program",
	"student.grade":       "Grade",
	"parent.firstName":    "Parent first name",
	"parent.lastName":     "Parent last name",
	"parent.email":        "Email",
	"parent.phone":        "Phone number",
	"parent.address":      "Address",
	"parent.city":         "City",
}

// registerRules installs the wizard rules on v. now is read at validation time.
func registerRules(v *validator.Validate, now func() time.Time) error {
	if err := v.RegisterValidation("past_date", func(fl validator.FieldLevel) bool {
		dob, err := time.ParseInLocation(dateLayout, fl.Field().String(), time.Local)
		if err != nil {
			return false
		}
		y, m, d := now().Date()
		return dob.Before(time.Date(y, m, d, 0, 0, 0, 0, time.Local))
	}); err != nil {
		return err
	}
	if err := v.RegisterValidation("admission_program", func(fl validator.FieldLevel) bool {
		_, ok := Grades[fl.Field().String()]
		return ok
	}); err != nil {
		return err
	}
	if err := v.RegisterValidation("basic_email", func(fl validator.FieldLevel) bool {
		return emailShape.MatchString(fl.Field().String())
	}); err != nil {
		return err
	}
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		s := sl.Current().Interface().(StudentFields)
		grades, ok := Grades[s.Program]
		if !ok || s.Grade == "" {
			return
		}
		for _, g := range grades {
			if g == s.Grade {
				return
			}
		}
		sl.ReportError(s.Grade, "Grade", "Grade", "admission_grade", "")
	}, StudentFields{})
	return nil
}

// fieldErrors turns validator output for a step section into messages keyed
// "<section>.<jsonField>".
func fieldErrors(section string, subject interface{}, err error) map[string]string {
	out := map[string]string{}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		out[section] = err.Error()
		return out
	}
	t := reflect.TypeOf(subject)
	for _, fe := range verrs {
		name := fe.StructField()
		if f, ok := t.FieldByName(name); ok {
			if tag := strings.Split(f.Tag.Get("json"), ",")[0]; tag != "" {
				name = tag
			}
		}
		key := section + "." + name
		if _, exists := out[key]; !exists {
			out[key] = message(key, fe.Tag())
		}
	}
	return out
}

func message(key, tag string) string {
	label := labels[key]
	if label == "" {
		label = key
	}
	switch tag {
	case "required":
		return label + " is required"
	case "past_date":
		return "Date of birth must be a valid date before today"
	case "basic_email":
		return "Enter a valid email address"
	case "admission_grade":
		return "Select a grade offered in the chosen program"
	default:
		return "Select a valid " + strings.ToLower(label)
	}
}

func (s StudentFields) trimmed() StudentFields {
	return StudentFields{
		FirstName:   strings.TrimSpace(s.FirstName),
		MiddleName:  strings.TrimSpace(s.MiddleName),
		LastName:    strings.TrimSpace(s.LastName),
		DateOfBirth: strings.TrimSpace(s.DateOfBirth),
		Gender:      strings.ToLower(strings.TrimSpace(s.Gender)),
		Nationality: strings.TrimSpace(s.Nationality),
		Program:     strings.TrimSpace(s.Program),
		Grade:       strings.TrimSpace(s.Grade),
	}
}

func (p ParentFields) trimmed() ParentFields {
	return ParentFields{
		FirstName:    strings.TrimSpace(p.FirstName),
		LastName:     strings.TrimSpace(p.LastName),
		Relationship: strings.TrimSpace(p.Relationship),
		Email:        strings.TrimSpace(p.Email),
		Phone:        strings.TrimSpace(p.Phone),
		Occupation:   strings.TrimSpace(p.Occupation),
		Address:      strings.TrimSpace(p.Address),
		City:         strings.TrimSpace(p.City),
	}
}

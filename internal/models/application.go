package models

import (
	"strings"
	"time"
)

// ApplicationStatus is the review state of an admissions application.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationReview   ApplicationStatus = "review"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationPending, ApplicationReview, ApplicationApproved, ApplicationRejected:
		return true
	}
	return false
}

// Label is the badge text shown for the status.
func (s ApplicationStatus) Label() string {
	switch s {
	case ApplicationReview:
		return "Under Review"
	case "":
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// StudentInfo identifies the applicant.
type StudentInfo struct {
	FirstName   string    `json:"firstName"`
	MiddleName  string    `json:"middleName,omitempty"`
	LastName    string    `json:"lastName"`
	DateOfBirth time.Time `json:"dateOfBirth"`
	Gender      string    `json:"gender"`
	Nationality string    `json:"nationality"`
}

// ParentInfo identifies the parent or guardian submitting the application.
type ParentInfo struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Relationship string `json:"relationship,omitempty"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Occupation   string `json:"occupation,omitempty"`
	Address      string `json:"address"`
	City         string `json:"city"`
}

// PreviousSchool is the optional schooling history.
type PreviousSchool struct {
	Name             string `json:"name,omitempty"`
	LastGrade        string `json:"lastGrade,omitempty"`
	ReasonForLeaving string `json:"reasonForLeaving,omitempty"`
}

// AdditionalInfo holds the free text sections of the form.
type AdditionalInfo struct {
	MedicalConditions string `json:"medicalConditions"`
	SpecialNeeds      string `json:"specialNeeds"`
	Extracurricular   string `json:"extracurricular,omitempty"`
	HowDidYouHear     string `json:"howDidYouHear,omitempty"`
}

// Application is an admissions application as stored by the backend.
type Application struct {
	ID                string            `json:"_id"`
	ApplicationNumber string            `json:"applicationNumber"`
	Student           StudentInfo       `json:"studentInfo"`
	Program           string            `json:"program"`
	Grade             string            `json:"grade"`
	Parent            ParentInfo        `json:"parentInfo"`
	PreviousSchool    PreviousSchool    `json:"previousSchool"`
	Additional        AdditionalInfo    `json:"additionalInfo"`
	Status            ApplicationStatus `json:"status"`
	ReviewNotes       string            `json:"reviewNotes,omitempty"`
	SubmittedAt       time.Time         `json:"submittedAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// CreateApplicationRequest is the public submission payload.
type CreateApplicationRequest struct {
	Student        StudentInfo    `json:"studentInfo"`
	Program        string         `json:"program"`
	Grade          string         `json:"grade"`
	Parent         ParentInfo     `json:"parentInfo"`
	PreviousSchool PreviousSchool `json:"previousSchool"`
	Additional     AdditionalInfo `json:"additionalInfo"`
}

// UpdateStatusRequest changes the status of an application or message.
type UpdateStatusRequest struct {
	Status      string `json:"status"`
	ReviewNotes string `json:"reviewNotes,omitempty"`
}

// ApplicationList is the data of GET /applications.
type ApplicationList struct {
	Applications []Application `json:"applications"`
	Pagination   Pagination    `json:"pagination"`
}

// ApplicationData wraps a single application.
type ApplicationData struct {
	Application Application `json:"application"`
}

// ApplicationOverview counts applications per status.
type ApplicationOverview struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Review   int `json:"review"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// ApplicationStats is the data of GET /applications/stats.
type ApplicationStats struct {
	Overview ApplicationOverview `json:"overview"`
}

package quotes

import (
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Form field names.
const (
	FieldName             = "name"
	FieldPhone            = "phone"
	FieldEmail            = "email"
	FieldServiceType      = "service_type"
	FieldLocation         = "location"
	FieldDescription      = "description"
	FieldPreferredContact = "preferred_contact"
	FieldFiles            = "files"
)

// fieldOrder decides which error becomes the top-level message.
var fieldOrder = []string{
	FieldName,
	FieldPhone,
	FieldEmail,
	FieldServiceType,
	FieldLocation,
	FieldDescription,
	FieldPreferredContact,
	FieldFiles,
}

// ServiceCategories is the controlled vocabulary offered by the form.
var ServiceCategories = []string{
	"Driveway",
	"Fire Feature",
	"Outdoor Kitchen",
	"Patio",
	"Residential Masonry",
	"Retaining Wall",
	"Walkway",
	"Other",
}

// PreferredContact is how the customer wants to be reached.
type PreferredContact string

const (
	ContactPhone  PreferredContact = "phone"
	ContactEmail  PreferredContact = "email"
	ContactEither PreferredContact = "either"
)

// FormInput is the raw, untrusted form payload.
type FormInput struct {
	Name             string
	Phone            string
	Email            string
	ServiceType      string
	Location         string
	Description      string
	PreferredContact string
}

// Submission is a validated and normalized quote request.
type Submission struct {
	Name             string
	Phone            string // digits only
	Email            string // lower-cased
	ServiceType      string
	Location         string
	Description      string
	PreferredContact PreferredContact // empty when not given
	KnownService     bool
}

// ValidationError maps form fields to their first violated rule.
type ValidationError struct {
	Fields  map[string]string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// add keeps the first message per field.
func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

// finalize sets Message from the earliest field and returns nil when empty.
func (e *ValidationError) finalize() *ValidationError {
	if len(e.Fields) == 0 {
		return nil
	}
	for _, field := range fieldOrder {
		if msg, ok := e.Fields[field]; ok {
			e.Message = msg
			break
		}
	}
	return e
}

var validate = validator.New()

// ValidateForm normalizes the form and returns either the submission or the
// field errors, never both.
func ValidateForm(in FormInput) (*Submission, *ValidationError) {
	verr := &ValidationError{}
	sub := &Submission{}

	name := strings.TrimSpace(in.Name)
	switch n := utf8.RuneCountInString(name); {
	case hasLineBreak(in.Name):
		verr.add(FieldName, "Invalid characters in name")
	case n < 2:
		verr.add(FieldName, "Name must be at least 2 characters")
	case n > 80:
		verr.add(FieldName, "Name must be 80 characters or less")
	}
	sub.Name = name

	rawPhone := strings.TrimSpace(in.Phone)
	phone := NormalizePhone(rawPhone)
	switch {
	case rawPhone == "":
		verr.add(FieldPhone, "Phone number is required")
	case utf8.RuneCountInString(rawPhone) > 30:
		verr.add(FieldPhone, "Phone number is too long")
	case !IsValidPhone(phone):
		verr.add(FieldPhone, "Please enter a valid 10-digit US phone number")
	}
	sub.Phone = phone

	email := strings.ToLower(strings.TrimSpace(in.Email))
	switch {
	case hasLineBreak(in.Email):
		verr.add(FieldEmail, "Invalid characters in email")
	case email == "":
		verr.add(FieldEmail, "Email is required")
	case utf8.RuneCountInString(email) > 120:
		verr.add(FieldEmail, "Email must be 120 characters or less")
	case validate.Var(email, "email") != nil:
		verr.add(FieldEmail, "Please enter a valid email address")
	}
	sub.Email = email

	service := strings.TrimSpace(in.ServiceType)
	switch {
	case hasLineBreak(in.ServiceType):
		verr.add(FieldServiceType, "Invalid characters in service type")
	case service == "":
		verr.add(FieldServiceType, "Please select a service type")
	case utf8.RuneCountInString(service) > 100:
		verr.add(FieldServiceType, "Service type is too long")
	}
	sub.ServiceType = service
	sub.KnownService = IsKnownService(service)

	location := strings.TrimSpace(in.Location)
	switch n := utf8.RuneCountInString(location); {
	case hasLineBreak(in.Location):
		verr.add(FieldLocation, "Invalid characters in location")
	case n < 2:
		verr.add(FieldLocation, "Location is required (City or Address)")
	case n > 120:
		verr.add(FieldLocation, "Location must be 120 characters or less")
	}
	sub.Location = location

	description := strings.TrimSpace(in.Description)
	switch n := utf8.RuneCountInString(description); {
	case n < 10:
		verr.add(FieldDescription, "Please describe your project (at least 10 characters)")
	case n > 2000:
		verr.add(FieldDescription, "Description must be 2000 characters or less")
	}
	sub.Description = description

	if raw := strings.ToLower(strings.TrimSpace(in.PreferredContact)); raw != "" {
		switch pc := PreferredContact(raw); pc {
		case ContactPhone, ContactEmail, ContactEither:
			sub.PreferredContact = pc
		default:
			verr.add(FieldPreferredContact, "Preferred contact must be phone, email, or either")
		}
	}

	if verr = verr.finalize(); verr != nil {
		return nil, verr
	}
	return sub, nil
}

// IsKnownService reports whether s is one of ServiceCategories, ignoring case.
func IsKnownService(s string) bool {
	for _, category := range ServiceCategories {
		if strings.EqualFold(s, category) {
			return true
		}
	}
	return false
}

func hasLineBreak(s string) bool {
	return strings.ContainsAny(s, "\r\n")
}

package quotes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validForm() FormInput {
	return FormInput{
		Name:             "  Jane Doe ",
		Phone:            "(555) 123-4567",
		Email:            "  Jane@Example.COM ",
		ServiceType:      "Patio",
		Location:         "Austin, TX",
		Description:      "Flagstone patio, roughly 20x20 feet.",
		PreferredContact: "Phone",
	}
}

func TestValidateForm_Normalizes(t *testing.T) {
	sub, verr := ValidateForm(validForm())
	require.Nil(t, verr)
	assert.Equal(t, "Jane Doe", sub.Name)
	assert.Equal(t, "5551234567", sub.Phone)
	assert.Equal(t, "jane@example.com", sub.Email)
	assert.Equal(t, ContactPhone, sub.PreferredContact)
	assert.True(t, sub.KnownService)
}

func TestValidateForm_Phone(t *testing.T) {
	tests := []struct {
		phone string
		ok    bool
	}{
		{"5551234567", true},
		{"555-123-4567", true},
		{"+1 (555) 123-4567", true},
		{"15551234567", true},
		{"25551234567", false},
		{"555123456", false},
		{"555123456789", false},
		{"abc", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			form := validForm()
			form.Phone = tt.phone
			_, verr := ValidateForm(form)
			if tt.ok {
				assert.Nil(t, verr)
				return
			}
			require.NotNil(t, verr)
			assert.Contains(t, verr.Fields, FieldPhone)
			assert.Len(t, verr.Fields, 1)
		})
	}
}

func TestValidateForm_RejectsLineBreaks(t *testing.T) {
	set := map[string]func(*FormInput, string){
		FieldName:        func(f *FormInput, v string) { f.Name = v },
		FieldEmail:       func(f *FormInput, v string) { f.Email = v },
		FieldServiceType: func(f *FormInput, v string) { f.ServiceType = v },
		FieldLocation:    func(f *FormInput, v string) { f.Location = v },
	}
	values := map[string]string{
		FieldName:        "Jane Doe",
		FieldEmail:       "jane@example.com",
		FieldServiceType: "Patio",
		FieldLocation:    "Austin, TX",
	}
	for field, apply := range set {
		for _, brk := range []string{"\r", "\n", "\r\n"} {
			for _, pos := range []string{"middle", "end"} {
				form := validForm()
				v := values[field]
				if pos == "middle" {
					v = v[:2] + brk + v[2:]
				} else {
					v += brk
				}
				apply(&form, v)
				_, verr := ValidateForm(form)
				require.NotNil(t, verr, "%s with %q at %s", field, brk, pos)
				assert.Contains(t, verr.Fields, field)
			}
		}
	}
}

func TestNormalizePhone_Idempotent(t *testing.T) {
	for _, in := range []string{"5551234567", "(555) 123-4567", "+1 555.123.4567", "n/a"} {
		once := NormalizePhone(in)
		assert.Equal(t, once, NormalizePhone(once))
	}
}

func TestFormatPhoneForDisplay(t *testing.T) {
	assert.Equal(t, "(555) 123-4567", FormatPhoneForDisplay("5551234567"))
	assert.Equal(t, "1 (555) 123-4567", FormatPhoneForDisplay("15551234567"))
	assert.Equal(t, "12345", FormatPhoneForDisplay("12345"))
}

func TestValidateForm_FieldRules(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*FormInput)
		field string
		msg   string
	}{
		{"short name", func(f *FormInput) { f.Name = " J " }, FieldName, "Name must be at least 2 characters"},
		{"long name", func(f *FormInput) { f.Name = strings.Repeat("a", 81) }, FieldName, "Name must be 80 characters or less"},
		{"missing email", func(f *FormInput) { f.Email = "  " }, FieldEmail, "Email is required"},
		{"bad email", func(f *FormInput) { f.Email = "jane@" }, FieldEmail, "Please enter a valid email address"},
		{"long email", func(f *FormInput) { f.Email = strings.Repeat("a", 115) + "@x.com" }, FieldEmail, "Email must be 120 characters or less"},
		{"missing service", func(f *FormInput) { f.ServiceType = "" }, FieldServiceType, "Please select a service type"},
		{"long service", func(f *FormInput) { f.ServiceType = strings.Repeat("s", 101) }, FieldServiceType, "Service type is too long"},
		{"missing location", func(f *FormInput) { f.Location = "" }, FieldLocation, "Location is required (City or Address)"},
		{"long location", func(f *FormInput) { f.Location = strings.Repeat("l", 121) }, FieldLocation, "Location must be 120 characters or less"},
		{"short description", func(f *FormInput) { f.Description = "  too short" }, FieldDescription, "Please describe your project (at least 10 characters)"},
		{"long description", func(f *FormInput) { f.Description = strings.Repeat("d", 2001) }, FieldDescription, "Description must be 2000 characters or less"},
		{"bad contact", func(f *FormInput) { f.PreferredContact = "fax" }, FieldPreferredContact, "Preferred contact must be phone, email, or either"},
		{"long phone", func(f *FormInput) { f.Phone = strings.Repeat("5", 31) }, FieldPhone, "Phone number is too long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			tt.edit(&form)
			sub, verr := ValidateForm(form)
			assert.Nil(t, sub)
			require.NotNil(t, verr)
			assert.Equal(t, map[string]string{tt.field: tt.msg}, verr.Fields)
			assert.Equal(t, tt.msg, verr.Message)
			assert.Equal(t, tt.msg, verr.Error())
		})
	}
}

func TestValidateForm_OptionalContactAndFreeTextService(t *testing.T) {
	form := validForm()
	form.PreferredContact = ""
	form.ServiceType = "Stone mailbox"
	sub, verr := ValidateForm(form)
	require.Nil(t, verr)
	assert.Empty(t, sub.PreferredContact)
	assert.False(t, sub.KnownService)
}

func TestValidateForm_MessageFollowsFieldOrder(t *testing.T) {
	form := validForm()
	form.Description = ""
	form.Email = "nope"
	form.Name = ""
	_, verr := ValidateForm(form)
	require.NotNil(t, verr)
	assert.Len(t, verr.Fields, 3)
	assert.Equal(t, "Name must be at least 2 characters", verr.Message)
}

func TestIsHoneypotTripped(t *testing.T) {
	assert.False(t, IsHoneypotTripped(""))
	assert.False(t, IsHoneypotTripped("   "))
	assert.True(t, IsHoneypotTripped("http://spam.example"))
}

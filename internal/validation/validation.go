// Package validation holds the field rules applied to customer submissions
// and admin logins. Every rule runs; findings are concatenated in rule order.
package validation

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const (
	FieldCustomerName = "customerName"
	FieldEmail        = "email"
	FieldPhone        = "phone"
	FieldContact      = "contact"
	FieldPhoto        = "photo"
	FieldDescription  = "description"
	FieldUsername     = "username"
	FieldPassword     = "password"
)

const (
	MsgNameRequired      = "Name is required"
	MsgNameLetters       = "Name must contain letters only"
	MsgEmailInvalid      = "Email not valid"
	MsgPhoneInvalid      = "Phone number not valid"
	MsgContactRequired   = "Please add email or phone number"
	MsgPhotoRequired     = "Upload an image please"
	MsgPhotoFormat       = "Upload a file of correct format"
	MsgDescriptionNeeded = "Please add something in description"
	MsgUsernameRequired  = "Username cannot be empty"
	MsgPasswordInvalid   = "Password is not valid"
)

var allowedPhotoExt = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return isStrongPassword(fl.Field().String())
	}); err != nil {
		panic("validation: register strongpassword: " + err.Error())
	}
	return v
}

// Finding is a single failed check.
type Finding struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors is the ordered outcome of a rule set. A nil or empty Errors means
// the input was accepted.
type Errors []Finding

func (e Errors) Error() string {
	return strings.Join(e.Messages(), "; ")
}

func (e Errors) Messages() []string {
	out := make([]string, len(e))
	for i, f := range e {
		out[i] = f.Message
	}
	return out
}

func (e Errors) Has(field string) bool {
	for _, f := range e {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Err returns e as an error, or nil when nothing failed.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Submission is the customer-supplied part of a ticket. PhotoName is empty
// when no file was attached.
type Submission struct {
	CustomerName string
	Email        string
	Phone        string
	Description  string
	PhotoName    string
}

type Rule func(Submission) Errors

// CreateRules apply to new customer submissions: a photo is mandatory.
var CreateRules = []Rule{
	customerName,
	email,
	phone,
	contact,
	requiredPhoto,
	description,
}

// UpdateRules apply to admin edits: a new photo is optional.
var UpdateRules = []Rule{
	customerName,
	email,
	phone,
	contact,
	optionalPhoto,
	description,
}

func Run(rules []Rule, s Submission) Errors {
	var out Errors
	for _, r := range rules {
		out = append(out, r(s)...)
	}
	return out
}

func ValidateCreate(s Submission) Errors { return Run(CreateRules, s) }

func ValidateUpdate(s Submission) Errors { return Run(UpdateRules, s) }

func customerName(s Submission) Errors {
	if s.CustomerName == "" {
		return Errors{{FieldCustomerName, MsgNameRequired}}
	}
	if validate.Var(s.CustomerName, "alpha") != nil {
		return Errors{{FieldCustomerName, MsgNameLetters}}
	}
	return nil
}

func email(s Submission) Errors {
	if s.Email == "" || validate.Var(s.Email, "email") == nil {
		return nil
	}
	return Errors{{FieldEmail, MsgEmailInvalid}}
}

func phone(s Submission) Errors {
	if s.Phone == "" || IsPhone(s.Phone) {
		return nil
	}
	return Errors{{FieldPhone, MsgPhoneInvalid}}
}

func contact(s Submission) Errors {
	if s.Email == "" && s.Phone == "" {
		return Errors{{FieldContact, MsgContactRequired}}
	}
	return nil
}

func requiredPhoto(s Submission) Errors {
	if s.PhotoName == "" {
		return Errors{{FieldPhoto, MsgPhotoRequired}}
	}
	return optionalPhoto(s)
}

func optionalPhoto(s Submission) Errors {
	if s.PhotoName == "" || IsAllowedPhoto(s.PhotoName) {
		return nil
	}
	return Errors{{FieldPhoto, MsgPhotoFormat}}
}

func description(s Submission) Errors {
	if strings.TrimSpace(s.Description) == "" {
		return Errors{{FieldDescription, MsgDescriptionNeeded}}
	}
	return nil
}

// IsAllowedPhoto reports whether name ends in .jpg, .jpeg or .png, ignoring case.
func IsAllowedPhoto(name string) bool {
	_, ok := allowedPhotoExt[strings.ToLower(filepath.Ext(name))]
	return ok
}

// IsPhone accepts common separators, then requires 7 to 15 digits with an
// optional leading plus.
func IsPhone(s string) bool {
	normalized := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '(', ')':
			return -1
		}
		return r
	}, s)
	if normalized == "" {
		return false
	}
	if !strings.HasPrefix(normalized, "+") {
		normalized = "+" + normalized
	}
	return validate.Var(normalized, "e164") == nil
}

// Login checks the login form before credentials are looked up.
func Login(username, password string) Errors {
	var out Errors
	if validate.Var(username, "required") != nil {
		out = append(out, Finding{FieldUsername, MsgUsernameRequired})
	}
	if validate.Var(password, "required,strongpassword") != nil {
		out = append(out, Finding{FieldPassword, MsgPasswordInvalid})
	}
	return out
}

// isStrongPassword: at least 8 characters with a lowercase letter, an
// uppercase letter, a digit and a symbol.
func isStrongPassword(p string) bool {
	if len([]rune(p)) < 8 {
		return false
	}
	var lower, upper, digit, symbol bool
	for _, r := range p {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r) || r == ' ':
			symbol = true
		}
	}
	return lower && upper && digit && symbol
}

// Package validation normalizes and checks user input before it reaches the
// database. Messages are user-facing and in Turkish.
package validation

import (
	"errors"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalid is wrapped by every *Error.
var ErrInvalid = errors.New("validation failed")

// Error reports the first field that failed validation.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string { return e.Field + ": " + e.Message }

// Unwrap lets callers match with errors.Is(err, ErrInvalid).
func (e *Error) Unwrap() error { return ErrInvalid }

var (
	usernamePattern = regexp.MustCompile(`^[a-z0-9-]+$`)
	hasLower        = regexp.MustCompile(`[a-z]`)
	hasUpper        = regexp.MustCompile(`[A-Z]`)
	hasDigit        = regexp.MustCompile(`[0-9]`)

	scriptBlock  = regexp.MustCompile(`(?is)<script\b.*?</script>`)
	iframeBlock  = regexp.MustCompile(`(?is)<iframe\b.*?</iframe>`)
	jsScheme     = regexp.MustCompile(`(?i)javascript:`)
	eventHandler = regexp.MustCompile(`(?i)on\w+\s*=`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		pw := fl.Field().String()
		return hasLower.MatchString(pw) && hasUpper.MatchString(pw) && hasDigit.MatchString(pw)
	})
	_ = v.RegisterValidation("httpurl", func(fl validator.FieldLevel) bool {
		return IsHTTPURL(fl.Field().String())
	})
	return v
}

// messages maps "field.tag" to the text shown to the user.
var messages = map[string]string{
	"username.required":       "Kullanıcı adı gereklidir",
	"username.min":            "Kullanıcı adı en az 3 karakter olmalıdır",
	"username.max":            "Kullanıcı adı en fazla 20 karakter olabilir",
	"username.username":       "Sadece küçük harf, rakam ve tire kullanabilirsiniz",
	"email.required":          "E-posta adresi gereklidir",
	"email.email":             "Geçerli bir e-posta adresi giriniz",
	"password.required":       "Şifre gereklidir",
	"password.min":            "Şifre en az 8 karakter olmalıdır",
	"password.strongpassword": "Şifre en az bir büyük harf, bir küçük harf ve bir rakam içermelidir",
	"customer_name.required":  "İsim gereklidir",
	"customer_name.min":       "İsim en az 2 karakter olmalıdır",
	"customer_name.max":       "İsim en fazla 50 karakter olabilir",
	"content.required":        "Yorum gereklidir",
	"content.min":             "Yorum en az 10 karakter olmalıdır",
	"content.max":             "Yorum en fazla 1000 karakter olabilir",
	"video_url.httpurl":       "Geçerli bir video URL'si giriniz",
	"fullName.required":       "Ad soyad ve kullanıcı adı gerekli",
	"fullName.min":            "Ad soyad 2-50 karakter arasında olmalı",
	"fullName.max":            "Ad soyad 2-50 karakter arasında olmalı",
	"bio.max":                 "Biyografi en fazla 500 karakter olabilir",
	"website.httpurl":         "Geçerli bir web sitesi adresi giriniz",
}

// Registration is the sign-up payload.
type Registration struct {
	Username string `json:"username" validate:"required,min=3,max=20,username"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,strongpassword"`
}

// Login is the sign-in payload.
type Login struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Testimonial is a public submission.
type Testimonial struct {
	CustomerName string `json:"customer_name" validate:"required,min=2,max=50"`
	Content      string `json:"content" validate:"required,min=10,max=1000"`
	VideoURL     string `json:"video_url" validate:"omitempty,httpurl"`
}

// ProfileUpdate is the owner's profile edit.
type ProfileUpdate struct {
	FullName string `json:"fullName" validate:"required,min=2,max=50"`
	Username string `json:"username" validate:"required,min=3,max=20,username"`
	Bio      string `json:"bio" validate:"max=500"`
	Website  string `json:"website" validate:"omitempty,httpurl"`
}

// Normalize trims and lowercases the identifiers in place, then validates.
func (r *Registration) Normalize() error {
	r.Username = NormalizeUsername(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	return check(r)
}

// Normalize lowercases the email in place, then validates.
func (l *Login) Normalize() error {
	l.Email = strings.ToLower(strings.TrimSpace(l.Email))
	return check(l)
}

// Normalize trims the text fields, validates, then strips angle brackets.
func (t *Testimonial) Normalize() error {
	t.CustomerName = strings.TrimSpace(t.CustomerName)
	t.Content = strings.TrimSpace(t.Content)
	t.VideoURL = strings.TrimSpace(t.VideoURL)
	if errCheck := check(t); errCheck != nil {
		return errCheck
	}
	t.CustomerName = StripAngleBrackets(t.CustomerName)
	t.Content = StripAngleBrackets(t.Content)
	return nil
}

// Normalize trims the fields and lowercases the username, then validates.
func (p *ProfileUpdate) Normalize() error {
	p.FullName = strings.TrimSpace(p.FullName)
	p.Username = NormalizeUsername(p.Username)
	p.Bio = strings.TrimSpace(SanitizeHTML(p.Bio))
	p.Website = strings.TrimSpace(p.Website)
	return check(p)
}

// NormalizeUsername trims and lowercases a username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ValidUsername reports whether username is acceptable after normalization.
func ValidUsername(username string) bool {
	n := len(username)
	return n >= 3 && n <= 20 && usernamePattern.MatchString(username)
}

// IsHTTPURL reports whether raw is an absolute http or https URL.
func IsHTTPURL(raw string) bool {
	parsed, errParse := url.Parse(raw)
	if errParse != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

// StripAngleBrackets removes '<' and '>' characters.
func StripAngleBrackets(s string) string {
	return strings.NewReplacer("<", "", ">", "").Replace(s)
}

// SanitizeHTML drops script and iframe blocks, javascript: schemes and inline
// event handler attributes.
func SanitizeHTML(html string) string {
	html = scriptBlock.ReplaceAllString(html, "")
	html = iframeBlock.ReplaceAllString(html, "")
	html = jsScheme.ReplaceAllString(html, "")
	return eventHandler.ReplaceAllString(html, "")
}

func check(v any) error {
	errValidate := validate.Struct(v)
	if errValidate == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(errValidate, &fieldErrs) || len(fieldErrs) == 0 {
		return &Error{Message: "Geçersiz istek"}
	}
	first := fieldErrs[0]
	msg, ok := messages[first.Field()+"."+first.Tag()]
	if !ok {
		msg = "Geçersiz değer"
	}
	return &Error{Field: first.Field(), Message: msg}
}

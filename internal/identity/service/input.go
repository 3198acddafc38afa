package service

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Zaid-daoud/Farkoosh-Backend/internal/security"
	sessiondomain "github.com/Zaid-daoud/Farkoosh-Backend/internal/session/domain"
	userdomain "github.com/Zaid-daoud/Farkoosh-Backend/internal/user/domain"
)

const (
	minPasswordLength = 6
	minNameLength     = 2
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// RegisterRequest is the raw registration payload as received by the transport.
type RegisterRequest struct {
	Email      string
	Password   string
	FirstName  string
	LastName   string
	Role       string
	Gender     string
	DeviceInfo string
	PushToken  string
}

// LoginRequest is the raw login payload as received by the transport.
type LoginRequest struct {
	Email      string
	Password   string
	DeviceInfo string
	PushToken  string
}

// Device is the client description recorded on a new session.
type Device struct {
	Info      string
	PushToken *string
}

// RegisterInput is a registration request that passed validation. Build it with NewRegisterInput.
type RegisterInput struct {
	email     string
	password  string
	firstName string
	lastName  string
	role      userdomain.Role
	gender    *userdomain.Gender
	device    Device
	valid     bool
}

// Email returns the normalized email.
func (in RegisterInput) Email() string { return in.email }

// NewRegisterInput validates req. Email is trimmed and lower-cased; role defaults to USER.
func NewRegisterInput(req RegisterRequest) (RegisterInput, error) {
	v := &ValidationError{}
	in := RegisterInput{
		email:     normalizeEmail(req.Email),
		password:  req.Password,
		firstName: strings.TrimSpace(req.FirstName),
		lastName:  strings.TrimSpace(req.LastName),
		role:      userdomain.RoleUser,
		device:    newDevice(req.DeviceInfo, req.PushToken),
	}
	checkEmail(v, in.email)
	if utf8.RuneCountInString(req.Password) < minPasswordLength {
		v.add("password", "must be at least 6 characters")
	} else if len(req.Password) > security.MaxPasswordBytes {
		v.add("password", "must be at most 72 bytes")
	}
	if utf8.RuneCountInString(in.firstName) < minNameLength {
		v.add("first_name", "must be at least 2 characters")
	}
	if utf8.RuneCountInString(in.lastName) < minNameLength {
		v.add("last_name", "must be at least 2 characters")
	}
	if r := strings.TrimSpace(req.Role); r != "" {
		role := userdomain.Role(strings.ToUpper(r))
		if !role.SelfAssignable() {
			v.add("role", "must be one of USER, DRIVER")
		} else {
			in.role = role
		}
	}
	if g := strings.TrimSpace(req.Gender); g != "" {
		gender := userdomain.Gender(strings.ToUpper(g))
		if !gender.Valid() {
			v.add("gender", "must be one of MALE, FEMALE")
		} else {
			in.gender = &gender
		}
	}
	if err := v.errOrNil(); err != nil {
		return RegisterInput{}, err
	}
	in.valid = true
	return in, nil
}

// LoginInput is a login request that passed validation. Build it with NewLoginInput.
type LoginInput struct {
	email    string
	password string
	device   Device
	valid    bool
}

// NewLoginInput validates req. Any password is accepted, even an empty one; the policy applies at
// registration only and a bad password fails as ErrInvalidCredentials.
func NewLoginInput(req LoginRequest) (LoginInput, error) {
	v := &ValidationError{}
	in := LoginInput{
		email:    normalizeEmail(req.Email),
		password: req.Password,
		device:   newDevice(req.DeviceInfo, req.PushToken),
	}
	checkEmail(v, in.email)
	if err := v.errOrNil(); err != nil {
		return LoginInput{}, err
	}
	in.valid = true
	return in, nil
}

// RefreshInput carries a refresh token that is present. Build it with NewRefreshInput.
type RefreshInput struct {
	token string
	valid bool
}

// NewRefreshInput rejects an empty refresh token.
func NewRefreshInput(token string) (RefreshInput, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		v := &ValidationError{}
		v.add("refresh_token", "is required")
		return RefreshInput{}, v
	}
	return RefreshInput{token: token, valid: true}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkEmail(v *ValidationError, email string) {
	switch {
	case email == "":
		v.add("email", "is required")
	case !emailPattern.MatchString(email):
		v.add("email", "must be a valid email")
	}
}

func newDevice(info, pushToken string) Device {
	d := Device{Info: sessiondomain.DeviceOrDefault(info)}
	if p := strings.TrimSpace(pushToken); p != "" {
		d.PushToken = &p
	}
	return d
}

// errNotValidated is returned when a zero-value input reaches the service.
var errNotValidated = &ValidationError{Violations: []FieldViolation{{Field: "request", Description: "was not validated"}}}

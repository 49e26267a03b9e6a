package registration

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/dmitrijs2005/masaclient/internal/client/gateway"
	"github.com/dmitrijs2005/masaclient/internal/common"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail applies the basic addr-spec shape check.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// Policy holds the client-side validation limits.
type Policy struct {
	NationalNumberLength int
	PasswordMinLength    int
}

func DefaultPolicy() Policy {
	return Policy{
		NationalNumberLength: common.DefaultNationalNumberLength,
		PasswordMinLength:    common.DefaultPasswordMinLength,
	}
}

// ValidationError lists every invalid field with its message.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return fmt.Sprintf("invalid fields: %s", strings.Join(names, ", "))
}

// Validate checks d against p and returns a *ValidationError holding all
// failures, or nil.
func Validate(d Draft, p Policy) error {
	fields := map[string]string{}

	if strings.TrimSpace(d.FullName) == "" {
		fields[gateway.FieldFullName] = msgFullNameRequired
	}
	if !ValidEmail(d.Email) {
		fields[gateway.FieldEmail] = msgEmailInvalid
	}
	if strings.TrimSpace(d.CountryCode) == "" {
		fields[gateway.FieldCountryCode] = msgCountryCodeRequired
	}
	if len(d.NationalNumber) != p.NationalNumberLength || !common.IsDigits(d.NationalNumber) {
		fields[gateway.FieldMobile] = fmt.Sprintf(msgMobileDigits, p.NationalNumberLength)
	}
	if err := ValidatePassword(d.Password, p.PasswordMinLength); err != "" {
		fields[gateway.FieldPassword] = err
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// ValidatePassword returns a message when password is shorter than min,
// or "".
func ValidatePassword(password string, min int) string {
	if len([]rune(password)) < min {
		return fmt.Sprintf(msgPasswordTooShort, min)
	}
	return ""
}

// ValidateCode checks the shape of a verification code. Mobile codes are
// exactly common.MobileCodeLength digits.
func ValidateCode(kind gateway.VerificationKind, code string) error {
	code = strings.TrimSpace(code)
	switch {
	case code == "":
		return &ValidationError{Fields: map[string]string{gateway.FieldCode: msgCodeRequired}}
	case kind == gateway.KindMobile && (len(code) != common.MobileCodeLength || !common.IsDigits(code)):
		return &ValidationError{Fields: map[string]string{
			gateway.FieldCode: fmt.Sprintf(msgCodeDigits, common.MobileCodeLength),
		}}
	}
	return nil
}

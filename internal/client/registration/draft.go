package registration

// Draft is the signup form held in memory until registration succeeds.
type Draft struct {
	FullName       string
	Email          string
	CountryCode    string
	NationalNumber string
	Password       string
	// SocialCode links the account to a social login, when the user came
	// from one.
	SocialCode string
}

// Mobile is the composed number sent to the backend.
func (d Draft) Mobile() string {
	return d.CountryCode + d.NationalNumber
}

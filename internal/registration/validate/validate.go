// Package validate holds the request-shape rules for registration
// submissions as a declarative table. Every rule is evaluated independently
// and all violations are collected, never short-circuited.
package validate

import (
	"fmt"
	"regexp"
	"strings"
)

// Submission is the shape-checked subset of a registration request.
// Optional fields are empty strings rather than pointers; rules treat empty
// optionals as absent.
type Submission struct {
	StaffNumber           string
	NationalID            string
	FullName              string
	Email                 string
	MobileCountryCode     string
	MobileNumber          string
	CountryCode           string
	City                  string
	CityCustom            string
	LinkedInURL           string
	Qualifications        []string
	EngagementPreferences []string
	ConsentGiven          bool
}

var (
	staffNumberRe = regexp.MustCompile(`^00[A-Z0-9]{5}$`)
	fullNameRe    = regexp.MustCompile(`^[A-Za-z .,'-]+$`)
	emailRe       = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	callingCodeRe = regexp.MustCompile(`^\+[0-9]{1,4}$`)
	digitsRe      = regexp.MustCompile(`^[0-9]+$`)
	countryCodeRe = regexp.MustCompile(`^[A-Z]{2}$`)
	cityCustomRe  = regexp.MustCompile(`^[A-Za-z -]+$`)
)

// mobileLengths maps a calling code to the expected local-number length.
// Codes not listed fall back to the 6-15 digit range.
var mobileLengths = map[string]int{
	"+254": 9,  // Kenya
	"+255": 9,  // Tanzania
	"+256": 9,  // Uganda
	"+250": 9,  // Rwanda
	"+27":  9,  // South Africa
	"+44":  10, // United Kingdom
	"+1":   10, // US/Canada
	"+91":  10, // India
}

const (
	mobileFallbackMin = 6
	mobileFallbackMax = 15
)

// disposableDomains rejects throwaway email providers.
var disposableDomains = map[string]bool{
	"mailinator.com":    true,
	"guerrillamail.com": true,
	"10minutemail.com":  true,
	"tempmail.com":      true,
	"yopmail.com":       true,
	"trashmail.com":     true,
	"sharklasers.com":   true,
	"getnada.com":       true,
}

// rule is one (field, predicate, message) entry. check returns the
// violation message, or "" when the field passes.
type rule struct {
	field string
	check func(s Submission) string
}

var rules = []rule{
	{"staffNumber", func(s Submission) string {
		if s.StaffNumber == "" {
			return ""
		}
		if !staffNumberRe.MatchString(s.StaffNumber) {
			return "staff number must be exactly 7 characters: 00 followed by 5 uppercase alphanumerics"
		}
		return ""
	}},
	{"nationalId", func(s Submission) string {
		if strings.TrimSpace(s.NationalID) == "" {
			return "national id or passport number is required"
		}
		if len(s.NationalID) > 50 {
			return "national id must be at most 50 characters"
		}
		return ""
	}},
	{"fullName", func(s Submission) string {
		name := strings.TrimSpace(s.FullName)
		if name == "" {
			return "full name is required"
		}
		if len(name) < 2 || len(name) > 200 {
			return "full name must be between 2 and 200 characters"
		}
		if !fullNameRe.MatchString(name) {
			return "full name may only contain letters, spaces, hyphens, apostrophes, periods and commas"
		}
		return ""
	}},
	{"email", func(s Submission) string {
		email := strings.TrimSpace(s.Email)
		if email == "" {
			return "email is required"
		}
		if len(email) > 255 {
			return "email must be at most 255 characters"
		}
		if !emailRe.MatchString(email) {
			return "email address is not valid"
		}
		if at := strings.LastIndexByte(email, '@'); at >= 0 {
			if disposableDomains[strings.ToLower(email[at+1:])] {
				return "disposable email addresses are not accepted"
			}
		}
		return ""
	}},
	{"mobileCountryCode", func(s Submission) string {
		if s.MobileCountryCode == "" && s.MobileNumber == "" {
			return ""
		}
		if s.MobileCountryCode == "" {
			return "mobile country code is required when a mobile number is given"
		}
		if !callingCodeRe.MatchString(s.MobileCountryCode) {
			return "mobile country code must be + followed by 1 to 4 digits"
		}
		return ""
	}},
	{"mobileNumber", func(s Submission) string {
		if s.MobileCountryCode == "" && s.MobileNumber == "" {
			return ""
		}
		if s.MobileNumber == "" {
			return "mobile number is required when a country code is given"
		}
		if !digitsRe.MatchString(s.MobileNumber) {
			return "mobile number must contain digits only"
		}
		n := len(s.MobileNumber)
		if want, ok := mobileLengths[s.MobileCountryCode]; ok {
			if n != want {
				return fmt.Sprintf("mobile number for %s must be exactly %d digits", s.MobileCountryCode, want)
			}
			return ""
		}
		if n < mobileFallbackMin || n > mobileFallbackMax {
			return fmt.Sprintf("mobile number must be between %d and %d digits", mobileFallbackMin, mobileFallbackMax)
		}
		return ""
	}},
	{"countryCode", func(s Submission) string {
		if !countryCodeRe.MatchString(s.CountryCode) {
			return "country code must be exactly 2 uppercase letters"
		}
		return ""
	}},
	{"cityCustom", func(s Submission) string {
		if !strings.EqualFold(s.City, "Other") {
			return ""
		}
		custom := strings.TrimSpace(s.CityCustom)
		if custom == "" {
			return "city name is required when city is Other"
		}
		if !cityCustomRe.MatchString(custom) {
			return "city name may only contain letters, spaces and hyphens"
		}
		return ""
	}},
	{"linkedinUrl", func(s Submission) string {
		if s.LinkedInURL == "" {
			return ""
		}
		if !strings.Contains(strings.ToLower(s.LinkedInURL), "linkedin.com") {
			return "linkedin url must be a linkedin.com address"
		}
		return ""
	}},
	{"qualifications", func(s Submission) string {
		if n := len(s.Qualifications); n < 1 || n > 8 {
			return "between 1 and 8 qualifications are required"
		}
		return ""
	}},
	{"engagementPreferences", func(s Submission) string {
		if n := len(s.EngagementPreferences); n < 1 || n > 6 {
			return "between 1 and 6 engagement preferences are required"
		}
		return ""
	}},
	{"consentGiven", func(s Submission) string {
		if !s.ConsentGiven {
			return "consent is required to process a registration"
		}
		return ""
	}},
}

// Check evaluates every rule and returns all violations keyed by field.
// An empty map means the submission shape is valid.
func Check(s Submission) map[string]string {
	violations := make(map[string]string)
	for _, r := range rules {
		if msg := r.check(s); msg != "" {
			violations[r.field] = msg
		}
	}
	return violations
}

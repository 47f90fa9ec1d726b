package inspect

import "strings"

// signupKeywords mark a form as a signup/registration form when found in
// its visible text or action path. Ordered: earlier keywords are the
// stronger signals and are reported as the match reason.
var signupKeywords = []string{
	"sign up",
	"signup",
	"sign-up",
	"register",
	"registration",
	"create account",
	"create your account",
	"join now",
	"get started",
}

// sensitiveTerms is the authoritative denylist. A field whose normalized
// name or label contains any of these is sensitive and is never written,
// no matter what the caller supplies. Terms are pre-normalized (lowercase,
// alphanumerics only) to match normalizeToken output.
var sensitiveTerms = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"apikey",
	"creditcard",
	"cardnumber",
	"cvv",
	"cvc",
	"ssn",
	"socialsecurity",
}

// submitTexts resolve a button into the submit target when no
// submit-typed control exists.
var submitTexts = []string{
	"sign up",
	"register",
	"submit",
	"create account",
}

// MatchSignupKeyword reports the first signup keyword found in the given
// text, or "" if none. Exposed so each rule row is testable on its own.
func MatchSignupKeyword(text string) string {
	lower := strings.ToLower(text)
	for _, kw := range signupKeywords {
		if strings.Contains(lower, kw) {
			return kw
		}
	}
	return ""
}

// IsSensitiveToken reports whether a normalized name or label trips the
// sensitivity denylist.
func IsSensitiveToken(token string) bool {
	norm := normalizeToken(token)
	if norm == "" {
		return false
	}
	for _, term := range sensitiveTerms {
		if strings.Contains(norm, term) {
			return true
		}
	}
	return false
}

// IsSubmitText reports whether button text resolves it as a submit
// target.
func IsSubmitText(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, s := range submitTexts {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// normalizeToken lowercases and strips everything but letters and
// digits, so "credit-card", "creditCard" and "credit_card" all compare
// equal.
func normalizeToken(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

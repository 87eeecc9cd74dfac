package eligibility

import (
	"regexp"
	"strings"
)

var (
	addressExpr = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s.]{2,}$`)

	placeholderLocalExpr = regexp.MustCompile(`^(test|testing|tester|fake|dummy|sample|example|asdf|asdfgh|qwerty|foo|foobar|bar|abc|abcd|xyz|none|null|nil|na|n/a|noemail|no-?reply|donotreply|do-not-reply|email|user|someone|nobody)[0-9]*$`)
)

var defaultDisposableDomains = []string{
	"mailinator.com", "guerrillamail.com", "guerrillamail.net", "sharklasers.com",
	"10minutemail.com", "tempmail.com", "temp-mail.org", "yopmail.com", "trashmail.com",
	"getnada.com", "dispostable.com", "maildrop.cc", "throwawaymail.com", "fakeinbox.com",
	"mailnesia.com", "mintemail.com", "spamgourmet.com",
}

var placeholderDomains = map[string]struct{}{
	"example.com": {}, "example.org": {}, "example.net": {}, "test.com": {}, "domain.com": {},
	"email.com": {}, "company.com": {}, "yourcompany.com": {}, "yourdomain.com": {}, "localhost": {},
}

// genericCorporateLocals are shared company inboxes that never reach a decision maker.
var genericCorporateLocals = map[string]struct{}{
	"info": {}, "contact": {}, "hello": {}, "hi": {}, "office": {}, "admin": {}, "enquiries": {},
	"inquiries": {}, "enquiry": {}, "inquiry": {}, "mail": {}, "general": {}, "team": {},
	"reception": {}, "webmaster": {}, "postmaster": {}, "hostmaster": {}, "contactus": {},
	"contact-us": {}, "mailbox": {},
}

// rolePrefixes match department mailboxes such as sales@, hr.team@ or support-eu@.
var rolePrefixes = []string{
	"sales", "support", "help", "helpdesk", "hr", "jobs", "careers", "recruiting", "recruitment",
	"talent", "billing", "accounts", "accounting", "finance", "invoices", "marketing", "press",
	"media", "legal", "privacy", "security", "abuse", "noc", "it", "ops", "service", "orders",
}

func splitAddress(email string) (local, domain string, ok bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !addressExpr.MatchString(email) {
		return "", "", false
	}
	at := strings.LastIndexByte(email, '@')
	return email[:at], email[at+1:], true
}

func isFakeLocal(local string) bool {
	if placeholderLocalExpr.MatchString(local) {
		return true
	}
	return repeatedRun(local, 4)
}

// repeatedRun reports whether s is made of a single character repeated at least n times.
func repeatedRun(s string, n int) bool {
	if len(s) < n {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

func hasRolePrefix(local string) bool {
	for _, prefix := range rolePrefixes {
		if !strings.HasPrefix(local, prefix) {
			continue
		}
		rest := local[len(prefix):]
		if rest == "" {
			return true
		}
		switch c := rest[0]; {
		case c == '.' || c == '-' || c == '_' || c == '+':
			return true
		case c >= '0' && c <= '9':
			return true
		}
	}
	return false
}

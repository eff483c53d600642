package application

import "strings"

// DomainPolicy decides whether an email address belongs to the configured
// university domains. In development and test mode the check is bypassed
// entirely so local iteration does not need a university inbox.
type DomainPolicy struct {
	allowed map[string]struct{}
	bypass  bool
}

func NewDomainPolicy(domains []string, bypass bool) *DomainPolicy {
	allowed := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			allowed[d] = struct{}{}
		}
	}
	return &DomainPolicy{allowed: allowed, bypass: bypass}
}

// IsAllowed reports whether the email's domain is on the allow-list.
// A malformed address without a domain part is invalid, not an error.
func (p *DomainPolicy) IsAllowed(email string) bool {
	if p.bypass {
		return true
	}
	d := DomainOf(email)
	if d == "" {
		return false
	}
	_, ok := p.allowed[d]
	return ok
}

// DomainOf extracts the lowercased domain part of an email address, or ""
// when there is none.
func DomainOf(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

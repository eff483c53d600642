package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainPolicyIsAllowed(t *testing.T) {
	policy := NewDomainPolicy([]string{"nagoya-u.ac.jp", "s.thers.ac.jp"}, false)

	tests := []struct {
		name  string
		email string
		want  bool
	}{
		{"allowed primary domain", "taro@nagoya-u.ac.jp", true},
		{"allowed student domain", "hanako@s.thers.ac.jp", true},
		{"uppercase domain matches", "taro@NAGOYA-U.AC.JP", true},
		{"mixed case domain matches", "taro@Nagoya-U.ac.jp", true},
		{"foreign domain rejected", "taro@gmail.com", false},
		{"subdomain is not the domain", "taro@mail.nagoya-u.ac.jp", false},
		{"superstring domain rejected", "taro@nagoya-u.ac.jp.evil.com", false},
		{"no at sign", "nagoya-u.ac.jp", false},
		{"empty local part still matches domain", "@nagoya-u.ac.jp", true},
		{"trailing at sign", "taro@", false},
		{"empty string", "", false},
		{"domain after last at wins", "taro@gmail.com@nagoya-u.ac.jp", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.IsAllowed(tt.email))
		})
	}
}

func TestDomainPolicyBypass(t *testing.T) {
	policy := NewDomainPolicy([]string{"nagoya-u.ac.jp"}, true)

	// Bypass admits everything, including addresses that are not well formed.
	assert.True(t, policy.IsAllowed("anyone@gmail.com"))
	assert.True(t, policy.IsAllowed("not-an-email"))
	assert.True(t, policy.IsAllowed(""))
}

func TestDomainOf(t *testing.T) {
	assert.Equal(t, "nagoya-u.ac.jp", DomainOf("taro@Nagoya-U.ac.jp"))
	assert.Equal(t, "", DomainOf("taro"))
	assert.Equal(t, "", DomainOf("taro@"))
	assert.Equal(t, "b.com", DomainOf("a@a.com@b.com"))
}

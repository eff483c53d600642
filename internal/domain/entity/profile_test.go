package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strptr(s string) *string { return &s }

func TestValidYear(t *testing.T) {
	for _, y := range AcademicYears {
		assert.True(t, ValidYear(y), y)
	}
	assert.False(t, ValidYear("5年"))
	assert.False(t, ValidYear("1"))
	assert.False(t, ValidYear("1年生"))
	assert.False(t, ValidYear(""))
}

func TestProfileComplete(t *testing.T) {
	tests := []struct {
		name    string
		faculty *string
		year    *string
		want    bool
	}{
		{"both set", strptr("工学部"), strptr("2年"), true},
		{"both nil", nil, nil, false},
		{"faculty only", strptr("工学部"), nil, false},
		{"year only", nil, strptr("2年"), false},
		{"empty strings count as unset", strptr(""), strptr(""), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Profile{ID: "u1", University: "名古屋大学", Faculty: tt.faculty, Year: tt.year}
			assert.Equal(t, tt.want, p.Complete())
		})
	}

	var nilProfile *Profile
	assert.False(t, nilProfile.Complete())
}

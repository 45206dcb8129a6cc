package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfile_DisplayName(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		want    string
	}{
		{"lower case is capitalized", Profile{FirstName: "siti", LastName: "aminah"}, "Siti Aminah"},
		{"inner capitals are kept", Profile{FirstName: "Ronald", LastName: "McDonald"}, "Ronald McDonald"},
		{"mixed words", Profile{FirstName: "danny", LastName: "DeVito"}, "Danny DeVito"},
		{"extra spaces", Profile{FirstName: "  budi ", LastName: ""}, "Budi"},
		{"falls back to username", Profile{Username: "@resepia_42"}, "@resepia_42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.profile.DisplayName())
		})
	}
}

package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsOriginAllowed(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		allowed []string
		want    bool
	}{
		{"wildcard matches anything", "https://anywhere.test", []string{"*"}, true},
		{"exact match", "https://app.example.com", []string{"https://app.example.com"}, true},
		{"exact mismatch", "https://other.example.com", []string{"https://app.example.com"}, false},
		{"subdomain wildcard matches", "https://app.example.com", []string{"*.example.com"}, true},
		{"nested subdomain matches", "https://a.b.example.com", []string{"*.example.com"}, true},
		{"suffix without dot boundary rejected", "https://evilexample.com", []string{"*.example.com"}, false},
		{"bare apex does not match subdomain wildcard", "https://example.com", []string{"*.example.com"}, false},
		{"empty origin rejected", "", []string{"*"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isOriginAllowed(tt.origin, tt.allowed))
		})
	}
}

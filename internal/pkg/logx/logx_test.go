package logx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"203.0.113.42:5555", "203.0.113.0"},
		{"203.0.113.42", "203.0.113.0"},
		{"127.0.0.1:80", "127.0.0.1"},
		{"[2001:db8:1:2:3:4:5:6]:443", "2001:db8:1:2::"},
		{"not-an-ip", "unknown_ip"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, AnonymizeIP(tc.in), tc.in)
	}
}

func TestCheckFields_OddCountDropped(t *testing.T) {
	assert.Nil(t, checkFields("Info", []any{"k"}))
	assert.Equal(t, []any{"k", 1}, checkFields("Info", []any{"k", 1}))
}

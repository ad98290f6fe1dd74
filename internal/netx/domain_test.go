package netx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistrableDomain(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		err  bool
	}{
		{name: "https url", in: "https://example.com/login", want: "example.com"},
		{name: "http with port", in: "http://example.com:8080/x", want: "example.com"},
		{name: "bare host", in: "example.com/login", want: "example.com"},
		{name: "subdomain kept", in: "https://accounts.example.com", want: "accounts.example.com"},
		{name: "uppercase folded", in: "https://EXAMPLE.com", want: "example.com"},
		{name: "empty", in: "", err: true},
		{name: "no host", in: "https://", err: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := RegistrableDomain(tc.in)
			if tc.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

package radio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		code int
		want Class
	}{
		{"expired auth token", 1001, ClassRetryAuth},
		{"network down", 9000, ClassRetryTransient},
		{"internal server error", 0, ClassRetryTransient},
		{"maintenance", 1000, ClassTerminal},
		{"station not found", 1006, ClassTerminal},
		{"max stations", 1005, ClassTerminal},
		{"licensing", 12, ClassTerminal},
		{"protocol", CodeProtocol, ClassTerminal},
		{"unheard-of code", 4242, ClassTerminal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Classify(tc.code))
		})
	}
}

func TestDescribe_UnknownCodeFallsBack(t *testing.T) {
	require.Equal(t, genericErrorMessage, Describe(424242))
	require.NotEqual(t, genericErrorMessage, Describe(1001))
	require.NotEqual(t, genericErrorMessage, Describe(9000))
}

package httpclient

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateURL_Schemes(t *testing.T) {
	c := New(5 * time.Second)

	_, err := c.ValidateURL("https://rpc.example.org/simulate")
	assert.NoError(t, err)

	_, err = c.ValidateURL("ftp://rpc.example.org/simulate")
	assert.Error(t, err)

	_, err = c.ValidateURL("file:///etc/passwd")
	assert.Error(t, err)
}

func TestValidateURL_PermissiveAllowsLocalhost(t *testing.T) {
	c := New(5 * time.Second)
	_, err := c.ValidateURL("http://localhost:8000/rpc")
	assert.NoError(t, err, "CLI client must accept local gateways")

	_, err = c.ValidateURL("http://127.0.0.1:8000/rpc")
	assert.NoError(t, err)
}

func TestValidateURL_HardenedBlocksLocal(t *testing.T) {
	c := NewHardened(5 * time.Second)

	for _, bad := range []string{
		"http://localhost:8000/rpc",
		"http://127.0.0.1/rpc",
		"http://10.1.2.3/rpc",
		"http://192.168.1.1/rpc",
		"http://169.254.169.254/latest/meta-data/",
	} {
		_, err := c.ValidateURL(bad)
		assert.Error(t, err, "expected %s to be blocked", bad)
	}

	_, err := c.ValidateURL("https://rpc.example.org/simulate")
	assert.NoError(t, err)
}

func TestValidateURL_RejectsUserinfo(t *testing.T) {
	c := NewHardened(5 * time.Second)
	_, err := c.ValidateURL("http://evil.com@example.org/")
	require.Error(t, err)
}

func TestIsForbiddenIP(t *testing.T) {
	tests := []struct {
		ip        string
		forbidden bool
	}{
		{"127.0.0.1", true},
		{"10.0.0.1", true},
		{"172.16.0.1", true},
		{"192.168.0.1", true},
		{"169.254.1.1", true},
		{"::1", true},
		{"0.0.0.0", true},
		{"8.8.8.8", false},
		{"2600:1901::1", false},
	}
	for _, tt := range tests {
		ip := net.ParseIP(tt.ip)
		require.NotNil(t, ip, tt.ip)
		assert.Equal(t, tt.forbidden, isForbiddenIP(ip), tt.ip)
	}
}

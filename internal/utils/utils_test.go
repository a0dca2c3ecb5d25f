package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(headers map[string]string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:5000"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	c.Request = req
	return c
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"direct", nil, "192.0.2.10"},
		{"public real ip", map[string]string{"X-Real-IP": "203.0.113.7"}, "203.0.113.7"},
		{"private real ip falls through", map[string]string{"X-Real-IP": "10.1.2.3", "X-Forwarded-For": "198.51.100.4"}, "198.51.100.4"},
		{"first public hop", map[string]string{"X-Forwarded-For": "10.0.0.1, 198.51.100.9, 203.0.113.1"}, "198.51.100.9"},
		{"all private hops", map[string]string{"X-Forwarded-For": "10.0.0.1, 192.168.1.1"}, "10.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClientIP(testContext(tt.headers)))
		})
	}
}

func TestUserAgent(t *testing.T) {
	assert.Equal(t, "Unknown", UserAgent(testContext(nil)))
	assert.Equal(t, "curl/8.0", UserAgent(testContext(map[string]string{"User-Agent": "curl/8.0"})))
}

func TestParseUserAgent(t *testing.T) {
	iphone := "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	info := ParseUserAgent(iphone)
	assert.Equal(t, "mobile", info.DeviceType)
	assert.Equal(t, "ios", info.Platform)
	assert.False(t, info.IsBot)

	ipad := "Mozilla/5.0 (iPad; CPU OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1"
	assert.Equal(t, "tablet", ParseUserAgent(ipad).DeviceType)

	desktop := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	info = ParseUserAgent(desktop)
	assert.Equal(t, "desktop", info.DeviceType)
	assert.Equal(t, "windows", info.Platform)
	assert.Equal(t, "Chrome", info.Browser)

	bot := ParseUserAgent("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")
	assert.True(t, bot.IsBot)

	assert.Equal(t, "unknown", ParseUserAgent("").DeviceType)
}

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret(32)
	require.NoError(t, err)
	b, err := GenerateSecret(32)
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestNewShiftCode(t *testing.T) {
	code, err := NewShiftCode()
	require.NoError(t, err)
	assert.Regexp(t, `^SHIFT-[0-9A-F]{8}$`, code)
}

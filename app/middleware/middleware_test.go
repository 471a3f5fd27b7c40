package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"todo-chat/app/models"
)

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rr.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rr.Header().Get(RequestIDHeader))
}

func TestAuth(t *testing.T) {
	var owner string
	h := Auth(StaticTokens{"good": "alice"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner, _ = OwnerFrom(r.Context())
	}))

	tests := []struct {
		header string
		status int
		owner  string
	}{
		{"Bearer good", http.StatusOK, "alice"},
		{"bearer   good ", http.StatusOK, "alice"},
		{"Bearer bad", http.StatusUnauthorized, ""},
		{"Basic good", http.StatusUnauthorized, ""},
		{"Bearer ", http.StatusUnauthorized, ""},
		{"", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		owner = ""
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, tt.status, rr.Code, tt.header)
		assert.Equal(t, tt.owner, owner, tt.header)
	}
}

func TestStaticTokens(t *testing.T) {
	owner, err := StaticTokens{"t": "bob"}.Authenticate("t")
	require.NoError(t, err)
	assert.Equal(t, "bob", owner)

	_, err = StaticTokens{}.Authenticate("t")
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}

func TestRecoverAndAccessLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	h := RequestID(AccessLog(logger)(Recover(logger)(Auth(StaticTokens{"t": "carol"})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic("boom") }),
	))))

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("Authorization", "Bearer t")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), string(models.CodeInternal))

	require.Equal(t, 1, logs.FilterMessage("handler panic").Len())
	access := logs.FilterMessage("request").All()
	require.Len(t, access, 1)
	fields := access[0].ContextMap()
	assert.Equal(t, int64(http.StatusInternalServerError), fields["status"])
	assert.Equal(t, "carol", fields["owner"])
	assert.Equal(t, "/tasks", fields["path"])
}

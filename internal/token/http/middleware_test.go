package http

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tokenDomain "github.com/allisson/natter/internal/token/domain"
	"github.com/allisson/natter/internal/token/store"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr error
	}{
		{"Success", "Bearer abc.def", "abc.def", nil},
		{"Success_CaseInsensitive", "bearer abc", "abc", nil},
		{"Success_TrimsSpaces", "Bearer   abc  ", "abc", nil},
		{"Error_Missing", "", "", tokenDomain.ErrMissingCredential},
		{"Error_Basic", "Basic YWxpY2U6cGFzcw==", "", tokenDomain.ErrMalformedCredential},
		{"Error_NoToken", "Bearer ", "", tokenDomain.ErrMalformedCredential},
		{"Error_Short", "Bear", "", tokenDomain.ErrMalformedCredential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := bearerToken(tt.header)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequestInfoMiddleware(t *testing.T) {
	var captured store.RequestInfo
	var found bool

	router := gin.New()
	router.Use(RequestInfoMiddleware())
	router.GET("/inspect", func(c *gin.Context) {
		captured, found = store.RequestInfoFrom(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	w := serve(router, newRequest(t, http.MethodGet, "/inspect?since=2023-06-01T00:00:00Z", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	require.True(t, found)
	assert.Equal(t, http.MethodGet, captured.Method)
	assert.Equal(t, "2023-06-01T00:00:00Z", captured.Query.Get("since"))
}

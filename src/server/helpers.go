package server

import (
	"errors"
	"net/http"
	"strconv"

	"gateway-dashboard/src/helpers"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------

// statusForKind maps the error taxonomy onto HTTP status codes.
func statusForKind(kind string) int {
	switch kind {
	case "invalid_request":
		return http.StatusBadRequest
	case "authentication_failed":
		return http.StatusUnauthorized
	case "remote_error", "transport_error", "upstream_fetch_error":
		return http.StatusBadGateway
	case "timeout":
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// -----------------------------------------------------------------------------

func respondError(c *gin.Context, err error) {
	kind := helpers.Kind(err)
	body := gin.H{"error": err.Error(), "kind": kind}

	var remote *helpers.RemoteError
	if kind == "remote_error" && errors.As(err, &remote) && remote.Code != "" {
		body["code"] = remote.Code
	}

	c.AbortWithStatusJSON(statusForKind(kind), body)
}

// -----------------------------------------------------------------------------

// queryInt reads an optional integer query parameter bounded to [lo, hi].
// A zero hi leaves the upper bound open.
func queryInt(c *gin.Context, key string, def, lo, hi int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || (hi > 0 && n > hi) {
		if hi > 0 {
			return 0, helpers.NewInvalidRequest("%s must be an integer in [%d, %d]", key, lo, hi)
		}
		return 0, helpers.NewInvalidRequest("%s must be an integer >= %d", key, lo)
	}
	return n, nil
}

// -----------------------------------------------------------------------------

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

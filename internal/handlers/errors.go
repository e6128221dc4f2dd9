package handlers

import (
	"net/http"

	"github.com/ArowuTest/healthclaims-backend/internal/apperrors"
	"github.com/ArowuTest/healthclaims-backend/internal/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError writes err as JSON with the status from the error taxonomy.
// Server side failures are logged with the request id; their text never
// reaches the client.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := apperrors.StatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("request_id", middleware.RequestID(c)),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, apperrors.ToBody(err))
}

// listResponse is the envelope for claim collections
type listResponse struct {
	Data  any `json:"data"`
	Count int `json:"count"`
}

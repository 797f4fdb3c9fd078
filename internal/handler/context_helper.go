package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
	"github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		return nil
	}
	return claims
}

func requestLogger(c *gin.Context, base *zap.Logger) *zap.Logger {
	l := logger.ForRequest(base, requestid.Value(c))
	if claims := claimsFromContext(c); claims != nil {
		l = l.With(zap.String("user_id", claims.UserID))
	}
	return l
}

// respondError writes the error envelope and logs server-side failures with request context.
func respondError(c *gin.Context, base *zap.Logger, err error) {
	appErr := appErrors.FromError(err)
	if appErr.Status >= http.StatusInternalServerError {
		requestLogger(c, base).Error("request failed", zap.String("code", appErr.Code), zap.Error(err))
	}
	response.Error(c, err)
}

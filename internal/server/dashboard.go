package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	analyticsdomain "github.com/draftforge/draftforge/internal/analytics/domain"
)

func (s *Server) GetDashboard(c *gin.Context) {
	accountID, err := parseSnowflakeString(c.Query("account_id"))
	if err != nil {
		AbortWithError(c, newValidationError("account_id", "invalid_account", "invalid account id"))
		return
	}

	horizon := analyticsdomain.Horizon(strings.TrimSpace(c.DefaultQuery("horizon", string(analyticsdomain.Horizon7d))))

	result, err := s.analyticsSvc.Summarize(c.Request.Context(), accountID, horizon)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

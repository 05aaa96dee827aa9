package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	usagedomain "github.com/draftforge/draftforge/internal/usage/domain"
)

func (s *Server) ListUsageEvents(c *gin.Context) {
	var req usagedomain.ListEventsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.usageSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) UpdateEngagement(c *gin.Context) {
	generationID, err := parseSnowflakeParam(c, "generation_id")
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var update usagedomain.EngagementUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	event, err := s.usageSvc.UpdateEngagement(c.Request.Context(), generationID, update)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

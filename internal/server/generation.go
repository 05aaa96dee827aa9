package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	generationdomain "github.com/draftforge/draftforge/internal/generation/domain"
)

type StartGenerationRequest struct {
	AccountID string `json:"account_id"`
	ProjectID string `json:"project_id"`
	Prompt    string `json:"prompt"`
	ModelID   string `json:"model_id"`
}

func (s *Server) StartGeneration(c *gin.Context) {
	var req StartGenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	accountID, err := parseSnowflakeString(req.AccountID)
	if err != nil {
		AbortWithError(c, newValidationError("account_id", "invalid_account", "invalid account id"))
		return
	}
	projectID, err := parseSnowflakeString(req.ProjectID)
	if err != nil {
		AbortWithError(c, newValidationError("project_id", "invalid_project", "invalid project id"))
		return
	}

	record, err := s.generationSvc.Start(c.Request.Context(), generationdomain.StartRequest{
		AccountID: accountID,
		ProjectID: projectID,
		Prompt:    req.Prompt,
		ModelID:   req.ModelID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

func (s *Server) GetGeneration(c *gin.Context) {
	id, err := parseSnowflakeParam(c, "id")
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	record, err := s.generationSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (s *Server) AcceptGeneration(c *gin.Context) {
	id, err := parseSnowflakeParam(c, "id")
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	record, err := s.generationSvc.Accept(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (s *Server) RejectGeneration(c *gin.Context) {
	id, err := parseSnowflakeParam(c, "id")
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	record, err := s.generationSvc.Reject(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

type RegenerateRequest struct {
	AccountID      string `json:"account_id"`
	SourceRecordID string `json:"source_record_id"`
}

func (s *Server) Regenerate(c *gin.Context) {
	var req RegenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	accountID, err := parseSnowflakeString(req.AccountID)
	if err != nil {
		AbortWithError(c, newValidationError("account_id", "invalid_account", "invalid account id"))
		return
	}
	sourceID, err := parseSnowflakeString(req.SourceRecordID)
	if err != nil {
		AbortWithError(c, newValidationError("source_record_id", "invalid_record", "invalid source record id"))
		return
	}

	record, err := s.generationSvc.Regenerate(c.Request.Context(), generationdomain.RegenerateRequest{
		AccountID:      accountID,
		SourceRecordID: sourceID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

func (s *Server) ListActiveGenerations(c *gin.Context) {
	projectID, err := parseSnowflakeString(c.Query("project_id"))
	if err != nil {
		AbortWithError(c, newValidationError("project_id", "invalid_project", "invalid project id"))
		return
	}

	records, err := s.generationSvc.ListActive(c.Request.Context(), generationdomain.ListActiveRequest{
		ProjectID: projectID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"generations": records})
}

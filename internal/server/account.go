package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/draftforge/draftforge/internal/account/domain"
	ledgerdomain "github.com/draftforge/draftforge/internal/ledger/domain"
)

type SignupRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

func (s *Server) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	account, err := s.accountSvc.Signup(c.Request.Context(), accountdomain.SignupRequest{
		Email:       req.Email,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, account)
}

func (s *Server) GetAccount(c *gin.Context) {
	id, err := parseSnowflakeParam(c, "id")
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	account, err := s.accountSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, account)
}

// GetBalance is a display read and may lag concurrent debits; charging
// decisions always go through the ledger's atomic debit.
func (s *Server) GetBalance(c *gin.Context) {
	id, err := parseSnowflakeParam(c, "id")
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	balance, err := s.ledgerSvc.Balance(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"account_id":     id.String(),
		"credit_balance": balance,
	})
}

func (s *Server) DeactivateAccount(c *gin.Context) {
	id, err := parseSnowflakeParam(c, "id")
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.accountSvc.Deactivate(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}

type GrantCreditsRequest struct {
	AccountID string `json:"account_id"`
	Amount    int64  `json:"amount"`
}

func (s *Server) GrantCredits(c *gin.Context) {
	var req GrantCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	accountID, err := parseSnowflakeString(req.AccountID)
	if err != nil {
		AbortWithError(c, newValidationError("account_id", "invalid_account", "invalid account id"))
		return
	}

	balance, err := s.ledgerSvc.Credit(c.Request.Context(), ledgerdomain.CreditRequest{
		AccountID: accountID,
		Amount:    req.Amount,
		Kind:      ledgerdomain.TransactionKindGrant,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"account_id":     accountID.String(),
		"credit_balance": balance,
	})
}

package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type SignupRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type Service interface {
	Signup(context.Context, SignupRequest) (*Account, error)
	Get(ctx context.Context, id snowflake.ID) (*Account, error)
	Deactivate(ctx context.Context, id snowflake.ID) error
}

var (
	ErrInvalidEmail    = errors.New("invalid_email")
	ErrAccountExists   = errors.New("account_exists")
	ErrAccountNotFound = errors.New("account_not_found")
)

package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/draftforge/draftforge/pkg/db/pagination"
)

type CreateProjectRequest struct {
	OwnerID     string `json:"owner_id"`
	Title       string `json:"title"`
	ContentType string `json:"content_type"`
}

type ListProjectsRequest struct {
	OwnerID   string `form:"owner_id"`
	PageToken string `form:"page_token"`
	PageSize  int32  `form:"page_size"`
}

type ListProjectsResponse struct {
	pagination.PageInfo
	Projects []Project `json:"projects"`
}

type Service interface {
	Create(context.Context, CreateProjectRequest) (*Project, error)
	Get(ctx context.Context, id snowflake.ID) (*Project, error)
	List(context.Context, ListProjectsRequest) (ListProjectsResponse, error)
	Delete(ctx context.Context, id snowflake.ID) error
}

var (
	ErrInvalidOwner       = errors.New("invalid_owner")
	ErrInvalidTitle       = errors.New("invalid_title")
	ErrInvalidContentType = errors.New("invalid_content_type")
	ErrProjectNotFound    = errors.New("project_not_found")
)

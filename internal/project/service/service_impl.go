package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	generationdomain "github.com/draftforge/draftforge/internal/generation/domain"
	projectdomain "github.com/draftforge/draftforge/internal/project/domain"
	"github.com/draftforge/draftforge/pkg/db/option"
	"github.com/draftforge/draftforge/pkg/db/pagination"
	"github.com/draftforge/draftforge/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	projectrepo repository.Repository[projectdomain.Project]
}

func NewService(p Params) projectdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("project.service"),
		genID:       p.GenID,
		projectrepo: repository.ProvideStore[projectdomain.Project](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req projectdomain.CreateProjectRequest) (*projectdomain.Project, error) {
	ownerID, err := snowflake.ParseString(strings.TrimSpace(req.OwnerID))
	if err != nil || ownerID == 0 {
		return nil, projectdomain.ErrInvalidOwner
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, projectdomain.ErrInvalidTitle
	}

	contentType := projectdomain.ContentType(strings.ToLower(strings.TrimSpace(req.ContentType)))
	if !contentType.Valid() {
		return nil, projectdomain.ErrInvalidContentType
	}

	now := time.Now().UTC()
	project := &projectdomain.Project{
		ID:          s.genID.Generate(),
		OwnerID:     ownerID,
		Title:       title,
		ContentType: contentType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.projectrepo.Create(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*projectdomain.Project, error) {
	if id == 0 {
		return nil, projectdomain.ErrProjectNotFound
	}
	project, err := s.projectrepo.FindOne(ctx, &projectdomain.Project{ID: id})
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, projectdomain.ErrProjectNotFound
	}
	return project, nil
}

func (s *Service) List(ctx context.Context, req projectdomain.ListProjectsRequest) (projectdomain.ListProjectsResponse, error) {
	ownerID, err := snowflake.ParseString(strings.TrimSpace(req.OwnerID))
	if err != nil || ownerID == 0 {
		return projectdomain.ListProjectsResponse{}, projectdomain.ErrInvalidOwner
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.projectrepo.Find(ctx, &projectdomain.Project{OwnerID: ownerID},
		option.ApplyPagination(pagination.Pagination{
			PageToken: req.PageToken,
			PageSize:  int(pageSize),
		}),
		option.WithOrder("created_at DESC, id DESC"),
	)
	if err != nil {
		return projectdomain.ListProjectsResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(p *projectdomain.Project) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        p.ID.String(),
			CreatedAt: p.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	projects := make([]projectdomain.Project, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		projects = append(projects, *item)
	}

	resp := projectdomain.ListProjectsResponse{Projects: projects}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

// Delete removes the project and cascades to its generation records.
// Usage events are kept: they are the immutable analytics history.
func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	if id == 0 {
		return projectdomain.ErrProjectNotFound
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&projectdomain.Project{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return projectdomain.ErrProjectNotFound
		}
		return tx.Where("project_id = ?", id).Delete(&generationdomain.GenerationRecord{}).Error
	})
}

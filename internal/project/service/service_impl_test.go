package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	generationdomain "github.com/draftforge/draftforge/internal/generation/domain"
	projectdomain "github.com/draftforge/draftforge/internal/project/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testDBSeq atomic.Int64

func setupProjectTest(t *testing.T) (*gorm.DB, projectdomain.Service, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:project_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&projectdomain.Project{},
		&generationdomain.GenerationRecord{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{DB: db, Log: zap.NewNop(), GenID: node})
	return db, svc, node
}

func TestCreateProjectValidation(t *testing.T) {
	_, svc, node := setupProjectTest(t)
	owner := node.Generate().String()

	_, err := svc.Create(context.Background(), projectdomain.CreateProjectRequest{
		OwnerID: "", Title: "Posts", ContentType: "blog",
	})
	assert.ErrorIs(t, err, projectdomain.ErrInvalidOwner)

	_, err = svc.Create(context.Background(), projectdomain.CreateProjectRequest{
		OwnerID: owner, Title: "  ", ContentType: "blog",
	})
	assert.ErrorIs(t, err, projectdomain.ErrInvalidTitle)

	_, err = svc.Create(context.Background(), projectdomain.CreateProjectRequest{
		OwnerID: owner, Title: "Posts", ContentType: "podcast",
	})
	assert.ErrorIs(t, err, projectdomain.ErrInvalidContentType)
}

func TestCreateProjectNormalizesContentType(t *testing.T) {
	_, svc, node := setupProjectTest(t)

	project, err := svc.Create(context.Background(), projectdomain.CreateProjectRequest{
		OwnerID:     node.Generate().String(),
		Title:       "Newsletter drafts",
		ContentType: " Email ",
	})
	require.NoError(t, err)
	assert.Equal(t, projectdomain.ContentTypeEmail, project.ContentType)
}

func TestListProjectsPaginates(t *testing.T) {
	_, svc, node := setupProjectTest(t)
	owner := node.Generate()

	for i := 0; i < 5; i++ {
		_, err := svc.Create(context.Background(), projectdomain.CreateProjectRequest{
			OwnerID:     owner.String(),
			Title:       fmt.Sprintf("Project %d", i),
			ContentType: "blog",
		})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond) // distinct created_at for cursor ordering
	}

	first, err := svc.List(context.Background(), projectdomain.ListProjectsRequest{
		OwnerID:  owner.String(),
		PageSize: 3,
	})
	require.NoError(t, err)
	assert.Len(t, first.Projects, 3)
	assert.True(t, first.HasMore)
	require.NotEmpty(t, first.NextPageToken)

	second, err := svc.List(context.Background(), projectdomain.ListProjectsRequest{
		OwnerID:   owner.String(),
		PageSize:  3,
		PageToken: first.NextPageToken,
	})
	require.NoError(t, err)
	assert.Len(t, second.Projects, 2)
	assert.False(t, second.HasMore)

	seen := map[snowflake.ID]bool{}
	for _, p := range append(first.Projects, second.Projects...) {
		assert.False(t, seen[p.ID], "project %s returned twice", p.ID)
		seen[p.ID] = true
	}
}

func TestDeleteProjectCascadesToGenerationRecords(t *testing.T) {
	db, svc, node := setupProjectTest(t)
	owner := node.Generate()

	project, err := svc.Create(context.Background(), projectdomain.CreateProjectRequest{
		OwnerID:     owner.String(),
		Title:       "Posts",
		ContentType: "blog",
	})
	require.NoError(t, err)

	record := &generationdomain.GenerationRecord{
		ID:        node.Generate(),
		ProjectID: project.ID,
		OwnerID:   owner,
		Prompt:    "write",
		ModelID:   "df-standard",
		State:     generationdomain.StatePresented,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, db.Create(record).Error)

	require.NoError(t, svc.Delete(context.Background(), project.ID))

	var projects, records int64
	require.NoError(t, db.Model(&projectdomain.Project{}).Count(&projects).Error)
	require.NoError(t, db.Model(&generationdomain.GenerationRecord{}).Count(&records).Error)
	assert.Equal(t, int64(0), projects)
	assert.Equal(t, int64(0), records)
}

func TestDeleteUnknownProject(t *testing.T) {
	_, svc, node := setupProjectTest(t)
	err := svc.Delete(context.Background(), node.Generate())
	assert.ErrorIs(t, err, projectdomain.ErrProjectNotFound)
}

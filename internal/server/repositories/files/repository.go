package files

import (
	"context"

	"github.com/dmitrijs2005/filesmanager/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, f *models.NewFile) (*models.File, error)
	GetByID(ctx context.Context, id int64) (*models.File, error)
	GetByIDAndUser(ctx context.Context, id, userID int64) (*models.File, error)
	ListByParent(ctx context.Context, userID, parentID int64, limit, offset int) ([]*models.File, error)
	SetPublic(ctx context.Context, id, userID int64, isPublic bool) (*models.File, error)
	Count(ctx context.Context) (int64, error)
}

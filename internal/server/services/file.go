package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"mime"
	"path/filepath"
	"strconv"

	"github.com/dmitrijs2005/filesmanager/internal/common"
	"github.com/dmitrijs2005/filesmanager/internal/logging"
	"github.com/dmitrijs2005/filesmanager/internal/server/access"
	"github.com/dmitrijs2005/filesmanager/internal/server/blobs"
	"github.com/dmitrijs2005/filesmanager/internal/server/models"
	"github.com/dmitrijs2005/filesmanager/internal/server/repositories/repomanager"
)

const defaultContentType = "application/octet-stream"

// ThumbnailQueue accepts thumbnail jobs for newly stored images.
type ThumbnailQueue interface {
	Enqueue(ctx context.Context, fileID, userID int64) error
}

// CreateFileInput is an upload request. ParentID 0 means the root and
// IsPublic defaults to false. Data is base64 and ignored for folders.
type CreateFileInput struct {
	Name     string
	Type     string
	ParentID int64
	IsPublic bool
	Data     string
}

// Content is a blob ready to be served.
type Content struct {
	Data        []byte
	ContentType string
}

// FileService maintains the file catalog and coordinates blob storage and
// thumbnail generation.
type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       blobs.Store
	thumbnails  ThumbnailQueue
	logger      logging.Logger
}

func NewFileService(db *sql.DB, m repomanager.RepositoryManager, b blobs.Store, q ThumbnailQueue, l logging.Logger) *FileService {
	return &FileService{
		db:          db,
		repomanager: m,
		blobs:       b,
		thumbnails:  q,
		logger:      l.With("module", "file_service"),
	}
}

// Create validates and stores a folder, file or image owned by ownerID.
//
// Checks run in order name, type, data, parent and the first failure is
// returned before anything is written. The payload is written to the blob
// store before the record is inserted; if the insert fails the blob stays
// behind. For images a thumbnail job is queued; when that fails the created
// record is returned together with common.ErrEnqueueFailed.
func (s *FileService) Create(ctx context.Context, ownerID int64, in CreateFileInput) (*models.File, error) {
	if in.Name == "" {
		return nil, common.ErrMissingName
	}
	typ, ok := models.ParseFileType(in.Type)
	if !ok {
		return nil, common.ErrMissingType
	}
	if typ.HasPayload() && in.Data == "" {
		return nil, common.ErrMissingData
	}

	repo := s.repomanager.Files(s.db)

	if in.ParentID != common.RootParentID {
		parent, err := repo.GetByID(ctx, in.ParentID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, common.ErrParentNotFound
			}
			return nil, s.internal(ctx, "error loading parent", err)
		}
		if parent.Type != models.FileTypeFolder {
			return nil, common.ErrParentNotAFolder
		}
	}

	nf := &models.NewFile{
		UserID:   ownerID,
		Name:     in.Name,
		Type:     typ,
		ParentID: in.ParentID,
		IsPublic: in.IsPublic,
	}

	if typ.HasPayload() {
		path, err := s.blobs.Write(ctx, in.Data)
		if err != nil {
			return nil, s.internal(ctx, "error writing blob", err)
		}
		nf.LocalPath = path
	}

	f, err := repo.Create(ctx, nf)
	if err != nil {
		return nil, s.internal(ctx, "error inserting file record", err, "local_path", nf.LocalPath)
	}

	if f.Type == models.FileTypeImage {
		if err := s.thumbnails.Enqueue(ctx, f.ID, ownerID); err != nil {
			s.logger.Warn(ctx, "thumbnail job not queued", "file_id", f.ID, "error", err)
			return f, fmt.Errorf("%w: %v", common.ErrEnqueueFailed, err)
		}
	}

	return f, nil
}

// Get returns a record visible to the caller. Missing records and records
// the caller may not read are both reported as common.ErrorNotFound.
func (s *FileService) Get(ctx context.Context, id, callerID int64, hasCaller bool) (*models.File, error) {
	f, err := s.repomanager.Files(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, s.internal(ctx, "error loading file", err)
	}
	if !access.AuthorizeRead(f, callerID, hasCaller) {
		return nil, common.ErrorNotFound
	}
	return f, nil
}

// List returns page (zero-based) of ownerID's records under parentID in
// insertion order. An unknown parent or a parent that is not a folder gives
// an empty page.
func (s *FileService) List(ctx context.Context, ownerID, parentID int64, page int) ([]*models.File, error) {
	if page < 0 {
		page = 0
	}
	// no page this far out can hold records
	if page > math.MaxInt/common.PageSize {
		return []*models.File{}, nil
	}
	repo := s.repomanager.Files(s.db)

	if parentID != common.RootParentID {
		parent, err := repo.GetByID(ctx, parentID)
		if errors.Is(err, common.ErrorNotFound) {
			return []*models.File{}, nil
		}
		if err != nil {
			return nil, s.internal(ctx, "error loading parent", err)
		}
		if parent.Type != models.FileTypeFolder {
			return []*models.File{}, nil
		}
	}

	files, err := repo.ListByParent(ctx, ownerID, parentID, common.PageSize, page*common.PageSize)
	if err != nil {
		return nil, s.internal(ctx, "error listing files", err)
	}
	return files, nil
}

// SetVisibility sets is_public on a record owned by callerID and returns the
// updated record.
func (s *FileService) SetVisibility(ctx context.Context, id, callerID int64, isPublic bool) (*models.File, error) {
	repo := s.repomanager.Files(s.db)

	f, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, s.internal(ctx, "error loading file", err)
	}
	if !access.AuthorizeWrite(f, callerID) {
		return nil, common.ErrorNotFound
	}

	updated, err := repo.SetPublic(ctx, id, callerID, isPublic)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, s.internal(ctx, "error updating file", err)
	}
	return updated, nil
}

// GetContent returns the payload of a readable record. For images size may
// name a thumbnail width; it is ignored for other types. A variant that has
// not been generated yet is common.ErrorNotFound.
func (s *FileService) GetContent(ctx context.Context, id, callerID int64, hasCaller bool, size string) (*Content, error) {
	f, err := s.Get(ctx, id, callerID, hasCaller)
	if err != nil {
		return nil, err
	}
	if f.Type == models.FileTypeFolder {
		return nil, common.ErrFolderHasNoContent
	}

	path := f.LocalPath
	if f.Type == models.FileTypeImage && size != "" {
		n, err := strconv.Atoi(size)
		if err != nil || !blobs.ValidSize(n) {
			return nil, common.ErrWrongImageSize
		}
		path = blobs.VariantPath(path, n)
	}

	data, err := s.blobs.Read(ctx, path)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, s.internal(ctx, "error reading blob", err)
	}

	return &Content{Data: data, ContentType: contentTypeOf(f.Name)}, nil
}

func contentTypeOf(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return defaultContentType
}

func (s *FileService) internal(ctx context.Context, msg string, err error, args ...any) error {
	s.logger.Error(ctx, msg, append([]any{"error", err}, args...)...)
	return common.ErrorInternal
}

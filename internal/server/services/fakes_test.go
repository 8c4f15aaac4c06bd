package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/filesmanager/internal/common"
	"github.com/dmitrijs2005/filesmanager/internal/dbx"
	"github.com/dmitrijs2005/filesmanager/internal/logging"
	"github.com/dmitrijs2005/filesmanager/internal/server/models"
	filesrepo "github.com/dmitrijs2005/filesmanager/internal/server/repositories/files"
	usersrepo "github.com/dmitrijs2005/filesmanager/internal/server/repositories/users"
)

var errBoom = errors.New("boom")

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// --- users ---

type fakeUsersRepo struct {
	mu        sync.Mutex
	byID      map[int64]*models.User
	nextID    int64
	getErr    error
	createErr error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byID: map[int64]*models.User{}}
}

func (r *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	r.nextID++
	u.ID = r.nextID
	cp := *u
	r.byID[u.ID] = &cp
	return u, nil
}

func (r *fakeUsersRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	for _, u := range r.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUsersRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUsersRepo) Count(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return 0, r.getErr
	}
	return int64(len(r.byID)), nil
}

// --- files ---

type fakeFilesRepo struct {
	mu        sync.Mutex
	byID      map[int64]*models.File
	nextID    int64
	getErr    error
	createErr error
	listErr   error
	offsets   []int
}

func newFakeFilesRepo() *fakeFilesRepo {
	return &fakeFilesRepo{byID: map[int64]*models.File{}}
}

func (r *fakeFilesRepo) Create(_ context.Context, nf *models.NewFile) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.nextID++
	f := &models.File{
		ID:        r.nextID,
		UserID:    nf.UserID,
		Name:      nf.Name,
		Type:      nf.Type,
		ParentID:  nf.ParentID,
		IsPublic:  nf.IsPublic,
		LocalPath: nf.LocalPath,
	}
	r.byID[f.ID] = f
	cp := *f
	return &cp, nil
}

func (r *fakeFilesRepo) get(id int64) (*models.File, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	f, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *fakeFilesRepo) GetByID(_ context.Context, id int64) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(id)
}

func (r *fakeFilesRepo) GetByIDAndUser(_ context.Context, id, userID int64) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := r.get(id)
	if err != nil {
		return nil, err
	}
	if f.UserID != userID {
		return nil, common.ErrorNotFound
	}
	return f, nil
}

func (r *fakeFilesRepo) ListByParent(_ context.Context, userID, parentID int64, limit, offset int) ([]*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offsets = append(r.offsets, offset)
	if r.listErr != nil {
		return nil, r.listErr
	}
	var all []*models.File
	for _, f := range r.byID {
		if f.UserID == userID && f.ParentID == parentID {
			cp := *f
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	out := []*models.File{}
	for i := offset; i < len(all) && i < offset+limit; i++ {
		out = append(out, all[i])
	}
	return out, nil
}

func (r *fakeFilesRepo) SetPublic(_ context.Context, id, userID int64, isPublic bool) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byID[id]
	if !ok || f.UserID != userID {
		return nil, common.ErrorNotFound
	}
	f.IsPublic = isPublic
	cp := *f
	return &cp, nil
}

func (r *fakeFilesRepo) Count(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return 0, r.getErr
	}
	return int64(len(r.byID)), nil
}

// --- repository manager ---

type fakeRepoManager struct {
	users *fakeUsersRepo
	files *fakeFilesRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{users: newFakeUsersRepo(), files: newFakeFilesRepo()}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository          { return m.users }
func (m *fakeRepoManager) Files(dbx.DBTX) filesrepo.Repository          { return m.files }

// --- sessions ---

type fakeSessions struct {
	mu       sync.Mutex
	tokens   map[string]int64
	n        int
	issueErr error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{tokens: map[string]int64{}}
}

func (s *fakeSessions) Issue(_ context.Context, userID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.issueErr != nil {
		return "", s.issueErr
	}
	s.n++
	token := "tok-" + strconv.Itoa(s.n)
	s.tokens[token] = userID
	return token, nil
}

func (s *fakeSessions) Validate(_ context.Context, token string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.tokens[token]
	return id, ok, nil
}

func (s *fakeSessions) Revoke(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

// --- blobs ---

type fakeBlobs struct {
	mu       sync.Mutex
	data     map[string][]byte
	n        int
	writeErr error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{data: map[string][]byte{}}
}

func (b *fakeBlobs) Write(_ context.Context, raw string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.writeErr != nil {
		return "", b.writeErr
	}
	b.n++
	p := fmt.Sprintf("/blobs/%d", b.n)
	b.data[p] = []byte(raw)
	return p, nil
}

func (b *fakeBlobs) WriteAt(_ context.Context, path string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[path] = data
	return nil
}

func (b *fakeBlobs) Read(_ context.Context, path string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.data[path]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return d, nil
}

// --- thumbnail queue ---

type enqueued struct{ fileID, userID int64 }

type fakeQueue struct {
	mu   sync.Mutex
	jobs []enqueued
	err  error
}

func (q *fakeQueue) Enqueue(_ context.Context, fileID, userID int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, enqueued{fileID, userID})
	return nil
}

func newUser(email string) *models.User { return &models.User{Email: email} }

func nopLogger() logging.Logger { return logging.NewNopLogger() }

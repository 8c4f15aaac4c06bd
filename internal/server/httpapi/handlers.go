package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/filesmanager/internal/common"
	"github.com/dmitrijs2005/filesmanager/internal/server/models"
	"github.com/dmitrijs2005/filesmanager/internal/server/services"
	"github.com/gin-gonic/gin"
)

type userRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

type fileRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	ParentID int64  `json:"parentId"`
	IsPublic bool   `json:"isPublic"`
	Data     string `json:"data"`
}

type fileResponse struct {
	ID       int64  `json:"id"`
	UserID   int64  `json:"userId"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	IsPublic bool   `json:"isPublic"`
	ParentID int64  `json:"parentId"`
}

func toFileResponse(f *models.File) fileResponse {
	return fileResponse{
		ID:       f.ID,
		UserID:   f.UserID,
		Name:     f.Name,
		Type:     string(f.Type),
		IsPublic: f.IsPublic,
		ParentID: f.ParentID,
	}
}

func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.app.Status(c.Request.Context()))
}

func (s *Server) getStats(c *gin.Context) {
	st, err := s.app.Stats(c.Request.Context())
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) postUser(c *gin.Context) {
	var req userRequest
	if err := bindJSON(c, &req); err != nil {
		s.abortWithError(c, err)
		return
	}

	u, err := s.users.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, userResponse{ID: u.ID, Email: u.Email})
}

func (s *Server) getMe(c *gin.Context) {
	id, _ := callerOf(c)
	u, err := s.users.WhoAmI(c.Request.Context(), id)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, userResponse{ID: u.ID, Email: u.Email})
}

func (s *Server) getConnect(c *gin.Context) {
	token, err := s.users.Login(c.Request.Context(), c.GetHeader("Authorization"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (s *Server) getDisconnect(c *gin.Context) {
	token := tokenOf(c)
	if token == "" {
		s.abortWithError(c, common.ErrorUnauthorized)
		return
	}
	if err := s.users.Logout(c.Request.Context(), token); err != nil {
		s.abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) postFile(c *gin.Context) {
	owner, _ := callerOf(c)

	var req fileRequest
	if err := bindJSON(c, &req); err != nil {
		s.abortWithError(c, err)
		return
	}

	f, err := s.files.Create(c.Request.Context(), owner, services.CreateFileInput{
		Name:     req.Name,
		Type:     req.Type,
		ParentID: req.ParentID,
		IsPublic: req.IsPublic,
		Data:     req.Data,
	})
	if err != nil && !errors.Is(err, common.ErrEnqueueFailed) {
		s.abortWithError(c, err)
		return
	}
	if err != nil {
		s.logger.Warn(c.Request.Context(), "file stored without thumbnail job", "file_id", f.ID, "error", err)
	}
	c.JSON(http.StatusCreated, toFileResponse(f))
}

func (s *Server) getFile(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		s.abortWithError(c, common.ErrorNotFound)
		return
	}
	caller, hasCaller := callerOf(c)

	f, err := s.files.Get(c.Request.Context(), id, caller, hasCaller)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFileResponse(f))
}

func (s *Server) listFiles(c *gin.Context) {
	owner, _ := callerOf(c)

	// unparsable values behave like unknown ones
	parentID, err := strconv.ParseInt(c.DefaultQuery("parentId", "0"), 10, 64)
	if err != nil {
		c.JSON(http.StatusOK, []fileResponse{})
		return
	}
	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil {
		page = 0
	}

	files, err := s.files.List(c.Request.Context(), owner, parentID, page)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	out := make([]fileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, toFileResponse(f))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) setVisibility(isPublic bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			s.abortWithError(c, common.ErrorNotFound)
			return
		}
		caller, _ := callerOf(c)

		f, err := s.files.SetVisibility(c.Request.Context(), id, caller, isPublic)
		if err != nil {
			s.abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, toFileResponse(f))
	}
}

func (s *Server) getFileData(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		s.abortWithError(c, common.ErrorNotFound)
		return
	}
	caller, hasCaller := callerOf(c)

	content, err := s.files.GetContent(c.Request.Context(), id, caller, hasCaller, c.Query("size"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, content.ContentType, content.Data)
}

// bindJSON decodes the request body into v. A body that is not JSON leaves v
// empty so the field checks report what is missing. A field holding a value
// of the wrong JSON type is a validation error.
func bindJSON(c *gin.Context, v any) error {
	err := c.ShouldBindJSON(v)
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Errorf("%w: field %s must be %s", common.ErrorValidation, typeErr.Field, typeErr.Type)
	}
	return nil
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

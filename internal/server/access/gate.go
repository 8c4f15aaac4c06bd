// Package access resolves request identity and decides ownership and
// visibility of catalog records.
package access

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/filesmanager/internal/common"
	"github.com/dmitrijs2005/filesmanager/internal/server/models"
)

// TokenValidator resolves session tokens.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (int64, bool, error)
}

type Gate struct {
	sessions TokenValidator
}

func NewGate(sessions TokenValidator) *Gate {
	return &Gate{sessions: sessions}
}

// Authenticate returns the user id behind token. Missing, malformed and
// unknown tokens yield common.ErrorUnauthorized.
func (g *Gate) Authenticate(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, common.ErrorUnauthorized
	}
	id, ok, err := g.sessions.Validate(ctx, token)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	if !ok {
		return 0, common.ErrorUnauthorized
	}
	return id, nil
}

// AuthorizeRead grants owners and, for public records, everyone.
func AuthorizeRead(f *models.File, callerID int64, hasCaller bool) bool {
	if f.IsPublic {
		return true
	}
	return hasCaller && callerID == f.UserID
}

// AuthorizeWrite grants the owner only.
func AuthorizeWrite(f *models.File, callerID int64) bool {
	return callerID == f.UserID
}

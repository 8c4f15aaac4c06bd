// Package common contains shared constants and sentinel errors used across
// filesmanager components.
package common

const (
	// TokenHeaderName is the HTTP header that carries the session token.
	TokenHeaderName = "X-Token"

	// RootParentID is the parent id of records stored at the top level.
	RootParentID int64 = 0

	// PageSize is the fixed number of records returned per listing page.
	PageSize = 20
)

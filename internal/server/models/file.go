// Package models defines server-side data models persisted in the database.
package models

import "time"

// FileType is the kind of a catalog record.
type FileType string

const (
	FileTypeFolder FileType = "folder"
	FileTypeFile   FileType = "file"
	FileTypeImage  FileType = "image"
)

// ParseFileType returns the FileType named by s and whether it is known.
func ParseFileType(s string) (FileType, bool) {
	switch t := FileType(s); t {
	case FileTypeFolder, FileTypeFile, FileTypeImage:
		return t, true
	default:
		return "", false
	}
}

// HasPayload reports whether records of this type own a blob.
func (t FileType) HasPayload() bool {
	return t == FileTypeFile || t == FileTypeImage
}

// File is the metadata of a folder, file or image.
type File struct {
	ID       int64
	UserID   int64
	Name     string
	Type     FileType
	ParentID int64
	IsPublic bool
	// LocalPath is the blob location; empty for folders.
	LocalPath string
	CreatedAt time.Time
}

// NewFile describes a record to be inserted. Zero values of ParentID and
// IsPublic are the documented defaults (root, private).
type NewFile struct {
	UserID    int64
	Name      string
	Type      FileType
	ParentID  int64
	IsPublic  bool
	LocalPath string
}

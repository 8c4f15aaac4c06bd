// Package blobs persists raw file payloads and their resized image variants.
//
// Two backends are provided: LocalStore writes under a directory on disk and
// S3Store writes to an S3-compatible bucket. Both name originals by a random
// uuid under the configured root, so a location is owned by exactly one
// catalog record, and place variants next to the original as
// "<location>_<width>".
package blobs

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/filesmanager/internal/common"
)

// VariantSizes lists the thumbnail widths produced for images, largest first.
var VariantSizes = []int{500, 250, 100}

// Store is the blob persistence contract shared by the API and the worker.
type Store interface {
	// Write decodes a base64 payload, stores it under a fresh name and
	// returns its location.
	Write(ctx context.Context, rawBase64 string) (string, error)
	// WriteAt stores data at an explicit location, replacing any content.
	WriteAt(ctx context.Context, path string, data []byte) error
	// Read returns the bytes at path or common.ErrorNotFound.
	Read(ctx context.Context, path string) ([]byte, error)
}

// VariantPath names the variant of the blob at localPath for the given width.
func VariantPath(localPath string, size int) string {
	return localPath + "_" + strconv.Itoa(size)
}

// ValidSize reports whether size is one of VariantSizes.
func ValidSize(size int) bool {
	for _, s := range VariantSizes {
		if s == size {
			return true
		}
	}
	return false
}

// decode accepts padded and unpadded standard base64.
func decode(rawBase64 string) ([]byte, error) {
	data, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(strings.TrimSpace(rawBase64), "="))
	if err != nil {
		return nil, fmt.Errorf("%w: decode payload: %v", common.ErrorInternal, err)
	}
	return data, nil
}

package storage

import (
	"context"
	"errors"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	errKeyRequired  = errors.New("storage key is required")
)

// ObjectStore receives archived import files
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
}

// ImportArchive files uploaded import sheets under a dated key
type ImportArchive struct {
	store  ObjectStore
	prefix string
	now    func() time.Time
}

// NewImportArchive creates an archive writing to store under prefix
func NewImportArchive(store ObjectStore, prefix string) *ImportArchive {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &ImportArchive{
		store:  store,
		prefix: prefix,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Archive stores data and returns its key, e.g. imports/2024/03/01/<uuid>-batches.csv
func (a *ImportArchive) Archive(ctx context.Context, filename string, data []byte) (string, error) {
	key := a.prefix + a.now().Format("2006/01/02") + "/" + uuid.NewString() + "-" + safeName(filename)
	if err := a.store.Upload(ctx, key, data, contentTypeFor(filename)); err != nil {
		return "", err
	}
	return key, nil
}

func safeName(filename string) string {
	name := unsafeNameChars.ReplaceAllString(path.Base(strings.ReplaceAll(filename, "\\", "/")), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "upload.csv"
	}
	return name
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".csv", "":
		return "text/csv"
	}
	return "application/octet-stream"
}

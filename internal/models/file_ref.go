package models

import (
	"database/sql/driver"
	"errors"
	"strings"
)

// FileRefKind tags the FileRef variant.
type FileRefKind string

const (
	FileRefUnset   FileRefKind = ""
	FileRefPending FileRefKind = "pending"
	FileRefStored  FileRefKind = "stored"
)

// ErrPendingFileRef is returned when a pending upload reaches persistence.
var ErrPendingFileRef = errors.New("pending file reference cannot be persisted")

// FileRef points at a document attached to an artifact. A pending ref carries
// the handle of a staged upload; it must be committed to a stored ref before
// the owning artifact is saved.
type FileRef struct {
	Kind        FileRefKind `json:"kind"`
	Handle      string      `json:"handle,omitempty"`
	Key         string      `json:"key,omitempty"`
	Name        string      `json:"name,omitempty"`
	ContentType string      `json:"contentType,omitempty"`
	Size        int64       `json:"size,omitempty"`
}

// PendingFile builds a pending ref.
func PendingFile(handle string) FileRef {
	return FileRef{Kind: FileRefPending, Handle: handle}
}

// StoredFile builds a stored ref.
func StoredFile(key, name, contentType string, size int64) FileRef {
	return FileRef{Kind: FileRefStored, Key: key, Name: name, ContentType: contentType, Size: size}
}

// IsUnset reports whether no file is attached.
func (f FileRef) IsUnset() bool { return f.Kind == FileRefUnset }

// IsPending reports whether the ref is a staged upload.
func (f FileRef) IsPending() bool { return f.Kind == FileRefPending }

// IsStored reports whether the ref points at a persisted file.
func (f FileRef) IsStored() bool { return f.Kind == FileRefStored }

// Normalize infers the kind for refs sent without one and drops fields that
// do not belong to the variant.
func (f FileRef) Normalize() FileRef {
	kind := f.Kind
	if kind == FileRefUnset {
		switch {
		case strings.TrimSpace(f.Handle) != "":
			kind = FileRefPending
		case strings.TrimSpace(f.Key) != "":
			kind = FileRefStored
		}
	}
	switch kind {
	case FileRefPending:
		return PendingFile(strings.TrimSpace(f.Handle))
	case FileRefStored:
		return StoredFile(strings.TrimSpace(f.Key), f.Name, f.ContentType, f.Size)
	default:
		return FileRef{}
	}
}

// Value stores stored refs as JSONB and unset refs as NULL.
func (f FileRef) Value() (driver.Value, error) {
	switch f.Kind {
	case FileRefUnset:
		return nil, nil
	case FileRefPending:
		return nil, ErrPendingFileRef
	default:
		return valueJSON(f, "file ref")
	}
}

// Scan reads a JSONB column; NULL becomes an unset ref.
func (f *FileRef) Scan(src interface{}) error {
	*f = FileRef{}
	return scanJSON(src, f, "file ref")
}

// FileRefs is an ordered list of stored refs persisted as a JSONB array.
type FileRefs []FileRef

// Value marshals the list; pending entries are rejected.
func (fs FileRefs) Value() (driver.Value, error) {
	out := make([]FileRef, 0, len(fs))
	for _, f := range fs {
		if f.IsPending() {
			return nil, ErrPendingFileRef
		}
		if f.IsUnset() {
			continue
		}
		out = append(out, f)
	}
	return valueJSON(out, "file refs")
}

// Scan reads a JSONB array.
func (fs *FileRefs) Scan(src interface{}) error {
	*fs = FileRefs{}
	return scanJSON(src, fs, "file refs")
}

// Keys returns the storage keys of stored entries.
func (fs FileRefs) Keys() []string {
	keys := make([]string, 0, len(fs))
	for _, f := range fs {
		if f.IsStored() {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

package capi

import "context"

// Metadata mirrors the ABI's `fileset_get_metadata` output view
// (spec.md §3/§6): the singleton fileset_meta row.
type Metadata struct {
	Name          string
	Description   string
	Notes         string
	Status        string
	SchemaVersion int
}

// GetMetadata implements `fileset_get_metadata`.
func GetMetadata(dbPath string) (Metadata, Status) {
	s, err := openStore(dbPath)
	if err != nil {
		return Metadata{}, statusFor(err)
	}
	m, err := s.GetMetadata(context.Background())
	if err != nil {
		return Metadata{}, statusFor(err)
	}
	return Metadata{
		Name:          m.Name,
		Description:   m.Description,
		Notes:         m.Notes,
		Status:        m.Status,
		SchemaVersion: m.SchemaVersion,
	}, StatusOk
}

// SetMetadata implements `fileset_set_metadata`.
func SetMetadata(dbPath, name, description, notes, status string) Status {
	s, err := openStore(dbPath)
	if err != nil {
		return statusFor(err)
	}
	if err := s.SetMetadata(context.Background(), name, description, notes, status); err != nil {
		return statusFor(err)
	}
	return StatusOk
}

// DeleteFileByPath implements `fileset_delete_file_by_path`.
func DeleteFileByPath(dbPath, path string) Status {
	if path == "" {
		return StatusInvalidArgument
	}
	s, err := openStore(dbPath)
	if err != nil {
		return statusFor(err)
	}
	if err := s.DeleteFileByPath(context.Background(), path); err != nil {
		return statusFor(err)
	}
	return StatusOk
}

package echocommand

import (
	"github.com/himanishpuri/EchoCommand/pkg/echocommand/storage"
)

// storageAdapter adapts the storage.DBClient to implement the Storage interface.
type storageAdapter struct {
	db *storage.DBClient
}

// NewSQLiteStorage creates a new SQLite clip registry.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return &storageAdapter{db: db}, nil
}

func (s *storageAdapter) RegisterClip(clip StoredClip) error {
	return s.db.RegisterClip(storage.Clip{
		ID:               clip.ID,
		FileName:         clip.FileName,
		Path:             clip.Path,
		URL:              clip.URL,
		Kind:             string(clip.Kind),
		Format:           clip.Format,
		SizeBytes:        clip.SizeBytes,
		DurationMs:       clip.DurationMs,
		InstructionIndex: clip.InstructionIndex,
		Sources:          clip.Sources,
		CreatedAt:        clip.CreatedAt,
	})
}

func (s *storageAdapter) GetClip(id string) (*StoredClip, error) {
	row, err := s.db.GetClip(id)
	if err != nil {
		return nil, err
	}
	clip := fromRow(*row)
	return &clip, nil
}

func (s *storageAdapter) ListClips() ([]StoredClip, error) {
	rows, err := s.db.ListClips()
	if err != nil {
		return nil, err
	}
	clips := make([]StoredClip, len(rows))
	for i, row := range rows {
		clips[i] = fromRow(row)
	}
	return clips, nil
}

func (s *storageAdapter) CountClips() (int64, error) {
	return s.db.CountClips()
}

func (s *storageAdapter) Close() error {
	return s.db.Close()
}

func fromRow(row storage.Clip) StoredClip {
	return StoredClip{
		ID:               row.ID,
		FileName:         row.FileName,
		Path:             row.Path,
		URL:              row.URL,
		Kind:             ClipKind(row.Kind),
		Format:           row.Format,
		SizeBytes:        row.SizeBytes,
		DurationMs:       row.DurationMs,
		InstructionIndex: row.InstructionIndex,
		Sources:          row.Sources,
		CreatedAt:        row.CreatedAt,
	}
}

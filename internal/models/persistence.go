package models

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const sessionFile = "session.yaml"

// DefaultSaveDir is used when no save directory is configured.
const DefaultSaveDir = ".saves"

// Save writes a snapshot of the session to <dir>/<id>/session.yaml.
func (s *Session) Save(dir string) error {
	sessionDir := filepath.Join(dir, s.ID)
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(sessionDir, sessionFile), data, 0644)
}

// LoadSession reads a snapshot previously written by Save.
func LoadSession(dir, id string) (*Session, error) {
	data, err := os.ReadFile(filepath.Join(dir, id, sessionFile))
	if err != nil {
		return nil, err
	}

	var session Session
	if err := yaml.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	if session.ID == "" {
		return nil, errors.New("snapshot has no session id")
	}
	return &session, nil
}

// ListSessions returns the ids of all saved snapshots in dir.
func ListSessions(dir string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []string{}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var sessions []string
	for _, entry := range entries {
		if entry.IsDir() {
			if _, err := os.Stat(filepath.Join(dir, entry.Name(), sessionFile)); err == nil {
				sessions = append(sessions, entry.Name())
			}
		}
	}
	return sessions, nil
}

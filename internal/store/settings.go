package store

import (
	"encoding/json"

	"github.com/timshannon/badgerhold/v4"
)

// SettingsStore is the single global key/value row this system
// persists — today only GlobalDownloadBlacklistKey.
type SettingsStore struct {
	db *DB
}

func NewSettingsStore(db *DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// GlobalDownloadBlacklist returns the configured global blacklist, or
// an empty slice if the setting has never been written.
func (s *SettingsStore) GlobalDownloadBlacklist() ([]string, error) {
	var raw []string
	err := s.get(GlobalDownloadBlacklistKey, &raw)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return raw, nil
}

// SetGlobalDownloadBlacklist persists the global blacklist.
func (s *SettingsStore) SetGlobalDownloadBlacklist(patterns []string) error {
	return s.set(GlobalDownloadBlacklistKey, patterns)
}

func (s *SettingsStore) get(key string, out any) error {
	var row Settings
	if err := s.db.Store().Get(settingsRowKey(key), &row); err != nil {
		if err == badgerhold.ErrNotFound {
			return newError(ErrCauseNotFound, false, "setting %s", key)
		}
		return newError(ErrCauseQueryFailure, true, "get setting %s: %v", key, err)
	}
	if err := json.Unmarshal(row.Value, out); err != nil {
		return newError(ErrCauseSerialization, false, "decode setting %s: %v", key, err)
	}
	return nil
}

func (s *SettingsStore) set(key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return newError(ErrCauseSerialization, false, "encode setting %s: %v", key, err)
	}
	row := Settings{Key: settingsRowKey(key), Value: encoded}
	if err := s.db.Store().Upsert(row.Key, &row); err != nil {
		return newError(ErrCauseWriteFailure, false, "set setting %s: %v", key, err)
	}
	return nil
}

func settingsRowKey(key string) string {
	return settingsGlobalKey + ":" + key
}

func isNotFound(err error) bool {
	var se *StoreError
	if e, ok := err.(*StoreError); ok {
		se = e
	} else {
		return false
	}
	return se.Cause == ErrCauseNotFound
}

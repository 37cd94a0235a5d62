package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"cstats-bot/internal/domain"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
)

var fileJSON = jsoniter.Config{
	EscapeHTML:  false,
	SortMapKeys: true,
}.Froze()

// JSONFileRepository keeps every binding in one JSON object file keyed by chat
// user id. Each Put reads the file, replaces one entry and rewrites it through a
// temp file and rename. mu serializes that cycle inside this process only;
// another process writing the same file can still lose an update.
type JSONFileRepository struct {
	path   string
	mu     sync.Mutex
	logger zerolog.Logger
}

func NewJSONFileRepository(path string, logger zerolog.Logger) (*JSONFileRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	r := &JSONFileRepository{path: path, logger: logger}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := r.write(map[string]storedBinding{}); err != nil {
			return nil, err
		}
		logger.Info().Str("path", path).Msg("created empty binding file")
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat binding file: %w", err)
	}

	return r, nil
}

func (r *JSONFileRepository) Get(ctx context.Context, chatUserID string) (*domain.PlayerRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.read()
	if err != nil {
		return nil, err
	}
	b, ok := all[chatUserID]
	if !ok {
		return nil, ErrBindingNotFound
	}
	rec := b.record(chatUserID)
	return &rec, nil
}

func (r *JSONFileRepository) Put(ctx context.Context, record domain.PlayerRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.read()
	if err != nil {
		return err
	}
	all[record.ChatUserID] = toStored(record)

	if err := r.write(all); err != nil {
		r.logger.Error().Err(err).Str("chat_user_id", record.ChatUserID).Msg("failed to write binding file")
		return err
	}
	return nil
}

func (r *JSONFileRepository) List(ctx context.Context) ([]domain.PlayerRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.read()
	if err != nil {
		return nil, err
	}

	records := make([]domain.PlayerRecord, 0, len(all))
	for id, b := range all {
		records = append(records, b.record(id))
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ChatUserID < records[j].ChatUserID })
	return records, nil
}

func (r *JSONFileRepository) read() (map[string]storedBinding, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]storedBinding{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read binding file: %w", err)
	}

	all := map[string]storedBinding{}
	if len(data) == 0 {
		return all, nil
	}
	if err := fileJSON.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("failed to parse binding file %s: %w", r.path, err)
	}
	return all, nil
}

func (r *JSONFileRepository) write(all map[string]storedBinding) error {
	data, err := fileJSON.MarshalIndent(all, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode bindings: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("failed to replace binding file: %w", err)
	}
	return nil
}

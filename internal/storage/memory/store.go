// Package memory хранилище в памяти процесса с опциональным сохранением в JSON-файл.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/IT-Nick/testpoint/internal/domain/model"
	"github.com/IT-Nick/testpoint/internal/storage"
)

// Store in-memory реализация storage.Store.
// Транзакция работает с копией данных и при фиксации проверяет,
// что затронутые ею тесты не изменились с момента начала.
type Store struct {
	mu       sync.RWMutex
	data     *data
	filename string
}

var _ storage.Store = (*Store)(nil)

// New создает пустое хранилище в памяти
func New() *Store {
	return &Store{data: newData()}
}

// NewJSON создает хранилище, которое сохраняет данные в JSON-файл после каждой фиксации
func NewJSON(filename string) (*Store, error) {
	s := &Store{data: newData(), filename: filename}

	raw, err := os.ReadFile(filename)
	switch {
	case os.IsNotExist(err):
		if err := s.save(); err != nil {
			return nil, err
		}
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, s.data); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
		}
	}
	s.data.normalize()
	return s, nil
}

func (s *Store) save() error {
	if s.filename == "" {
		return nil
	}
	s.data.collectVersions()
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}
	if err := os.WriteFile(s.filename, raw, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", s.filename, err)
	}
	return nil
}

// RunInTx выполняет fn над копией данных и применяет изменения атомарно
func (s *Store) RunInTx(ctx context.Context, fn storage.TxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	t := &tx{view: s.data.clone(), seen: make(map[string]uint64)}
	s.mu.RUnlock()

	if err := fn(ctx, t); err != nil {
		return err
	}
	if len(t.ops) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for testID, rev := range t.seen {
		if s.data.revs[testID] != rev {
			return storage.ErrConflict
		}
	}
	for _, op := range t.ops {
		op(s.data)
	}
	return s.save()
}

// Close ничего не делает: данные уже сохранены
func (s *Store) Close() error {
	return nil
}

// AddGroup регистрирует группу
func (s *Store) AddGroup(_ context.Context, g model.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Groups[g.ID] = g
	return s.save()
}

// AddSession сохраняет сессию студента. Сессии создаются вне этого модуля.
func (s *Store) AddSession(_ context.Context, session model.TestSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.Tests[session.TestID]; !ok {
		return fmt.Errorf("failed to add session: test %s: %w", session.TestID, storage.ErrNotFound)
	}
	s.data.Sessions[session.ID] = session.Clone()
	s.data.bump(session.TestID)
	return s.save()
}

package repositories

import (
	"errors"

	"gorm.io/gorm"

	"projectwatch/internal/apperror"
)

// Entity is the capability set a model needs to be kept in a Store: a
// server-assigned primary key and a table to live in.
type Entity[T any] interface {
	*T
	PrimaryKey() uint
	TableName() string
}

// Patch merges the fields it carries into an existing record. Each model
// supplies its own, so absent fields are never guessed at.
type Patch[T any] interface {
	Apply(dst *T)
}

// Store is a generic GORM-backed create/read/update/delete layer for one
// model type. Every failure it returns is an *apperror.Error.
type Store[T any, PT Entity[T]] struct {
	db       *gorm.DB
	kind     string
	preloads []string
}

// NewStore creates a Store over db. kind names the entity in errors and logs;
// preloads are associations loaded on every read.
func NewStore[T any, PT Entity[T]](db *gorm.DB, kind string, preloads ...string) *Store[T, PT] {
	return &Store[T, PT]{db: db, kind: kind, preloads: preloads}
}

func (s *Store[T, PT]) query(db *gorm.DB) *gorm.DB {
	for _, p := range s.preloads {
		db = db.Preload(p)
	}
	return db
}

// Get fetches one record by primary key.
func (s *Store[T, PT]) Get(id uint) (*T, error) {
	return s.get(s.db, id)
}

func (s *Store[T, PT]) get(db *gorm.DB, id uint) (*T, error) {
	var entity T
	if err := s.query(db).First(&entity, id).Error; err != nil {
		return nil, s.fail("get", id, err)
	}
	return &entity, nil
}

// GetAll fetches every record ordered by primary key. No rows is not an error.
func (s *Store[T, PT]) GetAll() ([]T, error) {
	entities := make([]T, 0)
	if err := s.query(s.db).Order("id").Find(&entities).Error; err != nil {
		return nil, s.fail("get all", nil, err)
	}
	return entities, nil
}

// FindOne fetches the single record whose column field equals value.
func (s *Store[T, PT]) FindOne(field string, value any) (*T, error) {
	var entity T
	if err := s.query(s.db).Where(field+" = ?", value).First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFoundBy(s.kind, field, value)
		}
		return nil, s.fail("find by "+field, value, err)
	}
	return &entity, nil
}

// Exists reports whether any record matches field = value.
func (s *Store[T, PT]) Exists(field string, value any) (bool, error) {
	var count int64
	if err := s.db.Model(new(T)).Where(field+" = ?", value).Count(&count).Error; err != nil {
		return false, s.fail("exists by "+field, value, err)
	}
	return count > 0, nil
}

// Create inserts entity, with its associations, and returns it re-read so
// server-assigned fields are populated. The insert is rolled back on failure.
func (s *Store[T, PT]) Create(entity *T) (*T, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(entity).Error
	})
	if err != nil {
		return nil, s.fail("create", nil, err)
	}
	return s.Get(PT(entity).PrimaryKey())
}

// Update loads the record, applies patch, saves it and associations, and
// returns the refreshed state. Any failure rolls the change back.
func (s *Store[T, PT]) Update(id uint, patch Patch[T]) (*T, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		existing, err := s.get(tx, id)
		if err != nil {
			return err
		}
		patch.Apply(existing)
		return tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(existing).Error
	})
	if err != nil {
		return nil, s.fail("update", id, err)
	}
	return s.Get(id)
}

// Delete removes the record and returns what was removed. Dependent rows are
// removed by the database's cascading foreign keys.
func (s *Store[T, PT]) Delete(id uint) (*T, error) {
	var removed *T
	err := s.db.Transaction(func(tx *gorm.DB) error {
		existing, err := s.get(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(existing).Error; err != nil {
			return err
		}
		removed = existing
		return nil
	})
	if err != nil {
		return nil, s.fail("delete", id, err)
	}
	return removed, nil
}

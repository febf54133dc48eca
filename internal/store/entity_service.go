package store

import (
	"fmt"

	"gorm.io/gorm"
)

// Entity is the capability every persisted record type must expose: a
// storage-assigned integer identity. A zero key means "not yet created".
type Entity interface {
	PrimaryKey() uint
}

// Condition narrows a query to records matching an arbitrary predicate over
// the entity's fields, expressed as a GORM scope.
type Condition func(*gorm.DB) *gorm.DB

// EntityService 通用实体CRUD服务
//
// Every mutating operation commits immediately; there is no unit-of-work
// batching across calls. Reads return plain detached values that callers may
// mutate freely without affecting storage.
type EntityService[T Entity] struct {
	db *gorm.DB
}

// NewEntityService 创建通用实体服务
func NewEntityService[T Entity](db *gorm.DB) *EntityService[T] {
	return &EntityService[T]{db: db}
}

// Add inserts a new record and returns it carrying the identity assigned by
// storage. Returns ErrConflict on uniqueness violations and ErrForeignKey
// when a relation references a missing parent.
func (s *EntityService[T]) Add(entity *T) (*T, error) {
	if err := s.db.Create(entity).Error; err != nil {
		return nil, fmt.Errorf("add: %w", translate(err))
	}
	return entity, nil
}

// GetAll returns every record of the type, optionally eager-loading the named
// relations.
func (s *EntityService[T]) GetAll(includes ...string) ([]T, error) {
	var records []T
	query := s.db.Model(new(T))
	for _, include := range includes {
		query = query.Preload(include)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("get all: %w", translate(err))
	}
	return records, nil
}

// GetByCondition returns the records matching the condition, optionally
// eager-loading the named relations.
func (s *EntityService[T]) GetByCondition(cond Condition, includes ...string) ([]T, error) {
	var records []T
	query := s.db.Model(new(T)).Scopes(cond)
	for _, include := range includes {
		query = query.Preload(include)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("get by condition: %w", translate(err))
	}
	return records, nil
}

// GetByID returns the single record with that identity, or ErrNotFound.
func (s *EntityService[T]) GetByID(id uint) (*T, error) {
	var record T
	if err := s.db.First(&record, id).Error; err != nil {
		return nil, fmt.Errorf("get by id %d: %w", id, translate(err))
	}
	return &record, nil
}

// Update overwrites every non-key field of the stored record with the values
// from entity. Full-replace semantics: callers supply the complete desired
// state, partial objects are not merged. Returns ErrNotFound when the
// identity is unset or references no stored record.
func (s *EntityService[T]) Update(entity *T) error {
	id := (*entity).PrimaryKey()
	if id == 0 {
		return fmt.Errorf("update: identity not set: %w", ErrNotFound)
	}

	var existing T
	if err := s.db.First(&existing, id).Error; err != nil {
		return fmt.Errorf("update %d: %w", id, translate(err))
	}

	// Save with a populated primary key updates all fields of the row.
	if err := s.db.Save(entity).Error; err != nil {
		return fmt.Errorf("update %d: %w", id, translate(err))
	}
	return nil
}

// Delete removes the record with that identity. Hard delete; dependent rows
// go with it via the storage-level cascade rules. Returns ErrNotFound when
// no such record exists.
func (s *EntityService[T]) Delete(id uint) error {
	var existing T
	if err := s.db.First(&existing, id).Error; err != nil {
		return fmt.Errorf("delete %d: %w", id, translate(err))
	}
	if err := s.db.Delete(&existing).Error; err != nil {
		return fmt.Errorf("delete %d: %w", id, translate(err))
	}
	return nil
}

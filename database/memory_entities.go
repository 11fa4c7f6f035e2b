package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/siherrmann/memograph/helper"
	"github.com/siherrmann/memograph/model"
	loadSql "github.com/siherrmann/memograph/sql"
)

// MemoryEntitiesDBHandlerFunctions defines the interface for the
// memory-entity junction database operations.
type MemoryEntitiesDBHandlerFunctions interface {
	LinkMemoryToEntity(memoryID uuid.UUID, entityID uuid.UUID, role model.MemoryEntityRole) (bool, error)
	LinkMemoryToEntities(memoryID uuid.UUID, entityIDs []uuid.UUID, role model.MemoryEntityRole) (int, []model.SkippedItem, error)
	SelectEntitiesForMemory(memoryID uuid.UUID) ([]*model.Entity, error)
	SelectMemoriesForEntity(entityID uuid.UUID, limit int) ([]*model.Memory, error)
}

// MemoryEntitiesDBHandler handles the memory-entity junction database operations
type MemoryEntitiesDBHandler struct {
	db *helper.Database
}

// NewMemoryEntitiesDBHandler creates a new memory-entity junction database handler.
// It initializes the database connection and loads junction-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewMemoryEntitiesDBHandler(db *helper.Database, force bool) (*MemoryEntitiesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	memoryEntitiesDbHandler := &MemoryEntitiesDBHandler{
		db: db,
	}

	err := loadSql.LoadMemoryEntitiesSql(memoryEntitiesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load memory entities sql", err)
	}

	err = memoryEntitiesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized MemoryEntitiesDBHandler")

	return memoryEntitiesDbHandler, nil
}

// CreateTable creates the 'memory_entities' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *MemoryEntitiesDBHandler) CreateTable() error {
	_, err := h.db.Instance.Exec(`SELECT init_memory_entities();`)
	if err != nil {
		return helper.NewError("init memory entities table", err)
	}

	h.db.Logger.Info("Checked/created table memory_entities")

	return nil
}

// LinkMemoryToEntity records that a memory mentions an entity. Linking
// an already linked pair is a no-op that keeps the first recorded role.
// Returns whether a new link was created.
func (h *MemoryEntitiesDBHandler) LinkMemoryToEntity(memoryID uuid.UUID, entityID uuid.UUID, role model.MemoryEntityRole) (bool, error) {
	if !role.Valid() {
		return false, helper.NewValidationError("role", role)
	}

	junction := &model.MemoryEntity{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM link_memory_entity($1, $2, $3)`,
		memoryID,
		entityID,
		role,
	)

	err := row.Scan(
		&junction.ID,
		&junction.MemoryID,
		&junction.EntityID,
		&junction.Role,
		&junction.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		// Conflict arm, the pair was already linked.
		return false, nil
	}
	if err != nil {
		return false, notFoundOrScan(err, "memory or entity", memoryID.String()+" / "+entityID.String())
	}

	return true, nil
}

// LinkMemoryToEntities links a memory to several entities best-effort
// and returns the number of newly created links plus skipped entries
func (h *MemoryEntitiesDBHandler) LinkMemoryToEntities(memoryID uuid.UUID, entityIDs []uuid.UUID, role model.MemoryEntityRole) (int, []model.SkippedItem, error) {
	created := 0
	var skipped []model.SkippedItem
	for i, entityID := range entityIDs {
		isNew, err := h.LinkMemoryToEntity(memoryID, entityID, role)
		if err != nil {
			skipped = append(skipped, model.SkippedItem{Index: i, Reason: err.Error()})
			continue
		}
		if isNew {
			created++
		}
	}

	return created, skipped, nil
}

// SelectEntitiesForMemory retrieves the entities a memory mentions,
// most mentioned first
func (h *MemoryEntitiesDBHandler) SelectEntitiesForMemory(memoryID uuid.UUID) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_entities_for_memory($1)`,
		memoryID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanEntities(rows)
}

// SelectMemoriesForEntity retrieves the memories mentioning an entity,
// forgotten memories excluded, most recent first
func (h *MemoryEntitiesDBHandler) SelectMemoriesForEntity(entityID uuid.UUID, limit int) ([]*model.Memory, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_memories_for_entity($1, $2)`,
		entityID,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanMemories(rows)
}

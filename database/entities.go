package database

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/siherrmann/memograph/helper"
	"github.com/siherrmann/memograph/model"
	loadSql "github.com/siherrmann/memograph/sql"
)

// EntitiesDBHandlerFunctions defines the interface for Entities database operations.
type EntitiesDBHandlerFunctions interface {
	FindOrCreateEntity(entity *model.Entity) (bool, error)
	FindOrCreateEntityBatch(userID string, candidates []model.EntityCandidate, containerTags []string) ([]*model.FoundEntity, []model.SkippedItem, error)
	SelectEntity(id uuid.UUID) (*model.Entity, error)
	SelectEntityByName(userID string, name string) (*model.Entity, error)
	SearchEntities(userID string, searchTerm string, entityType *model.EntityType, limit int) ([]*model.Entity, error)
	SelectEntitiesByUser(userID string, entityType *model.EntityType, limit int) ([]*model.Entity, error)
	SelectTopEntities(userID string, limit int) ([]*model.Entity, error)
	EntityTypeStats(userID string) (map[model.EntityType]int, error)
	DeleteEntity(id uuid.UUID) error
}

// EntitiesDBHandler handles entity-related database operations
type EntitiesDBHandler struct {
	db *helper.Database
}

// NewEntitiesDBHandler creates a new entities database handler.
// It initializes the database connection and loads entity-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEntitiesDBHandler(db *helper.Database, force bool) (*EntitiesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	entitiesDbHandler := &EntitiesDBHandler{
		db: db,
	}

	err := loadSql.LoadEntitiesSql(entitiesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load entities sql", err)
	}

	err = entitiesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EntitiesDBHandler")

	return entitiesDbHandler, nil
}

// CreateTable creates the 'entities' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *EntitiesDBHandler) CreateTable() error {
	_, err := h.db.Instance.Exec(`SELECT init_entities();`)
	if err != nil {
		return helper.NewError("init entities table", err)
	}

	h.db.Logger.Info("Checked/created table entities")

	return nil
}

// FindOrCreateEntity resolves an entity by its normalized name, creating
// it when missing and incrementing the mention count when it already
// exists. The stored entity type is never changed on re-mention, the
// first classification wins. Returns whether the entity was created.
func (h *EntitiesDBHandler) FindOrCreateEntity(entity *model.Entity) (bool, error) {
	if len(entity.UserID) == 0 {
		return false, helper.NewValidationError("user id", entity.UserID)
	}
	if len(model.NormalizeEntityName(entity.Name)) == 0 {
		return false, helper.NewValidationError("name", entity.Name)
	}
	if !entity.Type.Valid() {
		return false, helper.NewValidationError("entity type", entity.Type)
	}

	entity.NormalizedName = model.NormalizeEntityName(entity.Name)

	row := h.db.Instance.QueryRow(
		`SELECT * FROM upsert_entity($1, $2, $3, $4, $5, $6)`,
		entity.UserID,
		entity.Name,
		entity.NormalizedName,
		entity.Type,
		entity.Attributes,
		pq.Array(entity.ContainerTags),
	)

	var isNew bool
	err := row.Scan(
		&entity.ID,
		&entity.UserID,
		&entity.Name,
		&entity.NormalizedName,
		&entity.Type,
		&entity.Attributes,
		&entity.MentionCount,
		pq.Array(&entity.ContainerTags),
		&entity.CreatedAt,
		&entity.UpdatedAt,
		&isNew,
	)
	if err != nil {
		return false, helper.NewError("scan", err)
	}

	return isNew, nil
}

// FindOrCreateEntityBatch resolves entity candidates best-effort:
// invalid candidates are skipped with a recorded reason and do not abort
// the batch.
func (h *EntitiesDBHandler) FindOrCreateEntityBatch(userID string, candidates []model.EntityCandidate, containerTags []string) ([]*model.FoundEntity, []model.SkippedItem, error) {
	var found []*model.FoundEntity
	var skipped []model.SkippedItem
	for i, candidate := range candidates {
		entity := &model.Entity{
			UserID:        userID,
			Name:          candidate.Name,
			Type:          candidate.Type,
			ContainerTags: containerTags,
		}
		isNew, err := h.FindOrCreateEntity(entity)
		if err != nil {
			skipped = append(skipped, model.SkippedItem{Index: i, Reason: err.Error()})
			continue
		}
		found = append(found, &model.FoundEntity{
			Name:  entity.Name,
			ID:    entity.ID,
			IsNew: isNew,
		})
	}

	return found, skipped, nil
}

// SelectEntity retrieves an entity by ID
func (h *EntitiesDBHandler) SelectEntity(id uuid.UUID) (*model.Entity, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_entity($1)`,
		id,
	)

	entity, err := scanEntity(row)
	if err != nil {
		return nil, notFoundOrScan(err, "entity", id.String())
	}

	return entity, nil
}

// SelectEntityByName retrieves an entity by name. The lookup normalizes
// the name, so case and spacing variants resolve to the same entity.
func (h *EntitiesDBHandler) SelectEntityByName(userID string, name string) (*model.Entity, error) {
	normalized := model.NormalizeEntityName(name)
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_entity_by_name($1, $2)`,
		userID,
		normalized,
	)

	entity, err := scanEntity(row)
	if err != nil {
		return nil, notFoundOrScan(err, "entity", name)
	}

	return entity, nil
}

// SearchEntities searches entities by a substring of the normalized
// name, optionally restricted to one type, most mentioned first
func (h *EntitiesDBHandler) SearchEntities(userID string, searchTerm string, entityType *model.EntityType, limit int) ([]*model.Entity, error) {
	if entityType != nil && !entityType.Valid() {
		return nil, helper.NewValidationError("entity type", *entityType)
	}

	rows, err := h.db.Instance.Query(
		`SELECT * FROM search_entities($1, $2, $3, $4)`,
		userID,
		searchTerm,
		entityType,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanEntities(rows)
}

// SelectEntitiesByUser retrieves the entities of a user, optionally
// restricted to one type, most mentioned first
func (h *EntitiesDBHandler) SelectEntitiesByUser(userID string, entityType *model.EntityType, limit int) ([]*model.Entity, error) {
	if entityType != nil && !entityType.Valid() {
		return nil, helper.NewValidationError("entity type", *entityType)
	}

	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_entities_by_user($1, $2, $3)`,
		userID,
		entityType,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanEntities(rows)
}

// SelectTopEntities retrieves the highest mention-count entities of a user
func (h *EntitiesDBHandler) SelectTopEntities(userID string, limit int) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_top_entities($1, $2)`,
		userID,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanEntities(rows)
}

// EntityTypeStats counts a user's entities per type
func (h *EntitiesDBHandler) EntityTypeStats(userID string) (map[model.EntityType]int, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM entity_type_stats($1)`,
		userID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	stats := map[model.EntityType]int{}
	for rows.Next() {
		var entityType model.EntityType
		var count int
		err := rows.Scan(&entityType, &count)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		stats[entityType] = count
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return stats, nil
}

// DeleteEntity deletes an entity by ID, cascading to its links
func (h *EntitiesDBHandler) DeleteEntity(id uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_entity($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

func scanEntity(row rowScanner) (*model.Entity, error) {
	entity := &model.Entity{}
	err := row.Scan(
		&entity.ID,
		&entity.UserID,
		&entity.Name,
		&entity.NormalizedName,
		&entity.Type,
		&entity.Attributes,
		&entity.MentionCount,
		pq.Array(&entity.ContainerTags),
		&entity.CreatedAt,
		&entity.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return entity, nil
}

func scanEntities(rows interface {
	rowScanner
	Next() bool
	Err() error
}) ([]*model.Entity, error) {
	var entities []*model.Entity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		entities = append(entities, entity)
	}

	err := rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entities, nil
}

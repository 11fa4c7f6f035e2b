package database

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/siherrmann/memograph/helper"
	"github.com/siherrmann/memograph/model"
	loadSql "github.com/siherrmann/memograph/sql"
)

// EntityLinksDBHandlerFunctions defines the interface for EntityLinks database operations.
type EntityLinksDBHandlerFunctions interface {
	CreateEntityLink(link *model.EntityLink) error
	SelectEntityRelationships(entityID uuid.UUID, direction model.RelationshipDirection) ([]*model.EntityRelationship, error)
	SelectEntityLinksAmong(userID string, entityIDs []uuid.UUID) ([]*model.EntityLink, error)
	RelationshipStats(userID string) (map[string]int, error)
	DeleteEntityLink(id uuid.UUID) error
}

// EntityLinksDBHandler handles entity-link-related database operations
type EntityLinksDBHandler struct {
	db *helper.Database
}

// NewEntityLinksDBHandler creates a new entity links database handler.
// It initializes the database connection and loads link-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEntityLinksDBHandler(db *helper.Database, force bool) (*EntityLinksDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	entityLinksDbHandler := &EntityLinksDBHandler{
		db: db,
	}

	err := loadSql.LoadEntityLinksSql(entityLinksDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load entity links sql", err)
	}

	err = entityLinksDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EntityLinksDBHandler")

	return entityLinksDbHandler, nil
}

// CreateTable creates the 'entity_links' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *EntityLinksDBHandler) CreateTable() error {
	_, err := h.db.Instance.Exec(`SELECT init_entity_links();`)
	if err != nil {
		return helper.NewError("init entity links table", err)
	}

	h.db.Logger.Info("Checked/created table entity_links")

	return nil
}

// CreateEntityLink creates a directed relationship between two entities.
// A link for the same (from, to, relationship) triple already existing
// is merged by keeping the maximum observed confidence. The source
// memory reference is informational and not validated.
func (h *EntityLinksDBHandler) CreateEntityLink(link *model.EntityLink) error {
	if len(link.UserID) == 0 {
		return helper.NewValidationError("user id", link.UserID)
	}
	if len(link.Relationship) == 0 {
		return helper.NewValidationError("relationship", link.Relationship)
	}
	if link.Confidence < 0 || link.Confidence > 1 {
		return helper.NewValidationError("confidence", link.Confidence)
	}
	if link.FromEntity == link.ToEntity {
		return helper.NewValidationError("to entity", "self-link")
	}

	row := h.db.Instance.QueryRow(
		`SELECT * FROM upsert_entity_link($1, $2, $3, $4, $5, $6)`,
		link.UserID,
		link.FromEntity,
		link.ToEntity,
		link.Relationship,
		link.Confidence,
		link.SourceMemory,
	)

	err := row.Scan(
		&link.ID,
		&link.UserID,
		&link.FromEntity,
		&link.ToEntity,
		&link.Relationship,
		&link.Confidence,
		&link.SourceMemory,
		&link.CreatedAt,
	)
	if err != nil {
		return notFoundOrScan(err, "entity", link.FromEntity.String()+" or "+link.ToEntity.String())
	}

	return nil
}

// SelectEntityRelationships retrieves the relationships of an entity in
// the requested direction, each resolved to the neighboring entity,
// highest confidence first
func (h *EntityLinksDBHandler) SelectEntityRelationships(entityID uuid.UUID, direction model.RelationshipDirection) ([]*model.EntityRelationship, error) {
	if direction != model.DirectionOutgoing && direction != model.DirectionIncoming && direction != model.DirectionBoth {
		return nil, helper.NewValidationError("direction", direction)
	}

	var relationships []*model.EntityRelationship

	if direction == model.DirectionOutgoing || direction == model.DirectionBoth {
		outgoing, err := h.selectRelationships(`SELECT * FROM select_entity_links_from($1)`, entityID, true)
		if err != nil {
			return nil, err
		}
		relationships = append(relationships, outgoing...)
	}

	if direction == model.DirectionIncoming || direction == model.DirectionBoth {
		incoming, err := h.selectRelationships(`SELECT * FROM select_entity_links_to($1)`, entityID, false)
		if err != nil {
			return nil, err
		}
		relationships = append(relationships, incoming...)
	}

	return relationships, nil
}

func (h *EntityLinksDBHandler) selectRelationships(query string, entityID uuid.UUID, outgoing bool) ([]*model.EntityRelationship, error) {
	rows, err := h.db.Instance.Query(query, entityID)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var relationships []*model.EntityRelationship
	for rows.Next() {
		link := &model.EntityLink{}
		neighbor := &model.Entity{}
		err := rows.Scan(
			&link.ID,
			&link.UserID,
			&link.FromEntity,
			&link.ToEntity,
			&link.Relationship,
			&link.Confidence,
			&link.SourceMemory,
			&link.CreatedAt,
			&neighbor.ID,
			&neighbor.Name,
			&neighbor.NormalizedName,
			&neighbor.Type,
			&neighbor.MentionCount,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		neighbor.UserID = link.UserID

		relationships = append(relationships, &model.EntityRelationship{
			Link:       link,
			Neighbor:   neighbor,
			IsOutgoing: outgoing,
		})
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return relationships, nil
}

// SelectEntityLinksAmong retrieves the links whose both endpoints are in
// the given entity set. Links touching entities outside the set are
// dropped entirely.
func (h *EntityLinksDBHandler) SelectEntityLinksAmong(userID string, entityIDs []uuid.UUID) ([]*model.EntityLink, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_entity_links_among($1, $2)`,
		userID,
		pq.Array(entityIDs),
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var links []*model.EntityLink
	for rows.Next() {
		link := &model.EntityLink{}
		err := rows.Scan(
			&link.ID,
			&link.UserID,
			&link.FromEntity,
			&link.ToEntity,
			&link.Relationship,
			&link.Confidence,
			&link.SourceMemory,
			&link.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		links = append(links, link)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return links, nil
}

// RelationshipStats counts a user's entity links per relationship label
func (h *EntityLinksDBHandler) RelationshipStats(userID string) (map[string]int, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM relationship_stats($1)`,
		userID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	stats := map[string]int{}
	for rows.Next() {
		var relationship string
		var count int
		err := rows.Scan(&relationship, &count)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		stats[relationship] = count
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return stats, nil
}

// DeleteEntityLink deletes an entity link by ID
func (h *EntityLinksDBHandler) DeleteEntityLink(id uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_entity_link($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

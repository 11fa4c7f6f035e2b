package database

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/siherrmann/memograph/helper"
	"github.com/siherrmann/memograph/model"
	loadSql "github.com/siherrmann/memograph/sql"
)

// MemoryLinksDBHandlerFunctions defines the interface for MemoryLinks database operations.
type MemoryLinksDBHandlerFunctions interface {
	CreateLink(fromMemory uuid.UUID, toMemory uuid.UUID, linkType model.LinkType, confidence float64) (*model.MemoryLink, error)
	CreateLinkBatch(candidates []model.LinkCandidate) (*model.BatchLinkResult, error)
	SelectLinksFrom(memoryID uuid.UUID, linkType *model.LinkType) ([]*model.LinkedMemory, error)
	SelectLinksTo(memoryID uuid.UUID, linkType *model.LinkType) ([]*model.LinkedMemory, error)
	SelectSupersedingMemories(memoryID uuid.UUID) ([]*model.Memory, error)
	SelectSupersededMemories(memoryID uuid.UUID) ([]*model.Memory, error)
	DeleteLinksFor(memoryID uuid.UUID) (int, error)
}

// MemoryLinksDBHandler handles memory-link-related database operations
type MemoryLinksDBHandler struct {
	db *helper.Database
}

// NewMemoryLinksDBHandler creates a new memory links database handler.
// It initializes the database connection and loads link-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewMemoryLinksDBHandler(db *helper.Database, force bool) (*MemoryLinksDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	memoryLinksDbHandler := &MemoryLinksDBHandler{
		db: db,
	}

	err := loadSql.LoadMemoryLinksSql(memoryLinksDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load memory links sql", err)
	}

	err = memoryLinksDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized MemoryLinksDBHandler")

	return memoryLinksDbHandler, nil
}

// CreateTable creates the 'memory_links' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *MemoryLinksDBHandler) CreateTable() error {
	_, err := h.db.Instance.Exec(`SELECT init_memory_links();`)
	if err != nil {
		return helper.NewError("init memory links table", err)
	}

	h.db.Logger.Info("Checked/created table memory_links")

	return nil
}

// validateLink checks a link candidate before it reaches the database.
func validateLink(fromMemory uuid.UUID, toMemory uuid.UUID, linkType model.LinkType, confidence float64) error {
	if !linkType.Valid() {
		return helper.NewValidationError("link type", linkType)
	}
	if confidence < 0 || confidence > 1 {
		return helper.NewValidationError("confidence", confidence)
	}
	if fromMemory == toMemory {
		return helper.NewValidationError("to memory", "self-link")
	}
	return nil
}

// CreateLink creates a directed link between two memories. A link for
// the same (from, to) pair already existing is overwritten with the new
// type and confidence instead of erroring or duplicating.
func (h *MemoryLinksDBHandler) CreateLink(fromMemory uuid.UUID, toMemory uuid.UUID, linkType model.LinkType, confidence float64) (*model.MemoryLink, error) {
	err := validateLink(fromMemory, toMemory, linkType, confidence)
	if err != nil {
		return nil, err
	}

	link := &model.MemoryLink{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM upsert_memory_link($1, $2, $3, $4)`,
		fromMemory,
		toMemory,
		linkType,
		confidence,
	)

	err = row.Scan(
		&link.ID,
		&link.FromMemory,
		&link.ToMemory,
		&link.LinkType,
		&link.Confidence,
		&link.CreatedAt,
	)
	if err != nil {
		return nil, notFoundOrScan(err, "memory", fromMemory.String()+" or "+toMemory.String())
	}

	return link, nil
}

// CreateLinkBatch creates links best-effort: invalid candidates are
// skipped with a recorded reason and do not abort the batch.
func (h *MemoryLinksDBHandler) CreateLinkBatch(candidates []model.LinkCandidate) (*model.BatchLinkResult, error) {
	result := &model.BatchLinkResult{}
	for i, candidate := range candidates {
		link, err := h.CreateLink(candidate.FromMemory, candidate.ToMemory, candidate.LinkType, candidate.Confidence)
		if err != nil {
			result.Skipped = append(result.Skipped, model.SkippedItem{Index: i, Reason: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, link)
	}

	return result, nil
}

// SelectLinksFrom retrieves the outgoing links of a memory, each
// annotated with the target memory's content and forgotten status
func (h *MemoryLinksDBHandler) SelectLinksFrom(memoryID uuid.UUID, linkType *model.LinkType) ([]*model.LinkedMemory, error) {
	return h.selectLinkedMemories(`SELECT * FROM select_links_from_memory($1, $2)`, memoryID, linkType, false)
}

// SelectLinksTo retrieves the incoming links of a memory, each annotated
// with the source memory's content and forgotten status
func (h *MemoryLinksDBHandler) SelectLinksTo(memoryID uuid.UUID, linkType *model.LinkType) ([]*model.LinkedMemory, error) {
	return h.selectLinkedMemories(`SELECT * FROM select_links_to_memory($1, $2)`, memoryID, linkType, true)
}

func (h *MemoryLinksDBHandler) selectLinkedMemories(query string, memoryID uuid.UUID, linkType *model.LinkType, incoming bool) ([]*model.LinkedMemory, error) {
	if linkType != nil && !linkType.Valid() {
		return nil, helper.NewValidationError("link type", *linkType)
	}

	rows, err := h.db.Instance.Query(query, memoryID, linkType)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var linked []*model.LinkedMemory
	for rows.Next() {
		link := &model.MemoryLink{}
		linkedMemory := &model.LinkedMemory{Link: link}
		err := rows.Scan(
			&link.ID,
			&link.FromMemory,
			&link.ToMemory,
			&link.LinkType,
			&link.Confidence,
			&link.CreatedAt,
			&linkedMemory.OtherContent,
			&linkedMemory.OtherForgotten,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		if incoming {
			linkedMemory.OtherMemory = link.FromMemory
		} else {
			linkedMemory.OtherMemory = link.ToMemory
		}

		linked = append(linked, linkedMemory)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return linked, nil
}

// SelectSupersedingMemories retrieves the memories that supersede the
// given one, resolved to full memory rows
func (h *MemoryLinksDBHandler) SelectSupersedingMemories(memoryID uuid.UUID) ([]*model.Memory, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_superseding_memories($1)`,
		memoryID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanMemories(rows)
}

// SelectSupersededMemories retrieves the memories the given one
// supersedes, resolved to full memory rows
func (h *MemoryLinksDBHandler) SelectSupersededMemories(memoryID uuid.UUID) ([]*model.Memory, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_superseded_memories($1)`,
		memoryID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanMemories(rows)
}

// DeleteLinksFor removes all links touching a memory in both directions
// and returns the number of removed links
func (h *MemoryLinksDBHandler) DeleteLinksFor(memoryID uuid.UUID) (int, error) {
	var removed int
	err := h.db.Instance.QueryRow(
		`SELECT delete_links_for_memory($1)`,
		memoryID,
	).Scan(&removed)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}

	return removed, nil
}

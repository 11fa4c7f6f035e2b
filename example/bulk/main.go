package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/siherrmann/memograph"
	"github.com/siherrmann/memograph/helper"
	"github.com/siherrmann/memograph/model"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const userID = "journal-user"

// journalEntry is one day of a synthetic journal. In a real setup these
// would come from chat transcripts or note exports.
type journalEntry struct {
	date    string
	content string
}

var journalEntries = []journalEntry{
	{
		date: "2026-03-02",
		content: `Started the new job at Acme Corp today. The backend team is small,
just five people. My manager is Dana, who has been at Acme for six years.
The office is in Kreuzberg, about twenty minutes from my flat by bike.`,
	},
	{
		date: "2026-03-09",
		content: `First full week done. I am working on the ingestion service with Tomas.
Tomas knows the codebase inside out, he founded the original prototype.
We deploy from trunk, no release branches, which still feels unusual.`,
	},
	{
		date: "2026-03-16",
		content: `Dana asked me to take over the on-call setup. Met Priya from the platform
team, who manages the Kubernetes clusters. Coffee in the office is terrible,
so Tomas and I now walk to the roastery on Oranienstrasse every morning.`,
	},
	{
		date: "2026-04-06",
		content: `Big reorg announced. The ingestion service moves under the data platform
group, which means I now report to Priya instead of Dana. Tomas is leaving
Acme at the end of the month to start his own company in Hamburg.`,
	},
	{
		date: "2026-04-20",
		content: `Quiet weeks. I gave my first talk at the Berlin Go meetup about embedding
pipelines. Priya was in the audience. Afterwards we sketched a plan for
moving the vector index rebuilds off the main database.`,
	},
}

// startPostgresContainer starts a PostgreSQL container with a bind-mounted
// data directory so the ingested corpus survives between runs.
func startPostgresContainer() (func(ctx context.Context, opts ...testcontainers.TerminateOption) error, string, error) {
	ctx := context.Background()

	dataDir := "./data"
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, "", fmt.Errorf("failed to create data directory: %w", err)
	}
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get absolute path for data directory: %w", err)
	}

	// Check if database already exists (data directory has PG_VERSION file)
	pgVersionFile := filepath.Join(absDataDir, "PG_VERSION")
	_, err = os.Stat(pgVersionFile)
	dbExists := err == nil

	// When database already exists, PostgreSQL doesn't re-initialize,
	// so the ready message only appears once instead of twice
	waitOccurrences := 2
	if dbExists {
		waitOccurrences = 1
		fmt.Printf("Using existing persistent database in: %s\n", absDataDir)
	} else {
		fmt.Printf("Creating new persistent database in: %s\n", absDataDir)
	}

	options := []testcontainers.ContainerCustomizer{
		postgres.WithDatabase("database"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(waitOccurrences),
		),
		testcontainers.WithHostConfigModifier(func(hc *container.HostConfig) {
			hc.Mounts = append(hc.Mounts, mount.Mount{
				Type:   mount.TypeBind,
				Source: absDataDir,
				Target: "/var/lib/postgresql/data",
			})
		}),
	}

	pgContainer, err := postgres.Run(
		ctx,
		"pgvector/pgvector:pg16",
		options...,
	)
	if err != nil {
		return nil, "", fmt.Errorf("error starting postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", fmt.Errorf("error getting connection string: %w", err)
	}

	u, err := url.Parse(connStr)
	if err != nil {
		return nil, "", fmt.Errorf("error parsing connection string: %v", err)
	}

	return pgContainer.Terminate, u.Port(), nil
}

func main() {
	// Start a PostgreSQL container with persistence
	teardown, dbPort, err := startPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Name:     "database",
		User:     "user",
		Password: "password",
		SSLMode:  "disable",
	}

	m, err := memograph.New(dbConfig, 384)
	if err != nil {
		log.Fatalf("Failed to create memograph: %v", err)
	}
	defer m.Close()

	// Set up the default pipeline (chunking + embeddings + entity/relation extraction)
	fmt.Println("Setting up pipeline with entity and relation extraction...")
	if err := m.UseDefaultPipeline(); err != nil {
		log.Fatalf("Failed to set up pipeline: %v", err)
	}

	// Check existing documents to avoid re-processing on a persistent database
	existingDocs, err := checkExistingDocuments(m)
	if err != nil {
		log.Printf("Warning: could not check existing documents: %v", err)
		existingDocs = make(map[string]bool)
	}
	if len(existingDocs) > 0 {
		fmt.Printf("Found %d existing journal documents in database\n", len(existingDocs))
	}

	// Import each journal entry as a document and extract memories from it
	totalChunks := 0
	skipped := 0
	processed := 0
	for i, entry := range journalEntries {
		source := fmt.Sprintf("journal/%s", entry.date)

		// Skip if document already exists
		if existingDocs[source] {
			fmt.Printf("Skipping %s (%d/%d) - already processed\n", entry.date, i+1, len(journalEntries))
			skipped++
			continue
		}

		doc := &model.Document{
			UserID:  userID,
			Title:   fmt.Sprintf("Journal %s", entry.date),
			Source:  source,
			Content: entry.content,
			Metadata: model.Metadata{
				"date": entry.date,
				"type": "journal",
			},
		}

		fmt.Printf("Processing journal %s (%d/%d)...\n", entry.date, i+1, len(journalEntries))
		numChunks, err := m.ProcessAndInsertDocument(doc)
		if err != nil {
			log.Printf("Warning: failed to process %s: %v, skipping...", entry.date, err)
			continue
		}

		// Every entry also becomes a memory feeding the entity graph
		result, err := m.IngestMemory(&model.Memory{
			UserID:           userID,
			Content:          entry.content,
			SourceDocumentID: &doc.ID,
			ContainerTags:    []string{"journal"},
		})
		if err != nil {
			log.Printf("Warning: failed to ingest memory for %s: %v", entry.date, err)
			continue
		}

		fmt.Printf("  ✓ %d chunks, %d entities from %s\n", numChunks, len(result.Entities), entry.date)
		totalChunks += numChunks
		processed++
	}

	fmt.Printf("\n✓ Journal import status:\n")
	fmt.Printf("  - Processed: %d entries (%d chunks)\n", processed, totalChunks)
	fmt.Printf("  - Skipped (already in DB): %d entries\n", skipped)
	fmt.Printf("  - Total: %d entries\n\n", len(journalEntries))

	ctx := context.Background()

	// 1. Who-is-who: the entity graph accumulated over the whole journal
	fmt.Println("1. ENTITY GRAPH")
	fmt.Println(strings.Repeat("-", 20))
	graphResult, err := m.EntityGraph(userID, 15)
	if err != nil {
		log.Printf("Entity graph error: %v", err)
	} else {
		for _, entity := range graphResult.Entities {
			fmt.Printf("  %-12s %-14s %d mentions\n", entity.Name, entity.Type, entity.MentionCount)
		}
		fmt.Printf("  %d relationships between them\n", len(graphResult.Links))
	}

	// 2. Hybrid search across memories and journal chunks
	query := "Who does the author report to?"
	fmt.Printf("\n2. HYBRID SEARCH: %q\n", query)
	fmt.Println(strings.Repeat("-", 20))
	searchConfig := model.DefaultSearchConfig()
	searchConfig.Limit = 5
	searchConfig.Rerank = true
	response, err := m.Search(ctx, userID, query, searchConfig)
	if err != nil {
		log.Printf("Search error: %v", err)
	} else {
		printResults(response.Results)
	}

	// 3. Recall with assembled context
	fmt.Printf("\n3. RECALL\n")
	fmt.Println(strings.Repeat("-", 20))
	recall, err := m.Recall(ctx, userID, query, nil)
	if err != nil {
		log.Printf("Recall error: %v", err)
	} else {
		fmt.Println(recall.Context)
	}

	fmt.Println("\n" + strings.Repeat("=", 20))
	fmt.Println("Import complete!")
}

// checkExistingDocuments returns the sources of already imported journal
// documents for quick lookup.
func checkExistingDocuments(m *memograph.Memograph) (map[string]bool, error) {
	docs, err := m.Documents.SelectDocumentsByUser(userID, 1000)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}

	existingDocs := make(map[string]bool)
	for _, doc := range docs {
		if strings.HasPrefix(doc.Source, "journal/") {
			existingDocs[doc.Source] = true
		}
	}

	return existingDocs, nil
}

func printResults(results []*model.SearchResult) {
	if len(results) == 0 {
		fmt.Println("No results found")
		return
	}

	for i, result := range results {
		fmt.Printf("\n[%d] Score: %.4f | Source: %s\n", i+1, result.Score, result.Source)

		var content string
		switch result.Source {
		case model.ResultSourceMemory:
			content = result.Memory.Content
		case model.ResultSourceDocument:
			content = result.Document.Title
			for _, chunk := range result.Chunks {
				content += "\n" + chunk.Content
			}
		}
		if len(content) > 300 {
			content = content[:300] + "..."
		}
		fmt.Printf("    %s\n", strings.ReplaceAll(content, "\n", "\n    "))
	}
}

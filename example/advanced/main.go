package main

import (
	"context"
	"fmt"
	"log"

	"github.com/siherrmann/memograph"
	"github.com/siherrmann/memograph/helper"
	"github.com/siherrmann/memograph/model"
)

const userID = "demo-user"

var sampleMemories = []string{
	"Alice works at Acme Corp as a backend engineer.",
	"Alice lives in Berlin and commutes by bike.",
	"Bob works at Acme Corp and reports to Alice.",
	"Alice is friends with Carol from university.",
	"Carol founded a small design studio in Hamburg.",
}

const sampleDocument = `Acme Corp engineering handbook.

All services are deployed from trunk, there are no release branches.
Code review is mandatory for every change, no matter how small.

The backend team owns the memory service and the retrieval pipeline.
On-call rotates weekly and handovers happen every Monday morning.`

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration
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

	// Set up the default pipeline (chunking + embeddings + NER)
	if err := m.UseDefaultPipeline(); err != nil {
		log.Fatalf("Failed to set up pipeline: %v", err)
	}

	ctx := context.Background()

	// 1. Ingest memories, building the entity graph on the way
	fmt.Println("=== 1. Ingesting Memories ===")
	var firstMemory *model.Memory
	for _, content := range sampleMemories {
		result, err := m.IngestMemory(&model.Memory{
			UserID:  userID,
			Content: content,
		})
		if err != nil {
			log.Fatalf("Failed to ingest memory: %v", err)
		}
		if firstMemory == nil {
			firstMemory = result.Memory
		}
		fmt.Printf("Ingested %q (%d entities, %d skipped)\n", content, len(result.Entities), len(result.Skipped))
	}

	// 2. Ingest a document alongside the memories
	fmt.Println("\n=== 2. Ingesting a Document ===")
	doc := &model.Document{
		UserID:  userID,
		Title:   "Acme Engineering Handbook",
		Source:  "advanced_example",
		Content: sampleDocument,
		Metadata: model.Metadata{
			"topic": "engineering",
		},
	}
	numChunks, err := m.ProcessAndInsertDocument(doc)
	if err != nil {
		log.Fatalf("Failed to process and insert document: %v", err)
	}
	fmt.Printf("Document '%s' (ID: %s): %d chunks\n", doc.Title, doc.ID, numChunks)

	// 3. Revise a memory, the old version stays as history
	fmt.Println("\n=== 3. Revising a Memory ===")
	revised, err := m.ReviseMemory(firstMemory.ID, "Alice works at Globex now as a staff engineer.")
	if err != nil {
		log.Fatalf("Failed to revise memory: %v", err)
	}
	fmt.Printf("Revised to version %d: %q\n", revised.Version, revised.Content)

	related, err := m.Related(ctx, revised.ID, nil)
	if err != nil {
		log.Fatalf("Failed to load related memories: %v", err)
	}
	for _, link := range related {
		fmt.Printf("  %s link to %q\n", link.Link.LinkType, link.OtherContent)
	}

	// 4. Hybrid search over memories and document chunks
	fmt.Println("\n=== 4. Hybrid Search ===")
	queryText := "Where does Alice work?"
	searchConfig := model.DefaultSearchConfig()
	searchConfig.Limit = 5
	searchConfig.Rerank = true

	response, err := m.Search(ctx, userID, queryText, searchConfig)
	if err != nil {
		log.Fatalf("Hybrid search failed: %v", err)
	}
	printResults("Hybrid Search", response.Results)

	// 5. Recall with profile assembly
	fmt.Println("\n=== 5. Recall ===")
	recall, err := m.Recall(ctx, userID, queryText, nil)
	if err != nil {
		log.Fatalf("Recall failed: %v", err)
	}
	fmt.Printf("Assembled context:\n%s\n", recall.Context)

	// 6. Entity graph overview
	fmt.Println("\n=== 6. Entity Graph ===")
	graphResult, err := m.EntityGraph(userID, 10)
	if err != nil {
		log.Fatalf("Failed to load entity graph: %v", err)
	}
	fmt.Printf("Top entities (%d):\n", len(graphResult.Entities))
	for _, entity := range graphResult.Entities {
		fmt.Printf("  %s (%s, %d mentions)\n", entity.Name, entity.Type, entity.MentionCount)
	}
	fmt.Printf("Relationships (%d):\n", len(graphResult.Links))
	for _, link := range graphResult.Links {
		fmt.Printf("  %s -> %s (%s, confidence %.2f)\n", link.FromEntity, link.ToEntity, link.Relationship, link.Confidence)
	}

	stats, err := m.GraphStats(userID)
	if err != nil {
		log.Fatalf("Failed to load graph stats: %v", err)
	}
	fmt.Printf("Entity counts: %v\n", stats.EntityCounts)

	// 7. Graph traversal from an entity
	fmt.Println("\n=== 7. Graph Traversal (BFS) ===")
	alice, err := m.Entities.SelectEntityByName(userID, "Alice")
	if err != nil {
		log.Fatalf("Failed to load entity: %v", err)
	}
	traversalResults, err := m.BFSTraversal(alice.ID, 2, nil, model.DirectionBoth)
	if err != nil {
		log.Fatalf("BFS traversal failed: %v", err)
	}
	fmt.Printf("Found %d entities via BFS from %s\n", len(traversalResults), alice.Name)
	for _, tr := range traversalResults {
		fmt.Printf("  Distance %d: %s (path length: %d)\n", tr.Distance, tr.Entity.Name, len(tr.Path))
	}

	// 8. Demonstrate index type switching
	fmt.Println("\n=== 8. Changing Index Type ===")
	fmt.Println("Switching to IVFFlat index...")
	err = m.ChangeIndexType(ctx, "ivfflat", map[string]interface{}{
		"lists": 100,
	})
	if err != nil {
		log.Printf("Warning: Index change failed (this is okay for small datasets): %v", err)
	} else {
		fmt.Println("Successfully switched to IVFFlat index")
	}

	fmt.Println("Switching back to HNSW index...")
	err = m.ChangeIndexType(ctx, "hnsw", map[string]interface{}{
		"m":               16,
		"ef_construction": 64,
	})
	if err != nil {
		log.Printf("Warning: Index change failed: %v", err)
	} else {
		fmt.Println("Successfully switched to HNSW index")
	}

	fmt.Println("\n=== Advanced Example Completed Successfully! ===")
	fmt.Println("\nKey features demonstrated:")
	fmt.Println("✓ Memory ingestion with entity extraction")
	fmt.Println("✓ Document chunking and embedding")
	fmt.Println("✓ Memory revision with supersession history")
	fmt.Println("✓ Hybrid search with lexical reranking")
	fmt.Println("✓ Recall with profile assembly")
	fmt.Println("✓ Entity graph overview and stats")
	fmt.Println("✓ BFS graph traversal")
	fmt.Println("✓ Index type switching (HNSW ↔ IVFFlat)")
}

func printResults(title string, results []*model.SearchResult) {
	fmt.Printf("\n%s - Found %d results:\n", title, len(results))
	for i, result := range results {
		if i >= 3 {
			break // Show only first 3
		}
		fmt.Printf("\n  Result %d:\n", i+1)
		fmt.Printf("    Score: %.4f (similarity: %.4f)\n", result.Score, result.Similarity)
		fmt.Printf("    Source: %s\n", result.Source)
		switch result.Source {
		case model.ResultSourceMemory:
			fmt.Printf("    Content: %s\n", result.Memory.Content)
		case model.ResultSourceDocument:
			fmt.Printf("    Document: %s (%d chunks)\n", result.Document.Title, len(result.Chunks))
		}
	}
}

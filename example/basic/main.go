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
	"Alice prefers short answers without filler.",
	"Alice lives in Berlin and commutes by bike.",
	"Alice is preparing a talk about vector databases.",
}

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
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

	// Set up the default pipeline (chunking + embeddings + NER)
	if err := m.UseDefaultPipeline(); err != nil {
		log.Fatalf("Failed to set up pipeline: %v", err)
	}

	// Ingest a handful of memories about the user
	fmt.Println("Ingesting memories...")
	for _, content := range sampleMemories {
		result, err := m.IngestMemory(&model.Memory{
			UserID:  userID,
			Content: content,
		})
		if err != nil {
			log.Fatalf("Failed to ingest memory: %v", err)
		}
		fmt.Printf("Ingested %q (%d entities)\n", content, len(result.Entities))
	}

	// Recall assembles a ready to use context string for a prompt
	queryText := "Where does Alice work?"
	fmt.Printf("\nRecalling for: %s\n", queryText)

	response, err := m.Recall(context.Background(), userID, queryText, nil)
	if err != nil {
		log.Fatalf("Failed to recall: %v", err)
	}

	fmt.Printf("\nFound %d results:\n", len(response.Results))
	for i, result := range response.Results {
		fmt.Printf("\n--- Result %d ---\n", i+1)
		fmt.Printf("Score: %.4f\n", result.Score)
		fmt.Printf("Content: %s\n", result.Memory.Content)
	}

	fmt.Printf("\nAssembled context:\n%s\n", response.Context)

	fmt.Println("\nBasic example completed successfully!")
}

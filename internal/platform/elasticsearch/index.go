package elasticsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

const SongsIndexName = "songs"

// defineSongsMapping returns the JSON mapping for the songs index.
func defineSongsMapping() (string, error) {
	mapping := map[string]interface{}{
		"settings": map[string]interface{}{
			"analysis": map[string]interface{}{
				"analyzer": map[string]interface{}{
					"title_prefix": map[string]interface{}{
						"type":      "custom",
						"tokenizer": "standard",
						"filter":    []string{"lowercase", "asciifolding", "edge_ngram_filter"},
					},
				},
				"filter": map[string]interface{}{
					"edge_ngram_filter": map[string]interface{}{
						"type":     "edge_ngram",
						"min_gram": 2,
						"max_gram": 15,
					},
				},
			},
		},
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"title": map[string]interface{}{
					"type":            "text",
					"analyzer":        "title_prefix",
					"search_analyzer": "standard",
					"fields": map[string]interface{}{
						"keyword": map[string]interface{}{"type": "keyword", "ignore_above": 256},
					},
				},
				"composer":       map[string]interface{}{"type": "text"},
				"default_key":    map[string]interface{}{"type": "keyword"},
				"low_note_midi":  map[string]interface{}{"type": "integer"},
				"high_note_midi": map[string]interface{}{"type": "integer"},
				"updated_at":     map[string]interface{}{"type": "date"},
			},
		},
	}
	mappingBytes, err := json.Marshal(mapping)
	if err != nil {
		return "", fmt.Errorf("error marshalling songs mapping to JSON: %w", err)
	}
	return string(mappingBytes), nil
}

// CreateSongsIndexIfNotExists creates the songs index with its mapping when missing.
func CreateSongsIndexIfNotExists(ctx context.Context, client *ESClientWrapper, logger *zap.Logger) error {
	log := logger.Named("elasticsearch_index_setup")

	req := esapi.IndicesExistsRequest{Index: []string{SongsIndexName}}
	res, err := req.Do(ctx, client.Client)
	if err != nil {
		return fmt.Errorf("error checking if songs index exists: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		log.Debug("Songs index already exists", zap.String("index_name", SongsIndexName))
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("error checking if songs index exists: status %s", res.Status())
	}

	mappingJSON, err := defineSongsMapping()
	if err != nil {
		return err
	}

	createReq := esapi.IndicesCreateRequest{
		Index: SongsIndexName,
		Body:  strings.NewReader(mappingJSON),
	}
	createRes, err := createReq.Do(ctx, client.Client)
	if err != nil {
		return fmt.Errorf("error creating songs index %s: %w", SongsIndexName, err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		log.Error("Failed to create songs index",
			zap.String("status", createRes.Status()),
			zap.Any("error_details", ErrorDetails(createRes)),
		)
		return fmt.Errorf("failed to create songs index %s: status %s", SongsIndexName, createRes.Status())
	}

	log.Info("Songs index created", zap.String("index_name", SongsIndexName))
	return nil
}

// File: internal/catalog/search_index.go
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	platformElasticsearch "jazz_picker_backend/internal/platform/elasticsearch"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

// SearchIndex is a full-text index over song titles and composers.
type SearchIndex interface {
	SearchTitles(ctx context.Context, query string, limit, offset int) ([]string, int64, error)
	IndexSongs(ctx context.Context, songs []Song) (IndexResult, error)
}

// IndexResult counts the outcome of a bulk indexing call.
type IndexResult struct {
	Indexed int
	Failed  int
}

type esSearchIndex struct {
	client  *platformElasticsearch.ESClientWrapper
	refresh string
	logger  *zap.Logger
}

// NewSearchIndex returns an Elasticsearch-backed index, or nil when client is nil.
func NewSearchIndex(client *platformElasticsearch.ESClientWrapper, logger *zap.Logger) SearchIndex {
	if client == nil {
		return nil
	}
	return &esSearchIndex{client: client, refresh: "false", logger: logger.Named("SongSearchIndex")}
}

// SongDocID is the index document id for a song.
func SongDocID(s *Song) string {
	return strconv.FormatUint(uint64(s.ID), 10)
}

// SongToElasticsearchDoc converts a song to its index document.
func SongToElasticsearchDoc(s *Song) (string, error) {
	doc := map[string]interface{}{
		"title":       s.Title,
		"composer":    s.Composer,
		"default_key": s.DefaultKey,
		"updated_at":  s.UpdatedAt,
	}
	if s.LowNoteMidi != nil {
		doc["low_note_midi"] = *s.LowNoteMidi
	}
	if s.HighNoteMidi != nil {
		doc["high_note_midi"] = *s.HighNoteMidi
	}
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("error marshalling song to JSON for ES: %w", err)
	}
	return string(docBytes), nil
}

func (i *esSearchIndex) SearchTitles(ctx context.Context, query string, limit, offset int) ([]string, int64, error) {
	body := map[string]interface{}{
		"from":    offset,
		"size":    limit,
		"_source": []string{"title"},
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"title^3", "composer"},
			},
		},
		"sort": []interface{}{"_score", map[string]string{"title.keyword": "asc"}},
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, 0, err
	}

	req := esapi.SearchRequest{
		Index:          []string{platformElasticsearch.SongsIndexName},
		Body:           strings.NewReader(string(raw)),
		TrackTotalHits: true,
	}
	res, err := req.Do(ctx, i.client.Client)
	if err != nil {
		return nil, 0, fmt.Errorf("song search request failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		i.logger.Warn("Song search returned an error", zap.String("status", res.Status()), zap.Any("error_details", platformElasticsearch.ErrorDetails(res)))
		return nil, 0, fmt.Errorf("song search failed: status %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source struct {
					Title string `json:"title"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, 0, fmt.Errorf("failed to decode song search response: %w", err)
	}
	titles := make([]string, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		titles = append(titles, h.Source.Title)
	}
	return titles, parsed.Hits.Total.Value, nil
}

func (i *esSearchIndex) IndexSongs(ctx context.Context, songs []Song) (IndexResult, error) {
	var result IndexResult
	if len(songs) == 0 {
		return result, nil
	}

	var bulkRequestBody strings.Builder
	for idx := range songs {
		s := &songs[idx]
		docJSON, err := SongToElasticsearchDoc(s)
		if err != nil {
			i.logger.Error("Failed to convert song to Elasticsearch document", zap.String("title", s.Title), zap.Error(err))
			result.Failed++
			continue
		}
		fmt.Fprintf(&bulkRequestBody, `{ "index" : { "_index" : "%s", "_id" : "%s" } }%s`, platformElasticsearch.SongsIndexName, SongDocID(s), "\n")
		bulkRequestBody.WriteString(docJSON)
		bulkRequestBody.WriteString("\n")
	}
	if bulkRequestBody.Len() == 0 {
		return result, nil
	}

	req := esapi.BulkRequest{
		Body:    strings.NewReader(bulkRequestBody.String()),
		Refresh: i.refresh,
	}
	res, err := req.Do(ctx, i.client.Client)
	if err != nil {
		result.Failed = len(songs)
		return result, fmt.Errorf("failed to send bulk request to Elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		result.Failed = len(songs)
		return result, fmt.Errorf("elasticsearch bulk request returned %s", res.Status())
	}

	var bulkResponse struct {
		Errors bool `json:"errors"`
		Items  []struct {
			Index struct {
				ID     string                 `json:"_id"`
				Status int                    `json:"status"`
				Error  map[string]interface{} `json:"error,omitempty"`
			} `json:"index"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkResponse); err != nil {
		result.Failed = len(songs)
		return result, fmt.Errorf("failed to parse Elasticsearch bulk response: %w", err)
	}
	for _, item := range bulkResponse.Items {
		if item.Index.Error != nil {
			i.logger.Error("Failed to index song (item-level)",
				zap.String("songID", item.Index.ID),
				zap.Any("error", item.Index.Error),
				zap.Int("status", item.Index.Status),
			)
			result.Failed++
		} else {
			result.Indexed++
		}
	}
	return result, nil
}

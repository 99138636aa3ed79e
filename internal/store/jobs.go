// internal/store/jobs.go
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"feed-ranking-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// JobIndex reads open job postings from Elasticsearch. Documents use the
// models.Job JSON layout and the document id is the candidate id.
type JobIndex struct {
	client *elasticsearch.Client
	index  string
}

// NewJobIndex creates a job source over the given Elasticsearch index.
func NewJobIndex(client *elasticsearch.Client, index string) *JobIndex {
	return &JobIndex{client: client, index: index}
}

type jobHit struct {
	ID     string          `json:"_id"`
	Found  *bool           `json:"found,omitempty"`
	Source json.RawMessage `json:"_source"`
}

type searchResponse struct {
	Hits struct {
		Hits []jobHit `json:"hits"`
	} `json:"hits"`
}

type mgetResponse struct {
	Docs []jobHit `json:"docs"`
}

func recentJobsQuery(since time.Time) map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"status": "open"}},
					map[string]interface{}{"range": map[string]interface{}{
						"createdAt": map[string]interface{}{"gte": since.UTC().Format(time.RFC3339)},
					}},
				},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"createdAt": map[string]interface{}{"order": "desc"}},
		},
	}
}

// Recent returns open jobs created at or after since, newest first.
func (j *JobIndex) Recent(ctx context.Context, since time.Time, limit int) ([]models.CandidateItem, error) {
	body, err := json.Marshal(recentJobsQuery(since))
	if err != nil {
		return nil, err
	}

	req := esapi.SearchRequest{
		Index: []string{j.index},
		Body:  bytes.NewReader(body),
		Size:  &limit,
	}
	res, err := req.Do(ctx, j.client)
	if err != nil {
		return nil, fmt.Errorf("search jobs: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search jobs: %s", res.String())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode job search: %w", err)
	}
	return decodeJobs(parsed.Hits.Hits)
}

// GetByIDs fetches specific postings. Missing ids are skipped.
func (j *JobIndex) GetByIDs(ctx context.Context, ids []string) ([]models.CandidateItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(map[string]interface{}{"ids": ids})
	if err != nil {
		return nil, err
	}

	req := esapi.MgetRequest{
		Index: j.index,
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, j.client)
	if err != nil {
		return nil, fmt.Errorf("mget jobs: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("mget jobs: %s", res.String())
	}

	var parsed mgetResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode job mget: %w", err)
	}
	return decodeJobs(parsed.Docs)
}

func decodeJobs(hits []jobHit) ([]models.CandidateItem, error) {
	out := make([]models.CandidateItem, 0, len(hits))
	for _, hit := range hits {
		if hit.Found != nil && !*hit.Found {
			continue
		}
		var job models.Job
		if err := json.Unmarshal(hit.Source, &job); err != nil {
			return nil, fmt.Errorf("decode job %s: %w", hit.ID, err)
		}
		out = append(out, models.NewJobCandidate(hit.ID, job))
	}
	return out, nil
}

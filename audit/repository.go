// api/audit/repository.go
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Repository is the durable decision log store.
type Repository interface {
	IndexDecision(ctx context.Context, entry DecisionLog) error
	QueryDecisions(ctx context.Context, filter QueryFilter) ([]DecisionLog, error)
}

type ElasticsearchRepository struct {
	esClient *elasticsearch.Client
	index    string
}

// NewElasticsearchRepository creates a repository writing to the given index
// on the Elasticsearch cluster at esURL.
func NewElasticsearchRepository(esURL, index string) (*ElasticsearchRepository, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{esURL},
	}
	esClient, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if index == "" {
		index = "policy-decisions"
	}
	return &ElasticsearchRepository{esClient: esClient, index: index}, nil
}

// IndexDecision writes one decision record to Elasticsearch.
func (r *ElasticsearchRepository) IndexDecision(ctx context.Context, entry DecisionLog) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      r.index,
		DocumentID: entry.ID,
		Body:       strings.NewReader(string(data)),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, r.esClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing document: %s", res.String())
	}

	return nil
}

// QueryDecisions searches the decision index. The filter's organization id is
// always applied; the remaining fields narrow the search when set.
func (r *ElasticsearchRepository) QueryDecisions(ctx context.Context, filter QueryFilter) ([]DecisionLog, error) {
	must := []interface{}{
		map[string]interface{}{
			"term": map[string]interface{}{
				"organization_id": filter.OrganizationID,
			},
		},
	}

	if filter.UserID != "" {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"user_id": filter.UserID},
		})
	}
	if filter.ResourceType != "" {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"resource_type": filter.ResourceType},
		})
	}
	if filter.ResourceID != "" {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"resource_id": filter.ResourceID},
		})
	}
	if filter.Action != "" {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"action": filter.Action},
		})
	}
	if filter.Result != nil {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"result": *filter.Result},
		})
	}
	if !filter.From.IsZero() || !filter.To.IsZero() {
		timeRange := map[string]interface{}{}
		if !filter.From.IsZero() {
			timeRange["gte"] = filter.From.Format(time.RFC3339)
		}
		if !filter.To.IsZero() {
			timeRange["lte"] = filter.To.Format(time.RFC3339)
		}
		must = append(must, map[string]interface{}{
			"range": map[string]interface{}{"timestamp": timeRange},
		})
	}

	size := filter.Limit
	if size <= 0 {
		size = 100
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": must,
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"timestamp": map[string]interface{}{"order": "desc"}},
		},
		"size": size,
	}

	var buf strings.Builder
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, err
	}

	res, err := r.esClient.Search(
		r.esClient.Search.WithContext(ctx),
		r.esClient.Search.WithIndex(r.index),
		r.esClient.Search.WithBody(strings.NewReader(buf.String())),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error searching documents: %s", res.String())
	}

	var rmap map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&rmap); err != nil {
		return nil, err
	}

	hits, ok := rmap["hits"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	rawHits, ok := hits["hits"].([]interface{})
	if !ok {
		return nil, nil
	}

	logs := make([]DecisionLog, len(rawHits))
	for i, hit := range rawHits {
		source := hit.(map[string]interface{})["_source"]
		data, _ := json.Marshal(source)
		json.Unmarshal(data, &logs[i])
	}

	return logs, nil
}

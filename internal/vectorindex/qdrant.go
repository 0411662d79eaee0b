package vectorindex

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

const payloadSiteID = "site_id"

// Qdrant talks to a Qdrant server over gRPC.
type Qdrant struct {
	client *qdrant.Client
}

func NewQdrant(host string, port int, apiKey string, useTLS bool) (*Qdrant, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("connect qdrant %s:%d: %w", host, port, err)
	}
	return &Qdrant{client: client}, nil
}

func (q *Qdrant) EnsureCollection(ctx context.Context, name string, dim int) error {
	exists, err := q.client.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return err
	}
	_, err = q.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: name,
		FieldName:      payloadSiteID,
		FieldType:      qdrant.FieldType_FieldTypeInteger.Enum(),
	})
	return err
}

func (q *Qdrant) Upsert(ctx context.Context, name string, p Point) error {
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: name,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(payloadMap(p.Payload)),
		}},
	})
	return err
}

func (q *Qdrant) Search(ctx context.Context, name string, vector []float32, siteID int64, k int) ([]Hit, error) {
	req := &qdrant.QueryPoints{
		CollectionName: name,
		Query:          qdrant.NewQuery(vector...),
		WithPayload:    qdrant.NewWithPayload(true),
		Limit:          qdrant.PtrOf(uint64(k)),
	}
	if siteID > 0 {
		req.Filter = matchFilter(payloadSiteID, siteID)
	}
	points, err := q.client.Query(ctx, req)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(points))
	for _, p := range points {
		hits = append(hits, Hit{Payload: payloadFromValues(p.GetPayload()), Score: p.GetScore()})
	}
	return hits, nil
}

func (q *Qdrant) DeleteByPage(ctx context.Context, name string, pageID int64) error {
	return q.deleteWhere(ctx, name, matchFilter("page_id", pageID))
}

func (q *Qdrant) DeleteBySite(ctx context.Context, name string, siteID int64) error {
	return q.deleteWhere(ctx, name, matchFilter(payloadSiteID, siteID))
}

func (q *Qdrant) deleteWhere(ctx context.Context, name string, filter *qdrant.Filter) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: name,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelectorFilter(filter),
	})
	return err
}

func (q *Qdrant) Close() error {
	return q.client.Close()
}

func matchFilter(key string, value int64) *qdrant.Filter {
	return &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatchInt(key, value)}}
}

func payloadMap(p Payload) map[string]any {
	return map[string]any{
		payloadSiteID:    p.SiteID,
		"page_id":        p.PageID,
		"url":            p.URL,
		"title":          p.Title,
		"content":        p.Content,
		"content_length": int64(p.ContentLength),
	}
}

func payloadFromValues(v map[string]*qdrant.Value) Payload {
	return Payload{
		SiteID:        v[payloadSiteID].GetIntegerValue(),
		PageID:        v["page_id"].GetIntegerValue(),
		URL:           v["url"].GetStringValue(),
		Title:         v["title"].GetStringValue(),
		Content:       v["content"].GetStringValue(),
		ContentLength: int(v["content_length"].GetIntegerValue()),
	}
}

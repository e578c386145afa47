package rag

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig holds connection settings for a Qdrant vector store.
type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	VectorSize uint64
}

// QdrantStore implements VectorStore backed by a Qdrant collection.
type QdrantStore struct {
	client *qdrant.Client
	cfg    QdrantConfig
}

// NewQdrantStore connects to Qdrant and ensures the configured collection
// exists with the right vector size and cosine distance.
func NewQdrantStore(ctx context.Context, cfg QdrantConfig) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant at %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	s := &QdrantStore{client: client, cfg: cfg}
	if err := s.ensureCollection(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return fmt.Errorf("checking collection %q: %w", s.cfg.Collection, err)
	}
	if exists {
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %q: %w", s.cfg.Collection, err)
	}
	return nil
}

// Upsert stores docs with their embeddings. Points are written with
// Wait=true so a subsequent ExistingIDs call observes them.
func (s *QdrantStore) Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return fmt.Errorf("upsert: %d documents but %d embeddings", len(docs), len(embeddings))
	}
	if len(docs) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(docs))
	for i, doc := range docs {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(PointUUID(doc.ID)),
			Vectors: qdrant.NewVectors(embeddings[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"id":          doc.ID,
				"content":     doc.Content,
				"source":      doc.Source,
				"chunk_index": int64(doc.ChunkIndex),
			}),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("upserting %d points: %w", len(points), err)
	}
	return nil
}

// Search returns the topK nearest chunks to the query embedding.
func (s *QdrantStore) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]Document, error) {
	limit := uint64(topK)
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying collection %q: %w", s.cfg.Collection, err)
	}

	docs := make([]Document, 0, len(results))
	for _, point := range results {
		docs = append(docs, documentFromPayload(point.GetPayload(), point.GetScore()))
	}
	return docs, nil
}

func documentFromPayload(payload map[string]*qdrant.Value, score float32) Document {
	doc := Document{Score: score}
	if v, ok := payload["id"]; ok {
		doc.ID = v.GetStringValue()
	}
	if v, ok := payload["content"]; ok {
		doc.Content = v.GetStringValue()
	}
	if v, ok := payload["source"]; ok {
		doc.Source = v.GetStringValue()
	}
	if v, ok := payload["chunk_index"]; ok {
		doc.ChunkIndex = int(v.GetIntegerValue())
	}
	return doc
}

// ExistingIDs checks which chunk IDs already have points in the collection.
// Only point identity is fetched, not payloads or vectors.
func (s *QdrantStore) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return existing, nil
	}

	byUUID := make(map[string]string, len(ids))
	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		u := PointUUID(id)
		byUUID[u] = id
		pointIDs = append(pointIDs, qdrant.NewIDUUID(u))
	}

	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.cfg.Collection,
		Ids:            pointIDs,
		WithPayload:    qdrant.NewWithPayload(false),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("checking %d existing points: %w", len(pointIDs), err)
	}

	for _, point := range points {
		if id, ok := byUUID[point.GetId().GetUuid()]; ok {
			existing[id] = true
		}
	}
	return existing, nil
}

// ListIDs pages through the collection and returns every stored chunk ID.
func (s *QdrantStore) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	limit := uint32(256)
	var offset *qdrant.PointId

	for {
		resp, err := s.client.GetPointsClient().Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: s.cfg.Collection,
			Limit:          &limit,
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayloadInclude("id"),
		})
		if err != nil {
			return nil, fmt.Errorf("scrolling collection %q: %w", s.cfg.Collection, err)
		}
		for _, point := range resp.GetResult() {
			if v, ok := point.GetPayload()["id"]; ok {
				ids = append(ids, v.GetStringValue())
			}
		}
		offset = resp.GetNextPageOffset()
		if offset == nil {
			break
		}
	}
	return ids, nil
}

// Delete removes chunks by their chunk IDs.
func (s *QdrantStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, qdrant.NewIDUUID(PointUUID(id)))
	}
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.cfg.Collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("deleting %d points: %w", len(pointIDs), err)
	}
	return nil
}

// Clear removes every point in the collection with a single match-all delete.
func (s *QdrantStore) Clear(ctx context.Context) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.cfg.Collection,
		Points:         qdrant.NewPointsSelectorFilter(&qdrant.Filter{}),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("clearing collection %q: %w", s.cfg.Collection, err)
	}
	return nil
}

// Count returns the number of points in the collection.
func (s *QdrantStore) Count(ctx context.Context) (uint64, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.cfg.Collection,
	})
	if err != nil {
		return 0, fmt.Errorf("counting collection %q: %w", s.cfg.Collection, err)
	}
	return n, nil
}

// Ping checks connectivity to the Qdrant server.
func (s *QdrantStore) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check: %w", err)
	}
	return nil
}

// Close shuts down the underlying gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"alfredoptarigan/interview-onboarding/internal/config"
	"alfredoptarigan/interview-onboarding/internal/logger"
)

const (
	resumeDocType     = "resume"
	embeddingSize     = 768
	defaultGRPCPort   = 6334
	payloadUserID     = "user_id"
	payloadDocType    = "doc_type"
	payloadText       = "text"
	payloadChunkIndex = "chunk_index"
)

// ResumeIndex stores embedded resume chunks per user for retrieval when summarising onboarding.
type ResumeIndex interface {
	InitCollection(ctx context.Context) error
	ReplaceUserChunks(ctx context.Context, userID uuid.UUID, chunks []string, embeddings [][]float32) error
	SearchUser(ctx context.Context, userID uuid.UUID, queryEmbedding []float32, limit int) ([]SearchResult, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

type SearchResult struct {
	ID         string
	Score      float32
	Text       string
	ChunkIndex int64
}

type resumeIndex struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
	log            *zap.Logger
}

func NewResumeIndex(cfg config.QdrantConfig, log *zap.Logger) (ResumeIndex, error) {
	parsed, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	port := defaultGRPCPort
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   parsed.Hostname(),
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: parsed.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &resumeIndex{
		client:         client,
		collectionName: cfg.Collection,
		vectorSize:     embeddingSize,
		log:            logger.OrNop(log),
	}, nil
}

// InitCollection implements ResumeIndex.
func (q *resumeIndex) InitCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if exists {
		q.log.Info("qdrant collection ready", zap.String("collection", q.collectionName))
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	q.log.Info("qdrant collection created", zap.String("collection", q.collectionName))
	return nil
}

// ReplaceUserChunks drops the user's previous chunks and stores the new ones.
func (q *resumeIndex) ReplaceUserChunks(ctx context.Context, userID uuid.UUID, chunks []string, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return errors.New("chunk and embedding counts differ")
	}

	if err := q.DeleteUser(ctx, userID); err != nil {
		return err
	}

	if len(chunks) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for i, chunk := range chunks {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(uuid.NewString()),
			Vectors: qdrant.NewVectors(embeddings[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadUserID:     userID.String(),
				payloadDocType:    resumeDocType,
				payloadText:       chunk,
				payloadChunkIndex: int64(i),
			}),
		})
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert resume chunks: %w", err)
	}

	q.log.Debug("resume chunks indexed",
		zap.String(logger.FieldUserID, userID.String()),
		zap.Int("chunks", len(points)),
	)
	return nil
}

// SearchUser implements ResumeIndex.
func (q *resumeIndex) SearchUser(ctx context.Context, userID uuid.UUID, queryEmbedding []float32, limit int) ([]SearchResult, error) {
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Filter:         userFilter(userID),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search resume chunks: %w", err)
	}

	results := make([]SearchResult, 0, len(points))
	for _, point := range points {
		payload := point.GetPayload()
		results = append(results, SearchResult{
			ID:         point.GetId().GetUuid(),
			Score:      point.GetScore(),
			Text:       payload[payloadText].GetStringValue(),
			ChunkIndex: payload[payloadChunkIndex].GetIntegerValue(),
		})
	}

	return results, nil
}

// DeleteUser implements ResumeIndex.
func (q *resumeIndex) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: userFilter(userID),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete resume chunks: %w", err)
	}
	return nil
}

func userFilter(userID uuid.UUID) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch(payloadUserID, userID.String()),
			qdrant.NewMatch(payloadDocType, resumeDocType),
		},
	}
}

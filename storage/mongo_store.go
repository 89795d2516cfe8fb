package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/BaSui01/vidflow/batch"
)

type mongoReport struct {
	ID         string    `bson:"_id"`
	Timestamp  time.Time `bson:"timestamp"`
	TotalJobs  int       `bson:"total_jobs"`
	Successful int       `bson:"successful"`
	Failed     int       `bson:"failed"`
	TotalCost  float64   `bson:"total_cost"`
	Payload    string    `bson:"payload,omitempty"`
}

// MongoStore keeps one document per report, keyed by report id.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
}

// NewMongoStore connects, pings and ensures the timestamp index.
func NewMongoStore(config MongoStoreConfig) (*MongoStore, error) {
	if config.URI == "" {
		return nil, fmt.Errorf("%w: mongo uri is required", ErrInvalidInput)
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client, err := mongo.Connect(options.Client().ApplyURI(config.URI).SetTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	coll := client.Database(config.Database).Collection(config.Collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "timestamp", Value: -1}},
	})
	if err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create report index: %w", err)
	}

	return &MongoStore{client: client, collection: coll, timeout: timeout}, nil
}

func (s *MongoStore) location(id string) string {
	return fmt.Sprintf("mongo://%s/%s/%s", s.collection.Database().Name(), s.collection.Name(), id)
}

// SaveReport upserts the report document.
func (s *MongoStore) SaveReport(ctx context.Context, report *batch.BatchReport) (string, error) {
	if err := validateReport(report); err != nil {
		return "", err
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	doc := mongoReport{
		ID:         report.ID,
		Timestamp:  report.Timestamp,
		TotalJobs:  report.TotalJobs,
		Successful: report.Successful,
		Failed:     report.Failed,
		TotalCost:  report.TotalCost,
		Payload:    string(payload),
	}

	_, err = s.collection.ReplaceOne(ctx, bson.M{"_id": report.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}
	return s.location(report.ID), nil
}

// GetReport loads a report by id.
func (s *MongoStore) GetReport(ctx context.Context, id string) (*batch.BatchReport, error) {
	var doc mongoReport
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var r batch.BatchReport
	if err := json.Unmarshal([]byte(doc.Payload), &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &r, nil
}

// ListReports returns summaries newest first without loading payloads.
func (s *MongoStore) ListReports(ctx context.Context, limit int) ([]ReportSummary, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.M{"payload": 0})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	var docs []mongoReport
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode reports: %w", err)
	}

	out := make([]ReportSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, ReportSummary{
			ID:         d.ID,
			Timestamp:  d.Timestamp,
			TotalJobs:  d.TotalJobs,
			Successful: d.Successful,
			Failed:     d.Failed,
			TotalCost:  d.TotalCost,
			Location:   s.location(d.ID),
		})
	}
	return out, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Ping checks if the store is healthy
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

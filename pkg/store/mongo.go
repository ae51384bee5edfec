package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/drbmap/pkg/mapping"
)

// DefaultDatabase is the database used when none is configured.
const DefaultDatabase = "drbmap"

const runsCollection = "runs"

// MongoStore keeps runs in the "runs" collection of a MongoDB database.
type MongoStore struct {
	client *mongo.Client
	runs   *mongo.Collection
}

// NewMongoStore connects to uri and pings the server.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if database == "" {
		database = DefaultDatabase
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoStore{client: client, runs: client.Database(database).Collection(runsCollection)}, nil
}

// runDoc is the BSON form of a Run. BSON has no unsigned 64-bit integer,
// so the seed is stored with its bits reinterpreted as int64.
type runDoc struct {
	ID         string          `bson:"_id"`
	CreatedAt  time.Time       `bson:"created_at"`
	GraphHash  string          `bson:"graph_hash"`
	Arch       string          `bson:"arch"`
	Policy     string          `bson:"policy"`
	Strategy   string          `bson:"strategy"`
	TieJobs    bool            `bson:"tie_jobs"`
	TieMapping bool            `bson:"tie_mapping"`
	Seed       int64           `bson:"seed"`
	CacheHit   bool            `bson:"cache_hit"`
	DurationNS int64           `bson:"duration_ns"`
	Terminals  []int           `bson:"terminals"`
	Metrics    mapping.Metrics `bson:"metrics"`
}

func toDoc(r *Run) runDoc {
	return runDoc{
		ID:         r.ID,
		CreatedAt:  r.CreatedAt,
		GraphHash:  r.GraphHash,
		Arch:       r.Arch,
		Policy:     r.Policy,
		Strategy:   r.Strategy,
		TieJobs:    r.TieJobs,
		TieMapping: r.TieMapping,
		Seed:       int64(r.Seed),
		CacheHit:   r.CacheHit,
		DurationNS: int64(r.Duration),
		Terminals:  r.Terminals,
		Metrics:    r.Metrics,
	}
}

func (d runDoc) run() *Run {
	return &Run{
		ID:         d.ID,
		CreatedAt:  d.CreatedAt,
		GraphHash:  d.GraphHash,
		Arch:       d.Arch,
		Policy:     d.Policy,
		Strategy:   d.Strategy,
		TieJobs:    d.TieJobs,
		TieMapping: d.TieMapping,
		Seed:       uint64(d.Seed),
		CacheHit:   d.CacheHit,
		Duration:   time.Duration(d.DurationNS),
		Terminals:  d.Terminals,
		Metrics:    d.Metrics,
	}
}

func (s *MongoStore) Put(ctx context.Context, r *Run) error {
	_, err := s.runs.ReplaceOne(ctx, bson.M{"_id": r.ID}, toDoc(r), options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("store run: %w", err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*Run, error) {
	var d runDoc
	err := s.runs.FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}
	return d.run(), nil
}

func (s *MongoStore) List(ctx context.Context, limit int) ([]*Run, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limitOrDefault(limit)))
	cur, err := s.runs.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	var docs []runDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	out := make([]*Run, len(docs))
	for i, d := range docs {
		out[i] = d.run()
	}
	return out, nil
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

var _ Store = (*MongoStore)(nil)

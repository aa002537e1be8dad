package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/poultryledger/internal/config"
	"github.com/mamadbah2/poultryledger/internal/domain/models"
)

// providersDocument holds the whole provider tree under a single key.
type providersDocument struct {
	Key       string                 `bson:"_id"`
	Providers []models.ProviderStock `bson:"value"`
	UpdatedAt time.Time              `bson:"updated_at"`
}

type settingsDocument struct {
	Key       string          `bson:"_id"`
	Settings  models.Settings `bson:"value"`
	UpdatedAt time.Time       `bson:"updated_at"`
}

// MongoDBRepository stores ledger snapshots as keyed documents in one
// collection. Every save replaces the previous document for its key.
type MongoDBRepository struct {
	client       *mongo.Client
	dbName       string
	collName     string
	providersKey string
	settingsKey  string
	now          func() time.Time
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, cfg config.StorageConfig) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(cfg.MongoURI)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client:       client,
		dbName:       cfg.DBName,
		collName:     cfg.Collection,
		providersKey: cfg.ProvidersKey,
		settingsKey:  cfg.SettingsKey,
		now:          time.Now,
	}, nil
}

func (r *MongoDBRepository) collection() *mongo.Collection {
	return r.client.Database(r.dbName).Collection(r.collName)
}

// LoadProviders returns the stored provider tree, or an empty one when the
// key has never been written.
func (r *MongoDBRepository) LoadProviders(ctx context.Context) ([]models.ProviderStock, error) {
	var doc providersDocument
	err := r.collection().FindOne(ctx, bson.M{"_id": r.providersKey}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []models.ProviderStock{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load providers: %w", err)
	}
	if doc.Providers == nil {
		doc.Providers = []models.ProviderStock{}
	}
	return doc.Providers, nil
}

// SaveProviders replaces the stored provider tree.
func (r *MongoDBRepository) SaveProviders(ctx context.Context, providers []models.ProviderStock) error {
	doc := providersDocument{Key: r.providersKey, Providers: providers, UpdatedAt: r.now().UTC()}
	if err := r.upsert(ctx, r.providersKey, doc); err != nil {
		return fmt.Errorf("failed to save providers: %w", err)
	}
	return nil
}

// LoadSettings returns the stored settings, or zero settings when absent.
func (r *MongoDBRepository) LoadSettings(ctx context.Context) (models.Settings, error) {
	var doc settingsDocument
	err := r.collection().FindOne(ctx, bson.M{"_id": r.settingsKey}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Settings{}, nil
	}
	if err != nil {
		return models.Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	return doc.Settings, nil
}

// SaveSettings replaces the stored settings.
func (r *MongoDBRepository) SaveSettings(ctx context.Context, settings models.Settings) error {
	doc := settingsDocument{Key: r.settingsKey, Settings: settings, UpdatedAt: r.now().UTC()}
	if err := r.upsert(ctx, r.settingsKey, doc); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

func (r *MongoDBRepository) upsert(ctx context.Context, key string, doc interface{}) error {
	_, err := r.collection().ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	return err
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

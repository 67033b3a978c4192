package mg

import (
	"context"
	"fmt"
	"time"

	"ichor/ichor/defs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const (
	GlucoseCollection = "glucose"
	ReportsCollection = "reports"
)

type GlucoseStore interface {
	WriteGlucose(ctx context.Context, tr *defs.TransformedReading) (*mongo.UpdateResult, error)
	ReadGlucose(ctx context.Context, start, end time.Time) ([]defs.TransformedReading, error)
}

type ReportStore interface {
	WriteReport(ctx context.Context, vr *defs.VariabilityReport) (*mongo.UpdateResult, error)
	ReadReports(ctx context.Context, start, end time.Time) ([]defs.VariabilityReport, error)
}

type MongoStore struct {
	Client *mongo.Client
	Logger *zap.Logger

	DBName string
}

func New(ctx context.Context, cfg defs.MongoConfig, logger *zap.Logger) (*MongoStore, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.Username != "" {
		opts.SetAuth(options.Credential{
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}

	mongoClient, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to mongo: %w", err)
	}

	dbName := cfg.Database
	if dbName == "" {
		dbName = defs.DefaultDB
	}

	return &MongoStore{
		Client: mongoClient,
		Logger: logger,
		DBName: dbName,
	}, nil
}

func (ms *MongoStore) Ping(ctx context.Context) error {
	return ms.Client.Ping(ctx, readpref.Primary())
}

func (ms *MongoStore) Close(ctx context.Context) error {
	return ms.Client.Disconnect(ctx)
}

func (ms *MongoStore) collection(name string) *mongo.Collection {
	return ms.Client.Database(ms.DBName).Collection(name)
}

func (ms *MongoStore) insertIfNew(ctx context.Context, collection string, filter bson.M, doc interface{}) (*mongo.UpdateResult, error) {
	ms.Logger.Debug(
		"inserting document",
		zap.String("collection", collection),
		zap.Any("filter", filter),
	)

	res, err := ms.collection(collection).UpdateOne(ctx, filter,
		bson.M{"$setOnInsert": doc},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to insert if new: %w", err)
	}
	return res, nil
}

func (ms *MongoStore) upsert(ctx context.Context, collection string, filter bson.M, doc interface{}) (*mongo.UpdateResult, error) {
	ms.Logger.Debug(
		"upserting document",
		zap.String("collection", collection),
		zap.Any("filter", filter),
	)

	res, err := ms.collection(collection).UpdateOne(ctx, filter,
		bson.M{"$set": doc},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		ms.Logger.Debug(
			"unable to upsert document",
			zap.String("collection", collection),
			zap.Error(err),
		)
		return nil, fmt.Errorf("unable to upsert document: %w", err)
	}
	return res, nil
}

// between decodes the documents whose field lies in [start, end], sorted by that field.
func (ms *MongoStore) between(ctx context.Context, collection, field string, start, end time.Time, slicePtr interface{}) error {
	ms.Logger.Debug(
		"reading documents",
		zap.String("collection", collection),
		zap.Time("start", start),
		zap.Time("end", end),
	)

	findOptions := options.Find()
	findOptions.SetSort(bson.D{primitive.E{Key: field, Value: 1}})

	cur, err := ms.collection(collection).Find(ctx, bson.M{
		field: bson.M{
			"$gte": primitive.NewDateTimeFromTime(start),
			"$lte": primitive.NewDateTimeFromTime(end),
		},
	}, findOptions)
	if err != nil {
		return fmt.Errorf("unable to read documents: %w", err)
	}

	return cur.All(ctx, slicePtr)
}

// WriteGlucose inserts tr unless a reading with the same time exists.
func (ms *MongoStore) WriteGlucose(ctx context.Context, tr *defs.TransformedReading) (*mongo.UpdateResult, error) {
	return ms.insertIfNew(ctx, GlucoseCollection, bson.M{"time": tr.Time}, tr)
}

func (ms *MongoStore) ReadGlucose(ctx context.Context, start, end time.Time) ([]defs.TransformedReading, error) {
	var trs []defs.TransformedReading
	if err := ms.between(ctx, GlucoseCollection, "time", start, end, &trs); err != nil {
		return nil, fmt.Errorf("unable to read glucose: %w", err)
	}
	return trs, nil
}

// WriteReport replaces the report covering the same window.
func (ms *MongoStore) WriteReport(ctx context.Context, vr *defs.VariabilityReport) (*mongo.UpdateResult, error) {
	filter := bson.M{"start": vr.Start, "end": vr.End}
	return ms.upsert(ctx, ReportsCollection, filter, vr)
}

// ReadReports returns reports whose window ends within [start, end].
func (ms *MongoStore) ReadReports(ctx context.Context, start, end time.Time) ([]defs.VariabilityReport, error) {
	var vrs []defs.VariabilityReport
	if err := ms.between(ctx, ReportsCollection, "end", start, end, &vrs); err != nil {
		return nil, fmt.Errorf("unable to read reports: %w", err)
	}
	return vrs, nil
}

// Package store holds optional sinks for classified records.
package store

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/navahdam/pktwatch/api/interfaces"
	"github.com/navahdam/pktwatch/classify"
	"github.com/navahdam/pktwatch/config"
)

const insertTimeout = 5 * time.Second

var _ interfaces.Consumer = &MongoSink{}

// MongoSink persists every forwarded record into a MongoDB collection.
// Insert failures are logged and never propagated into the pipeline.
type MongoSink struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger *logrus.Logger
}

func NewMongoSink(ctx context.Context, cfg config.Persistence, logger *logrus.Logger) (*MongoSink, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Url))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	return &MongoSink{
		client: client,
		coll:   client.Database(cfg.DB).Collection(cfg.Collection),
		logger: logger,
	}, nil
}

func (s *MongoSink) Forward(rec classify.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
	defer cancel()

	doc := bson.M{
		"timestamp": rec.Packet.Timestamp,
		"src_addr":  rec.Packet.SrcAddr,
		"dst_addr":  rec.Packet.DstAddr,
		"src_port":  rec.Packet.SrcPort,
		"dst_port":  rec.Packet.DstPort,
		"protocol":  rec.Packet.Protocol,
		"blocked":   rec.Blocked,
		"line":      rec.Line,
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		s.logger.WithError(err).Error("Failed to persist record")
	}
}

func (s *MongoSink) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

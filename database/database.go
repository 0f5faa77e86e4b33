package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Khalil-Ghimaji/DoussiyaFidaya-sub001/logging"
)

var Client *mongo.Client
var Messages *mongo.Collection
var Attachments *mongo.Collection
var Subscriptions *mongo.Collection
var Doctors *mongo.Collection
var Patients *mongo.Collection

func ConnectMongo(uri, dbName string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var err error
	Client, err = mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return err
	}

	// Ping MongoDB
	if err := Client.Ping(ctx, nil); err != nil {
		return err
	}

	db := Client.Database(dbName)
	Messages = db.Collection("messages")
	Attachments = db.Collection("attachments")
	Subscriptions = db.Collection("push_subscriptions")
	Doctors = db.Collection("doctors")
	Patients = db.Collection("patients")

	logging.L().Info().Str("database", dbName).Msg("connected to MongoDB")
	return nil
}

func DisconnectMongo() error {
	if Client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := Client.Disconnect(ctx); err != nil {
		return err
	}

	logging.L().Info().Msg("disconnected from MongoDB")
	return nil
}

package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Test connection
	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	// Create indexes
	err = createIndexes(client, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes: %v", err)
	}

	return client, nil
}

func createIndexes(client *mongo.Client, dbName string) error {
	db := client.Database(dbName)

	// Courses are keyed by year+branch, exams by exam name. The unique
	// indexes back the find-or-create race in the merge-upsert path.
	coursesCollection := db.Collection("courses")
	courseIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "year", Value: 1}, {Key: "branch", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err := coursesCollection.Indexes().CreateMany(context.Background(), courseIndexes)
	if err != nil {
		return err
	}

	examsCollection := db.Collection("exams")
	examIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "exam", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err = examsCollection.Indexes().CreateMany(context.Background(), examIndexes)
	if err != nil {
		return err
	}

	// Users collection indexes
	usersCollection := db.Collection("users")
	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err = usersCollection.Indexes().CreateMany(context.Background(), userIndexes)
	if err != nil {
		return err
	}

	// Student activity indexes for per-user and recency queries
	activitiesCollection := db.Collection("student_activities")
	activityIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "timestamp", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "kind", Value: 1}, {Key: "subject", Value: 1}},
		},
	}
	_, err = activitiesCollection.Indexes().CreateMany(context.Background(), activityIndexes)
	if err != nil {
		return err
	}

	// Meetings collection indexes
	meetingsCollection := db.Collection("meetings")
	meetingIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "email", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "approved", Value: 1}},
		},
	}
	_, err = meetingsCollection.Indexes().CreateMany(context.Background(), meetingIndexes)
	if err != nil {
		return err
	}

	return nil
}

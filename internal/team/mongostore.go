package team

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore is a Store backed by a MongoDB collection. Each team is one
// document; Replace is a ReplaceOne filtered on both _id and version.
type MongoStore struct {
	c *mongo.Collection
}

// NewMongoStore creates a MongoStore over the "teams" collection.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{c: db.Collection("teams")}
}

// EnsureIndexes creates the indexes used by List.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_teams_created"),
		},
		{
			Keys:    bson.D{{Key: "sport", Value: 1}, {Key: "city", Value: 1}},
			Options: options.Index().SetName("idx_teams_sport_city"),
		},
		{
			Keys:    bson.D{{Key: "members", Value: 1}},
			Options: options.Index().SetName("idx_teams_members"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

func (s *MongoStore) Create(ctx context.Context, t *Team) error {
	t.Version = 1
	if _, err := s.c.InsertOne(ctx, t); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrVersionConflict
		}
		return fmt.Errorf("creating team: %w", err)
	}
	return nil
}

func (s *MongoStore) GetByID(ctx context.Context, id string) (*Team, error) {
	var t Team
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting team: %w", err)
	}
	normalize(&t)
	return &t, nil
}

func (s *MongoStore) List(ctx context.Context, f Filter) ([]*Team, error) {
	filter := bson.M{}
	exact := map[string]string{
		"sport":       f.Sport,
		"city":        f.City,
		"state":       f.State,
		"district":    f.District,
		"skill_level": f.SkillLevel,
	}
	for field, v := range exact {
		if v = strings.TrimSpace(v); v != "" {
			filter[field] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(v) + "$", Options: "i"}
		}
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
		filter["$or"] = bson.A{bson.M{"name": re}, bson.M{"description": re}}
	}
	if f.MemberID != "" {
		filter["members"] = f.MemberID
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	defer cur.Close(ctx)

	teams := []*Team{}
	for cur.Next(ctx) {
		var t Team
		if err := cur.Decode(&t); err != nil {
			return nil, fmt.Errorf("decoding team: %w", err)
		}
		normalize(&t)
		teams = append(teams, &t)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterating teams: %w", err)
	}
	return teams, nil
}

func (s *MongoStore) Replace(ctx context.Context, t *Team, expectedVersion int64) error {
	doc := t.Clone()
	doc.Version = expectedVersion + 1

	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": t.ID, "version": expectedVersion}, doc)
	if err != nil {
		return fmt.Errorf("replacing team: %w", err)
	}
	if res.MatchedCount == 1 {
		t.Version = doc.Version
		return nil
	}

	n, err := s.c.CountDocuments(ctx, bson.M{"_id": t.ID})
	if err != nil {
		return fmt.Errorf("checking team: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrVersionConflict
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("deleting team: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// normalize replaces nil slices left by documents with missing arrays.
func normalize(t *Team) {
	if t.Members == nil {
		t.Members = []string{}
	}
	if t.JoinRequests == nil {
		t.JoinRequests = []string{}
	}
}

package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/shashiranjanraj/coursemart/app/models"
	"github.com/shashiranjanraj/coursemart/pkg/logger"
	"github.com/shashiranjanraj/coursemart/pkg/metrics"
)

const (
	colUsers     = "users"
	colAdmins    = "admins"
	colCourses   = "courses"
	colPurchases = "purchases"
	colOrders    = "orders"
)

// MongoStore keeps each entity in its own collection. Ids are ObjectID hex
// strings stored as the string _id.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
}

func NewMongoStore(client *mongo.Client, db *mongo.Database) *MongoStore {
	return &MongoStore{client: client, db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *MongoStore) Backend() string               { return "mongo" }
func (s *MongoStore) Users() UserRepository         { return mongoUsers{s} }
func (s *MongoStore) Admins() AdminRepository       { return mongoAdmins{s} }
func (s *MongoStore) Courses() CourseRepository     { return mongoCourses{s} }
func (s *MongoStore) Purchases() PurchaseRepository { return mongoPurchases{s} }
func (s *MongoStore) Orders() OrderRepository       { return mongoOrders{s} }

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) col(name string) *mongo.Collection { return s.db.Collection(name) }

// EnsureIndexes creates the unique and sort indexes. It is idempotent and
// runs at startup and from `coursemart migrate`.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		colUsers: {{
			Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_unique"),
		}},
		colAdmins: {{
			Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_unique"),
		}},
		colCourses: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}, Options: options.Index().SetName("created_desc")},
			{Keys: bson.D{{Key: "creatorId", Value: 1}}, Options: options.Index().SetName("creator")},
		},
		colPurchases: {{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "courseId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("user_course_unique"),
		}},
		colOrders: {
			{Keys: bson.D{{Key: "paymentId", Value: 1}}, Options: options.Index().SetUnique(true).SetName("payment_unique")},
			{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetName("user")},
		},
	}
	for name, idx := range specs {
		if _, err := s.col(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("repositories/mongo: indexes on %s: %w", name, err)
		}
	}
	return nil
}

func newObjectID() string { return primitive.NewObjectID().Hex() }

func mongoErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	default:
		return fmt.Errorf("repositories/mongo: %s: %w", op, err)
	}
}

// RecordPurchase inserts the purchase first: its unique index decides
// between concurrent buyers. If the order insert then fails the purchase is
// deleted again.
func (s *MongoStore) RecordPurchase(ctx context.Context, o *models.Order, p *models.Purchase) error {
	defer metrics.ObserveStore("mongo", "purchases.record", time.Now())

	now := s.now()
	if p.ID == "" {
		p.ID = newObjectID()
	}
	if o.ID == "" {
		o.ID = newObjectID()
	}
	p.CreatedAt, p.UpdatedAt = now, now
	o.CreatedAt, o.UpdatedAt = now, now

	if _, err := s.col(colPurchases).InsertOne(ctx, p); err != nil {
		return mongoErr("insert purchase", err)
	}

	if _, err := s.col(colOrders).InsertOne(ctx, o); err != nil {
		cctx := context.WithoutCancel(ctx)
		if _, derr := s.col(colPurchases).DeleteOne(cctx, bson.M{"_id": p.ID}); derr != nil {
			logger.WithCtx(ctx).Error("repositories/mongo: purchase compensation failed",
				"purchase_id", p.ID, "error", derr)
		}
		return mongoErr("insert order", err)
	}
	return nil
}

// ─── Users / Admins ───────────────────────────────────────────────────────────

type mongoUsers struct{ s *MongoStore }

func (r mongoUsers) Create(ctx context.Context, u *models.User) error {
	defer metrics.ObserveStore("mongo", "users.insert", time.Now())
	if u.ID == "" {
		u.ID = newObjectID()
	}
	now := r.s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := r.s.col(colUsers).InsertOne(ctx, u)
	return mongoErr("insert user", err)
}

func (r mongoUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	defer metrics.ObserveStore("mongo", "users.by_email", time.Now())
	var u models.User
	if err := r.s.col(colUsers).FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		return nil, mongoErr("find user", err)
	}
	return &u, nil
}

func (r mongoUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	defer metrics.ObserveStore("mongo", "users.by_id", time.Now())
	var u models.User
	if err := r.s.col(colUsers).FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, mongoErr("find user", err)
	}
	return &u, nil
}

type mongoAdmins struct{ s *MongoStore }

func (r mongoAdmins) Create(ctx context.Context, a *models.Admin) error {
	defer metrics.ObserveStore("mongo", "admins.insert", time.Now())
	if a.ID == "" {
		a.ID = newObjectID()
	}
	a.CreatedAt = r.s.now()
	_, err := r.s.col(colAdmins).InsertOne(ctx, a)
	return mongoErr("insert admin", err)
}

func (r mongoAdmins) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	defer metrics.ObserveStore("mongo", "admins.by_email", time.Now())
	var a models.Admin
	if err := r.s.col(colAdmins).FindOne(ctx, bson.M{"email": email}).Decode(&a); err != nil {
		return nil, mongoErr("find admin", err)
	}
	return &a, nil
}

func (r mongoAdmins) FindByID(ctx context.Context, id string) (*models.Admin, error) {
	defer metrics.ObserveStore("mongo", "admins.by_id", time.Now())
	var a models.Admin
	if err := r.s.col(colAdmins).FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return nil, mongoErr("find admin", err)
	}
	return &a, nil
}

// ─── Courses ──────────────────────────────────────────────────────────────────

type mongoCourses struct{ s *MongoStore }

var newestFirst = options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})

func (r mongoCourses) Create(ctx context.Context, c *models.Course) error {
	defer metrics.ObserveStore("mongo", "courses.insert", time.Now())
	if c.ID == "" {
		c.ID = newObjectID()
	}
	now := r.s.now()
	c.CreatedAt, c.UpdatedAt = now, now
	if c.Images == nil {
		c.Images = []models.Image{}
	}
	_, err := r.s.col(colCourses).InsertOne(ctx, c)
	return mongoErr("insert course", err)
}

func (r mongoCourses) FindByID(ctx context.Context, id string) (*models.Course, error) {
	defer metrics.ObserveStore("mongo", "courses.by_id", time.Now())
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r mongoCourses) FindOwned(ctx context.Context, id, creatorID string) (*models.Course, error) {
	defer metrics.ObserveStore("mongo", "courses.owned", time.Now())
	return r.findOne(ctx, bson.M{"_id": id, "creatorId": creatorID})
}

func (r mongoCourses) findOne(ctx context.Context, filter bson.M) (*models.Course, error) {
	var c models.Course
	if err := r.s.col(colCourses).FindOne(ctx, filter).Decode(&c); err != nil {
		return nil, mongoErr("find course", err)
	}
	return &c, nil
}

func (r mongoCourses) FindByIDs(ctx context.Context, ids []string) ([]models.Course, error) {
	defer metrics.ObserveStore("mongo", "courses.by_ids", time.Now())
	if len(ids) == 0 {
		return []models.Course{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r mongoCourses) List(ctx context.Context) ([]models.Course, error) {
	defer metrics.ObserveStore("mongo", "courses.list", time.Now())
	return r.find(ctx, bson.M{})
}

func (r mongoCourses) find(ctx context.Context, filter bson.M) ([]models.Course, error) {
	cur, err := r.s.col(colCourses).Find(ctx, filter, newestFirst)
	if err != nil {
		return nil, mongoErr("find courses", err)
	}
	out := []models.Course{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, mongoErr("decode courses", err)
	}
	return out, nil
}

func (r mongoCourses) UpdateOwned(ctx context.Context, c *models.Course) error {
	defer metrics.ObserveStore("mongo", "courses.update", time.Now())
	update := bson.M{"$set": bson.M{
		"title":       c.Title,
		"description": c.Description,
		"price":       c.Price,
		"images":      c.Images,
		"updatedAt":   r.s.now(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Course
	err := r.s.col(colCourses).
		FindOneAndUpdate(ctx, bson.M{"_id": c.ID, "creatorId": c.CreatorID}, update, opts).
		Decode(&updated)
	if err != nil {
		return mongoErr("update course", err)
	}
	*c = updated
	return nil
}

func (r mongoCourses) DeleteOwned(ctx context.Context, id, creatorID string) error {
	defer metrics.ObserveStore("mongo", "courses.delete", time.Now())
	res, err := r.s.col(colCourses).DeleteOne(ctx, bson.M{"_id": id, "creatorId": creatorID})
	if err != nil {
		return mongoErr("delete course", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ─── Purchases / Orders ───────────────────────────────────────────────────────

type mongoPurchases struct{ s *MongoStore }

func (r mongoPurchases) Exists(ctx context.Context, userID, courseID string) (bool, error) {
	defer metrics.ObserveStore("mongo", "purchases.exists", time.Now())
	n, err := r.s.col(colPurchases).CountDocuments(ctx,
		bson.M{"userId": userID, "courseId": courseID}, options.Count().SetLimit(1))
	if err != nil {
		return false, mongoErr("count purchases", err)
	}
	return n > 0, nil
}

func (r mongoPurchases) ListByUser(ctx context.Context, userID string) ([]models.Purchase, error) {
	defer metrics.ObserveStore("mongo", "purchases.by_user", time.Now())
	cur, err := r.s.col(colPurchases).Find(ctx, bson.M{"userId": userID}, newestFirst)
	if err != nil {
		return nil, mongoErr("find purchases", err)
	}
	out := []models.Purchase{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, mongoErr("decode purchases", err)
	}
	return out, nil
}

type mongoOrders struct{ s *MongoStore }

func (r mongoOrders) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	defer metrics.ObserveStore("mongo", "orders.by_user", time.Now())
	cur, err := r.s.col(colOrders).Find(ctx, bson.M{"userId": userID}, newestFirst)
	if err != nil {
		return nil, mongoErr("find orders", err)
	}
	out := []models.Order{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, mongoErr("decode orders", err)
	}
	return out, nil
}

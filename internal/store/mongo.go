package store

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

	"github.com/psds-microservice/delivery-service/internal/errs"
	"github.com/psds-microservice/delivery-service/internal/model"
)

const (
	ticketCollection = "deliveryrequests"
	adminCollection  = "adminusers"
)

type ticketDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	CustomerName string             `bson:"customerName"`
	Email        string             `bson:"email"`
	Phone        string             `bson:"phone"`
	PhotoName    string             `bson:"photoName,omitempty"`
	PhotoPath    string             `bson:"photoPath,omitempty"`
	Description  string             `bson:"description"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

type adminDocument struct {
	Username string `bson:"uAdminName"`
	Password string `bson:"uAdminPassword"`
}

type MongoGateway struct {
	client  *mongo.Client
	tickets *mongo.Collection
	admins  *mongo.Collection
	now     func() time.Time
}

// ConnectMongo dials uri and verifies the primary is reachable.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

func NewMongoGateway(client *mongo.Client, database string) *MongoGateway {
	db := client.Database(database)
	return &MongoGateway{
		client:  client,
		tickets: db.Collection(ticketCollection),
		admins:  db.Collection(adminCollection),
		now:     time.Now,
	}
}

func (g *MongoGateway) CreateTicket(ctx context.Context, t *model.Ticket) error {
	now := g.now().UTC()
	doc := toTicketDocument(t)
	doc.CreatedAt, doc.UpdatedAt = now, now
	res, err := g.tickets.InsertOne(ctx, doc)
	if err != nil {
		return err
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("mongo: unexpected inserted id %T", res.InsertedID)
	}
	t.ID = oid.Hex()
	t.CreatedAt, t.UpdatedAt = now, now
	return nil
}

func (g *MongoGateway) ListTickets(ctx context.Context) ([]model.Ticket, error) {
	cur, err := g.tickets.Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	var docs []ticketDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	items := make([]model.Ticket, 0, len(docs))
	for i := range docs {
		items = append(items, docs[i].toModel())
	}
	return items, nil
}

func (g *MongoGateway) GetTicket(ctx context.Context, id string) (*model.Ticket, error) {
	oid, ok := parseObjectID(id)
	if !ok {
		return nil, errs.ErrTicketNotFound
	}
	var doc ticketDocument
	if err := g.tickets.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errs.ErrTicketNotFound
		}
		return nil, err
	}
	t := doc.toModel()
	return &t, nil
}

func (g *MongoGateway) UpdateTicket(ctx context.Context, id string, u TicketUpdate) error {
	oid, ok := parseObjectID(id)
	if !ok {
		return errs.ErrTicketNotFound
	}
	res, err := g.tickets.UpdateOne(ctx, bson.D{{Key: "_id", Value: oid}}, updateDocument(u, g.now().UTC()))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errs.ErrTicketNotFound
	}
	return nil
}

func (g *MongoGateway) DeleteTicket(ctx context.Context, id string) error {
	oid, ok := parseObjectID(id)
	if !ok {
		return nil
	}
	_, err := g.tickets.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	return err
}

func (g *MongoGateway) Authenticate(ctx context.Context, username, password string) (bool, error) {
	n, err := g.admins.CountDocuments(ctx, credentialFilter(username, password), options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (g *MongoGateway) SaveAdmin(ctx context.Context, cred model.AdminCredential) error {
	_, err := g.admins.ReplaceOne(ctx,
		bson.D{{Key: "uAdminName", Value: cred.Username}},
		adminDocument{Username: cred.Username, Password: cred.Password},
		options.Replace().SetUpsert(true),
	)
	return err
}

func (g *MongoGateway) Ping(ctx context.Context) error {
	return g.client.Ping(ctx, readpref.Primary())
}

func parseObjectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}

func credentialFilter(username, password string) bson.D {
	return bson.D{
		{Key: "uAdminName", Value: username},
		{Key: "uAdminPassword", Value: password},
	}
}

func updateDocument(u TicketUpdate, now time.Time) bson.D {
	set := bson.D{
		{Key: "customerName", Value: u.CustomerName},
		{Key: "email", Value: u.Email},
		{Key: "phone", Value: u.Phone},
		{Key: "description", Value: u.Description},
		{Key: "updatedAt", Value: now},
	}
	if u.replacesPhoto() {
		set = append(set,
			bson.E{Key: "photoName", Value: u.PhotoName},
			bson.E{Key: "photoPath", Value: u.PhotoPath},
		)
	}
	return bson.D{{Key: "$set", Value: set}}
}

func toTicketDocument(t *model.Ticket) ticketDocument {
	return ticketDocument{
		CustomerName: t.CustomerName,
		Email:        t.Email,
		Phone:        t.Phone,
		PhotoName:    t.PhotoName,
		PhotoPath:    t.PhotoPath,
		Description:  t.Description,
	}
}

func (d ticketDocument) toModel() model.Ticket {
	return model.Ticket{
		ID:           d.ID.Hex(),
		CustomerName: d.CustomerName,
		Email:        d.Email,
		Phone:        d.Phone,
		PhotoName:    d.PhotoName,
		PhotoPath:    d.PhotoPath,
		Description:  d.Description,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

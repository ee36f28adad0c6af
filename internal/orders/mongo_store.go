package orders

import (
	"context"
	"errors"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"glitchstore/internal/models"
)

// MongoStore implements Store on the shared mongo database. Multi-row
// mutations run inside a session transaction; the conditional stock decrement
// uses a filtered $inc so racing updates serialize in the storage layer.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

func (s *MongoStore) orders() *mongo.Collection   { return s.db.Collection("orders") }
func (s *MongoStore) payments() *mongo.Collection { return s.db.Collection("payments") }
func (s *MongoStore) products() *mongo.Collection { return s.db.Collection("products") }
func (s *MongoStore) users() *mongo.Collection    { return s.db.Collection("users") }

func (s *MongoStore) ActiveProducts(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Product, error) {
	cursor, err := s.products().Find(ctx, bson.M{
		"_id":      bson.M{"$in": ids},
		"isActive": true,
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	result := make(map[primitive.ObjectID]models.Product, len(ids))
	for cursor.Next(ctx) {
		var p models.Product
		if err := cursor.Decode(&p); err != nil {
			return nil, err
		}
		result[p.ID] = p
	}
	return result, cursor.Err()
}

func (s *MongoStore) CreateOrder(ctx context.Context, order *models.Order, payment *models.Payment) error {
	session, err := s.db.Client().StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		if _, err := s.orders().InsertOne(sessCtx, order); err != nil {
			return nil, err
		}
		if _, err := s.payments().InsertOne(sessCtx, payment); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

func (s *MongoStore) OrderByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	err := s.orders().FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &NotFoundError{Resource: "order", ID: id.Hex()}
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *MongoStore) OrderByExternalRef(ctx context.Context, ref string) (*models.Order, error) {
	var order models.Order
	err := s.orders().FindOne(ctx, bson.M{"mpExternalReference": ref}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &NotFoundError{Resource: "order", ID: ref}
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *MongoStore) PaymentByOrderID(ctx context.Context, orderID primitive.ObjectID) (*models.Payment, error) {
	var payment models.Payment
	err := s.payments().FindOne(ctx, bson.M{"orderId": orderID}).Decode(&payment)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &NotFoundError{Resource: "payment", ID: orderID.Hex()}
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (s *MongoStore) UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := s.users().FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &NotFoundError{Resource: "user", ID: id.Hex()}
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *MongoStore) MarkPaymentPending(ctx context.Context, orderID primitive.ObjectID, preferenceID string) error {
	session, err := s.db.Client().StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		now := time.Now()
		if _, err := s.payments().UpdateOne(sessCtx,
			bson.M{"orderId": orderID},
			bson.M{"$set": bson.M{"mpPreferenceId": preferenceID, "updatedAt": now}},
		); err != nil {
			return nil, err
		}

		// Only a PENDING order advances; a webhook that already moved the
		// order must not be rolled back to PAYMENT_PENDING.
		res, err := s.orders().UpdateOne(sessCtx,
			bson.M{"_id": orderID, "status": models.OrderPending},
			bson.M{"$set": bson.M{"status": models.OrderPaymentPending, "updatedAt": now}},
		)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			log.Printf("[ORDER] [WARN] order %s advanced past PENDING before preference was recorded", orderID.Hex())
		}
		return nil, nil
	})
	return err
}

func (s *MongoStore) ApplyPaymentResult(ctx context.Context, orderID primitive.ObjectID, upd PaymentUpdate, next models.OrderStatus, decrementStock bool) (models.OrderStatus, error) {
	session, err := s.db.Client().StartSession()
	if err != nil {
		return "", err
	}
	defer session.EndSession(ctx)

	final, err := session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		var order models.Order
		if err := s.orders().FindOne(sessCtx, bson.M{"_id": orderID}).Decode(&order); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, &NotFoundError{Resource: "order", ID: orderID.Hex()}
			}
			return nil, err
		}

		now := time.Now()
		set := bson.M{
			"mpPaymentId":    upd.MPPaymentID,
			"mpStatus":       upd.MPStatus,
			"mpStatusDetail": upd.MPStatusDetail,
			"mpPaymentType":  upd.MPPaymentType,
			"mpInstallments": upd.MPInstallments,
			"status":         upd.Status,
			"updatedAt":      now,
		}
		if len(upd.RawPayload) > 0 {
			set["webhookData"] = string(upd.RawPayload)
		}
		if _, err := s.payments().UpdateOne(sessCtx, bson.M{"orderId": orderID}, bson.M{"$set": set}); err != nil {
			return nil, err
		}

		// Replay guard: once PAID, the transition and its stock decrement
		// have already been applied and must not repeat.
		if order.Status == models.OrderPaid {
			return order.Status, nil
		}

		if decrementStock {
			for _, item := range order.Items {
				if _, err := s.products().UpdateOne(sessCtx,
					bson.M{"_id": item.ProductID},
					bson.M{"$inc": bson.M{"stock": -item.Quantity}},
				); err != nil {
					return nil, err
				}
			}
		}

		status := order.Status
		if next != "" {
			status = next
			if _, err := s.orders().UpdateOne(sessCtx,
				bson.M{"_id": orderID},
				bson.M{"$set": bson.M{"status": next, "updatedAt": now}},
			); err != nil {
				return nil, err
			}
		}
		return status, nil
	})
	if err != nil {
		return "", err
	}
	return final.(models.OrderStatus), nil
}

func (s *MongoStore) UpdateOrderStatus(ctx context.Context, id primitive.ObjectID, status models.OrderStatus, notes string) (*models.Order, error) {
	set := bson.M{"status": status, "updatedAt": time.Now()}
	if notes != "" {
		set["notes"] = notes
	}

	var order models.Order
	err := s.orders().FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &NotFoundError{Resource: "order", ID: id.Hex()}
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *MongoStore) ListOrders(ctx context.Context, q OrderQuery) ([]models.Order, int64, error) {
	filter := bson.M{}
	if q.Status != "" {
		filter["status"] = q.Status
	}
	if q.UserID != nil {
		filter["userId"] = *q.UserID
	}
	if q.StartDate != nil || q.EndDate != nil {
		created := bson.M{}
		if q.StartDate != nil {
			created["$gte"] = *q.StartDate
		}
		if q.EndDate != nil {
			created["$lte"] = *q.EndDate
		}
		filter["createdAt"] = created
	}

	total, err := s.orders().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((q.Page - 1) * q.Limit).
		SetLimit(q.Limit)

	cursor, err := s.orders().Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	orders := make([]models.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

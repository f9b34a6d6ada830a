package repository

import (
	"context"
	"time"

	mongotx "clinicslots/pkg/db/mongo"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type mongoStore struct {
	client      *mongo.Client
	txManager   mongotx.TransactionManager
	holds       *mongoHoldRepository
	capacities  *mongoCapacityRepository
	lockTimeout time.Duration
}

// NewMongoStore builds a Store on a replica-set backed database. lockTimeout
// bounds each unit of work, including the driver's write-conflict retries.
func NewMongoStore(client *mongo.Client, databaseName string, opTimeout, lockTimeout time.Duration) Store {
	db := client.Database(databaseName)
	return &mongoStore{
		client:      client,
		txManager:   mongotx.NewTransactionManager(client),
		holds:       newMongoHoldRepository(db, opTimeout),
		capacities:  newMongoCapacityRepository(db, opTimeout),
		lockTimeout: lockTimeout,
	}
}

func (s *mongoStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	return s.txManager.ExecuteTransaction(ctx, mongotx.TransactionFunc(fn))
}

func (s *mongoStore) Holds() HoldRepository {
	return s.holds
}

func (s *mongoStore) Capacities() CapacityRepository {
	return s.capacities
}

func (s *mongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

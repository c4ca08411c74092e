package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/hatchery/internal/domain/models"
	"github.com/mamadbah2/hatchery/internal/repository"
	"github.com/mamadbah2/hatchery/internal/repository/live"
)

var _ repository.Store = (*MongoDBRepository)(nil)

const (
	collSpecies    = "species"
	collBreeds     = "breeds"
	collIncubators = "incubators"
	collTrays      = "trays"
	collBatches    = "batches"
	collEvents     = "events"
	collReadings   = "readings"
	collCounters   = "counters"
)

var terminalStatuses = bson.A{string(models.StatusCompleted), string(models.StatusDiscarded)}

// MongoDBRepository implements repository.Store with one collection per entity.
type MongoDBRepository struct {
	client *mongo.Client
	db     *mongo.Database
	broker *live.Broker
}

// NewMongoDBRepository connects, pings and ensures the lookup indexes.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	r := &MongoDBRepository{
		client: client,
		db:     client.Database(dbName),
		broker: live.NewBroker(),
	}
	if err := r.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *MongoDBRepository) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		collBreeds:   {{Keys: bson.D{{Key: "species_id", Value: 1}}}},
		collTrays:    {{Keys: bson.D{{Key: "incubator_id", Value: 1}, {Key: "index", Value: 1}}}},
		collBatches:  {{Keys: bson.D{{Key: "tray_id", Value: 1}, {Key: "status", Value: 1}}}, {Keys: bson.D{{Key: "expected_hatch_date", Value: 1}}}},
		collEvents:   {{Keys: bson.D{{Key: "batch_id", Value: 1}, {Key: "timestamp", Value: -1}}}},
		collReadings: {{Keys: bson.D{{Key: "incubator_id", Value: 1}, {Key: "timestamp", Value: -1}}}},
	}
	for coll, specs := range indexes {
		if _, err := r.db.Collection(coll).Indexes().CreateMany(ctx, specs); err != nil {
			return fmt.Errorf("create %s indexes: %w", coll, err)
		}
	}
	return nil
}

// Changes implements repository.Store.
func (r *MongoDBRepository) Changes() *live.Broker { return r.broker }

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *MongoDBRepository) nextID(ctx context.Context, name string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := r.db.Collection(collCounters).
		FindOneAndUpdate(ctx, bson.M{"_id": name}, bson.M{"$inc": bson.M{"seq": int64(1)}}, opts).
		Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("allocate %s id: %w", name, err)
	}
	return counter.Seq, nil
}

// insert allocates an id, lets assign stamp it on the document and inserts it.
func (r *MongoDBRepository) insert(ctx context.Context, coll string, assign func(id int64) any, topic live.Topic) (int64, error) {
	id, err := r.nextID(ctx, coll)
	if err != nil {
		return 0, err
	}
	if _, err := r.db.Collection(coll).InsertOne(ctx, assign(id)); err != nil {
		return 0, fmt.Errorf("failed to insert into %s: %w", coll, err)
	}
	r.broker.Publish(topic)
	return id, nil
}

func (r *MongoDBRepository) findOne(ctx context.Context, coll string, id int64, out any) error {
	err := r.db.Collection(coll).FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s %d: %w", coll, id, repository.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("find %s %d: %w", coll, id, err)
	}
	return nil
}

func (r *MongoDBRepository) exists(ctx context.Context, coll string, filter any) (bool, error) {
	n, err := r.db.Collection(coll).CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count %s: %w", coll, err)
	}
	return n > 0, nil
}

func (r *MongoDBRepository) requireExists(ctx context.Context, coll string, id int64) error {
	ok, err := r.exists(ctx, coll, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s %d: %w", coll, id, repository.ErrNotFound)
	}
	return nil
}

func (r *MongoDBRepository) replace(ctx context.Context, coll string, id int64, doc any, topic live.Topic) error {
	res, err := r.db.Collection(coll).ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return fmt.Errorf("replace %s %d: %w", coll, id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s %d: %w", coll, id, repository.ErrNotFound)
	}
	r.broker.Publish(topic)
	return nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", coll.Name(), err)
	}
	out := make([]T, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", coll.Name(), err)
	}
	return out, nil
}

// CreateSpecies implements repository.CatalogStore.
func (r *MongoDBRepository) CreateSpecies(ctx context.Context, species models.Species) (int64, error) {
	return r.insert(ctx, collSpecies, func(id int64) any {
		species.ID = id
		return species
	}, live.TopicSpecies)
}

// GetSpecies implements repository.CatalogStore.
func (r *MongoDBRepository) GetSpecies(ctx context.Context, id int64) (*models.Species, error) {
	var out models.Species
	if err := r.findOne(ctx, collSpecies, id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSpecies implements repository.CatalogStore.
func (r *MongoDBRepository) ListSpecies(ctx context.Context) ([]models.Species, error) {
	return findAll[models.Species](ctx, r.db.Collection(collSpecies), bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

// DeleteSpecies implements repository.CatalogStore.
func (r *MongoDBRepository) DeleteSpecies(ctx context.Context, id int64) error {
	if err := r.requireExists(ctx, collSpecies, id); err != nil {
		return err
	}
	breeds, err := r.ListBreeds(ctx, id)
	if err != nil {
		return err
	}
	breedIDs := bson.A{}
	for _, b := range breeds {
		breedIDs = append(breedIDs, b.ID)
	}
	referenced, err := r.exists(ctx, collBatches, bson.M{"$or": bson.A{
		bson.M{"species_id": id},
		bson.M{"breed_id": bson.M{"$in": breedIDs}},
	}})
	if err != nil {
		return err
	}
	if referenced {
		return fmt.Errorf("species %d: %w", id, repository.ErrReferenced)
	}

	if _, err := r.db.Collection(collBreeds).DeleteMany(ctx, bson.M{"species_id": id}); err != nil {
		return fmt.Errorf("delete breeds of species %d: %w", id, err)
	}
	if _, err := r.db.Collection(collSpecies).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete species %d: %w", id, err)
	}
	r.broker.Publish(live.TopicSpecies, live.TopicBreeds)
	return nil
}

// CreateBreed implements repository.CatalogStore.
func (r *MongoDBRepository) CreateBreed(ctx context.Context, breed models.Breed) (int64, error) {
	if err := r.requireExists(ctx, collSpecies, breed.SpeciesID); err != nil {
		return 0, err
	}
	return r.insert(ctx, collBreeds, func(id int64) any {
		breed.ID = id
		return breed
	}, live.TopicBreeds)
}

// GetBreed implements repository.CatalogStore.
func (r *MongoDBRepository) GetBreed(ctx context.Context, id int64) (*models.Breed, error) {
	var out models.Breed
	if err := r.findOne(ctx, collBreeds, id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListBreeds implements repository.CatalogStore.
func (r *MongoDBRepository) ListBreeds(ctx context.Context, speciesID int64) ([]models.Breed, error) {
	return findAll[models.Breed](ctx, r.db.Collection(collBreeds), bson.M{"species_id": speciesID}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

// UpdateBreed implements repository.CatalogStore.
func (r *MongoDBRepository) UpdateBreed(ctx context.Context, breed models.Breed) error {
	if err := r.requireExists(ctx, collSpecies, breed.SpeciesID); err != nil {
		return err
	}
	return r.replace(ctx, collBreeds, breed.ID, breed, live.TopicBreeds)
}

// DeleteBreed implements repository.CatalogStore.
func (r *MongoDBRepository) DeleteBreed(ctx context.Context, id int64) error {
	if err := r.requireExists(ctx, collBreeds, id); err != nil {
		return err
	}
	referenced, err := r.exists(ctx, collBatches, bson.M{"breed_id": id})
	if err != nil {
		return err
	}
	if referenced {
		return fmt.Errorf("breed %d: %w", id, repository.ErrReferenced)
	}
	if _, err := r.db.Collection(collBreeds).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete breed %d: %w", id, err)
	}
	r.broker.Publish(live.TopicBreeds)
	return nil
}

// CreateIncubator implements repository.IncubatorStore.
func (r *MongoDBRepository) CreateIncubator(ctx context.Context, incubator models.Incubator) (int64, error) {
	return r.insert(ctx, collIncubators, func(id int64) any {
		incubator.ID = id
		return incubator
	}, live.TopicIncubators)
}

// GetIncubator implements repository.IncubatorStore.
func (r *MongoDBRepository) GetIncubator(ctx context.Context, id int64) (*models.Incubator, error) {
	var out models.Incubator
	if err := r.findOne(ctx, collIncubators, id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListIncubators implements repository.IncubatorStore.
func (r *MongoDBRepository) ListIncubators(ctx context.Context) ([]models.Incubator, error) {
	return findAll[models.Incubator](ctx, r.db.Collection(collIncubators), bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

// UpdateIncubator implements repository.IncubatorStore.
func (r *MongoDBRepository) UpdateIncubator(ctx context.Context, incubator models.Incubator) error {
	return r.replace(ctx, collIncubators, incubator.ID, incubator, live.TopicIncubators)
}

// CreateTray implements repository.IncubatorStore.
func (r *MongoDBRepository) CreateTray(ctx context.Context, tray models.Tray) (int64, error) {
	if err := r.requireExists(ctx, collIncubators, tray.IncubatorID); err != nil {
		return 0, err
	}
	return r.insert(ctx, collTrays, func(id int64) any {
		tray.ID = id
		return tray
	}, live.TopicTrays)
}

// GetTray implements repository.IncubatorStore.
func (r *MongoDBRepository) GetTray(ctx context.Context, id int64) (*models.Tray, error) {
	var out models.Tray
	if err := r.findOne(ctx, collTrays, id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTrays implements repository.IncubatorStore.
func (r *MongoDBRepository) ListTrays(ctx context.Context, incubatorID int64) ([]models.Tray, error) {
	opts := options.Find().SetSort(bson.D{{Key: "index", Value: 1}, {Key: "_id", Value: 1}})
	return findAll[models.Tray](ctx, r.db.Collection(collTrays), bson.M{"incubator_id": incubatorID}, opts)
}

// DeleteTray implements repository.IncubatorStore.
func (r *MongoDBRepository) DeleteTray(ctx context.Context, id int64) error {
	if err := r.requireExists(ctx, collTrays, id); err != nil {
		return err
	}
	referenced, err := r.exists(ctx, collBatches, bson.M{"tray_id": id})
	if err != nil {
		return err
	}
	if referenced {
		return fmt.Errorf("tray %d: %w", id, repository.ErrReferenced)
	}
	if _, err := r.db.Collection(collTrays).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete tray %d: %w", id, err)
	}
	r.broker.Publish(live.TopicTrays)
	return nil
}

// CreateBatch implements repository.BatchStore.
func (r *MongoDBRepository) CreateBatch(ctx context.Context, batch models.Batch) (int64, error) {
	if err := r.requireExists(ctx, collTrays, batch.TrayID); err != nil {
		return 0, err
	}
	return r.insert(ctx, collBatches, func(id int64) any {
		batch.ID = id
		return batch
	}, live.TopicBatches)
}

// GetBatch implements repository.BatchStore.
func (r *MongoDBRepository) GetBatch(ctx context.Context, id int64) (*models.Batch, error) {
	var out models.Batch
	if err := r.findOne(ctx, collBatches, id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateBatch implements repository.BatchStore.
func (r *MongoDBRepository) UpdateBatch(ctx context.Context, batch models.Batch) error {
	return r.replace(ctx, collBatches, batch.ID, batch, live.TopicBatches)
}

// ListBatches implements repository.BatchStore.
func (r *MongoDBRepository) ListBatches(ctx context.Context, filter repository.BatchFilter) ([]models.Batch, error) {
	query := bson.M{}
	if filter.TrayID != 0 {
		query["tray_id"] = filter.TrayID
	}
	sort := bson.D{{Key: "_id", Value: 1}}
	if filter.ActiveOnly {
		query["status"] = bson.M{"$nin": terminalStatuses}
		sort = bson.D{{Key: "expected_hatch_date", Value: 1}, {Key: "_id", Value: 1}}
	}
	return findAll[models.Batch](ctx, r.db.Collection(collBatches), query, options.Find().SetSort(sort))
}

// ActiveEggsInTray implements repository.BatchStore.
func (r *MongoDBRepository) ActiveEggsInTray(ctx context.Context, trayID int64) (int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"tray_id": trayID, "status": bson.M{"$nin": terminalStatuses}}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$eggs_set"}}}},
	}
	cursor, err := r.db.Collection(collBatches).Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("sum active eggs in tray %d: %w", trayID, err)
	}
	var rows []struct {
		Total int `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, fmt.Errorf("decode active eggs in tray %d: %w", trayID, err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}

// DeleteBatchesInTray implements repository.BatchStore.
func (r *MongoDBRepository) DeleteBatchesInTray(ctx context.Context, trayID int64) error {
	batches, err := r.ListBatches(ctx, repository.BatchFilter{TrayID: trayID})
	if err != nil {
		return err
	}
	if len(batches) == 0 {
		return nil
	}
	ids := bson.A{}
	for _, b := range batches {
		ids = append(ids, b.ID)
	}
	if _, err := r.db.Collection(collEvents).DeleteMany(ctx, bson.M{"batch_id": bson.M{"$in": ids}}); err != nil {
		return fmt.Errorf("delete events of tray %d: %w", trayID, err)
	}
	if _, err := r.db.Collection(collReadings).UpdateMany(ctx,
		bson.M{"batch_id": bson.M{"$in": ids}},
		bson.M{"$unset": bson.M{"batch_id": ""}}); err != nil {
		return fmt.Errorf("unlink readings of tray %d: %w", trayID, err)
	}
	if _, err := r.db.Collection(collBatches).DeleteMany(ctx, bson.M{"tray_id": trayID}); err != nil {
		return fmt.Errorf("delete batches of tray %d: %w", trayID, err)
	}
	r.broker.Publish(live.TopicBatches, live.TopicEvents, live.TopicReadings)
	return nil
}

// CreateEvent implements repository.JournalStore.
func (r *MongoDBRepository) CreateEvent(ctx context.Context, event models.Event) (int64, error) {
	if err := r.requireExists(ctx, collBatches, event.BatchID); err != nil {
		return 0, err
	}
	return r.insert(ctx, collEvents, func(id int64) any {
		event.ID = id
		return event
	}, live.TopicEvents)
}

// ListEvents implements repository.JournalStore.
func (r *MongoDBRepository) ListEvents(ctx context.Context, batchID int64) ([]models.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})
	return findAll[models.Event](ctx, r.db.Collection(collEvents), bson.M{"batch_id": batchID}, opts)
}

// CreateReading implements repository.JournalStore.
func (r *MongoDBRepository) CreateReading(ctx context.Context, reading models.Reading) (int64, error) {
	if err := r.requireExists(ctx, collIncubators, reading.IncubatorID); err != nil {
		return 0, err
	}
	return r.insert(ctx, collReadings, func(id int64) any {
		reading.ID = id
		return reading
	}, live.TopicReadings)
}

// ListReadings implements repository.JournalStore.
func (r *MongoDBRepository) ListReadings(ctx context.Context, incubatorID int64, limit int) ([]models.Reading, error) {
	if limit <= 0 {
		limit = repository.DefaultReadingsLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	return findAll[models.Reading](ctx, r.db.Collection(collReadings), bson.M{"incubator_id": incubatorID}, opts)
}

package features

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names in the feature archive database
const (
	ScanCollection    = "scan_snapshots"
	FeatureCollection = "trade_features"
)

// ScanDocument is one archived scan outcome
type ScanDocument struct {
	Symbol     string                 `bson:"symbol"`
	Score      float64                `bson:"score"`
	Direction  string                 `bson:"direction"`
	Components map[string]float64     `bson:"components"`
	Features   *Vector                `bson:"features,omitempty"`
	Extra      map[string]interface{} `bson:"extra,omitempty"`
	CreatedAt  time.Time              `bson:"created_at"`
}

// TradeFeatureDocument archives the feature vector of an executed trade
// together with its eventual outcome, for offline training
type TradeFeatureDocument struct {
	TradeID   string    `bson:"trade_id"`
	Symbol    string    `bson:"symbol"`
	Side      string    `bson:"side"`
	Features  *Vector   `bson:"features"`
	Score     float64   `bson:"score"`
	PnL       float64   `bson:"pnl"`
	RMultiple float64   `bson:"r_multiple"`
	Closed    bool      `bson:"closed"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Archive stores scan snapshots and trade feature vectors in MongoDB for
// the offline training pipeline. When no URI is configured every write
// is a silent no-op.
type Archive struct {
	mu          sync.RWMutex
	client      *mongo.Client
	database    *mongo.Database
	isConnected bool
	uriSet      bool
	lastError   string
}

// NewArchive connects to the feature archive. A missing URI disables the
// archive without failing startup.
func NewArchive(uri, dbName string) *Archive {
	a := &Archive{uriSet: uri != ""}
	if uri == "" {
		log.Println("MONGODB_URI not set, feature archive disabled")
		return a
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetMaxPoolSize(10).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(30 * time.Second).
		SetConnectTimeout(30 * time.Second).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		a.lastError = fmt.Sprintf("connect: %v", err)
		log.Printf("Feature archive connection failed: %v", err)
		return a
	}
	if err := client.Ping(ctx, nil); err != nil {
		a.lastError = fmt.Sprintf("ping: %v", err)
		log.Printf("Feature archive ping failed: %v", err)
		client.Disconnect(ctx)
		return a
	}

	a.client = client
	a.database = client.Database(dbName)
	a.isConnected = true
	a.createIndexes()
	log.Println("Feature archive connected")
	return a
}

// IsConfigured reports whether the archive is connected
func (a *Archive) IsConfigured() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.isConnected
}

// ConnectionStatus returns state for the status API
func (a *Archive) ConnectionStatus() map[string]interface{} {
	a.mu.RLock()
	defer a.mu.RUnlock()
	status := map[string]interface{}{
		"uri_set":   a.uriSet,
		"connected": a.isConnected,
	}
	if a.lastError != "" {
		status["error"] = a.lastError
	}
	return status
}

// Close disconnects from the archive
func (a *Archive) Close() error {
	if a.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.client.Disconnect(ctx)
}

func (a *Archive) createIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a.database.Collection(ScanCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "symbol", Value: 1}, {Key: "created_at", Value: -1}},
	})
	a.database.Collection(FeatureCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "trade_id", Value: 1}},
	})
}

// SaveScan archives one scan outcome
func (a *Archive) SaveScan(doc ScanDocument) {
	if !a.IsConfigured() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	doc.CreatedAt = time.Now().UTC()
	if _, err := a.database.Collection(ScanCollection).InsertOne(ctx, doc); err != nil {
		log.Printf("Feature archive scan insert failed: %v", err)
	}
}

// SaveTradeFeatures archives the entry-time feature vector of a trade
func (a *Archive) SaveTradeFeatures(doc TradeFeatureDocument) {
	if !a.IsConfigured() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	opts := options.Replace().SetUpsert(true)
	_, err := a.database.Collection(FeatureCollection).
		ReplaceOne(ctx, bson.M{"trade_id": doc.TradeID}, doc, opts)
	if err != nil {
		log.Printf("Feature archive trade insert failed: %v", err)
	}
}

// MarkTradeOutcome labels an archived trade with its realized result
func (a *Archive) MarkTradeOutcome(tradeID string, pnl, rMultiple float64) {
	if !a.IsConfigured() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"pnl":        pnl,
		"r_multiple": rMultiple,
		"closed":     true,
		"updated_at": time.Now().UTC(),
	}}
	_, err := a.database.Collection(FeatureCollection).
		UpdateOne(ctx, bson.M{"trade_id": tradeID}, update)
	if err != nil {
		log.Printf("Feature archive outcome update failed: %v", err)
	}
}

// LabeledCount returns how many closed, labeled samples are archived
func (a *Archive) LabeledCount() int64 {
	if !a.IsConfigured() {
		return 0
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	count, err := a.database.Collection(FeatureCollection).
		CountDocuments(ctx, bson.M{"closed": true})
	if err != nil {
		return 0
	}
	return count
}

package vectors

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	payloadNamespace = "namespace"
	payloadVectorID  = "vector_id"
)

// pointNamespace seeds deterministic point ids.
var pointNamespace = uuid.MustParse("6f1c2a52-3c8e-4c1b-9a57-5a0d4f2e8b11")

// QdrantConfig holds the gRPC endpoint and collection settings.
type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

// QdrantIndex is an Index over one Qdrant collection with cosine distance.
// Namespaces are a payload field applied as a must-filter on queries.
type QdrantIndex struct {
	cfg         QdrantConfig
	conn        *grpc.ClientConn
	collections qdrant.CollectionsClient
	points      qdrant.PointsClient
	log         *slog.Logger

	mu    sync.Mutex
	ready bool
}

func NewQdrantIndex(cfg QdrantConfig, logger *slog.Logger) (*QdrantIndex, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("qdrant: host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		cfg.Collection = "resumes"
	}

	creds := insecure.NewCredentials()
	if cfg.UseTLS {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	addr := cfg.Host + ":" + strconv.Itoa(cfg.Port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(creds))
	if err != nil {
		logger.Error("vectors.qdrant.connect_failed", "addr", addr, "error", err)
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	return NewQdrantIndexWithConn(conn, cfg, logger), nil
}

// NewQdrantIndexWithConn uses an existing gRPC connection.
func NewQdrantIndexWithConn(conn *grpc.ClientConn, cfg QdrantConfig, logger *slog.Logger) *QdrantIndex {
	if logger == nil {
		logger = slog.Default()
	}
	return &QdrantIndex{
		cfg:         cfg,
		conn:        conn,
		collections: qdrant.NewCollectionsClient(conn),
		points:      qdrant.NewPointsClient(conn),
		log:         logger,
	}
}

func (q *QdrantIndex) Close() error {
	if q.conn == nil {
		return nil
	}
	return q.conn.Close()
}

func (q *QdrantIndex) Upsert(ctx context.Context, namespace string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	ctx = q.withAuth(ctx)
	if err := q.ensureCollection(ctx, len(points[0].Vector)); err != nil {
		return err
	}

	out := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		payload := toPayload(p.Metadata)
		payload[payloadNamespace] = stringValue(namespace)
		payload[payloadVectorID] = stringValue(p.ID)
		out = append(out, &qdrant.PointStruct{
			Id:      &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: PointID(namespace, p.ID)}},
			Payload: payload,
			Vectors: &qdrant.Vectors{VectorsOptions: &qdrant.Vectors_Vector{Vector: &qdrant.Vector{Data: p.Vector}}},
		})
	}

	wait := true
	_, err := q.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.cfg.Collection,
		Wait:           &wait,
		Points:         out,
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	return nil
}

func (q *QdrantIndex) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Match, error) {
	ctx = q.withAuth(ctx)
	resp, err := q.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: q.cfg.Collection,
		Vector:         vector,
		Filter:         namespaceFilter(namespace),
		Limit:          uint64(topK),
		WithPayload: &qdrant.WithPayloadSelector{
			SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		if st, ok := status.FromError(err); ok && st.Code() == codes.NotFound {
			return []Match{}, nil
		}
		return nil, fmt.Errorf("qdrant search: %w", err)
	}

	out := make([]Match, 0, len(resp.GetResult()))
	for _, sp := range resp.GetResult() {
		meta := fromPayload(sp.GetPayload())
		id, _ := meta[payloadVectorID].(string)
		delete(meta, payloadVectorID)
		delete(meta, payloadNamespace)
		if id == "" {
			id = sp.GetId().GetUuid()
		}
		out = append(out, Match{ID: id, Score: sp.GetScore(), Metadata: meta})
	}
	return out, nil
}

func (q *QdrantIndex) ensureCollection(ctx context.Context, size int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ready {
		return nil
	}

	_, err := q.collections.Get(ctx, &qdrant.GetCollectionInfoRequest{CollectionName: q.cfg.Collection})
	if err != nil {
		st, ok := status.FromError(err)
		if !ok || st.Code() != codes.NotFound {
			return fmt.Errorf("qdrant get collection: %w", err)
		}
		q.log.Info("vectors.qdrant.create_collection", "collection", q.cfg.Collection, "size", size)
		_, err = q.collections.Create(ctx, &qdrant.CreateCollection{
			CollectionName: q.cfg.Collection,
			VectorsConfig: &qdrant.VectorsConfig{
				Config: &qdrant.VectorsConfig_Params{
					Params: &qdrant.VectorParams{
						Size:     uint64(size),
						Distance: qdrant.Distance_Cosine,
					},
				},
			},
		})
		if err != nil {
			return fmt.Errorf("qdrant create collection: %w", err)
		}
	}
	q.ready = true
	return nil
}

func (q *QdrantIndex) withAuth(ctx context.Context) context.Context {
	if q.cfg.APIKey == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "api-key", q.cfg.APIKey)
}

// PointID maps a namespace and caller id to a stable Qdrant point UUID.
func PointID(namespace, id string) string {
	return uuid.NewSHA1(pointNamespace, []byte(namespace+"/"+id)).String()
}

func namespaceFilter(namespace string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key: payloadNamespace,
						Match: &qdrant.Match{
							MatchValue: &qdrant.Match_Keyword{Keyword: namespace},
						},
					},
				},
			},
		},
	}
}

func stringValue(s string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
}

func toPayload(meta map[string]any) map[string]*qdrant.Value {
	out := make(map[string]*qdrant.Value, len(meta)+2)
	for k, v := range meta {
		switch t := v.(type) {
		case string:
			out[k] = stringValue(t)
		case bool:
			out[k] = &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: t}}
		case int:
			out[k] = &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(t)}}
		case int64:
			out[k] = &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: t}}
		case float64:
			out[k] = &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: t}}
		case nil:
			out[k] = &qdrant.Value{Kind: &qdrant.Value_NullValue{}}
		default:
			out[k] = stringValue(fmt.Sprint(t))
		}
	}
	return out
}

func fromPayload(p map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		switch t := v.GetKind().(type) {
		case *qdrant.Value_StringValue:
			out[k] = t.StringValue
		case *qdrant.Value_BoolValue:
			out[k] = t.BoolValue
		case *qdrant.Value_IntegerValue:
			out[k] = t.IntegerValue
		case *qdrant.Value_DoubleValue:
			out[k] = t.DoubleValue
		case *qdrant.Value_NullValue:
			out[k] = nil
		}
	}
	return out
}

package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"liberandum-backend/infrastructure/persistence/abstractions"
	apperrors "liberandum-backend/pkg/errors"
	"liberandum-backend/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	// BatchWriteSize is the DynamoDB BatchWriteItem limit
	BatchWriteSize = 25

	// TimestampLayout keeps timestamps fixed-width so they also sort as strings
	TimestampLayout = "2006-01-02T15:04:05.000000Z"
)

// GenericRepository stores loosely typed records in a single table keyed by "id"
type GenericRepository struct {
	client    DBClient
	tableName string
	timeout   time.Duration
	logger    *zap.Logger
	metrics   *observability.Collector
	now       func() time.Time
}

// RepositoryOption configures a GenericRepository
type RepositoryOption func(*GenericRepository)

// WithTimeout bounds every store call
func WithTimeout(d time.Duration) RepositoryOption {
	return func(r *GenericRepository) { r.timeout = d }
}

// WithMetrics records operation counts and latencies
func WithMetrics(c *observability.Collector) RepositoryOption {
	return func(r *GenericRepository) { r.metrics = c }
}

// WithClock overrides the timestamp source
func WithClock(now func() time.Time) RepositoryOption {
	return func(r *GenericRepository) { r.now = now }
}

// NewGenericRepository creates a repository over tableName
func NewGenericRepository(client DBClient, tableName string, logger *zap.Logger, opts ...RepositoryOption) *GenericRepository {
	r := &GenericRepository{
		client:    client,
		tableName: tableName,
		timeout:   30 * time.Second,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ abstractions.Repository = (*GenericRepository)(nil)

// TableName returns the backing table
func (r *GenericRepository) TableName() string {
	return r.tableName
}

func (r *GenericRepository) timestamp() string {
	return r.now().UTC().Format(TimestampLayout)
}

// begin opens a span and a bounded context for one operation. The returned
// func must be called with the operation's final error.
func (r *GenericRepository) begin(ctx context.Context, op string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "dynamodb."+op,
		attribute.String("db.system", "dynamodb"),
		attribute.String("db.table", r.tableName),
	)

	cancel := func() {}
	if r.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
	}

	return ctx, func(err error) {
		cancel()
		r.metrics.RecordDBOperation(op, r.tableName, start, err)
		if err != nil {
			fields := []zap.Field{
				zap.String("operation", op),
				zap.String("table", r.tableName),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			}
			var apiErr smithy.APIError
			if errors.As(err, &apiErr) {
				fields = append(fields, zap.String("aws_error_code", apiErr.ErrorCode()))
			}
			r.logger.Error("DynamoDB operation failed", fields...)
		}
		observability.EndSpan(span, err)
	}
}

func keyFor(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		abstractions.FieldID: &types.AttributeValueMemberS{Value: id},
	}
}

func unmarshalRecord(item map[string]types.AttributeValue) (abstractions.Record, error) {
	if len(item) == 0 {
		return nil, nil
	}
	var rec map[string]interface{}
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return abstractions.Record(rec), nil
}

func unmarshalRecords(items []map[string]types.AttributeValue) ([]abstractions.Record, error) {
	records := make([]abstractions.Record, 0, len(items))
	for _, item := range items {
		rec, err := unmarshalRecord(item)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			records = append(records, rec)
		}
	}
	return records, nil
}

// prepare copies data and fills in the id and timestamps the repository owns
func (r *GenericRepository) prepare(data abstractions.Record, autoID bool) (abstractions.Record, error) {
	item := data.Clone()
	if autoID && item.ID() == "" {
		item[abstractions.FieldID] = uuid.New().String()
	}
	if item.ID() == "" {
		return nil, apperrors.NewValidationError("record id is required")
	}

	now := r.timestamp()
	if item.CreatedAt() == "" {
		item[abstractions.FieldCreatedAt] = now
	}
	if item.UpdatedAt() == "" {
		item[abstractions.FieldUpdatedAt] = now
	}
	return item, nil
}

// Create stores a new record and returns it with id and timestamps filled in
func (r *GenericRepository) Create(ctx context.Context, data abstractions.Record, autoID bool) (rec abstractions.Record, err error) {
	ctx, done := r.begin(ctx, "create")
	defer func() { done(err) }()

	item, err := r.prepare(data, autoID)
	if err != nil {
		return nil, err
	}

	av, err := attributevalue.MarshalMap(map[string]interface{}(item))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}

	if _, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}); err != nil {
		return nil, apperrors.NewDatabaseError("create", err)
	}

	r.logger.Debug("Record created",
		zap.String("table", r.tableName),
		zap.String("id", item.ID()),
	)
	return item, nil
}

// GetByID returns the record or nil when it does not exist
func (r *GenericRepository) GetByID(ctx context.Context, id string) (rec abstractions.Record, err error) {
	ctx, done := r.begin(ctx, "get")
	defer func() { done(err) }()

	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       keyFor(id),
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("get", err)
	}
	return unmarshalRecord(out.Item)
}

// UpdateByID applies updates to an existing record and returns the new
// state. An update that changes nothing is served as a read, and a missing
// record yields nil.
func (r *GenericRepository) UpdateByID(ctx context.Context, id string, updates abstractions.Record) (abstractions.Record, error) {
	expr, err := BuildUpdateExpression(updates, r.timestamp())
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if expr == nil {
		return r.GetByID(ctx, id)
	}
	return r.update(ctx, id, expr)
}

func (r *GenericRepository) update(ctx context.Context, id string, expr *UpdateExpression) (rec abstractions.Record, err error) {
	ctx, done := r.begin(ctx, "update")
	defer func() { done(err) }()

	names := make(map[string]string, len(expr.Names)+1)
	for k, v := range expr.Names {
		names[k] = v
	}
	names["#pk"] = abstractions.FieldID

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       keyFor(id),
		UpdateExpression:          aws.String(expr.Expression),
		ConditionExpression:       aws.String("attribute_exists(#pk)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: expr.Values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, nil
		}
		return nil, apperrors.NewDatabaseError("update", err)
	}
	return unmarshalRecord(out.Attributes)
}

// DeleteByID hard-deletes a record and reports whether it existed
func (r *GenericRepository) DeleteByID(ctx context.Context, id string) (existed bool, err error) {
	ctx, done := r.begin(ctx, "delete")
	defer func() { done(err) }()

	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(r.tableName),
		Key:          keyFor(id),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, apperrors.NewDatabaseError("delete", err)
	}
	return len(out.Attributes) > 0, nil
}

// ListAll returns up to limit records; limit <= 0 reads the whole table
func (r *GenericRepository) ListAll(ctx context.Context, limit int) ([]abstractions.Record, error) {
	return r.Scan(ctx, limit)
}

// Scan reads pages until limit records are collected or the table is exhausted
func (r *GenericRepository) Scan(ctx context.Context, limit int) (records []abstractions.Record, err error) {
	ctx, done := r.begin(ctx, "scan")
	defer func() { done(err) }()

	return r.scanPages(ctx, &dynamodb.ScanInput{TableName: aws.String(r.tableName)}, limit)
}

func (r *GenericRepository) scanPages(ctx context.Context, input *dynamodb.ScanInput, limit int) ([]abstractions.Record, error) {
	records := make([]abstractions.Record, 0)
	for {
		if limit > 0 {
			input.Limit = aws.Int32(int32(limit - len(records)))
		}

		page, err := r.client.Scan(ctx, input)
		if err != nil {
			return nil, apperrors.NewDatabaseError("scan", err)
		}

		batch, err := unmarshalRecords(page.Items)
		if err != nil {
			return nil, err
		}
		records = append(records, batch...)

		if len(page.LastEvaluatedKey) == 0 || (limit > 0 && len(records) >= limit) {
			break
		}
		input.ExclusiveStartKey = page.LastEvaluatedKey
	}

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// FindByField returns records whose field equals value. With an index name
// the lookup is an index query; without one it is a full filtered scan.
func (r *GenericRepository) FindByField(ctx context.Context, field string, value interface{}, indexName string) (records []abstractions.Record, err error) {
	ctx, done := r.begin(ctx, "find_by_field")
	defer func() { done(err) }()

	if indexName != "" {
		return r.queryIndex(ctx, field, value, indexName)
	}

	return r.scanFiltered(ctx, expression.Name(field).Equal(expression.Value(value)))
}

func (r *GenericRepository) queryIndex(ctx context.Context, field string, value interface{}, indexName string) ([]abstractions.Record, error) {
	keyCond := expression.Key(field).Equal(expression.Value(value))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build key condition: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(indexName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	records := make([]abstractions.Record, 0)
	for {
		page, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, apperrors.NewDatabaseError("query", err)
		}
		batch, err := unmarshalRecords(page.Items)
		if err != nil {
			return nil, err
		}
		records = append(records, batch...)

		if len(page.LastEvaluatedKey) == 0 {
			return records, nil
		}
		input.ExclusiveStartKey = page.LastEvaluatedKey
	}
}

func (r *GenericRepository) scanFiltered(ctx context.Context, filter expression.ConditionBuilder) ([]abstractions.Record, error) {
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build filter: %w", err)
	}

	return r.scanPages(ctx, &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}, 0)
}

// FindByMultipleFields returns records matching every field = value pair
func (r *GenericRepository) FindByMultipleFields(ctx context.Context, filters map[string]interface{}) (records []abstractions.Record, err error) {
	ctx, done := r.begin(ctx, "find_by_fields")
	defer func() { done(err) }()

	if len(filters) == 0 {
		return r.scanPages(ctx, &dynamodb.ScanInput{TableName: aws.String(r.tableName)}, 0)
	}

	var conditions []expression.ConditionBuilder
	for field, value := range filters {
		conditions = append(conditions, expression.Name(field).Equal(expression.Value(value)))
	}

	filter := conditions[0]
	if len(conditions) > 1 {
		filter = expression.And(conditions[0], conditions[1], conditions[2:]...)
	}
	return r.scanFiltered(ctx, filter)
}

// BulkCreate writes items in batches of BatchWriteSize. Any failing batch
// fails the whole call; batches already written are not rolled back.
func (r *GenericRepository) BulkCreate(ctx context.Context, items []abstractions.Record) (err error) {
	ctx, done := r.begin(ctx, "bulk_create")
	defer func() { done(err) }()

	requests := make([]types.WriteRequest, 0, len(items))
	for _, data := range items {
		item, err := r.prepare(data, true)
		if err != nil {
			return err
		}
		av, err := attributevalue.MarshalMap(map[string]interface{}(item))
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
	}

	for start := 0; start < len(requests); start += BatchWriteSize {
		end := start + BatchWriteSize
		if end > len(requests) {
			end = len(requests)
		}

		out, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				r.tableName: requests[start:end],
			},
		})
		if err != nil {
			return apperrors.NewDatabaseError("bulk_create", err)
		}
		if pending := len(out.UnprocessedItems[r.tableName]); pending > 0 {
			return apperrors.NewDatabaseError("bulk_create",
				fmt.Errorf("%d items left unprocessed in batch starting at %d", pending, start))
		}
	}

	r.logger.Info("Bulk create completed",
		zap.String("table", r.tableName),
		zap.Int("items", len(items)),
	)
	return nil
}

// CountTotal counts every item in the table
func (r *GenericRepository) CountTotal(ctx context.Context) (total int, err error) {
	ctx, done := r.begin(ctx, "count")
	defer func() { done(err) }()

	input := &dynamodb.ScanInput{
		TableName: aws.String(r.tableName),
		Select:    types.SelectCount,
	}
	for {
		page, err := r.client.Scan(ctx, input)
		if err != nil {
			return 0, apperrors.NewDatabaseError("count", err)
		}
		total += int(page.Count)

		if len(page.LastEvaluatedKey) == 0 {
			return total, nil
		}
		input.ExclusiveStartKey = page.LastEvaluatedKey
	}
}

// GetStats summarizes field coverage and creation range of the table
func (r *GenericRepository) GetStats(ctx context.Context) (abstractions.Stats, error) {
	records, err := r.Scan(ctx, 0)
	if err != nil {
		return abstractions.Stats{}, err
	}

	stats := abstractions.Stats{
		TotalItems:  len(records),
		FieldCounts: make(map[string]int),
	}
	for _, rec := range records {
		for field := range rec {
			stats.FieldCounts[field]++
		}

		created := rec.CreatedAt()
		if created == "" {
			continue
		}
		if stats.OldestCreatedAt == "" || created < stats.OldestCreatedAt {
			stats.OldestCreatedAt = created
		}
		if created > stats.NewestCreatedAt {
			stats.NewestCreatedAt = created
		}
	}
	return stats, nil
}

// RepositoryFactory opens GenericRepositories sharing one client and options
type RepositoryFactory struct {
	client DBClient
	logger *zap.Logger
	opts   []RepositoryOption
}

// NewRepositoryFactory creates a factory
func NewRepositoryFactory(client DBClient, logger *zap.Logger, opts ...RepositoryOption) *RepositoryFactory {
	return &RepositoryFactory{client: client, logger: logger, opts: opts}
}

// ForTable returns a repository for tableName
func (f *RepositoryFactory) ForTable(tableName string) abstractions.Repository {
	return NewGenericRepository(f.client, tableName, f.logger.With(zap.String("table", tableName)), f.opts...)
}

package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"familytree/application/ports"
	"familytree/domain/core/entities"
	"familytree/domain/core/valueobjects"
	pkgerrors "familytree/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

const (
	entityTypePerson = "PERSON"
	personsPartition = "PERSONS"
	metadataSK       = "METADATA"
	batchGetLimit    = 100
	maxBatchRetries  = 5

	// sortKeyLayout is fixed-width so GSI1SK ordering matches creation order
	sortKeyLayout = "2006-01-02T15:04:05.000000000Z"
)

// API is the subset of the DynamoDB client used by the repositories
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// PersonRepository implements ports.PersonRepository using DynamoDB.
// Every person lives under PK=PERSON#<id>, SK=METADATA and is projected into
// GSI1 under a single partition sorted by creation time.
type PersonRepository struct {
	client    API
	tableName string
	indexName string
	logger    *zap.Logger
}

var _ ports.PersonRepository = (*PersonRepository)(nil)

// NewPersonRepository creates a new PersonRepository
func NewPersonRepository(client API, tableName, indexName string, logger *zap.Logger) *PersonRepository {
	return &PersonRepository{
		client:    client,
		tableName: tableName,
		indexName: indexName,
		logger:    logger,
	}
}

// personItem represents the DynamoDB item structure for a person
type personItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	GSI1PK     string `dynamodbav:"GSI1PK"`
	GSI1SK     string `dynamodbav:"GSI1SK"`
	EntityType string `dynamodbav:"EntityType"`
	PersonID   string `dynamodbav:"PersonID"`
	FullName   string `dynamodbav:"FullName"`
	Gender     string `dynamodbav:"Gender"`
	BirthDate  string `dynamodbav:"BirthDate,omitempty"`
	DeathDate  string `dynamodbav:"DeathDate,omitempty"`
	BirthPlace string `dynamodbav:"BirthPlace,omitempty"`
	Occupation string `dynamodbav:"Occupation,omitempty"`
	Bio        string `dynamodbav:"Bio,omitempty"`
	PhotoURL   string `dynamodbav:"PhotoURL,omitempty"`
	FatherID   string `dynamodbav:"FatherID,omitempty"`
	MotherID   string `dynamodbav:"MotherID,omitempty"`
	SpouseID   string `dynamodbav:"SpouseID,omitempty"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
	UpdatedAt  string `dynamodbav:"UpdatedAt"`
	Version    int    `dynamodbav:"Version"`
}

func personKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "PERSON#" + id},
		"SK": &types.AttributeValueMemberS{Value: metadataSK},
	}
}

func toItem(p *entities.Person) personItem {
	profile := p.Profile()
	created := p.CreatedAt().UTC().Format(sortKeyLayout)
	return personItem{
		PK:         "PERSON#" + p.ID().String(),
		SK:         metadataSK,
		GSI1PK:     personsPartition,
		GSI1SK:     created + "#" + p.ID().String(),
		EntityType: entityTypePerson,
		PersonID:   p.ID().String(),
		FullName:   profile.FullName,
		Gender:     profile.Gender.String(),
		BirthDate:  profile.BirthDate.String(),
		DeathDate:  profile.DeathDate.String(),
		BirthPlace: profile.BirthPlace,
		Occupation: profile.Occupation,
		Bio:        profile.Bio,
		PhotoURL:   profile.PhotoURL,
		FatherID:   p.FatherID().String(),
		MotherID:   p.MotherID().String(),
		SpouseID:   p.SpouseID().String(),
		CreatedAt:  created,
		UpdatedAt:  p.UpdatedAt().UTC().Format(sortKeyLayout),
		Version:    p.Version(),
	}
}

func (item personItem) toEntity() (*entities.Person, error) {
	id, err := valueobjects.NewPersonIDFromString(item.PersonID)
	if err != nil {
		return nil, err
	}
	birth, err := valueobjects.ParseDate(item.BirthDate)
	if err != nil {
		return nil, fmt.Errorf("person %s: %w", item.PersonID, err)
	}
	death, err := valueobjects.ParseDate(item.DeathDate)
	if err != nil {
		return nil, fmt.Errorf("person %s: %w", item.PersonID, err)
	}
	optional := func(s string) valueobjects.PersonID {
		return valueobjects.OptionalPersonID(&s)
	}

	return entities.ReconstructPerson(
		id,
		entities.Profile{
			FullName:   item.FullName,
			Gender:     valueobjects.Gender(item.Gender),
			BirthDate:  birth,
			DeathDate:  death,
			BirthPlace: item.BirthPlace,
			Occupation: item.Occupation,
			Bio:        item.Bio,
			PhotoURL:   item.PhotoURL,
		},
		entities.Relations{
			FatherID: optional(item.FatherID),
			MotherID: optional(item.MotherID),
			SpouseID: optional(item.SpouseID),
		},
		parseTimestamp(item.CreatedAt),
		parseTimestamp(item.UpdatedAt),
		item.Version,
	)
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(sortKeyLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

// Create inserts a new person; an existing key is a conflict
func (r *PersonRepository) Create(ctx context.Context, person *entities.Person) error {
	cond := expression.Name("PK").AttributeNotExists()
	err := r.put(ctx, person, cond)

	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return pkgerrors.ErrDuplicatePerson(person.ID().String())
	}
	return err
}

// Save upserts a person unless a newer version is already stored
func (r *PersonRepository) Save(ctx context.Context, person *entities.Person) error {
	cond := expression.Name("PK").AttributeNotExists().
		Or(expression.Name("Version").LessThanEqual(expression.Value(person.Version())))
	err := r.put(ctx, person, cond)

	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return pkgerrors.ErrConcurrentModification(person.ID().String())
	}
	return err
}

func (r *PersonRepository) put(ctx context.Context, person *entities.Person, cond expression.ConditionBuilder) error {
	item, err := attributevalue.MarshalMap(toItem(person))
	if err != nil {
		return fmt.Errorf("failed to marshal person: %w", err)
	}

	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(r.tableName),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return err
		}
		return mapError("put person", err)
	}

	r.logger.Debug("Person saved",
		zap.String("personID", person.ID().String()),
		zap.Int("version", person.Version()))
	return nil
}

func (r *PersonRepository) GetByID(ctx context.Context, id valueobjects.PersonID) (*entities.Person, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            personKey(id.String()),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, mapError("get person", err)
	}
	if result.Item == nil {
		return nil, pkgerrors.ErrPersonNotFound(id.String())
	}
	return unmarshalPerson(result.Item)
}

// GetByIDs loads persons in batches of 100, retrying unprocessed keys
func (r *PersonRepository) GetByIDs(ctx context.Context, ids []valueobjects.PersonID) (map[string]*entities.Person, error) {
	out := make(map[string]*entities.Person, len(ids))
	seen := make(map[string]bool, len(ids))

	var keys []map[string]types.AttributeValue
	for _, id := range ids {
		if id.IsZero() || seen[id.String()] {
			continue
		}
		seen[id.String()] = true
		keys = append(keys, personKey(id.String()))
	}

	for start := 0; start < len(keys); start += batchGetLimit {
		end := start + batchGetLimit
		if end > len(keys) {
			end = len(keys)
		}

		pending := map[string]types.KeysAndAttributes{
			r.tableName: {Keys: keys[start:end], ConsistentRead: aws.Bool(true)},
		}
		for attempt := 0; len(pending) > 0; attempt++ {
			if attempt >= maxBatchRetries {
				return nil, pkgerrors.NewUnavailableError("dynamodb batch get")
			}
			if attempt > 0 {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(time.Duration(attempt*attempt) * 50 * time.Millisecond):
				}
			}

			result, err := r.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: pending})
			if err != nil {
				return nil, mapError("batch get persons", err)
			}
			for _, item := range result.Responses[r.tableName] {
				p, err := unmarshalPerson(item)
				if err != nil {
					return nil, err
				}
				out[p.ID().String()] = p
			}
			pending = result.UnprocessedKeys
		}
	}

	return out, nil
}

// List returns persons newest first. DynamoDB has no offset, so skipped
// items are read and discarded.
func (r *PersonRepository) List(ctx context.Context, opts ports.ListOptions) ([]*entities.Person, int, error) {
	total, err := r.count(ctx)
	if err != nil {
		return nil, 0, err
	}

	var people []*entities.Person
	skipped := 0
	err = r.queryAll(ctx, false, nil, func(p *entities.Person) bool {
		if skipped < opts.Offset {
			skipped++
			return true
		}
		people = append(people, p)
		return opts.Limit <= 0 || len(people) < opts.Limit
	})
	if err != nil {
		return nil, 0, err
	}
	return people, total, nil
}

func (r *PersonRepository) FindReferencing(ctx context.Context, id valueobjects.PersonID) ([]*entities.Person, error) {
	v := expression.Value(id.String())
	filter := expression.Name("FatherID").Equal(v).
		Or(expression.Name("MotherID").Equal(v)).
		Or(expression.Name("SpouseID").Equal(v))

	var people []*entities.Person
	err := r.queryAll(ctx, true, &filter, func(p *entities.Person) bool {
		people = append(people, p)
		return true
	})
	return people, err
}

func (r *PersonRepository) Delete(ctx context.Context, id valueobjects.PersonID) error {
	expr, err := expression.NewBuilder().
		WithCondition(expression.Name("PK").AttributeExists()).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       personKey(id.String()),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return pkgerrors.ErrPersonNotFound(id.String())
		}
		return mapError("delete person", err)
	}

	r.logger.Debug("Person deleted", zap.String("personID", id.String()))
	return nil
}

func (r *PersonRepository) Snapshot(ctx context.Context) ([]*entities.Person, error) {
	var people []*entities.Person
	err := r.queryAll(ctx, true, nil, func(p *entities.Person) bool {
		people = append(people, p)
		return true
	})
	return people, err
}

// queryAll pages through GSI1 in creation order and hands each person to
// visit until it returns false.
func (r *PersonRepository) queryAll(
	ctx context.Context,
	ascending bool,
	filter *expression.ConditionBuilder,
	visit func(*entities.Person) bool,
) error {
	builder := expression.NewBuilder().
		WithKeyCondition(expression.Key("GSI1PK").Equal(expression.Value(personsPartition)))
	if filter != nil {
		builder = builder.WithFilter(*filter)
	}
	expr, err := builder.Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	paginator := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(r.indexName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(ascending),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return mapError("query persons", err)
		}
		for _, item := range page.Items {
			p, err := unmarshalPerson(item)
			if err != nil {
				r.logger.Warn("Skipping unreadable person item", zap.Error(err))
				continue
			}
			if !visit(p) {
				return nil
			}
		}
	}
	return nil
}

// Ping checks the table and index are reachable with a single-item query
func (r *PersonRepository) Ping(ctx context.Context) error {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key("GSI1PK").Equal(expression.Value(personsPartition))).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(r.indexName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return mapError("ping", err)
	}
	return nil
}

func (r *PersonRepository) count(ctx context.Context) (int, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key("GSI1PK").Equal(expression.Value(personsPartition))).
		Build()
	if err != nil {
		return 0, fmt.Errorf("failed to build expression: %w", err)
	}

	paginator := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(r.indexName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Select:                    types.SelectCount,
	})

	total := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, mapError("count persons", err)
		}
		total += int(page.Count)
	}
	return total, nil
}

func unmarshalPerson(av map[string]types.AttributeValue) (*entities.Person, error) {
	var item personItem
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal person: %w", err)
	}
	return item.toEntity()
}

// mapError converts AWS API failures into application errors
func mapError(operation string, err error) error {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return pkgerrors.NewDatabaseError(operation, err)
	}

	switch ae.ErrorCode() {
	case "ProvisionedThroughputExceededException", "RequestLimitExceeded", "ThrottlingException":
		return pkgerrors.NewUnavailableError("dynamodb").WithCause(err).WithCode("DYNAMODB_THROTTLED")
	case "ResourceNotFoundException":
		return pkgerrors.NewUnavailableError("dynamodb table").WithCause(err)
	case "ServiceUnavailable", "InternalServerError":
		return pkgerrors.NewUnavailableError("dynamodb").WithCause(err)
	default:
		return pkgerrors.NewDatabaseError(operation, err)
	}
}

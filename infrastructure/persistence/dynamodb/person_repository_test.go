package dynamodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"familytree/application/ports"
	"familytree/domain/core/valueobjects"
	pkgerrors "familytree/pkg/errors"
	"familytree/tests/fixtures"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubAPI returns canned responses and records the requests it saw
type stubAPI struct {
	getItem    *dynamodb.GetItemOutput
	putErr     error
	deleteErr  error
	batchPages []*dynamodb.BatchGetItemOutput
	queryPages []*dynamodb.QueryOutput

	puts      []*dynamodb.PutItemInput
	batchCall int
	queries   []*dynamodb.QueryInput
}

func (s *stubAPI) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if s.getItem == nil {
		return &dynamodb.GetItemOutput{}, nil
	}
	return s.getItem, nil
}

func (s *stubAPI) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	s.puts = append(s.puts, in)
	return &dynamodb.PutItemOutput{}, s.putErr
}

func (s *stubAPI) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	return &dynamodb.DeleteItemOutput{}, s.deleteErr
}

func (s *stubAPI) BatchGetItem(ctx context.Context, in *dynamodb.BatchGetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
	page := s.batchPages[s.batchCall]
	s.batchCall++
	return page, nil
}

func (s *stubAPI) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	s.queries = append(s.queries, in)
	if in.Select == types.SelectCount {
		var n int32
		for _, p := range s.queryPages {
			n += int32(len(p.Items))
		}
		return &dynamodb.QueryOutput{Count: n}, nil
	}
	idx := 0
	if in.ExclusiveStartKey != nil {
		var cursor struct{ Page int }
		if err := attributevalue.UnmarshalMap(in.ExclusiveStartKey, &cursor); err != nil {
			return nil, err
		}
		idx = cursor.Page
	}
	out := *s.queryPages[idx]
	if idx+1 < len(s.queryPages) {
		out.LastEvaluatedKey, _ = attributevalue.MarshalMap(struct{ Page int }{idx + 1})
	}
	return &out, nil
}

func newTestRepo(api API) *PersonRepository {
	return NewPersonRepository(api, "familytree", "GSI1", zap.NewNop())
}

func itemFor(t *testing.T, b *fixtures.PersonBuilder) map[string]types.AttributeValue {
	t.Helper()
	av, err := attributevalue.MarshalMap(toItem(b.MustBuild()))
	require.NoError(t, err)
	return av
}

func TestPersonItem_RoundTrip(t *testing.T) {
	created := time.Date(2024, 2, 3, 4, 5, 6, 7000, time.UTC)
	original := fixtures.Male("budi").
		WithName("Budi Santoso").
		BornOn("1961-08-17").
		WithFather("kakek").
		WithSpouse("ani").
		CreatedAt(created).
		MustBuild()

	item := toItem(original)
	assert.Equal(t, "PERSON#budi", item.PK)
	assert.Equal(t, personsPartition, item.GSI1PK)
	assert.Equal(t, "2024-02-03T04:05:06.000007000Z#budi", item.GSI1SK)
	assert.Empty(t, item.MotherID)

	av, err := attributevalue.MarshalMap(item)
	require.NoError(t, err)
	_, hasMother := av["MotherID"]
	assert.False(t, hasMother)

	got, err := unmarshalPerson(av)
	require.NoError(t, err)
	assert.Equal(t, original.ID(), got.ID())
	assert.Equal(t, "Budi Santoso", got.FullName())
	assert.Equal(t, "1961-08-17", got.BirthDate().String())
	assert.Equal(t, "kakek", got.FatherID().String())
	assert.True(t, got.MotherID().IsZero())
	assert.Equal(t, "ani", got.SpouseID().String())
	assert.True(t, got.CreatedAt().Equal(created))
}

func TestPersonRepository_CreateConflict(t *testing.T) {
	api := &stubAPI{putErr: &types.ConditionalCheckFailedException{}}
	repo := newTestRepo(api)

	err := repo.Create(context.Background(), fixtures.Male("A").MustBuild())

	assert.True(t, pkgerrors.IsConflict(err))
	require.Len(t, api.puts, 1)
	assert.Contains(t, *api.puts[0].ConditionExpression, "attribute_not_exists")
}

func TestPersonRepository_SaveStale(t *testing.T) {
	api := &stubAPI{putErr: &types.ConditionalCheckFailedException{}}
	repo := newTestRepo(api)

	err := repo.Save(context.Background(), fixtures.Male("A").MustBuild())

	var domainErr *pkgerrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "CONCURRENT_MODIFICATION", domainErr.Code)
}

func TestPersonRepository_GetByIDMissing(t *testing.T) {
	repo := newTestRepo(&stubAPI{})

	_, err := repo.GetByID(context.Background(), valueobjects.MustPersonID("nobody"))

	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestPersonRepository_DeleteMissing(t *testing.T) {
	repo := newTestRepo(&stubAPI{deleteErr: &types.ConditionalCheckFailedException{}})

	err := repo.Delete(context.Background(), valueobjects.MustPersonID("nobody"))

	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestPersonRepository_GetByIDsRetriesUnprocessed(t *testing.T) {
	a := itemFor(t, fixtures.Male("A"))
	b := itemFor(t, fixtures.Female("B"))
	api := &stubAPI{batchPages: []*dynamodb.BatchGetItemOutput{
		{
			Responses: map[string][]map[string]types.AttributeValue{"familytree": {a}},
			UnprocessedKeys: map[string]types.KeysAndAttributes{
				"familytree": {Keys: []map[string]types.AttributeValue{personKey("B")}},
			},
		},
		{Responses: map[string][]map[string]types.AttributeValue{"familytree": {b}}},
	}}
	repo := newTestRepo(api)

	got, err := repo.GetByIDs(context.Background(), []valueobjects.PersonID{
		valueobjects.MustPersonID("A"),
		valueobjects.MustPersonID("B"),
		valueobjects.MustPersonID("A"),
	})

	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 2, api.batchCall)
}

func TestPersonRepository_SnapshotPages(t *testing.T) {
	api := &stubAPI{queryPages: []*dynamodb.QueryOutput{
		{Items: []map[string]types.AttributeValue{itemFor(t, fixtures.Male("A")), itemFor(t, fixtures.Male("B"))}},
		{Items: []map[string]types.AttributeValue{itemFor(t, fixtures.Male("C"))}},
	}}
	repo := newTestRepo(api)

	people, err := repo.Snapshot(context.Background())

	require.NoError(t, err)
	require.Len(t, people, 3)
	assert.Equal(t, "C", people[2].ID().String())
	assert.True(t, *api.queries[0].ScanIndexForward)
	assert.Equal(t, "GSI1", *api.queries[0].IndexName)
}

func TestPersonRepository_ListOffsetAndLimit(t *testing.T) {
	api := &stubAPI{queryPages: []*dynamodb.QueryOutput{
		{Items: []map[string]types.AttributeValue{itemFor(t, fixtures.Male("C")), itemFor(t, fixtures.Male("B"))}},
		{Items: []map[string]types.AttributeValue{itemFor(t, fixtures.Male("A"))}},
	}}
	repo := newTestRepo(api)

	people, total, err := repo.List(context.Background(), ports.ListOptions{Limit: 1, Offset: 1})

	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, people, 1)
	assert.Equal(t, "B", people[0].ID().String())
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want pkgerrors.ErrorType
	}{
		{"throttled", &smithy.GenericAPIError{Code: "ProvisionedThroughputExceededException"}, pkgerrors.ErrorTypeUnavailable},
		{"missing table", &smithy.GenericAPIError{Code: "ResourceNotFoundException"}, pkgerrors.ErrorTypeUnavailable},
		{"validation", &smithy.GenericAPIError{Code: "ValidationException"}, pkgerrors.ErrorTypeDatabase},
		{"plain", errors.New("connection reset"), pkgerrors.ErrorTypeDatabase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapError("op", tt.err)
			assert.True(t, pkgerrors.IsType(err, tt.want))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestPersonRepository_Ping(t *testing.T) {
	api := &stubAPI{queryPages: []*dynamodb.QueryOutput{{}}}
	repo := newTestRepo(api)

	require.NoError(t, repo.Ping(context.Background()))
	require.Len(t, api.queries, 1)
	assert.Equal(t, int32(1), *api.queries[0].Limit)
	assert.Equal(t, "GSI1", *api.queries[0].IndexName)
}

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_RoundTrip(t *testing.T) {
	cfg := JWTConfig{SecretKey: "s3cret", Issuer: "familytree", Audience: "familytree-api"}
	gen, err := NewJWTGenerator(cfg)
	require.NoError(t, err)
	val, err := NewJWTValidator(cfg)
	require.NoError(t, err)

	token, err := gen.GenerateToken("user-1", "u@example.com", []string{"editor"})
	require.NoError(t, err)

	claims, err := val.ValidateToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, []string{"editor"}, claims.Roles)
}

func TestJWT_Rejections(t *testing.T) {
	cfg := JWTConfig{SecretKey: "s3cret", Issuer: "familytree"}
	val, err := NewJWTValidator(cfg)
	require.NoError(t, err)

	expiredGen, err := NewJWTGenerator(cfg)
	require.NoError(t, err)
	expiredGen.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	expired, err := expiredGen.GenerateToken("user-1", "", nil)
	require.NoError(t, err)

	otherGen, err := NewJWTGenerator(JWTConfig{SecretKey: "other", Issuer: "familytree"})
	require.NoError(t, err)
	forged, err := otherGen.GenerateToken("user-1", "", nil)
	require.NoError(t, err)

	wrongIssuerGen, err := NewJWTGenerator(JWTConfig{SecretKey: "s3cret", Issuer: "elsewhere"})
	require.NoError(t, err)
	wrongIssuer, err := wrongIssuerGen.GenerateToken("user-1", "", nil)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"missing", "", ErrMissingToken},
		{"garbage", "not-a-token", ErrInvalidToken},
		{"expired", expired, ErrExpiredToken},
		{"wrong key", forged, ErrInvalidSignature},
		{"wrong issuer", wrongIssuer, ErrInvalidClaims},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := val.ValidateToken(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewJWTValidator_RequiresSecret(t *testing.T) {
	_, err := NewJWTValidator(JWTConfig{})
	assert.Error(t, err)
}

func TestUserContext(t *testing.T) {
	_, err := GetUserFromContext(context.Background())
	assert.ErrorIs(t, err, ErrNoUser)

	ctx := SetUserInContext(context.Background(), &UserContext{UserID: "u", Roles: []string{"admin"}})
	user, err := GetUserFromContext(ctx)
	require.NoError(t, err)
	assert.True(t, user.HasRole("admin"))
	assert.False(t, user.HasRole("editor"))
}

func TestTokenBucketLimiter(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewTokenBucketLimiter(1, 2)
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "ip:1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "ip:1")
	assert.False(t, ok, "burst exhausted")

	ok, _ = l.Allow(ctx, "ip:2")
	assert.True(t, ok, "keys are independent")

	now = now.Add(time.Second)
	ok, _ = l.Allow(ctx, "ip:1")
	assert.True(t, ok, "refilled")

	now = now.Add(time.Hour)
	assert.Equal(t, 2, l.Sweep())
}

func TestCompositeRateLimiter(t *testing.T) {
	ctx := context.Background()
	tight := NewTokenBucketLimiter(0, 1)
	loose := NewTokenBucketLimiter(100, 100)
	c := NewCompositeRateLimiter(loose, tight)

	ok, err := c.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = c.Allow(ctx, "k")
	assert.False(t, ok)

	require.NoError(t, c.Reset(ctx, "k"))
	ok, _ = c.Allow(ctx, "k")
	assert.True(t, ok)
}

type counterStub struct {
	err     error
	updates []*dynamodb.UpdateItemInput
}

func (c *counterStub) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	c.updates = append(c.updates, in)
	return &dynamodb.UpdateItemOutput{}, c.err
}

func (c *counterStub) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	return &dynamodb.DeleteItemOutput{}, nil
}

func TestDistributedRateLimiter(t *testing.T) {
	ctx := context.Background()

	allowed := &counterStub{}
	ok, err := NewDistributedRateLimiter(allowed, "familytree", 10, time.Minute, "IP").Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok)
	pk := allowed.updates[0].Key["PK"].(*types.AttributeValueMemberS).Value
	assert.Contains(t, pk, "RATELIMIT#IP#1.2.3.4#")

	exceeded := &counterStub{err: &types.ConditionalCheckFailedException{}}
	ok, err = NewDistributedRateLimiter(exceeded, "familytree", 10, time.Minute, "IP").Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok)

	broken := &counterStub{err: errors.New("timeout")}
	ok, err = NewDistributedRateLimiter(broken, "familytree", 10, time.Minute, "IP").Allow(ctx, "1.2.3.4")
	assert.Error(t, err)
	assert.True(t, ok, "fails open")
}

func TestCompositeRateLimiter_FailOpenLimiterDoesNotBlock(t *testing.T) {
	broken := NewDistributedRateLimiter(&counterStub{err: errors.New("timeout")}, "familytree", 10, time.Minute, "API")
	c := NewCompositeRateLimiter(NewTokenBucketLimiter(100, 100), broken)

	ok, err := c.Allow(context.Background(), "k")
	assert.True(t, ok)
	assert.Error(t, err)
}

// Package main implements the WebSocket connect and disconnect Lambda.
// Clients authenticate with a token query parameter when JWT_SECRET is set.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"familytree/infrastructure/config"
	"familytree/infrastructure/di"
	"familytree/infrastructure/messaging/websocket"
	"familytree/pkg/auth"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
)

// ConnectionRegistry stores open connections
type ConnectionRegistry interface {
	Register(ctx context.Context, conn websocket.Connection) error
	Unregister(ctx context.Context, connectionID string) error
}

type connectHandler struct {
	connections ConnectionRegistry
	validator   *auth.JWTValidator
	logger      *zap.Logger
	now         func() time.Time
}

// Handle dispatches on the route key of the WebSocket event
func (h *connectHandler) Handle(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	connectionID := req.RequestContext.ConnectionID

	switch req.RequestContext.RouteKey {
	case "$connect":
		userID, err := h.authenticate(req)
		if err != nil {
			h.logger.Info("Rejected WebSocket connection",
				zap.String("connectionID", connectionID),
				zap.Error(err))
			return respond(http.StatusUnauthorized), nil
		}

		conn := websocket.Connection{
			ConnectionID: connectionID,
			UserID:       userID,
			Endpoint:     req.RequestContext.DomainName + "/" + req.RequestContext.Stage,
			ConnectedAt:  h.now(),
		}
		if err := h.connections.Register(ctx, conn); err != nil {
			h.logger.Error("Failed to register connection", zap.String("connectionID", connectionID), zap.Error(err))
			return respond(http.StatusInternalServerError), nil
		}
		h.logger.Info("WebSocket connected", zap.String("connectionID", connectionID), zap.String("userID", userID))
		return respond(http.StatusOK), nil

	case "$disconnect":
		err := h.connections.Unregister(ctx, connectionID)
		if err != nil && !errors.Is(err, websocket.ErrUnknownConnection) {
			h.logger.Error("Failed to unregister connection", zap.String("connectionID", connectionID), zap.Error(err))
			return respond(http.StatusInternalServerError), nil
		}
		h.logger.Info("WebSocket disconnected", zap.String("connectionID", connectionID))
		return respond(http.StatusOK), nil

	default:
		return respond(http.StatusBadRequest), nil
	}
}

// authenticate returns the caller's user ID. Without a validator every
// connection is anonymous.
func (h *connectHandler) authenticate(req events.APIGatewayWebsocketProxyRequest) (string, error) {
	if h.validator == nil {
		return "", nil
	}

	token := req.QueryStringParameters["token"]
	if token == "" {
		token = strings.TrimPrefix(req.Headers["Authorization"], "Bearer ")
	}
	if token == "" {
		return "", auth.ErrMissingToken
	}

	claims, err := h.validator.ValidateToken(token)
	if err != nil {
		return "", err
	}
	return claims.UserID(), nil
}

func respond(status int) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{StatusCode: status}
}

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, cleanup, err := di.ProvideLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer cleanup()

	awsCfg, err := di.ProvideAWSConfig(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to load AWS config", zap.Error(err))
	}

	validator, err := di.ProvideJWTValidator(cfg)
	if err != nil {
		logger.Fatal("Failed to create token validator", zap.Error(err))
	}

	h := &connectHandler{
		connections: di.ProvideConnectionStore(di.ProvideDynamoDBClient(awsCfg), cfg),
		validator:   validator,
		logger:      logger,
		now:         time.Now,
	}
	lambda.Start(h.Handle)
}

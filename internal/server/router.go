package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verdantstack/agrisync/internal/farm"
	"github.com/verdantstack/agrisync/internal/sync"
	"github.com/verdantstack/agrisync/internal/users"
)

const userIDContextKey = "agrisync_user_id"

var (
	errMissingTokenManager    = errors.New("token manager dependency required")
	errMissingAccountsService = errors.New("accounts service dependency required")
	errMissingSyncEngine      = errors.New("sync engine dependency required")
	errInvalidAuthorization   = errors.New("authorization header missing or invalid")
)

// TokenManager issues and validates the bearer tokens protecting the API.
type TokenManager interface {
	IssueToken(ctx context.Context, userID string) (string, int64, error)
	ValidateToken(token string) (string, error)
}

// AccountsService registers users and verifies credentials.
type AccountsService interface {
	Register(ctx context.Context, email, password, displayName string) (*users.User, error)
	Authenticate(ctx context.Context, email, password string) (*users.User, error)
}

// Dependencies wires the HTTP layer to its collaborators.
type Dependencies struct {
	TokenManager TokenManager
	Accounts     AccountsService
	Engine       *sync.Engine
	Dispatcher   *RealtimeDispatcher
	Logger       *zap.Logger
}

// NewHTTPHandler assembles the gin router for the API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.Accounts == nil {
		return nil, errMissingAccountsService
	}
	if deps.Engine == nil {
		return nil, errMissingSyncEngine
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = NewRealtimeDispatcher()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		tokens:     deps.TokenManager,
		accounts:   deps.Accounts,
		engine:     deps.Engine,
		dispatcher: dispatcher,
		logger:     logger,
	}

	router.POST("/auth/register", handler.handleRegister)
	router.POST("/auth/login", handler.handleLogin)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.POST("/sync/push", handler.handleSyncPush)
	protected.GET("/sync/pull", handler.handleSyncPull)
	protected.GET("/sync/events", handler.handleSyncEvents)

	protected.GET("/farm/:collection", handler.handleListCollection)
	protected.POST("/farm/:collection", handler.handleCreateRecord)
	protected.PUT("/farm/:collection/:id", handler.handleUpdateRecord)
	protected.DELETE("/farm/:collection/:id", handler.handleDeleteRecord)

	return router, nil
}

type httpHandler struct {
	tokens     TokenManager
	accounts   AccountsService
	engine     *sync.Engine
	dispatcher *RealtimeDispatcher
	logger     *zap.Logger
}

type registerRequestPayload struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type loginRequestPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponsePayload struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
	UserID      string `json:"user_id"`
}

func (h *httpHandler) handleRegister(c *gin.Context) {
	var request registerRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), request.Email, request.Password, request.DisplayName)
	switch {
	case errors.Is(err, users.ErrInvalidEmail):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_email"})
		return
	case errors.Is(err, users.ErrWeakPassword):
		c.JSON(http.StatusBadRequest, gin.H{"error": "weak_password"})
		return
	case errors.Is(err, users.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "email_taken"})
		return
	case err != nil:
		h.logger.Error("account registration failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration_failed"})
		return
	}

	h.issueToken(c, user.ID)
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request loginRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	user, err := h.accounts.Authenticate(c.Request.Context(), request.Email, request.Password)
	if errors.Is(err, users.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if err != nil {
		h.logger.Error("authentication failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login_failed"})
		return
	}

	h.issueToken(c, user.ID)
}

func (h *httpHandler) issueToken(c *gin.Context, userID string) {
	token, expiresIn, err := h.tokens.IssueToken(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to issue token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}
	c.JSON(http.StatusOK, authResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
		UserID:      userID,
	})
}

type pushRequestPayload struct {
	Operations []pushOperationPayload `json:"operations"`
}

type pushOperationPayload struct {
	OperationID     string         `json:"operationId"`
	Entity          string         `json:"entity"`
	Operation       string         `json:"operation"`
	Payload         map[string]any `json:"payload"`
	ClientUpdatedAt string         `json:"clientUpdatedAt"`
}

func (h *httpHandler) handleSyncPush(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var request pushRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	operations := make([]sync.Operation, 0, len(request.Operations))
	for _, op := range request.Operations {
		operations = append(operations, sync.Operation{
			OperationID:     strings.TrimSpace(op.OperationID),
			Entity:          farm.EntityKind(op.Entity),
			Type:            sync.OperationType(op.Operation),
			Payload:         op.Payload,
			ClientUpdatedAt: op.ClientUpdatedAt,
		})
	}

	result, err := h.engine.Push(c.Request.Context(), userID, operations)
	if err != nil {
		h.logger.Error("sync push failed", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "push_failed"})
		return
	}

	if len(result.AppliedOperationIDs) > 0 || len(result.Conflicts) < len(operations) {
		h.dispatcher.Publish(RealtimeMessage{
			UserID:    userID,
			EventType: RealtimeEventFarmChanged,
			Timestamp: result.ServerTime,
		})
	}

	c.JSON(http.StatusOK, result)
}

func (h *httpHandler) handleSyncPull(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var checkpoint *time.Time
	if raw := strings.TrimSpace(c.Query("since")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_since"})
			return
		}
		checkpoint = &parsed
	}

	result, err := h.engine.Pull(c.Request.Context(), userID, checkpoint)
	if err != nil {
		h.logger.Error("sync pull failed", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "pull_failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	subject, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(userIDContextKey, subject)
	c.Next()
}

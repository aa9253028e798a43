package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/verdantstack/agrisync/internal/farm"
	syncengine "github.com/verdantstack/agrisync/internal/sync"
	"github.com/verdantstack/agrisync/internal/users"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubTokenManager maps opaque tokens to user ids so handler tests do not
// depend on JWT wiring.
type stubTokenManager struct {
	tokens map[string]string
}

func (s *stubTokenManager) IssueToken(ctx context.Context, userID string) (string, int64, error) {
	token := "token-" + userID
	s.tokens[token] = userID
	return token, 3600, nil
}

func (s *stubTokenManager) ValidateToken(token string) (string, error) {
	userID, ok := s.tokens[token]
	if !ok {
		return "", errors.New("unknown token")
	}
	return userID, nil
}

type testServer struct {
	handler    http.Handler
	tokens     *stubTokenManager
	engine     *syncengine.Engine
	store      *farm.Store
	dispatcher *RealtimeDispatcher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dsn := fmt.Sprintf("file:agrisync_server_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&users.User{},
		&farm.Plantation{},
		&farm.Field{},
		&farm.PlantingSeason{},
		&farm.Activity{},
		&farm.FinancialRecord{},
		&farm.ActivityPhoto{},
		&farm.Tombstone{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	accounts, err := users.NewService(users.ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to construct accounts service: %v", err)
	}
	store, err := farm.NewStore(farm.StoreConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to construct store: %v", err)
	}
	engine, err := syncengine.NewEngine(syncengine.EngineConfig{Store: store})
	if err != nil {
		t.Fatalf("failed to construct engine: %v", err)
	}

	tokens := &stubTokenManager{tokens: make(map[string]string)}
	dispatcher := NewRealtimeDispatcher()
	handler, err := NewHTTPHandler(Dependencies{
		TokenManager: tokens,
		Accounts:     accounts,
		Engine:       engine,
		Dispatcher:   dispatcher,
	})
	if err != nil {
		t.Fatalf("failed to construct handler: %v", err)
	}

	return &testServer{handler: handler, tokens: tokens, engine: engine, store: store, dispatcher: dispatcher}
}

func (s *testServer) bearerFor(userID string) string {
	token := "token-" + userID
	s.tokens.tokens[token] = userID
	return "Bearer " + token
}

func (s *testServer) do(t *testing.T, method, target, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	request := httptest.NewRequest(method, target, reader)
	request.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		request.Header.Set("Authorization", bearer)
	}
	recorder := httptest.NewRecorder()
	s.handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response %q: %v", recorder.Body.String(), err)
	}
	return body
}

func TestNewHTTPHandlerValidatesDependencies(t *testing.T) {
	if _, err := NewHTTPHandler(Dependencies{}); !errors.Is(err, errMissingTokenManager) {
		t.Fatalf("expected missing token manager, got %v", err)
	}
}

func TestRegisterIssuesToken(t *testing.T) {
	server := newTestServer(t)

	recorder := server.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email":       "farmer@example.com",
		"password":    "plantain-rows-7",
		"displayName": "Ama",
	})

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	body := decodeBody(t, recorder)
	if body["access_token"] == "" || body["token_type"] != "Bearer" {
		t.Fatalf("unexpected auth response %#v", body)
	}
	if body["user_id"] == "" {
		t.Fatalf("expected user id in response %#v", body)
	}
}

func TestRegisterValidationErrors(t *testing.T) {
	server := newTestServer(t)

	cases := []struct {
		name       string
		payload    map[string]any
		wantStatus int
		wantError  string
	}{
		{
			name:       "invalid email",
			payload:    map[string]any{"email": "not-an-email", "password": "long-enough-pw"},
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid_email",
		},
		{
			name:       "weak password",
			payload:    map[string]any{"email": "farmer@example.com", "password": "short"},
			wantStatus: http.StatusBadRequest,
			wantError:  "weak_password",
		},
	}

	for _, testCase := range cases {
		t.Run(testCase.name, func(t *testing.T) {
			recorder := server.do(t, http.MethodPost, "/auth/register", "", testCase.payload)
			if recorder.Code != testCase.wantStatus {
				t.Fatalf("expected %d, got %d: %s", testCase.wantStatus, recorder.Code, recorder.Body.String())
			}
			if body := decodeBody(t, recorder); body["error"] != testCase.wantError {
				t.Fatalf("unexpected error body %#v", body)
			}
		})
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	server := newTestServer(t)
	payload := map[string]any{"email": "farmer@example.com", "password": "plantain-rows-7"}

	if recorder := server.do(t, http.MethodPost, "/auth/register", "", payload); recorder.Code != http.StatusOK {
		t.Fatalf("first registration failed: %d", recorder.Code)
	}
	recorder := server.do(t, http.MethodPost, "/auth/register", "", payload)
	if recorder.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", recorder.Code)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	server := newTestServer(t)
	server.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email": "farmer@example.com", "password": "plantain-rows-7",
	})

	recorder := server.do(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email": "farmer@example.com", "password": "wrong-password",
	})
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
}

func TestProtectedRoutesRequireBearerToken(t *testing.T) {
	server := newTestServer(t)

	cases := []struct {
		name   string
		bearer string
	}{
		{name: "missing header", bearer: ""},
		{name: "wrong scheme", bearer: "Basic abc123"},
		{name: "unknown token", bearer: "Bearer bogus"},
	}

	for _, testCase := range cases {
		t.Run(testCase.name, func(t *testing.T) {
			recorder := server.do(t, http.MethodGet, "/sync/pull", testCase.bearer, nil)
			if recorder.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", recorder.Code)
			}
		})
	}
}

func TestSyncPushEndpoint(t *testing.T) {
	server := newTestServer(t)
	bearer := server.bearerFor("user-1")

	recorder := server.do(t, http.MethodPost, "/sync/push", bearer, map[string]any{
		"operations": []map[string]any{
			{
				"operationId": "op-1",
				"entity":      "plantation",
				"operation":   "create",
				"payload": map[string]any{
					"id":   "plantation-1",
					"name": "Cocoa Estate",
				},
				"clientUpdatedAt": time.Now().UTC().Format(time.RFC3339Nano),
			},
		},
	})

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	body := decodeBody(t, recorder)
	applied, ok := body["appliedOperationIds"].([]any)
	if !ok || len(applied) != 1 || applied[0] != "op-1" {
		t.Fatalf("unexpected applied ids %#v", body)
	}
	if conflicts, ok := body["conflicts"].([]any); !ok || len(conflicts) != 0 {
		t.Fatalf("unexpected conflicts %#v", body)
	}
	if body["serverTime"] == "" {
		t.Fatalf("expected server time in response %#v", body)
	}
}

func TestSyncPushReportsConflictsAsData(t *testing.T) {
	server := newTestServer(t)
	bearer := server.bearerFor("user-1")
	claim := time.Now().UTC().Format(time.RFC3339Nano)
	operation := map[string]any{
		"entity":    "plantation",
		"operation": "create",
		"payload": map[string]any{
			"id":   "plantation-1",
			"name": "Cocoa Estate",
		},
		"clientUpdatedAt": claim,
	}

	first := server.do(t, http.MethodPost, "/sync/push", bearer, map[string]any{
		"operations": []map[string]any{operation},
	})
	if first.Code != http.StatusOK {
		t.Fatalf("first push failed: %d", first.Code)
	}

	second := server.do(t, http.MethodPost, "/sync/push", bearer, map[string]any{
		"operations": []map[string]any{operation},
	})
	if second.Code != http.StatusOK {
		t.Fatalf("conflicts are data, not errors; got %d", second.Code)
	}
	body := decodeBody(t, second)
	conflicts, ok := body["conflicts"].([]any)
	if !ok || len(conflicts) != 1 {
		t.Fatalf("expected one conflict, got %#v", body)
	}
	conflict := conflicts[0].(map[string]any)
	if conflict["reason"] != "plantation already exists" {
		t.Fatalf("unexpected conflict %#v", conflict)
	}
	if conflict["serverRecord"] == nil {
		t.Fatalf("expected server record on conflict %#v", conflict)
	}
}

func TestSyncPullEndpoint(t *testing.T) {
	server := newTestServer(t)
	bearer := server.bearerFor("user-1")
	seedServerPlantation(t, server, "user-1", "plantation-1")

	recorder := server.do(t, http.MethodGet, "/sync/pull", bearer, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	body := decodeBody(t, recorder)
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("missing data envelope %#v", body)
	}
	plantations, ok := data["plantations"].([]any)
	if !ok || len(plantations) != 1 {
		t.Fatalf("unexpected plantations %#v", data)
	}
	if deletions, ok := body["deletions"].([]any); !ok || len(deletions) != 0 {
		t.Fatalf("expected empty deletions slice %#v", body)
	}
}

func TestSyncPullRejectsMalformedSince(t *testing.T) {
	server := newTestServer(t)
	bearer := server.bearerFor("user-1")

	recorder := server.do(t, http.MethodGet, "/sync/pull?since=yesterday", bearer, nil)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	if body := decodeBody(t, recorder); body["error"] != "invalid_since" {
		t.Fatalf("unexpected error body %#v", body)
	}
}

func seedServerPlantation(t *testing.T, server *testServer, userID, id string) {
	t.Helper()
	plantation := &farm.Plantation{ID: id, OwnerID: userID, Name: "Plantation " + id}
	if err := server.store.CreatePlantation(context.Background(), plantation); err != nil {
		t.Fatalf("failed to seed plantation: %v", err)
	}
}

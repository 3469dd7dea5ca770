package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"log/slog"
	stdhttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"

	mw "github.com/pilahub/queue-backend/internal/adapters/primary/http/middleware"
	wsadapter "github.com/pilahub/queue-backend/internal/adapters/primary/websocket"
	"github.com/pilahub/queue-backend/internal/adapters/secondary/notify"
	pgadapter "github.com/pilahub/queue-backend/internal/adapters/secondary/postgres"
	"github.com/pilahub/queue-backend/internal/auth"
	"github.com/pilahub/queue-backend/internal/core/domain"
	"github.com/pilahub/queue-backend/internal/core/services"
	"github.com/pilahub/queue-backend/internal/infrastructure/metrics"
)

const (
	testJoinCode      = "424242"
	testAdminUser     = "admin"
	testAdminPassword = "Password1"
)

var (
	testPool    *pgxpool.Pool
	testMetrics *metrics.Metrics

	adminPasswordHash = func() string {
		hash, err := bcrypt.GenerateFromPassword([]byte(testAdminPassword), bcrypt.MinCost)
		if err != nil {
			panic(err)
		}
		return string(hash)
	}()
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	pgContainer, err := pgcontainer.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		pgcontainer.WithDatabase("test-db"),
		pgcontainer.WithUsername("user"),
		pgcontainer.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second),
		),
	)
	if err != nil {
		log.Fatalf("could not start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("could not get connection string: %v", err)
	}

	migrationsPath, err := filepath.Abs("../../../../migrations")
	if err != nil {
		log.Fatalf("could not find migrations directory: %v", err)
	}

	migrationURL := "file://" + migrationsPath
	mig, err := migrate.New(migrationURL, connStr)
	if err != nil {
		log.Fatalf("could not create migrate instance: %v", err)
	}
	if err := mig.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatalf("could not run migrations: %v", err)
	}

	testPool, err = pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("could not create connection pool: %v", err)
	}

	// Prometheus collectors register globally; build them once for the package.
	testMetrics = metrics.New()

	code := m.Run()

	testPool.Close()
	if err := pgContainer.Terminate(ctx); err != nil {
		log.Fatalf("could not terminate postgres container: %v", err)
	}

	os.Exit(code)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newAPIRouter wires the full handler stack against the test database.
func newAPIRouter(t *testing.T) (*chi.Mux, *auth.TokenManager) {
	t.Helper()
	require.NotNil(t, testPool, "testPool is nil. TestMain may not have run.")

	logger := newTestLogger()
	errorHandler := NewErrorHandler(logger)

	ticketRepo := pgadapter.NewTicketRepository(testPool)
	serviceTypeRepo := pgadapter.NewServiceTypeRepository(testPool)
	hub := wsadapter.NewHub(logger)
	notifier := notify.NewLogNotifier(logger)

	queueService := services.NewQueueService(ticketRepo, serviceTypeRepo, notifier, hub, testJoinCode)
	t.Cleanup(queueService.Shutdown)
	catalogService := services.NewCatalogService(serviceTypeRepo, hub)
	statsService := services.NewStatsService(ticketRepo)
	adminAuthService := services.NewAdminAuthService(testAdminUser, adminPasswordHash)

	tokenManager := auth.NewTokenManager("test-secret", time.Hour)

	authHandler := NewAuthHandler(adminAuthService, tokenManager, time.Hour, errorHandler, logger)
	queueHandler := NewQueueHandler(queueService, catalogService, statsService, errorHandler, testMetrics, logger)
	adminHandler := NewAdminHandler(queueService, statsService, errorHandler, testMetrics, logger)
	catalogHandler := NewCatalogHandler(catalogService, errorHandler, logger)

	router := chi.NewRouter()
	authHandler.RegisterRoutes(router)
	queueHandler.RegisterRoutes(router, nil)
	router.Route("/admin", func(r chi.Router) {
		r.Use(mw.JWTMiddleware(tokenManager))
		adminHandler.RegisterRoutes(r)
		catalogHandler.RegisterRoutes(r)
	})

	return router, tokenManager
}

func newQueueID() string {
	return "q-" + uuid.NewString()
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

// doJSON performs a request against the router and returns the recorder.
func doJSON(t *testing.T, router *chi.Mux, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&value))
	return value
}

// createServiceType seeds a catalog entry directly through the repository.
func createServiceType(t *testing.T, name string) *domain.ServiceType {
	t.Helper()

	repo := pgadapter.NewServiceTypeRepository(testPool)
	count, err := repo.Count(context.Background())
	require.NoError(t, err)

	created, err := repo.Create(context.Background(), &domain.ServiceType{
		Name:     name,
		Icon:     "cash-outline",
		Color:    "#10B981",
		Position: count + 1,
	})
	require.NoError(t, err)
	return created
}

// joinTicket takes a ticket via the public endpoint using the join code.
func joinTicket(t *testing.T, router *chi.Mux, queueID string, serviceTypeID int64) TicketDTO {
	t.Helper()

	recorder := doJSON(t, router, stdhttp.MethodPost, "/queues/"+queueID+"/tickets", map[string]any{
		"serviceTypeId": serviceTypeID,
		"code":          testJoinCode,
	}, "")
	require.Equal(t, stdhttp.StatusCreated, recorder.Code, recorder.Body.String())
	return decodeBody[TicketDTO](t, recorder)
}

func adminToken(t *testing.T, tokenManager *auth.TokenManager) string {
	t.Helper()
	token, err := tokenManager.GenerateAdminToken(testAdminUser)
	require.NoError(t, err)
	return token
}

func TestJoinQueue(t *testing.T) {
	router, _ := newAPIRouter(t)
	st := createServiceType(t, "Join-"+uuid.NewString())

	t.Run("issues a numbered ticket", func(t *testing.T) {
		queueID := newQueueID()

		ticket := joinTicket(t, router, queueID, st.ID)

		assert.Equal(t, 1, ticket.TicketNumber)
		assert.Equal(t, queueID, ticket.QueueID)
		assert.Equal(t, string(domain.StatusWaiting), ticket.Status)
		assert.Equal(t, st.Name, ticket.ServiceType)

		second := joinTicket(t, router, queueID, st.ID)
		assert.Equal(t, 2, second.TicketNumber)
	})

	t.Run("wrong code is rejected", func(t *testing.T) {
		recorder := doJSON(t, router, stdhttp.MethodPost, "/queues/"+newQueueID()+"/tickets", map[string]any{
			"serviceTypeId": st.ID,
			"code":          "000000",
		}, "")

		require.Equal(t, stdhttp.StatusUnauthorized, recorder.Code)
		response := decodeBody[ErrorResponse](t, recorder)
		assert.Equal(t, "INCORRECT_CODE", response.Code)
	})

	t.Run("qr scan joins without the code", func(t *testing.T) {
		recorder := doJSON(t, router, stdhttp.MethodPost, "/queues/"+newQueueID()+"/tickets", map[string]any{
			"serviceTypeId": st.ID,
			"qrToken":       "JOIN_QUEUE",
		}, "")

		require.Equal(t, stdhttp.StatusCreated, recorder.Code, recorder.Body.String())
	})

	t.Run("foreign qr payload is rejected", func(t *testing.T) {
		recorder := doJSON(t, router, stdhttp.MethodPost, "/queues/"+newQueueID()+"/tickets", map[string]any{
			"serviceTypeId": st.ID,
			"qrToken":       "https://example.com/not-our-code",
		}, "")

		require.Equal(t, stdhttp.StatusUnauthorized, recorder.Code)
		response := decodeBody[ErrorResponse](t, recorder)
		assert.Equal(t, "INCORRECT_CODE", response.Code)
	})

	t.Run("selection is mandatory while the catalog has entries", func(t *testing.T) {
		recorder := doJSON(t, router, stdhttp.MethodPost, "/queues/"+newQueueID()+"/tickets", map[string]any{
			"code": testJoinCode,
		}, "")

		require.Equal(t, stdhttp.StatusUnprocessableEntity, recorder.Code)
		response := decodeBody[ErrorResponse](t, recorder)
		assert.Equal(t, "SERVICE_SELECTION_REQUIRED", response.Code)
	})

	t.Run("missing code and qr fails validation", func(t *testing.T) {
		recorder := doJSON(t, router, stdhttp.MethodPost, "/queues/"+newQueueID()+"/tickets", map[string]any{
			"serviceTypeId": st.ID,
		}, "")

		require.Equal(t, stdhttp.StatusUnprocessableEntity, recorder.Code)
		response := decodeBody[ValidationErrorResponse](t, recorder)
		assert.Equal(t, "VALIDATION_ERROR", response.Code)
		assert.Contains(t, response.Fields, "code")
	})
}

func TestGetTicket(t *testing.T) {
	router, _ := newAPIRouter(t)
	st := createServiceType(t, "View-"+uuid.NewString())
	queueID := newQueueID()

	ticket := joinTicket(t, router, queueID, st.ID)

	t.Run("returns the holder view", func(t *testing.T) {
		recorder := doJSON(t, router, stdhttp.MethodGet, "/queues/"+queueID+"/tickets/"+itoa(ticket.ID), nil, "")

		require.Equal(t, stdhttp.StatusOK, recorder.Code)
		view := decodeBody[TicketViewDTO](t, recorder)
		assert.Equal(t, ticket.ID, view.Ticket.ID)
		assert.Nil(t, view.NowServingNumber)
		assert.Equal(t, 0, view.PeopleAhead)
		assert.Equal(t, 0, view.EstimatedWaitMinutes)
	})

	t.Run("ticket is invisible from another queue", func(t *testing.T) {
		recorder := doJSON(t, router, stdhttp.MethodGet, "/queues/"+newQueueID()+"/tickets/"+itoa(ticket.ID), nil, "")

		require.Equal(t, stdhttp.StatusNotFound, recorder.Code)
	})

	t.Run("garbage ticket id", func(t *testing.T) {
		recorder := doJSON(t, router, stdhttp.MethodGet, "/queues/"+queueID+"/tickets/abc", nil, "")

		require.Equal(t, stdhttp.StatusBadRequest, recorder.Code)
	})
}

func TestGetBoard(t *testing.T) {
	router, _ := newAPIRouter(t)
	st := createServiceType(t, "Board-"+uuid.NewString())
	queueID := newQueueID()

	joinTicket(t, router, queueID, st.ID)
	joinTicket(t, router, queueID, st.ID)

	recorder := doJSON(t, router, stdhttp.MethodGet, "/queues/"+queueID+"/board", nil, "")

	require.Equal(t, stdhttp.StatusOK, recorder.Code)
	board := decodeBody[BoardDTO](t, recorder)
	assert.Nil(t, board.NowServingNumber)
	assert.Equal(t, 2, board.WaitingCount)
}

func TestListServices(t *testing.T) {
	router, _ := newAPIRouter(t)
	st := createServiceType(t, "List-"+uuid.NewString())

	recorder := doJSON(t, router, stdhttp.MethodGet, "/queues/"+newQueueID()+"/services", nil, "")

	require.Equal(t, stdhttp.StatusOK, recorder.Code)
	var response struct {
		Data  []ServiceTypeDTO `json:"data"`
		Count int              `json:"count"`
	}
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, len(response.Data), response.Count)

	found := false
	for _, entry := range response.Data {
		if entry.ID == st.ID {
			found = true
			assert.Equal(t, st.Name, entry.Name)
		}
	}
	assert.True(t, found, "created entry missing from list")
}

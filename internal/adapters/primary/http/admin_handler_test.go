package http

import (
	stdhttp "net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilahub/queue-backend/internal/core/domain"
)

func TestAdminEndpoints_Unauthorized(t *testing.T) {
	router, _ := newAPIRouter(t)
	queueID := newQueueID()

	t.Run("missing token", func(t *testing.T) {
		recorder := doJSON(t, router, stdhttp.MethodPost, "/admin/queues/"+queueID+"/call-next", nil, "")
		require.Equal(t, stdhttp.StatusUnauthorized, recorder.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		recorder := doJSON(t, router, stdhttp.MethodPost, "/admin/queues/"+queueID+"/call-next", nil, "not-a-jwt")
		require.Equal(t, stdhttp.StatusUnauthorized, recorder.Code)
	})
}

func TestAdminCallNext(t *testing.T) {
	router, tokenManager := newAPIRouter(t)
	token := adminToken(t, tokenManager)
	st := createServiceType(t, "CallNext-"+uuid.NewString())
	queueID := newQueueID()

	first := joinTicket(t, router, queueID, st.ID)
	second := joinTicket(t, router, queueID, st.ID)

	recorder := doJSON(t, router, stdhttp.MethodPost, "/admin/queues/"+queueID+"/call-next", nil, token)
	require.Equal(t, stdhttp.StatusOK, recorder.Code, recorder.Body.String())
	serving := decodeBody[TicketDTO](t, recorder)
	assert.Equal(t, first.ID, serving.ID)
	assert.Equal(t, string(domain.StatusServing), serving.Status)

	// The next call completes the first ticket and promotes the second.
	recorder = doJSON(t, router, stdhttp.MethodPost, "/admin/queues/"+queueID+"/call-next", nil, token)
	require.Equal(t, stdhttp.StatusOK, recorder.Code)
	serving = decodeBody[TicketDTO](t, recorder)
	assert.Equal(t, second.ID, serving.ID)

	boardRecorder := doJSON(t, router, stdhttp.MethodGet, "/queues/"+queueID+"/board", nil, "")
	require.Equal(t, stdhttp.StatusOK, boardRecorder.Code)
	board := decodeBody[BoardDTO](t, boardRecorder)
	require.NotNil(t, board.NowServingNumber)
	assert.Equal(t, second.TicketNumber, *board.NowServingNumber)
	assert.Equal(t, 0, board.WaitingCount)

	recorder = doJSON(t, router, stdhttp.MethodPost, "/admin/queues/"+queueID+"/call-next", nil, token)
	require.Equal(t, stdhttp.StatusConflict, recorder.Code)
	response := decodeBody[ErrorResponse](t, recorder)
	assert.Equal(t, "QUEUE_EMPTY", response.Code)
}

func TestAdminCompleteServing(t *testing.T) {
	router, tokenManager := newAPIRouter(t)
	token := adminToken(t, tokenManager)
	st := createServiceType(t, "Complete-"+uuid.NewString())
	queueID := newQueueID()

	t.Run("finishes the serving ticket", func(t *testing.T) {
		ticket := joinTicket(t, router, queueID, st.ID)

		recorder := doJSON(t, router, stdhttp.MethodPost, "/admin/queues/"+queueID+"/call-next", nil, token)
		require.Equal(t, stdhttp.StatusOK, recorder.Code)

		recorder = doJSON(t, router, stdhttp.MethodPost, "/admin/queues/"+queueID+"/tickets/"+itoa(ticket.ID)+"/complete", nil, token)
		require.Equal(t, stdhttp.StatusOK, recorder.Code, recorder.Body.String())
		done := decodeBody[TicketDTO](t, recorder)
		assert.Equal(t, string(domain.StatusDone), done.Status)
		require.NotNil(t, done.WaitMinutes)
		require.NotNil(t, done.ServedAt)
	})

	t.Run("waiting ticket cannot be completed", func(t *testing.T) {
		ticket := joinTicket(t, router, queueID, st.ID)

		recorder := doJSON(t, router, stdhttp.MethodPost, "/admin/queues/"+queueID+"/tickets/"+itoa(ticket.ID)+"/complete", nil, token)
		require.Equal(t, stdhttp.StatusConflict, recorder.Code)
		response := decodeBody[ErrorResponse](t, recorder)
		assert.Equal(t, "INVALID_TRANSITION", response.Code)
	})
}

func TestAdminNotify(t *testing.T) {
	router, tokenManager := newAPIRouter(t)
	token := adminToken(t, tokenManager)
	st := createServiceType(t, "Notify-"+uuid.NewString())
	queueID := newQueueID()

	ticket := joinTicket(t, router, queueID, st.ID)

	recorder := doJSON(t, router, stdhttp.MethodPost, "/admin/queues/"+queueID+"/tickets/"+itoa(ticket.ID)+"/notify", nil, token)
	require.Equal(t, stdhttp.StatusOK, recorder.Code, recorder.Body.String())
	notified := decodeBody[TicketDTO](t, recorder)
	require.NotNil(t, notified.NotifiedAt)

	recorder = doJSON(t, router, stdhttp.MethodPost, "/admin/queues/"+queueID+"/tickets/999999999/notify", nil, token)
	require.Equal(t, stdhttp.StatusNotFound, recorder.Code)
}

func TestAdminResetFlow(t *testing.T) {
	router, tokenManager := newAPIRouter(t)
	token := adminToken(t, tokenManager)
	st := createServiceType(t, "Reset-"+uuid.NewString())
	queueID := newQueueID()

	joinTicket(t, router, queueID, st.ID)
	joinTicket(t, router, queueID, st.ID)

	recorder := doJSON(t, router, stdhttp.MethodPost, "/admin/queues/"+queueID+"/reset", nil, token)
	require.Equal(t, stdhttp.StatusOK, recorder.Code)
	grant := decodeBody[ResetRequestDTO](t, recorder)
	require.NotEmpty(t, grant.Token)
	require.NotEmpty(t, grant.ExpiresAt)

	recorder = doJSON(t, router, stdhttp.MethodPost, "/admin/queues/"+queueID+"/reset/confirm", map[string]any{
		"token": grant.Token,
	}, token)
	require.Equal(t, stdhttp.StatusOK, recorder.Code, recorder.Body.String())
	result := decodeBody[ResetResultDTO](t, recorder)
	assert.Equal(t, 2, result.Deleted)

	boardRecorder := doJSON(t, router, stdhttp.MethodGet, "/queues/"+queueID+"/board", nil, "")
	board := decodeBody[BoardDTO](t, boardRecorder)
	assert.Equal(t, 0, board.WaitingCount)

	// The grant is single-use.
	recorder = doJSON(t, router, stdhttp.MethodPost, "/admin/queues/"+queueID+"/reset/confirm", map[string]any{
		"token": grant.Token,
	}, token)
	require.Equal(t, stdhttp.StatusConflict, recorder.Code)
	response := decodeBody[ErrorResponse](t, recorder)
	assert.Equal(t, "RESET_NOT_REQUESTED", response.Code)

	// Numbering restarts after a clean reset.
	fresh := joinTicket(t, router, queueID, st.ID)
	assert.Equal(t, 1, fresh.TicketNumber)
}

func TestAdminResetConfirm_MissingToken(t *testing.T) {
	router, tokenManager := newAPIRouter(t)
	token := adminToken(t, tokenManager)

	recorder := doJSON(t, router, stdhttp.MethodPost, "/admin/queues/"+newQueueID()+"/reset/confirm", map[string]any{}, token)
	require.Equal(t, stdhttp.StatusUnprocessableEntity, recorder.Code)
	response := decodeBody[ValidationErrorResponse](t, recorder)
	assert.Contains(t, response.Fields, "token")
}

func TestAdminStats(t *testing.T) {
	router, tokenManager := newAPIRouter(t)
	token := adminToken(t, tokenManager)
	st := createServiceType(t, "Stats-"+uuid.NewString())
	queueID := newQueueID()

	served := joinTicket(t, router, queueID, st.ID)
	joinTicket(t, router, queueID, st.ID)

	recorder := doJSON(t, router, stdhttp.MethodPost, "/admin/queues/"+queueID+"/call-next", nil, token)
	require.Equal(t, stdhttp.StatusOK, recorder.Code)
	recorder = doJSON(t, router, stdhttp.MethodPost, "/admin/queues/"+queueID+"/tickets/"+itoa(served.ID)+"/complete", nil, token)
	require.Equal(t, stdhttp.StatusOK, recorder.Code)

	recorder = doJSON(t, router, stdhttp.MethodGet, "/admin/queues/"+queueID+"/stats", nil, token)
	require.Equal(t, stdhttp.StatusOK, recorder.Code)
	stats := decodeBody[QueueStatsDTO](t, recorder)

	assert.Equal(t, 1, stats.WaitingCount)
	assert.Equal(t, 1, stats.ServedCount)
	assert.Nil(t, stats.NowServingNumber)

	require.Len(t, stats.ServiceBreakdown, 1)
	assert.Equal(t, st.Name, stats.ServiceBreakdown[0].Name)
	assert.Equal(t, 100, stats.ServiceBreakdown[0].Percentage)

	require.Len(t, stats.RecentHistory, 1)
	assert.Equal(t, served.TicketNumber, stats.RecentHistory[0].TicketNumber)
}

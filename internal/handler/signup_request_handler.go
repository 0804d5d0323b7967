package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/dlool-api/internal/dto"
	"github.com/noah-isme/dlool-api/internal/models"
	appErrors "github.com/noah-isme/dlool-api/pkg/errors"
	"github.com/noah-isme/dlool-api/pkg/response"
)

type signupRequestService interface {
	Process(ctx context.Context, requestID, operatorID string, decision models.SignupDecision) (*dto.SignupRequestView, error)
	List(ctx context.Context, operatorID, rawStatus string) ([]dto.SignupRequestView, error)
	Get(ctx context.Context, requestID string) (*dto.SignupRequestView, error)
}

type signupRelay interface {
	Subscribe(ctx context.Context, requestID string) <-chan dto.SignupRequestEvent
}

// SignupRequestHandler exposes the class signup request endpoints.
type SignupRequestHandler struct {
	requests  signupRequestService
	relay     signupRelay
	heartbeat time.Duration
	logger    *zap.Logger
}

// NewSignupRequestHandler creates the handler. A non-positive heartbeat
// disables keep-alive comments on event streams.
func NewSignupRequestHandler(requests signupRequestService, relay signupRelay, heartbeat time.Duration, logger *zap.Logger) *SignupRequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SignupRequestHandler{requests: requests, relay: relay, heartbeat: heartbeat, logger: logger}
}

// List godoc
// @Summary List signup requests
// @Description Requests targeting any class the caller belongs to
// @Tags Signup Requests
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, accepted, rejected (or p, a, r)"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/requests [get]
func (h *SignupRequestHandler) List(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	items, err := h.requests.List(c.Request.Context(), claims.UserID, c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, map[string]interface{}{"total": len(items)})
}

// Get godoc
// @Summary Get a signup request
// @Tags Signup Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /auth/requests/{id} [get]
func (h *SignupRequestHandler) Get(c *gin.Context) {
	view, err := h.requests.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// Accept godoc
// @Summary Accept a signup request
// @Tags Signup Requests
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /auth/requests/{id}/accept [patch]
func (h *SignupRequestHandler) Accept(c *gin.Context) {
	h.process(c, models.SignupDecisionAccept)
}

// Reject godoc
// @Summary Reject a signup request
// @Tags Signup Requests
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /auth/requests/{id}/reject [patch]
func (h *SignupRequestHandler) Reject(c *gin.Context) {
	h.process(c, models.SignupDecisionReject)
}

func (h *SignupRequestHandler) process(c *gin.Context, decision models.SignupDecision) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	view, err := h.requests.Process(c.Request.Context(), c.Param("id"), claims.UserID, decision)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// Stream godoc
// @Summary Stream signup request changes
// @Description Server-sent events: one snapshot now, one per change, closed after the request is accepted or rejected
// @Tags Signup Requests
// @Produce text/event-stream
// @Param id path string true "Request ID"
// @Success 200 {string} string "event stream"
// @Router /auth/requests/{id}/sse [get]
func (h *SignupRequestHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	events := h.relay.Subscribe(ctx, c.Param("id"))

	response.PrepareStream(c)
	c.Status(http.StatusOK)
	c.Writer.Flush()

	var heartbeat <-chan time.Time
	if h.heartbeat > 0 {
		ticker := time.NewTicker(h.heartbeat)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat:
			if err := response.WriteComment(c.Writer, "ping"); err != nil {
				return
			}
			c.Writer.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			var err error
			if ev.Err != nil {
				err = response.WriteEvent(c.Writer, "error", appErrors.FromError(ev.Err).Message)
			} else {
				err = response.WriteEvent(c.Writer, "", ev.Snapshot)
			}
			if err != nil {
				h.logger.Debug("signup request stream write failed", zap.Error(err))
				return
			}
			c.Writer.Flush()
		}
	}
}

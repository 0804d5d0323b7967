package service

import (
	"context"
	"database/sql"
	"errors"
	"reflect"

	"go.uber.org/zap"

	"github.com/noah-isme/dlool-api/internal/dto"
	"github.com/noah-isme/dlool-api/internal/models"
	"github.com/noah-isme/dlool-api/pkg/changefeed"
	appErrors "github.com/noah-isme/dlool-api/pkg/errors"
)

// Errors delivered as the single event of a stream that cannot start.
var (
	ErrStreamInvalidID = appErrors.Clone(appErrors.ErrValidation, "Invalid id")
	ErrStreamNotFound  = appErrors.Clone(appErrors.ErrNotFound, "Request not found")
)

type signupRequestReader interface {
	GetByID(ctx context.Context, id string) (*models.SignupRequest, error)
}

// SignupRelayService streams snapshots of a signup request as it changes.
type SignupRelayService struct {
	requests signupRequestReader
	feed     changefeed.Feed
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewSignupRelayService constructs the relay.
func NewSignupRelayService(requests signupRequestReader, feed changefeed.Feed, metrics *MetricsService, logger *zap.Logger) *SignupRelayService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SignupRelayService{requests: requests, feed: feed, metrics: metrics, logger: logger}
}

// Subscribe returns a stream of snapshots for requestID. The first event is the
// current state; another follows each change. The channel closes right after
// the first accepted or rejected snapshot, after a single error event, or when
// ctx is done.
func (s *SignupRelayService) Subscribe(ctx context.Context, requestID string) <-chan dto.SignupRequestEvent {
	out := make(chan dto.SignupRequestEvent, 1)
	if !validID(requestID) {
		out <- dto.SignupRequestEvent{Err: ErrStreamInvalidID}
		close(out)
		return out
	}

	// watch before the first read so no change between the two is missed
	sub, err := s.feed.Subscribe(ctx, changefeed.Topic(SignupRequestTopic, requestID))
	if err != nil {
		s.logger.Error("failed to subscribe to signup request changes", zap.String("request_id", requestID), zap.Error(err))
		out <- dto.SignupRequestEvent{Err: appErrors.Internal(err, "failed to watch request")}
		close(out)
		return out
	}

	go s.relay(ctx, requestID, sub, out)
	return out
}

func (s *SignupRelayService) relay(ctx context.Context, requestID string, sub changefeed.Subscription, out chan<- dto.SignupRequestEvent) {
	s.metrics.RelaySubscribed(1)
	defer s.metrics.RelaySubscribed(-1)
	defer close(out)
	defer sub.Close()

	var last *dto.SignupRequestView
	send := func(event dto.SignupRequestEvent) bool {
		select {
		case out <- event:
			return true
		case <-ctx.Done():
			return false
		}
	}
	// emit reports whether the stream is finished.
	emit := func() bool {
		req, err := s.requests.GetByID(ctx, requestID)
		if err != nil {
			if ctx.Err() != nil {
				return true
			}
			if errors.Is(err, sql.ErrNoRows) {
				send(dto.SignupRequestEvent{Err: ErrStreamNotFound})
				return true
			}
			s.logger.Error("failed to load signup request for stream", zap.String("request_id", requestID), zap.Error(err))
			send(dto.SignupRequestEvent{Err: appErrors.Internal(err, "failed to load request")})
			return true
		}

		view := dto.NewSignupRequestView(req)
		if last != nil && reflect.DeepEqual(*last, view) {
			return false
		}
		last = &view
		if !send(dto.SignupRequestEvent{Snapshot: &view}) {
			return true
		}
		return view.Status.Terminal()
	}

	if emit() {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub.Messages():
			if !ok || emit() {
				return
			}
		}
	}
}

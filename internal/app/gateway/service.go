// Package gateway answers the action requests of participant pages by
// calling the managed meeting service.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// nullMeetingID is what a page without a meeting id serializes.
const nullMeetingID = "null"

type Config struct {
	Region string
}

type Service struct {
	plane    core.ControlPlane
	recorder core.Recorder
	region   string
	logger   zerolog.Logger
	newToken func() string
}

// New returns a Service. recorder may be nil, in which case recordings fail.
func New(cfg Config, plane core.ControlPlane, recorder core.Recorder, logger zerolog.Logger) *Service {
	return &Service{
		plane:    plane,
		recorder: recorder,
		region:   cfg.Region,
		logger:   logger.With().Str("module", "app.gateway").Logger(),
		newToken: uuid.NewString,
	}
}

func (s *Service) Handle(ctx context.Context, q Query, req Request) Response {
	switch req.Action {
	case ActionDoMeeting:
		return s.doMeeting(ctx, q, req)
	case ActionCreateMeeting:
		return s.createMeeting(ctx)
	case ActionDeleteAttendee:
		return s.deleteAttendee(ctx, req)
	case ActionEndMeeting:
		return s.endMeeting(ctx, req)
	case ActionStartRecording:
		return s.startRecording(ctx, req)
	default:
		s.logger.Info().Str("action", string(req.Action)).Msg("event unrecognized")
		return ok(Reply{})
	}
}

func (s *Service) doMeeting(ctx context.Context, q Query, req Request) Response {
	externalUserID, err := domain.NewExternalUserID(req.Username, q.ClientID)
	if err != nil {
		return Response{Status: http.StatusBadRequest, Body: ErrorReply{Error: err.Error()}}
	}

	var meeting *domain.Meeting
	if req.MeetingID == "" || req.MeetingID == nullMeetingID {
		meeting, err = s.newMeeting(ctx)
		if err != nil {
			return s.failed(err, "create meeting")
		}
		s.logger.Info().Str("meeting", meeting.MeetingID).Msg("new meeting")
	} else {
		meetingID := q.MeetingID
		if meetingID == "" {
			meetingID = req.MeetingID
		}
		meeting, err = s.plane.GetMeeting(ctx, meetingID)
		if errors.Is(err, domain.ErrMeetingNotFound) {
			s.logger.Info().Str("meeting", meetingID).Msg("meeting not found")
			return ok(Reply{})
		}
		if err != nil {
			return s.failed(err, "get meeting")
		}
	}

	s.logger.Info().Str("meeting", meeting.MeetingID).Str("external_user_id", externalUserID.String()).Msg("adding attendee")
	attendee, err := s.plane.CreateAttendee(ctx, meeting.MeetingID, externalUserID.String())
	if errors.Is(err, domain.ErrMeetingNotFound) {
		return ok(Reply{})
	}
	if err != nil {
		return s.failed(err, "create attendee")
	}
	return ok(Reply{Info: &Info{
		Meeting:  &MeetingEnvelope{Meeting: *meeting},
		Attendee: &AttendeeEnvelope{Attendee: *attendee},
	}})
}

func (s *Service) createMeeting(ctx context.Context) Response {
	meeting, err := s.newMeeting(ctx)
	if err != nil {
		return s.failed(err, "create meeting")
	}
	s.logger.Info().Str("meeting", meeting.MeetingID).Msg("new scheduled meeting")
	return ok(Reply{Info: &Info{Meeting: &MeetingEnvelope{Meeting: *meeting}}})
}

func (s *Service) newMeeting(ctx context.Context) (*domain.Meeting, error) {
	token := s.newToken()
	return s.plane.CreateMeeting(ctx, core.CreateMeetingRequest{
		ClientRequestToken: token,
		ExternalMeetingID:  token,
		MediaRegion:        s.region,
	})
}

func (s *Service) deleteAttendee(ctx context.Context, req Request) Response {
	err := s.plane.DeleteAttendee(ctx, req.MeetingID, req.AttendeeID)
	if err != nil && !errors.Is(err, domain.ErrMeetingNotFound) {
		return s.failed(err, "delete attendee")
	}
	s.logger.Info().Str("meeting", req.MeetingID).Str("attendee", req.AttendeeID).Msg("attendee deleted")
	return ok(Reply{})
}

func (s *Service) endMeeting(ctx context.Context, req Request) Response {
	err := s.plane.DeleteMeeting(ctx, req.MeetingID)
	if err != nil && !errors.Is(err, domain.ErrMeetingNotFound) {
		return s.failed(err, "delete meeting")
	}
	s.logger.Info().Str("meeting", req.MeetingID).Msg("meeting ended")
	return ok(Reply{})
}

func (s *Service) startRecording(ctx context.Context, req Request) Response {
	if s.recorder == nil {
		return Response{Status: http.StatusInternalServerError, Body: ErrorReply{Error: "recording is not configured"}}
	}
	pipeline, err := s.recorder.StartCapture(ctx, req.MeetingID)
	if err != nil {
		s.logger.Error().Err(err).Str("meeting", req.MeetingID).Msg("start recording")
		if strings.Contains(err.Error(), "audiovideostop") {
			s.logger.Warn().Str("meeting", req.MeetingID).Msg("audio/video stopped during recording initiation, check the capture pipeline configuration")
		}
		return Response{Status: http.StatusInternalServerError, Body: ErrorReply{Error: err.Error()}}
	}
	s.logger.Info().Str("meeting", req.MeetingID).Str("pipeline", pipeline.MediaPipelineID).Msg("recording started")
	return ok(pipeline)
}

func (s *Service) failed(err error, op string) Response {
	s.logger.Error().Err(err).Msg(op)
	return Response{Status: http.StatusBadGateway, Body: ErrorReply{Error: err.Error()}}
}

func ok(body any) Response {
	return Response{Status: http.StatusOK, Body: body}
}

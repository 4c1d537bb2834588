package controlapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dkeye/Huddle/internal/app/gateway"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

// Local calls a gateway.Service in process, skipping HTTP.
type Local struct {
	svc      *gateway.Service
	clientID string
}

var _ core.ControlAPI = (*Local)(nil)

func NewLocal(svc *gateway.Service, clientID string) *Local {
	return &Local{svc: svc, clientID: clientID}
}

func (l *Local) handle(ctx context.Context, meetingID string, req gateway.Request) (any, error) {
	res := l.svc.Handle(ctx, gateway.Query{ClientID: l.clientID, MeetingID: meetingID}, req)
	if res.Status < 200 || res.Status > 299 {
		msg := http.StatusText(res.Status)
		if e, ok := res.Body.(gateway.ErrorReply); ok {
			msg = e.Error
		}
		return nil, &domain.ControlPlaneError{Status: res.Status, Message: msg}
	}
	return res.Body, nil
}

func (l *Local) reply(ctx context.Context, meetingID string, req gateway.Request) (gateway.Reply, error) {
	body, err := l.handle(ctx, meetingID, req)
	if err != nil {
		return gateway.Reply{}, err
	}
	reply, ok := body.(gateway.Reply)
	if !ok {
		return gateway.Reply{}, fmt.Errorf("%s: unexpected reply %T", req.Action, body)
	}
	return reply, nil
}

func (l *Local) CreateOrJoinMeeting(ctx context.Context, meetingID, userName string) (*domain.JoinInfo, error) {
	reply, err := l.reply(ctx, meetingID, gateway.Request{Action: gateway.ActionDoMeeting, MeetingID: meetingID, Username: userName})
	if err != nil {
		return nil, err
	}
	return joinInfo(reply)
}

func (l *Local) CreateScheduledMeeting(ctx context.Context) (*domain.Meeting, error) {
	reply, err := l.reply(ctx, "", gateway.Request{Action: gateway.ActionCreateMeeting})
	if err != nil {
		return nil, err
	}
	return scheduled(reply)
}

func (l *Local) RemoveAttendee(ctx context.Context, meetingID, attendeeID string) error {
	_, err := l.handle(ctx, "", gateway.Request{Action: gateway.ActionDeleteAttendee, MeetingID: meetingID, AttendeeID: attendeeID})
	return err
}

func (l *Local) EndMeeting(ctx context.Context, meetingID string) error {
	_, err := l.handle(ctx, "", gateway.Request{Action: gateway.ActionEndMeeting, MeetingID: meetingID})
	return err
}

func (l *Local) BeginRecording(ctx context.Context, meetingID string) (*domain.Pipeline, error) {
	body, err := l.handle(ctx, "", gateway.Request{Action: gateway.ActionStartRecording, MeetingID: meetingID})
	if err != nil {
		return nil, err
	}
	p, ok := body.(*domain.Pipeline)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected reply %T", gateway.ActionStartRecording, body)
	}
	return p, nil
}

// Package controlapi implements core.ControlAPI against the meeting
// gateway, either over HTTP or in process.
package controlapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dkeye/Huddle/internal/app/gateway"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// maxReplySize bounds how much of a reply body is read.
const maxReplySize = 1 << 20

type Config struct {
	// MeetingURL receives DO_MEETING, DELETE_ATTENDEE and END_MEETING.
	MeetingURL string
	// RecordingURL receives START_RECORDING and CREATE_MEETING.
	RecordingURL string
	Timeout      time.Duration
}

// Client talks to the gateway over HTTP on behalf of one client id.
type Client struct {
	http         *http.Client
	meetingURL   string
	recordingURL string
	clientID     string
	logger       zerolog.Logger
}

var _ core.ControlAPI = (*Client)(nil)

func NewClient(cfg Config, clientID string, hc *http.Client, logger zerolog.Logger) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	recordingURL := cfg.RecordingURL
	if recordingURL == "" {
		recordingURL = cfg.MeetingURL
	}
	return &Client{
		http:         hc,
		meetingURL:   cfg.MeetingURL,
		recordingURL: recordingURL,
		clientID:     clientID,
		logger:       logger.With().Str("module", "adapters.controlapi").Str("client", clientID).Logger(),
	}
}

func (c *Client) CreateOrJoinMeeting(ctx context.Context, meetingID, userName string) (*domain.JoinInfo, error) {
	var reply gateway.Reply
	req := gateway.Request{Action: gateway.ActionDoMeeting, MeetingID: meetingID, Username: userName}
	if err := c.do(ctx, c.meetingURL, meetingID, req, &reply); err != nil {
		return nil, err
	}
	return joinInfo(reply)
}

func (c *Client) CreateScheduledMeeting(ctx context.Context) (*domain.Meeting, error) {
	var reply gateway.Reply
	if err := c.do(ctx, c.recordingURL, "", gateway.Request{Action: gateway.ActionCreateMeeting}, &reply); err != nil {
		return nil, err
	}
	return scheduled(reply)
}

func (c *Client) RemoveAttendee(ctx context.Context, meetingID, attendeeID string) error {
	req := gateway.Request{Action: gateway.ActionDeleteAttendee, MeetingID: meetingID, AttendeeID: attendeeID}
	return c.do(ctx, c.meetingURL, "", req, nil)
}

func (c *Client) EndMeeting(ctx context.Context, meetingID string) error {
	return c.do(ctx, c.meetingURL, "", gateway.Request{Action: gateway.ActionEndMeeting, MeetingID: meetingID}, nil)
}

func (c *Client) BeginRecording(ctx context.Context, meetingID string) (*domain.Pipeline, error) {
	var p domain.Pipeline
	if err := c.do(ctx, c.recordingURL, "", gateway.Request{Action: gateway.ActionStartRecording, MeetingID: meetingID}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// do posts req and decodes a 2xx reply into out when out is not nil.
func (c *Client) do(ctx context.Context, endpoint, meetingID string, req gateway.Request, out any) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("clientId", c.clientID)
	if meetingID != "" {
		q.Set("meetingId", meetingID)
	}
	u.RawQuery = q.Encode()

	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", req.Action, domain.ErrNetwork, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReplySize))
	if err != nil {
		return fmt.Errorf("%s: read reply: %w: %w", req.Action, domain.ErrNetwork, err)
	}
	c.logger.Debug().Str("action", string(req.Action)).Int("status", resp.StatusCode).Msg("control reply")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e gateway.ErrorReply
		if json.Unmarshal(data, &e) != nil || e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &domain.ControlPlaneError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &domain.ControlPlaneError{Status: resp.StatusCode, Message: "undecodable reply: " + err.Error()}
	}
	return nil
}

func joinInfo(reply gateway.Reply) (*domain.JoinInfo, error) {
	if reply.Info == nil || reply.Info.Meeting == nil || reply.Info.Attendee == nil {
		return nil, domain.ErrMeetingNotFound
	}
	return &domain.JoinInfo{Meeting: reply.Info.Meeting.Meeting, Attendee: reply.Info.Attendee.Attendee}, nil
}

func scheduled(reply gateway.Reply) (*domain.Meeting, error) {
	if reply.Info == nil || reply.Info.Meeting == nil {
		return nil, &domain.ControlPlaneError{Status: http.StatusOK, Message: "reply carries no meeting"}
	}
	m := reply.Info.Meeting.Meeting
	return &m, nil
}

// Package memory is an in-process control plane. It keeps meetings,
// attendees and capture pipelines in maps and is used for local runs and
// tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type meetingEntry struct {
	meeting    domain.Meeting
	attendees  map[string]*domain.Attendee
	byExternal map[string]string
}

// MeetingInfo is a listing row.
type MeetingInfo struct {
	MeetingID     string `json:"meetingId"`
	AttendeeCount int    `json:"attendeeCount"`
}

type Plane struct {
	mu        sync.RWMutex
	meetings  map[string]*meetingEntry
	tokens    map[string]string
	pipelines map[string]*domain.Pipeline
	region    string
	now       func() time.Time
}

func NewPlane(region string) *Plane {
	return &Plane{
		meetings:  make(map[string]*meetingEntry),
		tokens:    make(map[string]string),
		pipelines: make(map[string]*domain.Pipeline),
		region:    region,
		now:       time.Now,
	}
}

var (
	_ core.ControlPlane = (*Plane)(nil)
	_ core.Recorder     = (*Plane)(nil)
)

// CreateMeeting returns the meeting already created with the same
// ClientRequestToken, if any.
func (p *Plane) CreateMeeting(_ context.Context, req core.CreateMeetingRequest) (*domain.Meeting, error) {
	p.mu.RLock()
	id, ok := p.tokens[req.ClientRequestToken]
	if ok {
		if e, ok := p.meetings[id]; ok {
			m := e.meeting
			p.mu.RUnlock()
			return &m, nil
		}
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if id, ok = p.tokens[req.ClientRequestToken]; ok {
		if e, ok := p.meetings[id]; ok {
			m := e.meeting
			return &m, nil
		}
	}
	region := req.MediaRegion
	if region == "" {
		region = p.region
	}
	id = uuid.NewString()
	e := &meetingEntry{
		meeting: domain.Meeting{
			MeetingID:         id,
			ExternalMeetingID: req.ExternalMeetingID,
			MediaRegion:       region,
			MediaPlacement:    placement(region, id),
		},
		attendees:  make(map[string]*domain.Attendee),
		byExternal: make(map[string]string),
	}
	p.meetings[id] = e
	if req.ClientRequestToken != "" {
		p.tokens[req.ClientRequestToken] = id
	}
	log.Info().Str("module", "adapters.memory").Str("meeting", id).Msg("created meeting")
	m := e.meeting
	return &m, nil
}

func (p *Plane) GetMeeting(_ context.Context, meetingID string) (*domain.Meeting, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.meetings[meetingID]
	if !ok {
		return nil, fmt.Errorf("meeting %s: %w", meetingID, domain.ErrMeetingNotFound)
	}
	m := e.meeting
	return &m, nil
}

// CreateAttendee returns the existing attendee when externalUserID already
// joined the meeting.
func (p *Plane) CreateAttendee(_ context.Context, meetingID, externalUserID string) (*domain.Attendee, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.meetings[meetingID]
	if !ok {
		return nil, fmt.Errorf("meeting %s: %w", meetingID, domain.ErrMeetingNotFound)
	}
	if id, ok := e.byExternal[externalUserID]; ok {
		a := *e.attendees[id]
		return &a, nil
	}
	a := &domain.Attendee{
		AttendeeID:     uuid.NewString(),
		ExternalUserID: externalUserID,
		JoinToken:      uuid.NewString(),
	}
	e.attendees[a.AttendeeID] = a
	e.byExternal[externalUserID] = a.AttendeeID
	log.Info().Str("module", "adapters.memory").Str("meeting", meetingID).Str("attendee", a.AttendeeID).Msg("created attendee")
	out := *a
	return &out, nil
}

func (p *Plane) DeleteAttendee(_ context.Context, meetingID, attendeeID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.meetings[meetingID]
	if !ok {
		return fmt.Errorf("meeting %s: %w", meetingID, domain.ErrMeetingNotFound)
	}
	a, ok := e.attendees[attendeeID]
	if !ok {
		return fmt.Errorf("attendee %s: %w", attendeeID, domain.ErrMeetingNotFound)
	}
	delete(e.byExternal, a.ExternalUserID)
	delete(e.attendees, attendeeID)
	log.Info().Str("module", "adapters.memory").Str("meeting", meetingID).Str("attendee", attendeeID).Msg("deleted attendee")
	return nil
}

func (p *Plane) DeleteMeeting(_ context.Context, meetingID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.meetings[meetingID]; !ok {
		return fmt.Errorf("meeting %s: %w", meetingID, domain.ErrMeetingNotFound)
	}
	delete(p.meetings, meetingID)
	for token, id := range p.tokens {
		if id == meetingID {
			delete(p.tokens, token)
		}
	}
	log.Info().Str("module", "adapters.memory").Str("meeting", meetingID).Msg("deleted meeting")
	return nil
}

// StartCapture records a pipeline for a live meeting. Nothing is captured.
func (p *Plane) StartCapture(_ context.Context, meetingID string) (*domain.Pipeline, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.meetings[meetingID]
	if !ok {
		return nil, fmt.Errorf("meeting %s: %w", meetingID, domain.ErrMeetingNotFound)
	}
	created := p.now().UTC()
	id := uuid.NewString()
	pl := &domain.Pipeline{
		MediaPipelineID:  id,
		MediaPipelineArn: fmt.Sprintf("arn:aws:chime:%s:000000000000:media-pipeline/%s", e.meeting.MediaRegion, id),
		SourceArn:        fmt.Sprintf("arn:aws:chime:%s:000000000000:meeting:%s", e.meeting.MediaRegion, meetingID),
		SinkArn:          "arn:aws:s3:::memory",
		Status:           "InProgress",
		CreatedTimestamp: &created,
	}
	p.pipelines[id] = pl
	out := *pl
	return &out, nil
}

func (p *Plane) List() []MeetingInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]MeetingInfo, 0, len(p.meetings))
	for id, e := range p.meetings {
		out = append(out, MeetingInfo{MeetingID: id, AttendeeCount: len(e.attendees)})
	}
	slices.SortFunc(out, func(a, b MeetingInfo) int { return strings.Compare(a.MeetingID, b.MeetingID) })
	return out
}

// Pipelines lists the capture pipelines started for meetingID.
func (p *Plane) Pipelines(meetingID string) []domain.Pipeline {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []domain.Pipeline
	for _, pl := range p.pipelines {
		if strings.HasSuffix(pl.SourceArn, ":meeting:"+meetingID) {
			out = append(out, *pl)
		}
	}
	return out
}

func placement(region, meetingID string) *domain.MediaPlacement {
	host := fmt.Sprintf("https://%s.memory.invalid/%s", region, meetingID)
	return &domain.MediaPlacement{
		AudioHostURL:      host + "/audio",
		AudioFallbackURL:  host + "/audio-fallback",
		SignalingURL:      strings.Replace(host, "https://", "wss://", 1) + "/signal",
		TurnControlURL:    host + "/turn",
		EventIngestionURL: host + "/events",
	}
}

package lifecycle

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Huddle/internal/app/session"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/core/coretest"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct{ mock.Mock }

func (m *mockAPI) CreateOrJoinMeeting(ctx context.Context, meetingID, userName string) (*domain.JoinInfo, error) {
	args := m.Called(meetingID, userName)
	info, _ := args.Get(0).(*domain.JoinInfo)
	return info, args.Error(1)
}

func (m *mockAPI) CreateScheduledMeeting(ctx context.Context) (*domain.Meeting, error) {
	args := m.Called()
	meeting, _ := args.Get(0).(*domain.Meeting)
	return meeting, args.Error(1)
}

func (m *mockAPI) RemoveAttendee(ctx context.Context, meetingID, attendeeID string) error {
	return m.Called(meetingID, attendeeID).Error(0)
}

func (m *mockAPI) EndMeeting(ctx context.Context, meetingID string) error {
	return m.Called(meetingID).Error(0)
}

func (m *mockAPI) BeginRecording(ctx context.Context, meetingID string) (*domain.Pipeline, error) {
	args := m.Called(meetingID)
	p, _ := args.Get(0).(*domain.Pipeline)
	return p, args.Error(1)
}

var (
	mic = core.Device{DeviceID: "mic", Label: "Built-in Microphone"}
	cam = core.Device{DeviceID: "cam", Label: "FaceTime HD Camera"}
)

type harness struct {
	ctl     *Controller
	api     *mockAPI
	view    *coretest.View
	factory *coretest.Factory
}

func newHarness(t *testing.T, entry string) *harness {
	t.Helper()
	h := &harness{
		api:     &mockAPI{},
		view:    coretest.NewView(),
		factory: &coretest.Factory{Audio: []core.Device{mic}, Video: []core.Device{cam}},
	}
	boot := session.NewBootstrap(h.factory, zerolog.Nop())
	ctl, err := New(Config{EntryURL: entry, CallTimeout: time.Second}, h.api, boot, h.view, zerolog.Nop())
	require.NoError(t, err)
	h.ctl = ctl
	return h
}

func joinInfo(meetingID, attendeeID string) *domain.JoinInfo {
	return &domain.JoinInfo{
		Meeting:  domain.Meeting{MeetingID: meetingID},
		Attendee: domain.Attendee{AttendeeID: attendeeID},
	}
}

func TestHostStart(t *testing.T) {
	h := newHarness(t, "https://meet.example/")
	h.api.On("CreateOrJoinMeeting", "", "alice").Return(joinInfo("M1", "A1"), nil)

	h.ctl.Dispatch(context.Background(), Start{UserName: "alice"})

	assert.Equal(t, domain.RoleHost, h.ctl.Role())
	assert.Equal(t, StateInMeeting, h.ctl.State())
	assert.Equal(t, "M1", h.ctl.MeetingID())
	id, link := h.view.Meeting()
	assert.Equal(t, "M1", id)
	assert.Equal(t, "https://meet.example/?meetingId=M1", link)
	assert.Equal(t, []string{
		"startAudioInput:mic",
		"startVideoInput:cam",
		"bindAudioOutput",
		"start",
		"startLocalVideoTile",
	}, h.factory.Last().Calls())
	h.api.AssertExpectations(t)
}

func TestGuestJoinMeetingGone(t *testing.T) {
	h := newHarness(t, "https://meet.example/?meetingId=M1")
	h.api.On("CreateOrJoinMeeting", "M1", "bob").Return(nil, domain.ErrMeetingNotFound)

	h.ctl.Dispatch(context.Background(), Start{UserName: "bob"})

	assert.Equal(t, domain.RoleGuest, h.ctl.Role())
	assert.Equal(t, StateIdle, h.ctl.State())
	assert.Equal(t, []string{MsgMeetingEnded}, h.view.Alerts())
	assert.Zero(t, h.factory.Sessions())
}

func TestStartValidation(t *testing.T) {
	h := newHarness(t, "https://meet.example/")

	h.ctl.Dispatch(context.Background(), Start{UserName: ""})
	h.ctl.Dispatch(context.Background(), Start{UserName: "a#b"})
	h.ctl.Dispatch(context.Background(), Start{UserName: strings.Repeat("a", domain.MaxUsernameLen+1)})

	assert.Equal(t, []string{MsgEnterUsername, MsgBadUsername, MsgNameTooLong}, h.view.Alerts())
	h.api.AssertNotCalled(t, "CreateOrJoinMeeting", mock.Anything, mock.Anything)
}

func TestStartWhileInMeetingIsNoop(t *testing.T) {
	h := newHarness(t, "https://meet.example/")
	h.api.On("CreateOrJoinMeeting", "", "alice").Return(joinInfo("M1", "A1"), nil).Once()

	h.ctl.Dispatch(context.Background(), Start{UserName: "alice"})
	h.ctl.Dispatch(context.Background(), Start{UserName: "alice"})

	assert.Equal(t, 1, h.factory.Sessions())
	assert.Equal(t, []string{MsgAlreadyJoined}, h.view.Alerts())
	h.api.AssertNumberOfCalls(t, "CreateOrJoinMeeting", 1)
}

func TestHostStopForgetsMeeting(t *testing.T) {
	h := newHarness(t, "https://meet.example/")
	h.api.On("CreateOrJoinMeeting", "", "alice").Return(joinInfo("M1", "A1"), nil)
	h.api.On("EndMeeting", "M1").Return(nil)
	ctx := context.Background()

	h.ctl.Dispatch(ctx, Start{UserName: "alice"})
	media, devices := h.factory.Last(), h.factory.LastDevices()
	h.ctl.Dispatch(ctx, Stop{})

	assert.Equal(t, StateIdle, h.ctl.State())
	assert.Empty(t, h.ctl.MeetingID())
	assert.True(t, devices.Destroyed())
	assert.Contains(t, media.Calls(), "stop")
	_, link := h.view.Meeting()
	assert.Empty(t, link)
	h.api.AssertExpectations(t)
}

func TestHostStopCleansUpEvenOnError(t *testing.T) {
	h := newHarness(t, "https://meet.example/")
	h.api.On("CreateOrJoinMeeting", "", "alice").Return(joinInfo("M1", "A1"), nil)
	h.api.On("EndMeeting", "M1").Return(errors.New("unreachable"))

	h.ctl.Dispatch(context.Background(), Start{UserName: "alice"})
	h.ctl.Dispatch(context.Background(), Stop{})

	assert.Equal(t, StateIdle, h.ctl.State())
	assert.Nil(t, h.ctl.Reconciler())
}

func TestGuestExitKeepsMeeting(t *testing.T) {
	h := newHarness(t, "https://meet.example/?meetingId=M1")
	h.api.On("CreateOrJoinMeeting", "M1", "bob").Return(joinInfo("M1", "A2"), nil)
	h.api.On("RemoveAttendee", "M1", "A2").Return(nil)
	ctx := context.Background()

	h.ctl.Dispatch(ctx, Start{UserName: "bob"})
	_, link := h.view.Meeting()
	assert.Equal(t, "https://meet.example/?meetingId=M1", link)

	h.ctl.Dispatch(ctx, Exit{})

	assert.Equal(t, StateIdle, h.ctl.State())
	assert.Equal(t, "M1", h.ctl.MeetingID())
	assert.Empty(t, h.ctl.AttendeeID())
	h.api.AssertExpectations(t)
}

func TestRoleSpecificActionsIgnored(t *testing.T) {
	guest := newHarness(t, "https://meet.example/?meetingId=M1")
	guest.ctl.Dispatch(context.Background(), Stop{})
	guest.api.AssertNotCalled(t, "EndMeeting", mock.Anything)

	host := newHarness(t, "https://meet.example/")
	host.ctl.Dispatch(context.Background(), Exit{})
	host.api.AssertNotCalled(t, "RemoveAttendee", mock.Anything, mock.Anything)
}

func TestRemoteMeetingEnded(t *testing.T) {
	h := newHarness(t, "https://meet.example/?meetingId=M1")
	h.api.On("CreateOrJoinMeeting", "M1", "bob").Return(joinInfo("M1", "A2"), nil)
	ctx := context.Background()

	h.ctl.Dispatch(ctx, Start{UserName: "bob"})
	epoch := h.ctl.boot.Active().Epoch
	h.ctl.Dispatch(ctx, SessionLifecycle{Epoch: epoch, Name: EventMeetingReconnected})
	assert.Equal(t, StateInMeeting, h.ctl.State())

	h.ctl.Dispatch(ctx, SessionLifecycle{Epoch: epoch, Name: EventMeetingEnded})

	assert.Equal(t, StateIdle, h.ctl.State())
	assert.Equal(t, "M1", h.ctl.MeetingID())
	h.api.AssertNotCalled(t, "RemoveAttendee", mock.Anything, mock.Anything)
}

func TestMediaEventsReachReconciler(t *testing.T) {
	h := newHarness(t, "https://meet.example/")
	h.api.On("CreateOrJoinMeeting", "", "alice").Return(joinInfo("M1", "A1"), nil)
	ctx := context.Background()

	h.ctl.Dispatch(ctx, Start{UserName: "alice"})
	media := h.factory.Last()
	media.EmitPresence(domain.PresenceEvent{AttendeeID: "A1", Present: true, ExternalUserID: "alice#c1"})
	media.EmitTile(domain.TileState{TileID: 1, BoundAttendeeID: "A1", BoundExternalUserID: "alice#c1"})
	media.EmitTile(domain.TileState{TileID: 1, BoundAttendeeID: "A1", BoundExternalUserID: "alice#c1"})
	require.Equal(t, 3, h.ctl.Pending())

	for h.ctl.Pending() > 0 {
		ev, ok := h.ctl.queue.pop(ctx)
		require.True(t, ok)
		h.ctl.Dispatch(ctx, ev)
	}

	assert.Equal(t, "alice", h.view.Attendees())
	assert.Len(t, h.view.Tiles(), 1)
	bound, ok := media.Binding(1)
	assert.True(t, ok)
	assert.Equal(t, "video-1", bound)
}

func TestStaleEpochDropped(t *testing.T) {
	h := newHarness(t, "https://meet.example/?meetingId=M1")
	h.api.On("CreateOrJoinMeeting", "M1", "bob").Return(joinInfo("M1", "A2"), nil)
	h.api.On("RemoveAttendee", "M1", "A2").Return(nil)
	ctx := context.Background()

	h.ctl.Dispatch(ctx, Start{UserName: "bob"})
	old := h.ctl.boot.Active().Epoch
	h.ctl.Dispatch(ctx, Exit{})
	h.ctl.Dispatch(ctx, Start{UserName: "bob"})

	h.ctl.Dispatch(ctx, Presence{Epoch: old, Event: domain.PresenceEvent{AttendeeID: "X", Present: true, ExternalUserID: "ghost#1"}})
	h.ctl.Dispatch(ctx, TileUpdate{Epoch: old, Tile: domain.TileState{TileID: 9, BoundAttendeeID: "X"}})
	h.ctl.Dispatch(ctx, SessionLifecycle{Epoch: old, Name: EventMeetingEnded})

	assert.Equal(t, StateInMeeting, h.ctl.State())
	assert.Empty(t, h.view.Attendees())
	assert.Empty(t, h.view.Tiles())
}

func TestFailedMediaStartCompensates(t *testing.T) {
	cases := []struct {
		name  string
		entry string
		setup func(api *mockAPI)
	}{
		{
			name:  "host ends meeting",
			entry: "https://meet.example/",
			setup: func(api *mockAPI) {
				api.On("CreateOrJoinMeeting", "", "alice").Return(joinInfo("M1", "A1"), nil)
				api.On("EndMeeting", "M1").Return(nil).Once()
			},
		},
		{
			name:  "guest removes attendee",
			entry: "https://meet.example/?meetingId=M1",
			setup: func(api *mockAPI) {
				api.On("CreateOrJoinMeeting", "M1", "alice").Return(joinInfo("M1", "A1"), nil)
				api.On("RemoveAttendee", "M1", "A1").Return(nil).Once()
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, tc.entry)
			h.factory.FailOn = map[string]error{"start": errors.New("ice failed")}
			tc.setup(h.api)

			h.ctl.Dispatch(context.Background(), Start{UserName: "alice"})

			assert.Equal(t, StateIdle, h.ctl.State())
			assert.Nil(t, h.ctl.boot.Active())
			assert.True(t, h.factory.LastDevices().Destroyed())
			assert.Equal(t, []string{MsgJoinFailed}, h.view.Alerts())
			h.api.AssertExpectations(t)
		})
	}
}

func TestNoDevicesCompensates(t *testing.T) {
	h := newHarness(t, "https://meet.example/")
	h.factory.Video = nil
	h.api.On("CreateOrJoinMeeting", "", "alice").Return(joinInfo("M1", "A1"), nil)
	h.api.On("EndMeeting", "M1").Return(nil).Once()

	h.ctl.Dispatch(context.Background(), Start{UserName: "alice"})

	assert.Equal(t, StateIdle, h.ctl.State())
	h.api.AssertExpectations(t)
}

func TestToggleShare(t *testing.T) {
	h := newHarness(t, "https://meet.example/")
	ctx := context.Background()

	h.ctl.Dispatch(ctx, ToggleShare{})
	assert.Equal(t, []string{MsgJoinFirst}, h.view.Alerts())

	h.api.On("CreateOrJoinMeeting", "", "alice").Return(joinInfo("M1", "A1"), nil)
	h.ctl.Dispatch(ctx, Start{UserName: "alice"})

	h.ctl.Dispatch(ctx, ToggleShare{})
	assert.True(t, h.ctl.Sharing())
	assert.True(t, h.view.Sharing())

	h.ctl.Dispatch(ctx, ToggleShare{})
	assert.False(t, h.ctl.Sharing())
	assert.False(t, h.view.Sharing())

	calls := h.factory.Last().Calls()
	assert.Equal(t, []string{"startContentShare", "stopContentShare"}, calls[len(calls)-2:])
}

func TestRecordIsFireAndForget(t *testing.T) {
	h := newHarness(t, "https://meet.example/?meetingId=M1")
	done := make(chan struct{})
	h.api.On("BeginRecording", "M1").
		Return(nil, &domain.ControlPlaneError{Status: 500, Message: "audiovideostop"}).
		Run(func(mock.Arguments) { close(done) })

	h.ctl.Dispatch(context.Background(), Record{})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("recording was not requested")
	}
	assert.Equal(t, StateIdle, h.ctl.State())
	assert.Empty(t, h.view.Alerts())
}

func TestScheduleMeeting(t *testing.T) {
	h := newHarness(t, "https://meet.example/")
	h.api.On("CreateScheduledMeeting").Return(&domain.Meeting{MeetingID: "M9"}, nil)

	h.ctl.Dispatch(context.Background(), Schedule{})

	assert.Equal(t, "M9", h.ctl.MeetingID())
	_, link := h.view.Meeting()
	assert.Equal(t, "https://meet.example/?meetingId=M9", link)
	assert.Equal(t, StateIdle, h.ctl.State())
}

func TestRunProcessesPostedEvents(t *testing.T) {
	h := newHarness(t, "https://meet.example/")
	h.api.On("CreateOrJoinMeeting", "", "alice").Return(joinInfo("M1", "A1"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.ctl.Run(ctx) }()

	h.ctl.Post(Start{UserName: "alice"})
	require.Eventually(t, func() bool {
		m := h.factory.Last()
		return m != nil && len(m.Calls()) == 5
	}, time.Second, 5*time.Millisecond)
	h.factory.Last().EmitPresence(domain.PresenceEvent{AttendeeID: "A1", Present: true, ExternalUserID: "alice#c1"})
	require.Eventually(t, func() bool { return h.view.Attendees() == "alice" }, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.True(t, h.factory.LastDevices().Destroyed())
}

func TestPostBeyondBacklogSignalsOverflow(t *testing.T) {
	h := newHarness(t, "https://meet.example/")
	ctl, err := New(Config{EntryURL: "https://meet.example/", MaxPending: 2}, h.api, session.NewBootstrap(h.factory, zerolog.Nop()), h.view, zerolog.Nop())
	require.NoError(t, err)

	ev := Presence{Epoch: 1, Event: domain.PresenceEvent{AttendeeID: "a-1", Present: true}}
	ctl.Post(ev)
	ctl.Post(ev)
	select {
	case <-ctl.Overflow():
		t.Fatal("overflow before the backlog is full")
	default:
	}

	ctl.Post(ev)
	ctl.Post(ev)
	assert.Equal(t, 2, ctl.Pending())
	select {
	case <-ctl.Overflow():
	default:
		t.Fatal("overflow not signalled")
	}
}

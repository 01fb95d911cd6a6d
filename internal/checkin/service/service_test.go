package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"attendance/internal/checkin/models"
	"attendance/internal/checkin/service/mocks"
	"attendance/internal/coordinator"
	geomodels "attendance/internal/geo/models"
	"attendance/internal/identity/fingerprint"
	"attendance/internal/rpc"
	rpcmodels "attendance/internal/rpc/models"
	dErrors "attendance/pkg/domain-errors"
	"attendance/pkg/platform/audit"
)

type ServiceSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	caller   *mocks.MockCaller
	identity *mocks.MockDeviceResolver
	locator  *mocks.MockLocator
	confirm  *mocks.MockConfirmer
	network  *mocks.MockNetworkStatus
	sink     *mocks.MockAuditSink
	clock    *clockwork.FakeClock
	coord    *coordinator.Coordinator
	service  *Service

	mu     sync.Mutex
	events []audit.Event
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.caller = mocks.NewMockCaller(s.ctrl)
	s.identity = mocks.NewMockDeviceResolver(s.ctrl)
	s.locator = mocks.NewMockLocator(s.ctrl)
	s.confirm = mocks.NewMockConfirmer(s.ctrl)
	s.network = mocks.NewMockNetworkStatus(s.ctrl)
	s.sink = mocks.NewMockAuditSink(s.ctrl)
	s.clock = clockwork.NewFakeClockAt(time.Date(2026, 4, 1, 8, 55, 0, 0, time.UTC))
	s.coord = coordinator.New(coordinator.WithClock(s.clock))
	s.events = nil

	s.network.EXPECT().Quality().Return(rpc.QualityGood).AnyTimes()
	s.sink.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e audit.Event) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.events = append(s.events, e)
		return nil
	}).AnyTimes()

	s.service = New(s.caller, s.identity, s.locator, s.coord,
		WithConfirmer(s.confirm),
		WithAudit(s.sink),
		WithNetworkStatus(s.network),
		WithClock(s.clock),
		WithAppVersion("4.4.0"),
	)
}

func (s *ServiceSuite) lastEvent() audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Require().NotEmpty(s.events)
	return s.events[len(s.events)-1]
}

func (s *ServiceSuite) expectCall(function string, res *rpcmodels.Result) *gomock.Call {
	return s.caller.EXPECT().
		CallWithRetry(gomock.Any(), function, gomock.Any(), DefaultTestRetries, gomock.Any()).
		Return(res, nil)
}

const DefaultTestRetries = rpc.DefaultMaxRetries

func ok() *rpcmodels.Result {
	return &rpcmodels.Result{Status: rpcmodels.StatusSuccess}
}

func rejected(reason, message string) *rpcmodels.Result {
	return &rpcmodels.Result{Status: rpcmodels.StatusError, Error: reason, Message: message}
}

func threeSamples() []geomodels.Sample {
	return []geomodels.Sample{
		{Lat: 25.0330, Lng: 121.5654, AccuracyMeters: 10, Index: 0},
		{Lat: 25.0332, Lng: 121.5656, AccuracyMeters: 20, Index: 1},
		{Lat: 25.0334, Lng: 121.5658, AccuracyMeters: 30, Index: 2},
	}
}

func (s *ServiceSuite) expectDevice() {
	s.identity.EXPECT().GetDeviceID(gomock.Any()).Return("dev-1", nil)
	s.identity.EXPECT().Profile().Return(fingerprint.Profile{Platform: "MacIntel"}).AnyTimes()
	s.identity.EXPECT().IP(gomock.Any()).Return("203.0.113.7")
}

func (s *ServiceSuite) TestPunchSuccess() {
	s.expectCall("checkDeviceBinding", ok())
	s.expectDevice()
	s.locator.EXPECT().Sample(gomock.Any(), 5, 300*time.Millisecond).Return(threeSamples(), nil)

	var params []any
	s.caller.EXPECT().
		CallWithRetry(gomock.Any(), "gpsCheckin", gomock.Any(), DefaultTestRetries, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, p []any, _ int, _ rpcmodels.ProgressObserver) (*rpcmodels.Result, error) {
			params = p
			return &rpcmodels.Result{
				Status:  rpcmodels.StatusSuccess,
				Message: "clocked in",
				Detail:  json.RawMessage(`{"time":"08:55"}`),
			}, nil
		})

	res, err := s.service.Punch(context.Background(), models.PunchRequest{Code: "1234", Direction: models.DirectionIn})
	s.Require().NoError(err)
	s.Equal("clocked in", res.Message)
	s.Require().NotNil(res.Detail)
	s.Equal("08:55", res.Detail.Time)
	s.Equal(0.8, res.Location.Confidence)
	s.InDelta(25.0332, res.Location.Lat, 1e-9)

	s.Require().Len(params, 9)
	s.Equal("1234", params[0])
	s.Equal("IN", params[2])
	evidence, isEvidence := params[3].([]models.Evidence)
	s.Require().True(isEvidence)
	s.Require().Len(evidence, 1)
	s.Equal(0.8, evidence[0].Confidence)
	s.Equal(false, params[4])
	s.Equal(false, params[5])
	s.Equal("dev-1", params[6])
	s.Equal("203.0.113.7", params[7])
	s.Equal(params[1], params[8])

	event := s.lastEvent()
	s.Equal(audit.ActionPunch, event.Action)
	s.Equal(string(coordinator.TriggerClockIn), event.Trigger)
	s.Equal("dev-1", event.DeviceID)
	s.True(event.Succeeded())

	s.False(s.coord.Busy())
	s.False(s.coord.Enabled(coordinator.TriggerClockIn), "trigger cools down after settling")
	s.True(s.coord.Enabled(coordinator.TriggerClockOut))
}

func (s *ServiceSuite) TestPunchRejectsInvalidCodeWithoutNetwork() {
	_, err := s.service.Punch(context.Background(), models.PunchRequest{Code: "12a4", Direction: models.DirectionOut})
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	s.Equal(string(dErrors.ClassInvalidInput), s.lastEvent().Classification)
	s.False(s.coord.Busy())
}

func (s *ServiceSuite) TestPunchFailsFastOffline() {
	network := mocks.NewMockNetworkStatus(s.ctrl)
	network.EXPECT().Quality().Return(rpc.QualityOffline)
	svc := New(s.caller, s.identity, s.locator, s.coord, WithNetworkStatus(network), WithClock(s.clock))

	_, err := svc.Punch(context.Background(), models.PunchRequest{Code: "1234", Direction: models.DirectionIn})
	s.True(dErrors.HasCode(err, dErrors.CodeTerminal))
	s.Equal(ReasonOffline, dErrors.ReasonOf(err))
}

func (s *ServiceSuite) TestPunchBindsAfterConfirmation() {
	s.expectCall("checkDeviceBinding", rejected(ReasonNotBound, "device not bound"))
	s.confirm.EXPECT().ConfirmBind(gomock.Any(), "Unknown Device").Return(true, nil)
	s.expectDevice()
	s.locator.EXPECT().Sample(gomock.Any(), gomock.Any(), gomock.Any()).Return(threeSamples(), nil)
	s.caller.EXPECT().
		CallWithRetry(gomock.Any(), "gpsCheckin", gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, p []any, _ int, _ rpcmodels.ProgressObserver) (*rpcmodels.Result, error) {
			s.Equal(true, p[5])
			return ok(), nil
		})

	res, err := s.service.Punch(context.Background(), models.PunchRequest{Code: "1234", Direction: models.DirectionIn})
	s.Require().NoError(err)
	s.True(res.Bound)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.Require().Len(s.events, 2)
	s.Equal(audit.ActionBind, s.events[0].Action)
	s.Equal("1234", s.events[0].DeviceCode)
	s.Equal("Unknown Device", s.events[0].Message)
	s.Equal(audit.ActionPunch, s.events[1].Action)
}

func (s *ServiceSuite) TestPunchBindDeclinedIsCancellation() {
	s.expectCall("checkDeviceBinding", rejected(ReasonNotBound, "device not bound"))
	s.identity.EXPECT().Profile().Return(fingerprint.Profile{})
	s.confirm.EXPECT().ConfirmBind(gomock.Any(), gomock.Any()).Return(false, nil)

	_, err := s.service.Punch(context.Background(), models.PunchRequest{Code: "1234", Direction: models.DirectionIn})
	s.Equal(dErrors.ClassAbort, dErrors.Classify(err))
	s.Equal(string(dErrors.ClassAbort), s.lastEvent().Classification)
	s.Equal(audit.ActionPunch, s.lastEvent().Action)
	s.Len(s.events, 1, "a declined binding records no bind event")
	s.False(s.coord.Busy())
}

func (s *ServiceSuite) TestNotInAuthListIsTerminalAndVerbatim() {
	s.expectCall("checkDeviceBinding", rejected(ReasonNotInAuthList, "not on the authorized list for site A")).Times(1)

	_, err := s.service.Punch(context.Background(), models.PunchRequest{Code: "1234", Direction: models.DirectionIn})
	s.True(dErrors.HasCode(err, dErrors.CodeTerminal))
	s.Equal(ReasonNotInAuthList, dErrors.ReasonOf(err))
	s.Equal("not on the authorized list for site A", dErrors.MessageOf(err))
}

func (s *ServiceSuite) TestQueryDoesNotOfferBinding() {
	s.expectCall("checkDeviceBinding", rejected(ReasonNotBound, ""))

	_, err := s.service.QueryAttendance(context.Background(), "1234")
	s.True(dErrors.HasCode(err, dErrors.CodeTerminal))
	s.Equal(ReasonNotBound, dErrors.ReasonOf(err))
}

func (s *ServiceSuite) TestPunchRejectionMessages() {
	cases := []struct {
		reason  string
		message string
		want    string
	}{
		{ReasonOutOfRange, "far away", "outside the check-in area, toggle your network connection and retry"},
		{ReasonRateLimited, "", "too many attempts, try again later"},
		{ReasonDeviceMismatch, "device changed", "device changed (device mismatch, contact support)"},
		{"SYS.UNKNOWN", "", "system error, try again later"},
	}
	for _, tc := range cases {
		err := punchRejection(rejected(tc.reason, tc.message))
		s.True(dErrors.HasCode(err, dErrors.CodeTerminal), tc.reason)
		s.Equal(tc.want, dErrors.MessageOf(err), tc.reason)
		s.Equal(tc.reason, dErrors.ReasonOf(err))
	}
}

func (s *ServiceSuite) TestPunchLocationPermissionDenied() {
	s.expectCall("checkDeviceBinding", ok())
	s.identity.EXPECT().GetDeviceID(gomock.Any()).Return("dev-1", nil)
	s.locator.EXPECT().Sample(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodePermissionDenied, "location access denied"))

	_, err := s.service.Punch(context.Background(), models.PunchRequest{Code: "1234", Direction: models.DirectionOut})
	s.Equal(dErrors.ClassPermissionDenied, dErrors.Classify(err))
	s.Equal("dev-1", s.lastEvent().DeviceID)
}

func (s *ServiceSuite) TestPunchWhileBusy() {
	lock, err := s.coord.Acquire(coordinator.TriggerQuery)
	s.Require().NoError(err)
	defer lock.Release()

	_, err = s.service.Punch(context.Background(), models.PunchRequest{Code: "1234", Direction: models.DirectionIn})
	s.True(dErrors.HasCode(err, dErrors.CodeBusy))
}

func (s *ServiceSuite) TestCancellationReleasesLock() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.caller.EXPECT().
		CallWithRetry(gomock.Any(), "checkDeviceBinding", gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeAborted, "operation cancelled"))

	_, err := s.service.Punch(ctx, models.PunchRequest{Code: "1234", Direction: models.DirectionIn})
	s.Equal(dErrors.ClassAbort, dErrors.Classify(err))
	s.False(s.coord.Busy())
}

func (s *ServiceSuite) TestTestLocationReportsWarnings() {
	s.expectCall("checkDeviceBinding", ok())
	s.locator.EXPECT().Sample(gomock.Any(), gomock.Any(), gomock.Any()).Return(threeSamples()[:1], nil)
	s.expectCall("testLocationWithAuth", &rpcmodels.Result{
		Status:  rpcmodels.StatusWarning,
		Message: "near the boundary",
		Payload: map[string]any{"html": "<table></table>"},
	})

	report, err := s.service.TestLocation(context.Background(), "1234")
	s.Require().NoError(err)
	s.Equal(rpcmodels.StatusWarning, report.Status)
	s.Equal("<table></table>", report.HTML)
	s.Equal(0.6, report.Location.Confidence)
}

func (s *ServiceSuite) TestQueryAttendance() {
	s.expectCall("checkDeviceBinding", ok())
	s.expectCall("queryMonthlyAttendance", &rpcmodels.Result{
		Status:  rpcmodels.StatusSuccess,
		Payload: map[string]any{"data": []any{"2026-04-01"}, "userName": "Lin", "recordCount": float64(1)},
	})

	report, err := s.service.QueryAttendance(context.Background(), "1234")
	s.Require().NoError(err)
	s.Equal("Lin", report.UserName)
	s.Equal(1, report.RecordCount)
	s.Equal([]any{"2026-04-01"}, report.Records)
}

func (s *ServiceSuite) TestQueryAttendanceRequiresData() {
	s.expectCall("checkDeviceBinding", ok())
	s.expectCall("queryMonthlyAttendance", &rpcmodels.Result{Status: rpcmodels.StatusSuccess, Payload: map[string]any{}})

	_, err := s.service.QueryAttendance(context.Background(), "1234")
	s.True(dErrors.HasCode(err, dErrors.CodeTerminal))
}

func (s *ServiceSuite) TestSubmitForm() {
	s.caller.EXPECT().
		CallWithRetry(gomock.Any(), "checkDeviceBinding", []any{"1234", string(models.PurposeLeave)}, gomock.Any(), gomock.Any()).
		Return(ok(), nil)
	s.caller.EXPECT().
		CallWithRetry(gomock.Any(), "submitLeaveRequest", []any{"1234", "2026-04-02", "annual"}, gomock.Any(), gomock.Any()).
		Return(&rpcmodels.Result{Status: rpcmodels.StatusSuccess, Message: "submitted"}, nil)

	receipt, err := s.service.SubmitForm(context.Background(), "1234", models.FormLeave, []any{"2026-04-02", "annual"})
	s.Require().NoError(err)
	s.Equal("submitted", receipt.Message)
	s.Equal(audit.ActionForm, s.lastEvent().Action)
}

func (s *ServiceSuite) TestSubmitFormUnknownKind() {
	_, err := s.service.SubmitForm(context.Background(), "1234", models.FormKind("expense"), nil)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	s.False(s.coord.Busy())
}

func (s *ServiceSuite) TestLogClickIsFireAndForget() {
	ctx, cancel := context.WithCancel(context.Background())
	s.caller.EXPECT().
		CallWithRetry(gomock.Any(), "logButtonClick", []any{"0000", "schedule"}, gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string, _ []any, _ int, _ rpcmodels.ProgressObserver) (*rpcmodels.Result, error) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, dErrors.New(dErrors.CodeTerminal, "network unstable, try later")
		})

	s.service.LogClick(ctx, "", "schedule")
	cancel()
	s.service.Wait()

	event := s.lastEvent()
	s.Equal(audit.ActionClick, event.Action)
	s.Equal(string(dErrors.ClassTerminal), event.Classification)
}

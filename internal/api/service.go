package api

import (
	"context"
	"fmt"

	"github.com/dgnsrekt/sc_agent/internal/chartconfig"
	"github.com/dgnsrekt/sc_agent/internal/navigator"
	"github.com/dgnsrekt/sc_agent/internal/orchestrator"
	"github.com/dgnsrekt/sc_agent/internal/session"
	"github.com/dgnsrekt/sc_agent/internal/snapshot"
)

// SessionNotFoundError distinguishes a missing or uninitialized session from
// a run failure inside one.
type SessionNotFoundError struct {
	ID     string
	Reason string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session %s: %s", e.ID, e.Reason)
}

// ManagerService implements Service on top of a session.Manager.
type ManagerService struct {
	mgr *session.Manager
}

func NewManagerService(mgr *session.Manager) *ManagerService {
	return &ManagerService{mgr: mgr}
}

func (s *ManagerService) info(sess *session.Session) SessionInfo {
	info := SessionInfo{ID: sess.ID, Initialized: sess.Initialized()}
	if sess.Nav != nil {
		state := sess.Nav.State()
		info.Authenticated = state.Authenticated
		info.CurrentChartList = state.CurrentChartList
		info.CurrentTicker = state.CurrentTicker
	}
	return info
}

// ready returns an initialized session or a typed not-found error.
func (s *ManagerService) ready(id string) (*session.Session, error) {
	sess, ok := s.mgr.Get(id)
	if !ok {
		return nil, &SessionNotFoundError{ID: id, Reason: "not found"}
	}
	if !sess.Initialized() {
		return nil, &SessionNotFoundError{ID: id, Reason: "not initialized"}
	}
	return sess, nil
}

func (s *ManagerService) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	ids := s.mgr.List()
	out := make([]SessionInfo, 0, len(ids))
	for _, id := range ids {
		if sess, ok := s.mgr.Get(id); ok {
			out = append(out, s.info(sess))
		}
	}
	return out, nil
}

func (s *ManagerService) CreateSession(ctx context.Context, id string) (SessionInfo, error) {
	if id == "" {
		return SessionInfo{}, &navigator.CodedError{Code: navigator.CodeValidation, Message: "session id must not be empty"}
	}
	sess := s.mgr.CreateSession(id, nil)
	return s.info(sess), nil
}

func (s *ManagerService) InitSession(ctx context.Context, id string, autoLogin bool) (SessionInfo, error) {
	if _, ok := s.mgr.Get(id); !ok {
		return SessionInfo{}, &SessionNotFoundError{ID: id, Reason: "not found"}
	}
	if err := s.mgr.InitializeSession(ctx, id, autoLogin); err != nil {
		return SessionInfo{}, err
	}
	sess, _ := s.mgr.Get(id)
	return s.info(sess), nil
}

func (s *ManagerService) CloseSession(ctx context.Context, id string) error {
	if _, ok := s.mgr.Get(id); !ok {
		return &SessionNotFoundError{ID: id, Reason: "not found"}
	}
	s.mgr.CloseSession(id)
	return nil
}

func (s *ManagerService) RunBatch(ctx context.Context, id string, requests []chartconfig.ChartRequest) (*orchestrator.Summary, error) {
	sess, err := s.ready(id)
	if err != nil {
		return nil, err
	}
	return sess.Orch.OpenBatch(ctx, sess.Tabs(), requests)
}

func (s *ManagerService) RunMultiTimeframe(ctx context.Context, id, ticker string, boxes []int) ([]orchestrator.TimeframeCapture, error) {
	sess, err := s.ready(id)
	if err != nil {
		return nil, err
	}
	return sess.Orch.OpenMultiTimeframe(ctx, sess.Tabs(), ticker, boxes)
}

func (s *ManagerService) ListChartLists(ctx context.Context, id string) ([]string, error) {
	sess, err := s.ready(id)
	if err != nil {
		return nil, err
	}
	return sess.Nav.ListChartLists(ctx, sess.Tabs().FirstTab())
}

func (s *ManagerService) ListCaptures(ctx context.Context, id string) ([]snapshot.CaptureMeta, error) {
	sess, err := s.ready(id)
	if err != nil {
		return nil, err
	}
	return sess.Store().List()
}

func (s *ManagerService) GetCapture(ctx context.Context, id, captureID string) (snapshot.CaptureMeta, error) {
	sess, err := s.ready(id)
	if err != nil {
		return snapshot.CaptureMeta{}, err
	}
	return sess.Store().Get(captureID)
}

func (s *ManagerService) ReadCaptureImage(ctx context.Context, id, captureID string) ([]byte, string, error) {
	sess, err := s.ready(id)
	if err != nil {
		return nil, "", err
	}
	return sess.Store().ReadImage(captureID)
}

func (s *ManagerService) DeleteCapture(ctx context.Context, id, captureID string) error {
	sess, err := s.ready(id)
	if err != nil {
		return err
	}
	return sess.Store().Delete(captureID)
}

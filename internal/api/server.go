// Package api exposes the session manager over HTTP: session lifecycle,
// batch and multi-timeframe runs, chartlist discovery, capture retrieval,
// and live progress feeds (SSE and WebSocket).
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/dgnsrekt/sc_agent/internal/chartconfig"
	"github.com/dgnsrekt/sc_agent/internal/navigator"
	"github.com/dgnsrekt/sc_agent/internal/orchestrator"
	"github.com/dgnsrekt/sc_agent/internal/relay"
	"github.com/dgnsrekt/sc_agent/internal/snapshot"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// SessionInfo is the API view of one managed session.
type SessionInfo struct {
	ID               string `json:"id"`
	Initialized      bool   `json:"initialized"`
	Authenticated    bool   `json:"authenticated"`
	CurrentChartList string `json:"current_chartlist,omitempty"`
	CurrentTicker    string `json:"current_ticker,omitempty"`
}

type Service interface {
	ListSessions(ctx context.Context) ([]SessionInfo, error)
	CreateSession(ctx context.Context, id string) (SessionInfo, error)
	InitSession(ctx context.Context, id string, autoLogin bool) (SessionInfo, error)
	CloseSession(ctx context.Context, id string) error
	RunBatch(ctx context.Context, id string, requests []chartconfig.ChartRequest) (*orchestrator.Summary, error)
	RunMultiTimeframe(ctx context.Context, id, ticker string, boxes []int) ([]orchestrator.TimeframeCapture, error)
	ListChartLists(ctx context.Context, id string) ([]string, error)
	ListCaptures(ctx context.Context, id string) ([]snapshot.CaptureMeta, error)
	GetCapture(ctx context.Context, id, captureID string) (snapshot.CaptureMeta, error)
	ReadCaptureImage(ctx context.Context, id, captureID string) ([]byte, string, error)
	DeleteCapture(ctx context.Context, id, captureID string) error
}

type sessionIDInput struct {
	SessionID string `path:"session_id"`
}

type captureIDInput struct {
	SessionID string `path:"session_id"`
	CaptureID string `path:"capture_id"`
}

// NewServer builds the HTTP handler. broker may be nil to disable the
// event-stream routes.
func NewServer(svc Service, broker *relay.Broker) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("SC Agent Controller API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})

	if broker != nil {
		router.Get("/api/v1/events", relay.SSEHandler(broker))
		router.Get("/api/v1/ws", relay.WSHandler(broker))
	}

	registerSessionHandlers(api, svc)
	registerRunHandlers(api, svc)
	registerCaptureHandlers(api, svc)

	return router
}

func registerSessionHandlers(api huma.API, svc Service) {
	type healthOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			out := &healthOutput{}
			out.Body.Status = "ok"
			return out, nil
		})

	type listSessionsOutput struct {
		Body struct {
			Sessions []SessionInfo `json:"sessions"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-sessions", Method: http.MethodGet, Path: "/api/v1/sessions", Summary: "List sessions", Tags: []string{"Sessions"}},
		func(ctx context.Context, input *struct{}) (*listSessionsOutput, error) {
			sessions, err := svc.ListSessions(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &listSessionsOutput{}
			out.Body.Sessions = sessions
			if out.Body.Sessions == nil {
				out.Body.Sessions = []SessionInfo{}
			}
			return out, nil
		})

	type createSessionInput struct {
		Body struct {
			ID string `json:"id" doc:"Unique session identifier"`
		}
	}
	type sessionOutput struct {
		Body SessionInfo
	}
	huma.Register(api, huma.Operation{OperationID: "create-session", Method: http.MethodPost, Path: "/api/v1/sessions", Summary: "Create a session", Tags: []string{"Sessions"}},
		func(ctx context.Context, input *createSessionInput) (*sessionOutput, error) {
			info, err := svc.CreateSession(ctx, input.Body.ID)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &sessionOutput{}
			out.Body = info
			return out, nil
		})

	type initSessionInput struct {
		SessionID string `path:"session_id"`
		Body      struct {
			AutoLogin bool `json:"auto_login,omitempty" doc:"Log into StockCharts after the browser starts"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "init-session", Method: http.MethodPost, Path: "/api/v1/sessions/{session_id}/init", Summary: "Launch the session browser and connect", Tags: []string{"Sessions"}},
		func(ctx context.Context, input *initSessionInput) (*sessionOutput, error) {
			info, err := svc.InitSession(ctx, input.SessionID, input.Body.AutoLogin)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &sessionOutput{}
			out.Body = info
			return out, nil
		})

	type closeSessionOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "close-session", Method: http.MethodDelete, Path: "/api/v1/sessions/{session_id}", Summary: "Close a session", Tags: []string{"Sessions"}},
		func(ctx context.Context, input *sessionIDInput) (*closeSessionOutput, error) {
			if err := svc.CloseSession(ctx, input.SessionID); err != nil {
				return nil, mapErr(err)
			}
			out := &closeSessionOutput{}
			out.Body.Status = "closed"
			return out, nil
		})

	type chartListsOutput struct {
		Body struct {
			ChartLists []string `json:"chartlists"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-chartlists", Method: http.MethodGet, Path: "/api/v1/sessions/{session_id}/chartlists", Summary: "List ChartLists visible in the dropdown", Tags: []string{"Sessions"}},
		func(ctx context.Context, input *sessionIDInput) (*chartListsOutput, error) {
			lists, err := svc.ListChartLists(ctx, input.SessionID)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &chartListsOutput{}
			out.Body.ChartLists = lists
			if out.Body.ChartLists == nil {
				out.Body.ChartLists = []string{}
			}
			return out, nil
		})
}

func registerRunHandlers(api huma.API, svc Service) {
	type batchRequestBody struct {
		ChartList    string `json:"chartlist" doc:"ChartList name to open"`
		ChartName    string `json:"chart_name" doc:"Chart (ticker) within the list"`
		TabOrder     int    `json:"tab_order,omitempty" doc:"Tab ordering key; defaults preserve input order"`
		TimeframeBox int    `json:"timeframe_box,omitempty" doc:"Style box 1-12, 0 to skip"`
		Notes        string `json:"notes,omitempty"`
	}
	type batchInput struct {
		SessionID string `path:"session_id"`
		Body      struct {
			Requests []batchRequestBody `json:"requests"`
		}
	}
	type batchOutput struct {
		Body orchestrator.Summary
	}
	huma.Register(api, huma.Operation{OperationID: "run-batch", Method: http.MethodPost, Path: "/api/v1/sessions/{session_id}/batch", Summary: "Run a chart batch on the session", Tags: []string{"Runs"}},
		func(ctx context.Context, input *batchInput) (*batchOutput, error) {
			requests := make([]chartconfig.ChartRequest, 0, len(input.Body.Requests))
			for i, r := range input.Body.Requests {
				order := r.TabOrder
				if order == 0 {
					order = i + 1
				}
				requests = append(requests, chartconfig.ChartRequest{
					ChartList:    r.ChartList,
					ChartName:    r.ChartName,
					TabOrder:     order,
					TimeframeBox: r.TimeframeBox,
					Notes:        r.Notes,
				})
			}
			summary, err := svc.RunBatch(ctx, input.SessionID, requests)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &batchOutput{}
			out.Body = *summary
			return out, nil
		})

	type multiTimeframeInput struct {
		SessionID string `path:"session_id"`
		Body      struct {
			Ticker string `json:"ticker" doc:"Ticker symbol to capture"`
			Boxes  []int  `json:"boxes,omitempty" doc:"Style boxes to capture; defaults to 1,4,7,10"`
		}
	}
	type multiTimeframeOutput struct {
		Body struct {
			Captures []orchestrator.TimeframeCapture `json:"captures"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "run-multi-timeframe", Method: http.MethodPost, Path: "/api/v1/sessions/{session_id}/multi-timeframe", Summary: "Capture one ticker across timeframe boxes", Tags: []string{"Runs"}},
		func(ctx context.Context, input *multiTimeframeInput) (*multiTimeframeOutput, error) {
			captures, err := svc.RunMultiTimeframe(ctx, input.SessionID, input.Body.Ticker, input.Body.Boxes)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &multiTimeframeOutput{}
			out.Body.Captures = captures
			return out, nil
		})
}

func registerCaptureHandlers(api huma.API, svc Service) {
	type listCapturesOutput struct {
		Body struct {
			Captures []snapshot.CaptureMeta `json:"captures"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-captures", Method: http.MethodGet, Path: "/api/v1/sessions/{session_id}/captures", Summary: "List captures", Tags: []string{"Captures"}},
		func(ctx context.Context, input *sessionIDInput) (*listCapturesOutput, error) {
			metas, err := svc.ListCaptures(ctx, input.SessionID)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &listCapturesOutput{}
			out.Body.Captures = metas
			if out.Body.Captures == nil {
				out.Body.Captures = []snapshot.CaptureMeta{}
			}
			return out, nil
		})

	type getCaptureOutput struct {
		Body snapshot.CaptureMeta
	}
	huma.Register(api, huma.Operation{OperationID: "get-capture-metadata", Method: http.MethodGet, Path: "/api/v1/sessions/{session_id}/captures/{capture_id}/metadata", Summary: "Get capture metadata", Tags: []string{"Captures"}},
		func(ctx context.Context, input *captureIDInput) (*getCaptureOutput, error) {
			meta, err := svc.GetCapture(ctx, input.SessionID, input.CaptureID)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &getCaptureOutput{}
			out.Body = meta
			return out, nil
		})

	type captureImageOutput struct {
		ContentType string `header:"Content-Type"`
		Body        []byte
	}
	huma.Register(api, huma.Operation{
		OperationID: "get-capture-image",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions/{session_id}/captures/{capture_id}/image",
		Summary:     "Get capture image",
		Tags:        []string{"Captures"},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Capture image",
				Content: map[string]*huma.MediaType{
					"image/png": {
						Schema: &huma.Schema{Type: "string", Format: "binary"},
					},
				},
			},
		},
	}, func(ctx context.Context, input *captureIDInput) (*captureImageOutput, error) {
		data, format, err := svc.ReadCaptureImage(ctx, input.SessionID, input.CaptureID)
		if err != nil {
			return nil, mapErr(err)
		}
		ct := "image/png"
		if format == "jpeg" {
			ct = "image/jpeg"
		}
		return &captureImageOutput{ContentType: ct, Body: data}, nil
	})

	type deleteCaptureOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "delete-capture", Method: http.MethodDelete, Path: "/api/v1/sessions/{session_id}/captures/{capture_id}", Summary: "Delete capture", Tags: []string{"Captures"}},
		func(ctx context.Context, input *captureIDInput) (*deleteCaptureOutput, error) {
			if err := svc.DeleteCapture(ctx, input.SessionID, input.CaptureID); err != nil {
				return nil, mapErr(err)
			}
			out := &deleteCaptureOutput{}
			out.Body.Status = "deleted"
			return out, nil
		})
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *navigator.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case navigator.CodeValidation:
			return huma.Error422UnprocessableEntity(coded.Message)
		case navigator.CodeChartListNotFound, navigator.CodeChartNotFound, navigator.CodeElementNotFound:
			return huma.Error404NotFound(coded.Message)
		case navigator.CodeAuthFailed:
			return huma.Error502BadGateway(coded.Message)
		case navigator.CodeCDPUnavailable:
			return huma.Error503ServiceUnavailable(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	var missing *SessionNotFoundError
	if errors.As(err, &missing) {
		return huma.Error404NotFound(missing.Error())
	}
	return huma.Error500InternalServerError(err.Error())
}

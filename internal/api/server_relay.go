package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/wa_relay/internal/account"
	"github.com/dgnsrekt/wa_relay/internal/types"
)

func registerRelayHandlers(api huma.API, svc Service) {
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

	type historyOutput struct {
		Body struct {
			Records []types.Record `json:"records"`
			Count   int            `json:"count"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "get-history", Method: http.MethodGet, Path: "/api/v1/history", Summary: "Buffered records, oldest first", Tags: []string{"Relay"}},
		func(ctx context.Context, input *struct{}) (*historyOutput, error) {
			records := svc.History()
			out := &historyOutput{}
			out.Body.Records = records
			out.Body.Count = len(records)
			return out, nil
		})

	type viewersOutput struct {
		Body struct {
			Count int `json:"count"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "get-viewers", Method: http.MethodGet, Path: "/api/v1/viewers", Summary: "Connected viewer count", Tags: []string{"Relay"}},
		func(ctx context.Context, input *struct{}) (*viewersOutput, error) {
			out := &viewersOutput{}
			out.Body.Count = svc.ViewerCount()
			return out, nil
		})

	type accountOutput struct {
		Body account.Status
	}
	huma.Register(api, huma.Operation{OperationID: "get-account", Method: http.MethodGet, Path: "/api/v1/account", Summary: "Messaging account state", Tags: []string{"Account"}},
		func(ctx context.Context, input *struct{}) (*accountOutput, error) {
			out := &accountOutput{}
			out.Body = svc.AccountStatus()
			return out, nil
		})

	type sendOutput struct {
		Body struct {
			Status string `json:"status"`
			To     string `json:"to"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "send-message", Method: http.MethodPost, Path: "/api/v1/send", Summary: "Send text through the messaging account", Tags: []string{"Relay"}, DefaultStatus: http.StatusAccepted},
		func(ctx context.Context, input *struct {
			Body types.SendPayload
		}) (*sendOutput, error) {
			if err := svc.Send(ctx, input.Body.To, input.Body.Text); err != nil {
				return nil, mapErr(err)
			}
			out := &sendOutput{}
			out.Body.Status = "sent"
			out.Body.To = input.Body.To
			return out, nil
		})
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gustsr/sentinela/integration"
	"github.com/gustsr/sentinela/ticket"
	"github.com/gustsr/sentinela/upstream"
)

// cacheTTL bounds how long a read-type upstream response may be served
// from the cache before a fresh call is required (spec.md §4.6).
const cacheTTL = 5 * time.Minute

// buildExecutors wires one integration.Executor per integration.Type onto
// the upstream client, keeping the ticket aggregate's own invariants (via
// ticketEngine) for the operations that touch a Ticket. Read-only request
// types consult cache before calling upstream and populate it afterward;
// writes invalidate the keys they touch.
func buildExecutors(client upstream.Client, ticketEngine *ticket.Engine, cache *integration.Cache) map[integration.Type]integration.Executor {
	return map[integration.Type]integration.Executor{
		integration.TypeTicketSync: func(ctx context.Context, req *integration.Request) (map[string]any, error) {
			ticketID, _ := req.Payload["ticket_id"].(string)
			res, err := ticketEngine.SyncWithUpstream(ctx, ticketID)
			if err != nil {
				return nil, err
			}
			if !res.OK {
				return nil, fmt.Errorf("integration: ticket sync failed: %s", res.Code)
			}
			_ = cache.Invalidate(ctx, "ticket:"+ticketID)
			return map[string]any{"upstream_id": res.Ticket.UpstreamID, "protocol": res.Ticket.UpstreamProtocol}, nil
		},

		integration.TypeUserVerification: func(ctx context.Context, req *integration.Request) (map[string]any, error) {
			cpfDigits, _ := req.Payload["cpf"].(string)
			cacheKey := "verify:" + cpfDigits
			if cached, found, err := cache.GetCached(ctx, cacheKey); err == nil && found {
				return cached, nil
			}

			record, found, err := client.VerifyClientByCPF(ctx, cpfDigits, true)
			if err != nil {
				return nil, err
			}
			if !found {
				result := map[string]any{"found": false}
				_ = cache.Set(ctx, cacheKey, result, cacheTTL)
				return result, nil
			}
			result := map[string]any{"found": true, "name": record.Name, "service_status": record.ServiceStatus}
			_ = cache.Set(ctx, cacheKey, result, cacheTTL)
			return result, nil
		},

		integration.TypeClientDataFetch: func(ctx context.Context, req *integration.Request) (map[string]any, error) {
			cpfDigits, _ := req.Payload["cpf"].(string)
			cacheKey := "contracts:" + cpfDigits
			if cached, found, err := cache.GetCached(ctx, cacheKey); err == nil && found {
				return cached, nil
			}

			contracts, err := client.GetClientContracts(ctx, cpfDigits)
			if err != nil {
				return nil, err
			}
			result := make([]map[string]any, len(contracts))
			for i, c := range contracts {
				result[i] = map[string]any{"id": c.ID, "status": c.Status}
			}
			response := map[string]any{"contracts": result}
			_ = cache.Set(ctx, cacheKey, response, cacheTTL)
			return response, nil
		},

		integration.TypeStatusUpdate: func(ctx context.Context, req *integration.Request) (map[string]any, error) {
			upstreamID, _ := req.Payload["upstream_id"].(string)
			status, _ := req.Payload["status"].(string)
			if err := client.UpdateTicket(ctx, upstreamID, map[string]any{"status": status}); err != nil {
				return nil, err
			}
			_ = cache.Invalidate(ctx, "ticket:"+upstreamID)
			return map[string]any{"updated": true}, nil
		},

		integration.TypeBulkSync: func(ctx context.Context, req *integration.Request) (map[string]any, error) {
			rawIDs, _ := req.Payload["ticket_ids"].([]string)
			results := make(map[string]string, len(rawIDs))
			for _, ticketID := range rawIDs {
				res, err := ticketEngine.SyncWithUpstream(ctx, ticketID)
				if err != nil || !res.OK {
					results[ticketID] = "failed"
					continue
				}
				results[ticketID] = "synced"
			}
			return map[string]any{"results": results}, nil
		},
	}
}

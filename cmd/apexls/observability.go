// # cmd/apexls/observability.go
package main

import (
	"context"
	"fmt"
	"time"

	"apexls/internal/core/app"
	"apexls/internal/core/config"
	"apexls/internal/shared/observability"
)

type observabilityHandle struct {
	server *observability.Server
}

func startObservability(cfg *config.Config, service *app.Service) *observabilityHandle {
	addr := fmt.Sprintf(":%d", cfg.Observability.Port)
	server := observability.NewServer(addr, func() any {
		queues := service.QueueStats()
		return map[string]any{
			"status":    "up",
			"scheduler": queues,
			"cache":     service.Cache.Stats(),
			"registry":  service.Registry.Stats(),
			"graph": map[string]int{
				"nodes": service.Graph.NodeCount(),
				"edges": service.Graph.EdgeCount(),
			},
		}
	})
	server.Start()
	return &observabilityHandle{server: server}
}

func (h *observabilityHandle) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = h.server.Stop(ctx)
}

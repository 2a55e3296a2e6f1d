package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerStatusRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getStatus",
		Method:      http.MethodGet,
		Path:        "/api/v1/status",
		Summary:     "Bot status",
		Description: "Returns the provisioning configuration per connected guild",
		Tags:        []string{"Status"},
	}, s.handleGetStatus)
}

// GuildStatus summarizes one guild's provisioning configuration.
type GuildStatus struct {
	ID             string `json:"id" doc:"Guild identifier"`
	Name           string `json:"name" doc:"Guild name"`
	RoleMappings   int    `json:"role_mappings" doc:"Number of role to category mappings"`
	TriggerEnabled bool   `json:"trigger_enabled" doc:"Whether a reaction trigger is configured"`
}

// StatusResponse contains bot status data in API responses.
type StatusResponse struct {
	Version          string        `json:"version" doc:"Bot version"`
	Uptime           string        `json:"uptime" doc:"Time since the status server started"`
	Guilds           []GuildStatus `json:"guilds" doc:"Connected guilds"`
	ConfiguredGuilds int           `json:"configured_guilds" doc:"Guilds with stored configuration"`
}

// StatusOutput wraps the status response for Huma.
type StatusOutput struct {
	Body StatusResponse
}

func (s *Server) handleGetStatus(ctx context.Context, _ *struct{}) (*StatusOutput, error) {
	guilds, err := s.client.Guilds(ctx)
	if err != nil {
		s.logger.Error("status: could not enumerate guilds", "error", err)
		return nil, err
	}

	out := StatusResponse{
		Version:          Version,
		Uptime:           time.Since(s.startedAt).Round(time.Second).String(),
		Guilds:           make([]GuildStatus, 0, len(guilds)),
		ConfiguredGuilds: s.store.GuildCount(),
	}
	for _, g := range guilds {
		_, triggered := s.store.GetTrigger(g.ID)
		out.Guilds = append(out.Guilds, GuildStatus{
			ID:             g.ID,
			Name:           g.Name,
			RoleMappings:   len(s.store.Mappings(g.ID)),
			TriggerEnabled: triggered,
		})
	}

	return &StatusOutput{Body: out}, nil
}

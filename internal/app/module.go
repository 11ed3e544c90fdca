package app

import (
	"fmt"

	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign"
)

func (a *App) initModules() error {
	if a.config.GetBool("modules.campaign.enabled") {
		closer, err := campaign.New(campaign.Dependency{
			Config:    a.config,
			Router:    a.router,
			Goroutine: a.goroutine,
			Context:   a.ctx,
			ID:        a.uuid,
			JobID:     a.snowflake,
		})
		if err != nil {
			return fmt.Errorf("init module campaign: %w", err)
		}
		if closer != nil {
			a.closerFn["Campaign"] = closer
		}
	}

	return nil
}

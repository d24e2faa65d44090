package config

import "fmt"

func (h *Housekeeper) Validate() error {
	if h.TriggerInterval <= 0 {
		return fmt.Errorf("housekeeper trigger interval must be positive, got %s", h.TriggerInterval)
	}
	if h.PostRetention <= 0 {
		return fmt.Errorf("housekeeper post retention must be positive, got %s", h.PostRetention)
	}

	return nil
}

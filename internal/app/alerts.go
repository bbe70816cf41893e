package app

import "context"

func (s Service) DumpAlerts(_ context.Context) (DumpAlertsResult, error) {
	path, content, found, err := s.Alerts.Read()
	if err != nil {
		return DumpAlertsResult{}, err
	}
	return DumpAlertsResult{Path: path, Content: content, Found: found}, nil
}

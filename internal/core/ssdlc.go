package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// SystemEvent is a security lifecycle event for a managed service.
type SystemEvent string

const (
	SystemEventStartup  SystemEvent = "sys_startup"
	SystemEventShutdown SystemEvent = "sys_shutdown"
	SystemEventRestart  SystemEvent = "sys_restart"
	SystemEventCrash    SystemEvent = "sys_crash"
)

var systemEventDescriptions = map[SystemEvent]string{
	SystemEventStartup:  "generic-exporter start service %s",
	SystemEventShutdown: "generic-exporter shutdown service %s",
	SystemEventRestart:  "generic-exporter restart service %s",
	SystemEventCrash:    "generic-exporter service %s crash",
}

var systemEventNow = time.Now

// LogSystemEvent emits one lifecycle record. The record is always logged at
// warn level; that level is part of the record format.
func LogSystemEvent(ctx context.Context, event SystemEvent, service string, msg string) {
	description := strings.TrimSpace(fmt.Sprintf(systemEventDescriptions[event], service) + " " + msg)
	log.Ctx(ctx).Warn().
		Str("datetime", systemEventNow().Format(time.RFC3339)).
		Str("appid", "service."+service).
		Str("event", fmt.Sprintf("%s:%s", event, service)).
		Str("description", description).
		Msg(description)
}

package handler

import (
	"wsrelay/internal/app/chat"
	"wsrelay/internal/configs"
)

// AppDeps carries the components the HTTP layer needs. It is built once by the
// composition root.
type AppDeps struct {
	Registry   *chat.Registry
	Dispatcher *chat.Dispatcher
	Clients    *chat.ClientGroup
	Config     *configs.AppConfig
}

package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/internlink/backend/core"
)

// configApi serves the public runtime configuration web clients bootstrap
// from. Missing required fields are reported, never fatal.
type configApi struct {
	conf *core.Config
}

func registerConfigAPI(g *echo.Group, deps ServerDeps) {
	api := configApi{conf: deps.Conf}
	g.GET("/config", api.retrieve)
}

type RuntimeConfigResponse struct {
	Config  core.ClientConfig `json:"config"`
	Missing []string          `json:"missing"`
	OK      bool              `json:"ok"`
}

func (api *configApi) retrieve(ctx echo.Context) error {
	missing := api.conf.Client.Missing()
	return ctx.JSON(http.StatusOK, RuntimeConfigResponse{
		Config:  api.conf.Client,
		Missing: missing,
		OK:      len(missing) == 0,
	})
}

package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/kiranalabs/kirana/internal/authorization"
	"github.com/kiranalabs/kirana/internal/clock"
	"github.com/kiranalabs/kirana/internal/config"
	"github.com/kiranalabs/kirana/internal/migration"
	"github.com/kiranalabs/kirana/internal/observability"
	"github.com/kiranalabs/kirana/internal/scheduler"
	"github.com/kiranalabs/kirana/internal/server"
	"github.com/kiranalabs/kirana/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		authorization.Module,

		server.Module,
		scheduler.Module,
	)

	app.Run()
}

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

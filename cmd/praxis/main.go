package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/praxis/internal/config"
	"github.com/smallbiznis/praxis/internal/migration"
	"github.com/smallbiznis/praxis/internal/observability"
	"github.com/smallbiznis/praxis/internal/server"
	"github.com/smallbiznis/praxis/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

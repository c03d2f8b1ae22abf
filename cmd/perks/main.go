package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/perks/internal/clock"
	"github.com/smallbiznis/perks/internal/config"
	"github.com/smallbiznis/perks/internal/lock"
	"github.com/smallbiznis/perks/internal/migration"
	"github.com/smallbiznis/perks/internal/observability"
	"github.com/smallbiznis/perks/internal/server"
	"github.com/smallbiznis/perks/pkg/db"
	"github.com/smallbiznis/perks/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		log.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		lock.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

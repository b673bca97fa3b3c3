package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallsites/sitebill/internal/access"
	"github.com/smallsites/sitebill/internal/clock"
	"github.com/smallsites/sitebill/internal/config"
	"github.com/smallsites/sitebill/internal/ledger"
	"github.com/smallsites/sitebill/internal/migration"
	"github.com/smallsites/sitebill/internal/notify"
	"github.com/smallsites/sitebill/internal/observability"
	"github.com/smallsites/sitebill/internal/override"
	"github.com/smallsites/sitebill/internal/ratelimit"
	"github.com/smallsites/sitebill/internal/reconcile"
	"github.com/smallsites/sitebill/internal/registry"
	"github.com/smallsites/sitebill/internal/resolver"
	"github.com/smallsites/sitebill/internal/server"
	"github.com/smallsites/sitebill/internal/snapshot"
	"github.com/smallsites/sitebill/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional domains
		ledger.Module,
		registry.Module,
		snapshot.Module,
		reconcile.Module,
		resolver.Module,
		override.Module,
		access.Module,
		notify.Module,
		ratelimit.Module,

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

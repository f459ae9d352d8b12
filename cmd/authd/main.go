package main

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/campusworks/acadia/internal/config"
	"github.com/campusworks/acadia/internal/eventbus"
	"github.com/campusworks/acadia/internal/identity"
	identitydomain "github.com/campusworks/acadia/internal/identity/domain"
	"github.com/campusworks/acadia/internal/identity/token"
	"github.com/campusworks/acadia/internal/migration"
	"github.com/campusworks/acadia/internal/observability"
	"github.com/campusworks/acadia/internal/projection"
	"github.com/campusworks/acadia/internal/seed"
	"github.com/campusworks/acadia/internal/server"
	"github.com/campusworks/acadia/pkg/db"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		migration.ModuleFor("authd"),
		seed.Module,
		eventbus.Module,

		projection.ModuleFor("authd"),
		identity.Module,

		server.Module,
		fx.Invoke(registerRoutes),
	)
	app.Run()
}

func registerRoutes(r *gin.Engine, svc identitydomain.Service, store *eventbus.DeadLetterStore, verifier *token.Manager) {
	server.RegisterAuthRoutes(r, server.NewAuthHandlers(svc), verifier)
	server.RegisterOpsRoutes(r, store, verifier)
}

func registerSnowflake() *snowflake.Node {
	nodeID := int64(2)
	if raw := os.Getenv("SNOWFLAKE_NODE_ID"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			nodeID = parsed
		}
	}
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		panic(err)
	}
	return node
}

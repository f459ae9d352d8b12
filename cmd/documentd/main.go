package main

import (
	"os"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/campusworks/acadia/internal/config"
	"github.com/campusworks/acadia/internal/document"
	documentdomain "github.com/campusworks/acadia/internal/document/domain"
	"github.com/campusworks/acadia/internal/eventbus"
	"github.com/campusworks/acadia/internal/identity/token"
	"github.com/campusworks/acadia/internal/migration"
	"github.com/campusworks/acadia/internal/observability"
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
		migration.ModuleFor("documentd"),
		eventbus.Module,

		document.Module,
		fx.Provide(newTokenManager),

		server.Module,
		fx.Invoke(registerRoutes),
	)
	app.Run()
}

func registerRoutes(r *gin.Engine, svc documentdomain.Service, verifier *token.Manager) {
	server.RegisterDocumentRoutes(r, server.NewDocumentHandlers(svc), verifier)
}

func newTokenManager(cfg config.Config) *token.Manager {
	return token.NewManager(cfg.AccessTokenSecret, 15*time.Minute)
}

func registerSnowflake() *snowflake.Node {
	nodeID := int64(4)
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

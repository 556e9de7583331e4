// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	chatfeature "github.com/reelsync/watchparty/internal/app/features/chat"
	healthfeature "github.com/reelsync/watchparty/internal/app/features/health"
	loginfeature "github.com/reelsync/watchparty/internal/app/features/login"
	logoutfeature "github.com/reelsync/watchparty/internal/app/features/logout"
	partiesfeature "github.com/reelsync/watchparty/internal/app/features/parties"
	playbackfeature "github.com/reelsync/watchparty/internal/app/features/playback"
	userinfofeature "github.com/reelsync/watchparty/internal/app/features/userinfo"
	viewingsfeature "github.com/reelsync/watchparty/internal/app/features/viewings"
	"github.com/reelsync/watchparty/internal/app/party"
	chatstore "github.com/reelsync/watchparty/internal/app/store/chat"
	partystore "github.com/reelsync/watchparty/internal/app/store/parties"
	viewingstore "github.com/reelsync/watchparty/internal/app/store/viewings"
	"github.com/reelsync/watchparty/internal/app/system/auth"
	"go.uber.org/zap"
)

// registry holds the running watcher loops so Shutdown can stop them.
// Set once in BuildHandler.
var registry *party.Registry

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup,
// and any Startup hooks have completed. The wiring order matters: the
// stores come first, then the engine components that compose them
// (chat channel, lifecycle controller, join negotiator, invite
// resolver, watcher registry), then the feature routers that expose
// them over HTTP.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Session manager for cookie-based identity.
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Stores, one per collection.
	parties := partystore.New(deps.MongoDatabase)
	viewings := viewingstore.New(deps.MongoDatabase)
	chatMessages := chatstore.New(deps.MongoDatabase)

	// Engine components.
	channel := party.NewChannel(chatMessages, logger)
	lifecycle := party.NewController(parties, viewings, channel, appCfg.InviteCodePrefix, appCfg.MaxOpenParties, logger)
	negotiator := party.NewNegotiator(parties, lifecycle, channel, logger)
	resolver := party.NewResolver(parties, appCfg.InviteCodePrefix, logger)

	// Watchers poll the party store on the sync interval. With a Mongo
	// store there is no change-notification path, so PollSource is the
	// Source; a store that implements Notifier would wake watchers
	// between ticks instead.
	registry = party.NewRegistry(parties, party.PollSource{Store: parties}, channel, lifecycle, appCfg.SyncInterval, logger)

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if signed
	// in, making the current user available via auth.CurrentUser(r).
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Identity
	loginHandler := loginfeature.NewHandler(sessionMgr, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler))

	userinfoHandler := userinfofeature.NewHandler()
	r.Mount("/me", userinfofeature.Routes(userinfoHandler))

	// Parties: creation, invite resolution, join handshake, lifecycle
	partiesHandler := partiesfeature.NewHandler(parties, resolver, negotiator, lifecycle, registry, logger)
	r.Mount("/parties", partiesfeature.Routes(partiesHandler, sessionMgr))

	// Playback synchronization
	playbackHandler := playbackfeature.NewHandler(parties, registry, logger)
	r.Mount("/sync", playbackfeature.Routes(playbackHandler, sessionMgr))

	// Party chat
	chatHandler := chatfeature.NewHandler(parties, channel, int64(appCfg.ChatHistorySize), logger)
	r.Mount("/chat", chatfeature.Routes(chatHandler, sessionMgr))

	// Viewing history
	viewingsHandler := viewingsfeature.NewHandler(viewings, logger)
	r.Mount("/viewings", viewingsfeature.Routes(viewingsHandler, sessionMgr))

	return r, nil
}

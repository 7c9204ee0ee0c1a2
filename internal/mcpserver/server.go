// Package mcpserver exposes the cross-listing toolchain over the Model
// Context Protocol. Tool results are JSON payloads; business-rule refusals
// (over-ceiling prices, stock problems, quota shortfalls) are success:false
// results with machine-readable reason codes, while real faults surface as
// tool errors carrying the remote message.
package mcpserver

import (
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/guarzo/crosslist/internal/config"
	"github.com/guarzo/crosslist/internal/ebay"
	"github.com/guarzo/crosslist/internal/keepa"
	"github.com/guarzo/crosslist/internal/monitor"
	"github.com/guarzo/crosslist/internal/pricing"
)

const serverVersion = "1.2.0"

// Server owns every client the tools need.
type Server struct {
	cfg     *config.Config
	engine  *pricing.Engine
	rates   *pricing.RateSource
	keepa   *keepa.Client
	scraper *keepa.DimensionScraper
	ebay    *ebay.Client
	lister  *ebay.Lister
	tax     *ebay.Taxonomy
	monitor *monitor.Client
	log     zerolog.Logger

	// pricingClient calls the external pricing service when configured.
	pricingClient *http.Client
}

// Deps are the wired clients the server serves from.
type Deps struct {
	Engine   *pricing.Engine
	Rates    *pricing.RateSource
	Keepa    *keepa.Client
	Scraper  *keepa.DimensionScraper
	Ebay     *ebay.Client
	Lister   *ebay.Lister
	Taxonomy *ebay.Taxonomy
	Monitor  *monitor.Client
}

// New creates the tool server.
func New(cfg *config.Config, deps Deps, log zerolog.Logger) *Server {
	return &Server{
		cfg:           cfg,
		engine:        deps.Engine,
		rates:         deps.Rates,
		keepa:         deps.Keepa,
		scraper:       deps.Scraper,
		ebay:          deps.Ebay,
		lister:        deps.Lister,
		tax:           deps.Taxonomy,
		monitor:       deps.Monitor,
		log:           log,
		pricingClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Register adds every tool to the MCP server.
func (s *Server) Register(m *server.MCPServer) {
	m.AddTool(ToolExtractASIN, s.handleExtractASIN)
	m.AddTool(ToolKeepaGetProduct, s.handleKeepaGetProduct)
	m.AddTool(ToolKeepaGetTokens, s.handleKeepaGetTokens)
	m.AddTool(ToolCalculatePrice, s.handleCalculatePrice)
	m.AddTool(ToolEstimateProfit, s.handleEstimateProfit)
	m.AddTool(ToolGenerateListingData, s.handleGenerateListingData)
	m.AddTool(ToolEbaySuggestCategory, s.handleEbaySuggestCategory)
	m.AddTool(ToolEbayGetItemAspects, s.handleEbayGetItemAspects)
	m.AddTool(ToolEbayGetPolicies, s.handleEbayGetPolicies)
	m.AddTool(ToolEbayCreateListing, s.handleEbayCreateListing)
	m.AddTool(ToolEbayUpdateQuantity, s.handleEbayUpdateQuantity)
}

// Serve runs the stdio transport until the client disconnects.
func (s *Server) Serve() error {
	m := server.NewMCPServer("crosslist", serverVersion,
		server.WithToolCapabilities(false),
	)
	s.Register(m)
	return server.ServeStdio(m)
}

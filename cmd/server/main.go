// Package main provides the regrid HTTP server.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.ngs.io/regrid/internal/adapter/store/ncfile"
	"go.ngs.io/regrid/internal/config"
	httpHandler "go.ngs.io/regrid/internal/http"
	"go.ngs.io/regrid/internal/usecase"
)

const version = "0.1.0"

func main() {
	// Parse command-line flags.
	showHelp := flag.Bool("help", false, "Show usage information")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}

	if *showVersion {
		fmt.Printf("regrid-server version %s\n", version)
		return
	}

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log.Infof("Starting regrid server...")
	log.Infof("Port: %s", cfg.Port)
	log.Infof("Grid directory: %s", cfg.GridDir)
	log.Infof("Workers: %d, subgrid: %d, missing value: %g", cfg.Workers, cfg.Subgrid, cfg.MissingValue)

	// Initialize store and use case.
	grids := ncfile.NewGridStore(cfg.GridDir)
	if names, err := grids.List(); err != nil {
		log.Warnf("Grid directory unavailable: %v", err)
	} else {
		log.Infof("Found %d grids", len(names))
	}
	regridUC := usecase.NewRegridUseCase(grids, log, usecase.Options{
		MissingValue: cfg.MissingValue,
		Workers:      cfg.Workers,
		Subgrid:      cfg.Subgrid,
	})

	// Setup router.
	router := httpHandler.SetupRouter(regridUC, cfg.CORSAllowedOrigins, log)

	// Start server.
	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Infof("Server listening on %s", addr)
	log.Infof("Health check: http://localhost:%s/health", cfg.Port)
	log.Infof("API endpoints:")
	log.Infof("  - GET  /v1/grids")
	log.Infof("  - POST /v1/regrid")
	log.Infof("  - POST /v1/fill")
	log.Infof("  - POST /v1/slice/coefficients")
	log.Infof("  - POST /v1/topo")
	log.Infof("  - POST /v1/convert")
	log.Infof("  - POST /v1/boundary")

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// printUsage prints usage information.
func printUsage() {
	fmt.Printf("Regrid Server v%s\n\n", version)
	fmt.Println("USAGE:")
	fmt.Println("  regrid-server [flags]")
	fmt.Println()
	fmt.Println("FLAGS:")
	fmt.Println("  -help          Show this help message")
	fmt.Println("  -version       Show version information")
	fmt.Println()
	fmt.Println("ENVIRONMENT VARIABLES:")
	fmt.Println("  PORT                    Server port (default: 8080)")
	fmt.Println("  GRID_DIR                NetCDF grid directory (default: ./data/grids)")
	fmt.Println("  CORS_ALLOWED_ORIGINS    Comma-separated list of allowed origins (default: all origins)")
	fmt.Println("  LOG_LEVEL               Log level: debug, info, warn, error (default: info)")
	fmt.Println("  WORKERS                 Parallel rows in topography averaging (default: GOMAXPROCS)")
	fmt.Println("  MISSING_VALUE           Sentinel for fields without a mask (default: -9999)")
	fmt.Println("  SUBGRID                 Sub-cells per cell edge in topography averaging (default: 10)")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start server with default settings")
	fmt.Println("  regrid-server")
	fmt.Println()
	fmt.Println("  # Serve grids from a mounted bucket on a custom port")
	fmt.Println("  PORT=3000 GRID_DIR=/mnt/grids regrid-server")
	fmt.Println()
	fmt.Println("API ENDPOINTS:")
	fmt.Println("  GET  /health                   Health check")
	fmt.Println("  GET  /v1/grids                 List available grids")
	fmt.Println("  POST /v1/regrid                Interpolate a field between grids")
	fmt.Println("  POST /v1/fill                  Extend data into missing cells")
	fmt.Println("  POST /v1/slice/coefficients    Bracketing coefficients on an axis")
	fmt.Println("  POST /v1/topo                  Area-average high-resolution data")
	fmt.Println("  POST /v1/convert               Move a field between point families")
	fmt.Println("  POST /v1/boundary              Interpolate an open-boundary slice")
	fmt.Println()
}

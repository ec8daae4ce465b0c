package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"go.ngs.io/regrid/internal/usecase"
)

// SetupRouter creates and configures the Gin router. An empty
// allowedOrigins allows all origins.
func SetupRouter(regridUC *usecase.RegridUseCase, allowedOrigins []string, log logrus.FieldLogger) *gin.Engine {
	router := gin.Default()

	// Setup CORS middleware.
	corsConfig := cors.DefaultConfig()
	if len(allowedOrigins) > 0 {
		corsConfig.AllowOrigins = allowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	handler := NewHandler(regridUC, log)

	// API v1 routes.
	v1 := router.Group("/v1")
	v1.GET("/grids", handler.ListGrids)
	v1.POST("/regrid", handler.Regrid)
	v1.POST("/fill", handler.Fill)
	v1.POST("/slice/coefficients", handler.SliceCoefficients)
	v1.POST("/topo", handler.Topo)
	v1.POST("/convert", handler.Convert)
	v1.POST("/boundary", handler.Boundary)

	// Health check.
	router.GET("/health", handler.HealthCheck)

	return router
}

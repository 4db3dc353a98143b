package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) SetupRoutes(router *gin.Engine) {
	router.GET("/health", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	v1 := router.Group("/v1")
	v1.Use(s.authenticate())
	{
		surfaces := v1.Group("/surfaces")
		{
			surfaces.GET("", s.listSurfaces)
			surfaces.POST("/:surface/compute", s.compute)
		}

		viewers := v1.Group("/viewers/:viewer")
		{
			viewers.GET("/sets", s.getSets)
			viewers.POST("/sets/:set/toggle", s.toggle)
		}
	}
}

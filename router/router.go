// api/router/router.go

package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lumenhr/aegis/api/controller"
	"github.com/lumenhr/aegis/api/middleware"
	"github.com/lumenhr/aegis/api/service"
)

func SetupRouter(
	controllers *controller.Controllers,
	userService service.IUserService,
	rateLimitRequests int,
	rateLimitDuration time.Duration,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.AuthMiddleware(userService))
	router.Use(middleware.RateLimiter(rateLimitRequests, rateLimitDuration))

	api := router.Group("/api/v1")

	controllers.Access.RegisterRoutes(api)
	controllers.Policy.RegisterRoutes(api)
	controllers.AttributeType.RegisterRoutes(api)
	controllers.Role.RegisterRoutes(api)
	controllers.GroupPolicy.RegisterRoutes(api)
	controllers.UserPolicy.RegisterRoutes(api)
	controllers.User.RegisterRoutes(api)

	return router
}

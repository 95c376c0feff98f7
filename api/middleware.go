package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/spf13/viper"
)

// BasicAuthProtected guards the API with the api.auth.username and
// api.auth.password credentials. Without a username every request passes.
func BasicAuthProtected() fiber.Handler {
	username := viper.GetString("api.auth.username")
	password := viper.GetString("api.auth.password")
	if username == "" {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	return basicauth.New(basicauth.Config{
		Users: map[string]string{
			username: password,
		},
		Realm: "openeoct API",
		Unauthorized: func(c *fiber.Ctx) error {
			c.Set("WWW-Authenticate", "Basic realm=\"openeoct API\"")
			return c.Status(fiber.StatusUnauthorized).JSON(NewErrorResponse("Unauthorized"))
		},
	})
}

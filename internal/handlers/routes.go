package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lifehubapp/lifehub/internal/session"
)

// Register wires all routes. Everything under /api requires a valid
// bearer token.
func Register(e *echo.Echo, auth *AuthHandler, coll *CollectionHandler, stream *StreamHandler, tokens *session.TokenService) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	e.POST("/auth/register", auth.Register)
	e.POST("/auth/login", auth.Login)
	e.POST("/auth/google", auth.GoogleLogin)
	e.POST("/auth/logout", auth.Logout)

	api := e.Group("/api", AuthMiddleware(tokens))

	api.GET("/todos", coll.ListTodos)
	api.POST("/todos", coll.CreateTodo)
	api.PATCH("/todos/:id", coll.UpdateTodo)
	api.DELETE("/todos/:id", coll.DeleteTodo)

	api.GET("/habits", coll.ListHabits)
	api.POST("/habits", coll.CreateHabit)
	api.POST("/habits/:id/toggle", coll.ToggleHabit)
	api.DELETE("/habits/:id", coll.DeleteHabit)

	api.GET("/notes", coll.ListNotes)
	api.POST("/notes", coll.CreateNote)
	api.PATCH("/notes/:id", coll.UpdateNote)
	api.DELETE("/notes/:id", coll.DeleteNote)

	api.GET("/dashboard", coll.Dashboard)

	api.GET("/:collection/stream", stream.Stream)
}

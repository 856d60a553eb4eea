package internal

import (
	"cftracker/internal/controllers"
	"cftracker/internal/providers"
	"net/http"
)

func InitRoutes(apiController *controllers.ApiController, syncController *controllers.SyncController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Get("/students", http.HandlerFunc(apiController.ListStudents))
	routers.Post("/students", http.HandlerFunc(apiController.CreateStudent))
	routers.Get("/student", http.HandlerFunc(apiController.GetStudent))
	routers.Put("/student", http.HandlerFunc(apiController.UpdateStudent))
	routers.Delete("/student", http.HandlerFunc(apiController.DeleteStudent))
	routers.Get("/students/contests", http.HandlerFunc(apiController.GetContests))
	routers.Get("/students/submissions", http.HandlerFunc(apiController.GetSubmissions))
	routers.Get("/students/sync-logs", http.HandlerFunc(apiController.GetSyncLogs))

	routers.Post("/students/recalculate-contests", http.HandlerFunc(syncController.RecalculateContests))

	routers.Post("/sync", http.HandlerFunc(syncController.SyncStudent))
	routers.Post("/sync/all", http.HandlerFunc(syncController.SyncAll))
	routers.Post("/codeforces/test-handle", http.HandlerFunc(syncController.TestHandle))
	routers.Get("/codeforces/status", http.HandlerFunc(syncController.APIStatus))
	return routers
}

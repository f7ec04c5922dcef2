package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/dnstrail/dnstrail/api"
	"github.com/dnstrail/dnstrail/util"
)

func createRouter() *chi.Mux {
	router := chi.NewRouter()

	configureCorsHandler(router)

	router.Use(requestLogger)

	configureRootHandler(router)

	return router
}

func configureCorsHandler(router *chi.Mux) {
	crs := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	router.Use(crs.Handler)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		start := time.Now()

		next.ServeHTTP(rw, req)

		logger().Debugf("%s %s took %s", req.Method, req.URL.Path, time.Since(start))
	})
}

func configureRootHandler(router *chi.Mux) {
	router.Get("/", func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("content-type", "application/json")

		endpoints := []string{
			api.PathResolve,
			api.PathCacheList,
			api.PathCacheClear,
			api.PathBlockingList,
			api.PathBlockingBlock,
			api.PathBlockingUnblk,
			api.PathListsRefresh,
			api.PathHealth,
		}

		response, err := json.Marshal(map[string]interface{}{
			"version":   util.Version,
			"buildTime": util.BuildTime,
			"endpoints": endpoints,
		})
		util.LogOnError("unable to marshal response ", err)

		_, err = rw.Write(response)
		util.LogOnError("unable to write response ", err)
	})
}

func registerHealthEndpoint(router *chi.Mux) {
	router.Get(api.PathHealth, func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("content-type", "application/json")

		response, err := json.Marshal(api.HealthResponse{Status: "up"})
		util.LogOnError("unable to marshal response ", err)

		_, err = rw.Write(response)
		util.LogOnError("unable to write response ", err)
	})
}

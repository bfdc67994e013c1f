// Command mirror-server serves a local JSON file in the shape the mirror
// source expects, for development and offline runs.
package main

import (
	"encoding/json"
	"flag"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"romvault/pkg/logging"
)

func main() {
	addr := flag.String("addr", ":9000", "listen address")
	dataPath := flag.String("data", "data/mirror.json", "mirror JSON file")
	flag.Parse()

	log := logging.Component("mirror-server")

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// re-read on every request so the file can be edited while running
	router.GET("/games", func(c *gin.Context) {
		b, err := os.ReadFile(*dataPath)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot read mirror file: " + err.Error()})
			return
		}
		var entries []map[string]any
		if err := json.Unmarshal(b, &entries); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "mirror file is not a JSON array: " + err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/json", b)
	})

	log.Info().Str("addr", *addr).Str("data", *dataPath).Msg("mirror-server listening")
	if err := router.Run(*addr); err != nil {
		log.Fatal().Err(err).Msg("mirror-server stopped")
	}
}

package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"schematics/internal/catalog"
	"schematics/pkg/utils"
)

// catalog-server serves the catalog CSV over HTTP so api-server and the CLI
// can load it with --catalog http://host:9000/<name>.
func main() {
	var (
		path = flag.String("file", catalog.DefaultSource, "catalog CSV file to serve")
		addr = flag.String("addr", ":9000", "listen address")
	)
	flag.Parse()

	if _, err := utils.SetupLogger("info"); err != nil {
		os.Exit(2)
	}
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/"+filepath.Base(*path), func(c *gin.Context) {
		b, err := os.ReadFile(*path)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot read catalog: " + err.Error()})
			return
		}
		// refuse to serve a file the loader would reject
		if err := catalog.Validate(string(b)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, "text/csv; charset=utf-8", b)
	})

	slog.Info("catalog-server listening", "addr", *addr, "path", "/"+filepath.Base(*path))
	if err := http.ListenAndServe(*addr, router); err != nil {
		slog.Error("catalog-server stopped", "error", err)
		os.Exit(1)
	}
}

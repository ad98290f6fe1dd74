package main

import (
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noodlevault/noodlevault/internal/server/devserver"
)

func main() {
	addr := flag.String("l", "127.0.0.1:8080", "listen address")
	flag.Parse()

	gin.SetMode(gin.ReleaseMode)
	router := devserver.NewRouter(devserver.NewStore())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("dev vault server listening on %s", *addr)
	log.Fatal(srv.ListenAndServe())
}

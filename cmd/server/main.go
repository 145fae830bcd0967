// Package main runs the score2cnc API server on its own
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/james-see/score2cnc/pkg/api"
	"github.com/james-see/score2cnc/pkg/converter/devices"
)

func main() {
	defaultPort := 8080
	if v, err := strconv.Atoi(os.Getenv("PORT")); err == nil && v > 0 {
		defaultPort = v
	}
	port := flag.Int("port", defaultPort, "Server port (or $PORT)")
	release := flag.Bool("release", false, "Run gin in release mode")
	flag.Parse()

	if *release {
		gin.SetMode(gin.ReleaseMode)
	}

	fmt.Printf("score2cnc API on :%d, machine profiles: %s\n", *port, strings.Join(devices.IDs(), ", "))
	fmt.Printf("Swagger UI at http://localhost:%d/swagger/index.html\n", *port)

	if err := api.StartServer(*port); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

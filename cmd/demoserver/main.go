// Command demoserver starts a deliberately vulnerable shop site to scan.
// Usage: go run ./cmd/demoserver [port]
// Default port: 9999
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/raysh454/vulnprobe/internal/demoserver"
	"github.com/raysh454/vulnprobe/internal/logging"
)

func main() {
	cfg := demoserver.DefaultConfig()

	// Optional: custom port from command line
	if len(os.Args) > 1 {
		port, err := strconv.Atoi(os.Args[1])
		if err != nil || port < 1 || port > 65535 {
			log.Fatalf("Invalid port: %s", os.Args[1])
		}
		cfg.Port = port
	}

	fmt.Println("===========================================")
	fmt.Println("   vulnprobe demo target")
	fmt.Println("===========================================")
	fmt.Println()
	fmt.Println("Every page starts vulnerable and can be hardened")
	fmt.Println("from the control panel at /demo/control.")
	fmt.Println()
	fmt.Println("Weaknesses served:")
	fmt.Println("  - /products?id=   MySQL error leak on quotes")
	fmt.Println("  - /search?q=      reflected input")
	fmt.Println("  - /login (POST)   SQL Server error leak")
	fmt.Println("  - /contact (GET)  reflected form field")
	fmt.Println("  - every page      missing security headers")
	fmt.Println()
	fmt.Printf("Try: go run ./cmd/vulnprobe http://localhost:%d/\n\n", cfg.Port)

	server := demoserver.NewDemoServer(cfg, logging.NewStdoutLogger("demoserver"))
	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

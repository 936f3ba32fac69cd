package main

import (
	"fmt"
	"os"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		return
	}

	cmd := os.Args[1]

	var err error
	switch cmd {
	case "serve":
		err = runServe(os.Args[2:])
	case "migrate":
		err = runMigrate(os.Args[2:])
	case "seed":
		err = runSeed(os.Args[2:])
	case "token":
		err = runToken(os.Args[2:])
	case "mcp":
		err = runMCP(os.Args[2:])
	case "version":
		fmt.Printf("notifyd %s\n", Version)
	default:
		fmt.Printf("Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "notifyd %s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("notifyd %s\n", Version)
	fmt.Println("\nUsage:")
	fmt.Println("  notifyd serve             Run the HTTP API and the outbox relay")
	fmt.Println("  notifyd migrate [-down]   Apply the embedded database migrations")
	fmt.Println("  notifyd seed <file.cue>   Upsert types, applications, media and templates")
	fmt.Println("  notifyd token             Issue an operator JWT")
	fmt.Println("  notifyd mcp               Serve operator tools over MCP (stdio)")
	fmt.Println("  notifyd version           Print the version")
}

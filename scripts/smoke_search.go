//go:build ignore
// +build ignore

package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

// Manual smoke test against a running instance:
//
//	go run scripts/smoke_search.go -addr http://localhost:8080
func main() {
	addr := flag.String("addr", "http://localhost:8080", "API base address")
	dataset := flag.String("dataset", "", "dataset filter for the search call")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}

	paths := []string{
		"/api/v1/health",
		"/api/v1/datasets",
	}

	search := "/api/v1/entities?limit=3"
	if *dataset != "" {
		search += "&dataset=" + url.QueryEscape(*dataset)
	}
	paths = append(paths, search, search+"&format=geojson")

	for _, path := range paths {
		resp, err := client.Get(*addr + path)
		if err != nil {
			log.Fatalf("GET %s: %v", path, err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			log.Fatalf("read %s: %v", path, err)
		}

		var indented bytes.Buffer
		if err := json.Indent(&indented, body, "", "  "); err == nil {
			body = indented.Bytes()
		}

		fmt.Printf("=== %s (%d)\n%s\n\n", path, resp.StatusCode, body)
	}
}

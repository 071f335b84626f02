// Package main provides a CLI tool for smoke-checking a running salonrecon server.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

type endpoint struct {
	path        string
	method      string
	body        string
	status      int
	contentType string
	contains    []string
}

var endpoints = []endpoint{
	{path: "/api/health", method: "GET", status: 200, contentType: "application/json", contains: []string{`"status":"ok"`, `"version"`}},

	// Admin, read-only
	{path: "/admin/sessions", method: "GET", status: 200, contentType: "application/json"},
	{path: "/admin/pipeline/tabs?status=trial", method: "GET", status: 200, contentType: "application/json", contains: []string{`"tab":"testing"`}},
	{path: "/admin/pipeline/tabs?status=unknown", method: "GET", status: 400, contentType: "application/json"},
	{path: "/admin/users/validate-cli/delete", method: "POST", status: 400, contentType: "application/json", contains: []string{"confirm=true"}},
	{path: "/admin/users/cleanup", method: "POST", body: `{"email":"validate@example.com"}`, status: 400, contentType: "application/json"},

	// Portal
	{path: "/portal/sessions/does-not-exist/insights", method: "GET", status: 404, contentType: "application/json"},
	{path: "/portal/sessions/does-not-exist/compare", method: "POST", status: 404, contentType: "application/json"},
}

// sessionEndpoints run against a freshly created session; {id} is substituted
var sessionEndpoints = []endpoint{
	{path: "/portal/sessions/{id}", method: "GET", status: 200, contentType: "application/json", contains: []string{`"running":false`}},
	{path: "/portal/sessions/{id}/notices", method: "GET", status: 200, contentType: "application/json"},
	{path: "/portal/sessions/{id}/overview", method: "GET", status: 404, contentType: "application/json"},
	{path: "/portal/sessions/{id}/compare", method: "POST", status: 400, contentType: "application/json", contains: []string{"both files"}},
}

type result struct {
	endpoint endpoint
	status   int
	duration time.Duration
	err      error
}

func main() {
	url := flag.String("url", "http://localhost:8080", "Base URL of the server to validate")
	verbose := flag.Bool("v", false, "Verbose output")
	timeout := flag.Int("timeout", 10, "Request timeout in seconds")
	withSession := flag.Bool("session", true, "Create a throwaway session and check its endpoints")
	flag.Parse()

	client := &http.Client{
		Timeout: time.Duration(*timeout) * time.Second,
	}

	checks := endpoints
	if *withSession {
		id, err := createSession(client, *url)
		if err != nil {
			fmt.Printf("FAIL POST /portal/sessions\n     Error: %v\n", err)
			os.Exit(1)
		}
		for _, ep := range sessionEndpoints {
			ep.path = strings.ReplaceAll(ep.path, "{id}", id)
			checks = append(checks, ep)
		}
	}

	fmt.Printf("Validating server at %s\n", *url)
	fmt.Printf("Testing %d endpoints...\n\n", len(checks))

	var passed, failed int
	for _, ep := range checks {
		r := validateEndpoint(client, *url, ep)
		if r.err != nil {
			failed++
			fmt.Printf("FAIL %s %s\n", ep.method, ep.path)
			fmt.Printf("     Error: %v\n", r.err)
			continue
		}
		passed++
		if *verbose {
			fmt.Printf("PASS %s %s -> %d (%v)\n", ep.method, ep.path, r.status, r.duration)
		}
	}

	fmt.Printf("\n========================================\n")
	fmt.Printf("Results: %d passed, %d failed\n", passed, failed)

	if failed > 0 {
		os.Exit(1)
	}
}

func createSession(client *http.Client, baseURL string) (string, error) {
	resp, err := client.Post(baseURL+"/portal/sessions", "application/json", strings.NewReader(`{"email":"validate@example.com"}`))
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("status %d (expected 201)", resp.StatusCode)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil || created.ID == "" {
		return "", fmt.Errorf("no session id in response: %v", err)
	}
	return created.ID, nil
}

func validateEndpoint(client *http.Client, baseURL string, ep endpoint) result {
	start := time.Now()

	var body io.Reader
	if ep.body != "" {
		body = bytes.NewBufferString(ep.body)
	}
	req, err := http.NewRequest(ep.method, baseURL+ep.path, body)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("failed to create request: %w", err)}
	}
	if ep.body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("failed to read body: %w", err)}
	}

	r := result{
		endpoint: ep,
		status:   resp.StatusCode,
		duration: time.Since(start),
	}

	if r.status != ep.status {
		r.err = fmt.Errorf("status %d (expected %d)", r.status, ep.status)
		return r
	}

	ct := resp.Header.Get("Content-Type")
	if !strings.Contains(ct, ep.contentType) {
		r.err = fmt.Errorf("wrong content type: got %q, expected %q", ct, ep.contentType)
		return r
	}

	if ep.contentType == "application/json" {
		var js interface{}
		if err := json.Unmarshal(data, &js); err != nil {
			r.err = fmt.Errorf("invalid JSON: %w", err)
			return r
		}
	}

	for _, needle := range ep.contains {
		if !strings.Contains(string(data), needle) {
			r.err = fmt.Errorf("missing expected content: %q", needle)
			return r
		}
	}

	return r
}

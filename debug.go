package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// runDebug performs a single telegram lookup and prints the response.
// Usage: animax debug <query>
func runDebug(a *app, args []string) int {
	query := strings.Join(args, " ")
	if strings.TrimSpace(query) == "" {
		fmt.Fprintln(os.Stderr, "usage: animax debug <query>")
		return 2
	}

	fmt.Printf("Looking up %q\n", query)
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), a.config.SearchTimeout+a.config.CacheProbeTimeout)
	defer cancel()
	resp := a.telegram.Lookup(ctx, query)

	out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(resp, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding response: %v\n", err)
		return 1
	}
	fmt.Println(string(out))
	fmt.Printf("Completed in %v (fromCache=%t, results=%d)\n", time.Since(start), resp.FromCache, len(resp.Results))

	if resp.Error != "" {
		return 1
	}
	return 0
}

package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Drives the ingest endpoint with synthetic requests to exercise the
// rate limiter and the task registry under concurrency.
func main() {
	targetURL := flag.String("url", "http://localhost:8080/ingest", "Target URL for ingestion requests")
	archiveURL := flag.String("archive", "http://localhost:9000/logs.tar.zst", "Archive URL to submit")
	concurrency := flag.Int("c", 10, "Number of concurrent workers")
	duration := flag.Duration("d", 30*time.Second, "Duration of the load test")
	rps := flag.Int("rps", 100, "Requests per second limit")
	flag.Parse()

	log.Printf("Starting load test on %s", *targetURL)
	log.Printf("Concurrency: %d, Duration: %s, RPS: %d", *concurrency, *duration, *rps)

	var wg sync.WaitGroup
	var successCount, errorCount atomic.Int64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(*rps), 100) // Allow bursts up to 100

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{
				Timeout: 5 * time.Second,
			}

			for {
				select {
				case <-ctx.Done():
					return
				default:
					if err := limiter.Wait(ctx); err != nil {
						return
					}

					payload := fmt.Sprintf(`{"download_url": "%s", "run_id": "%s"}`,
						*archiveURL, uuid.NewString())

					req, err := http.NewRequestWithContext(ctx, http.MethodPost, *targetURL, bytes.NewBufferString(payload))
					if err != nil {
						continue // Should not happen
					}
					req.Header.Set("Content-Type", "application/json")

					resp, err := client.Do(req)
					if err != nil {
						errorCount.Add(1)
						continue
					}
					resp.Body.Close()

					if resp.StatusCode >= 200 && resp.StatusCode < 300 {
						successCount.Add(1)
					} else {
						errorCount.Add(1)
					}
				}
			}
		}()
	}

	wg.Wait()
	log.Printf("Load test finished: %d accepted, %d rejected/failed",
		successCount.Load(), errorCount.Load())
}

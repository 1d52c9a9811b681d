package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"ganymede-hq/ganymede/pkg/cli"
)

var benchmarkFlags struct {
	target      string
	duration    time.Duration
	rate        int
	concurrency int
	model       string
	prompt      string
}

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Load test a running gateway",
	Long: `Send synthetic chat-completion requests to a running gateway at a
configurable rate and report throughput and latency percentiles.

Each request is a single-message non-streaming completion; every request
uses a distinct first message so the gateway opens a distinct session.

Examples:
  # Basic benchmark
  ganymede benchmark --target http://localhost:8384

  # High load test
  ganymede benchmark --duration 60s --rate 100 --concurrency 10

  # Profile a specific model
  ganymede benchmark --model sonnet-4.5 --duration 30s`,
	RunE: runBenchmark,
}

func init() {
	rootCmd.AddCommand(benchmarkCmd)

	benchmarkCmd.Flags().StringVar(&benchmarkFlags.target, "target", "http://127.0.0.1:8384", "gateway URL")
	benchmarkCmd.Flags().DurationVar(&benchmarkFlags.duration, "duration", 30*time.Second, "test duration")
	benchmarkCmd.Flags().IntVar(&benchmarkFlags.rate, "rate", 10, "requests per second")
	benchmarkCmd.Flags().IntVar(&benchmarkFlags.concurrency, "concurrency", 4, "concurrent clients")
	benchmarkCmd.Flags().StringVar(&benchmarkFlags.model, "model", "gpt-5", "model to use")
	benchmarkCmd.Flags().StringVar(&benchmarkFlags.prompt, "prompt", "Say ok.", "prompt to send")
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	fmt.Println("Ganymede Benchmark")
	fmt.Println("==================")
	fmt.Printf("Target: %s\n", benchmarkFlags.target)
	fmt.Printf("Duration: %s\n", benchmarkFlags.duration)
	fmt.Printf("Rate: %d req/s\n", benchmarkFlags.rate)
	fmt.Printf("Concurrency: %d\n", benchmarkFlags.concurrency)
	fmt.Println()
	fmt.Println("Running...")
	fmt.Println()

	totalRequests := int(benchmarkFlags.duration.Seconds()) * benchmarkFlags.rate
	results := runLoadTest(totalRequests)
	displayResults(results)
	return nil
}

type benchmarkResults struct {
	totalRequests  int
	successfulReqs int
	failedReqs     int
	duration       time.Duration
	latencies      []time.Duration
}

func runLoadTest(totalRequests int) *benchmarkResults {
	results := &benchmarkResults{totalRequests: totalRequests}

	var (
		successful int64
		failed     int64
		mu         sync.Mutex
		wg         sync.WaitGroup
	)

	httpClient := &http.Client{Timeout: 2 * time.Minute}

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), benchmarkFlags.duration)
	defer cancel()

	progress := cli.NewProgressReporter(nil)
	progress.Start(int64(totalRequests))

	requests := make(chan int)
	for i := 0; i < benchmarkFlags.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seq := range requests {
				reqStart := time.Now()
				ok := sendBenchmarkRequest(ctx, httpClient, seq)
				latency := time.Since(reqStart)

				mu.Lock()
				results.latencies = append(results.latencies, latency)
				mu.Unlock()

				if ok {
					atomic.AddInt64(&successful, 1)
				} else {
					atomic.AddInt64(&failed, 1)
				}
				progress.Update(atomic.LoadInt64(&successful) + atomic.LoadInt64(&failed))
			}
		}()
	}

	interval := time.Second / time.Duration(benchmarkFlags.rate)
	ticker := time.NewTicker(interval)

feed:
	for seq := 0; seq < totalRequests; seq++ {
		select {
		case <-ctx.Done():
			break feed
		case <-ticker.C:
			select {
			case requests <- seq:
			case <-ctx.Done():
				break feed
			}
		}
	}
	ticker.Stop()
	close(requests)
	wg.Wait()
	progress.Finish()

	results.duration = time.Since(start)
	results.successfulReqs = int(atomic.LoadInt64(&successful))
	results.failedReqs = int(atomic.LoadInt64(&failed))
	return results
}

// sendBenchmarkRequest sends one non-streaming completion. The sequence
// number goes into the message so each request opens its own conversation.
func sendBenchmarkRequest(ctx context.Context, httpClient *http.Client, seq int) bool {
	body := fmt.Sprintf(`{"model":%q,"messages":[{"role":"user","content":"[bench %d] %s"}]}`,
		benchmarkFlags.model, seq, benchmarkFlags.prompt)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		benchmarkFlags.target+"/v1/chat/completions", bytes.NewReader([]byte(body)))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return false
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func displayResults(results *benchmarkResults) {
	fmt.Println()
	fmt.Println("Results:")
	fmt.Println("--------")
	fmt.Printf("Requests:        %d total, %d successful, %d failed\n",
		results.totalRequests, results.successfulReqs, results.failedReqs)
	fmt.Printf("Duration:        %.1fs\n", results.duration.Seconds())

	if results.successfulReqs > 0 {
		throughput := float64(results.successfulReqs) / results.duration.Seconds()
		fmt.Printf("Throughput:      %.2f req/s\n", throughput)
	}

	if len(results.latencies) > 0 {
		min, mean, median, p95, p99, max := calculatePercentiles(results.latencies)

		fmt.Println()
		fmt.Println("Latency:")
		fmt.Printf("  Min:     %.1fms\n", float64(min.Microseconds())/1000)
		fmt.Printf("  Mean:    %.1fms\n", float64(mean.Microseconds())/1000)
		fmt.Printf("  Median:  %.1fms\n", float64(median.Microseconds())/1000)
		fmt.Printf("  p95:     %.1fms\n", float64(p95.Microseconds())/1000)
		fmt.Printf("  p99:     %.1fms\n", float64(p99.Microseconds())/1000)
		fmt.Printf("  Max:     %.1fms\n", float64(max.Microseconds())/1000)
	}
}

func calculatePercentiles(latencies []time.Duration) (min, mean, median, p95, p99, max time.Duration) {
	if len(latencies) == 0 {
		return
	}

	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	min = sorted[0]
	max = sorted[len(sorted)-1]

	var sum time.Duration
	for _, lat := range sorted {
		sum += lat
	}
	mean = sum / time.Duration(len(sorted))

	median = sorted[len(sorted)/2]
	p95 = sorted[int(float64(len(sorted))*0.95)]
	p99 = sorted[int(float64(len(sorted))*0.99)]
	return
}

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"reflect"
	"strings"
	"time"
)

// parity_check asks a running API for the same student's recommendations in sequential and
// parallel mode and reports any difference in the ranked sets.

type comparison struct {
	StudentID        string
	SequentialStatus int
	ParallelStatus   int
	SetsMatch        bool
	Error            error
	DurationSeq      time.Duration
	DurationPar      time.Duration
}

type envelope struct {
	Data struct {
		RecommendationSets json.RawMessage `json:"recommendationSets"`
		Partial            bool            `json:"partial"`
	} `json:"data"`
}

func main() {
	var (
		base     string
		prefix   string
		students string
		token    string
		maxNodes int
		timeout  time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&prefix, "prefix", "/api/v1", "API route prefix")
	flag.StringVar(&students, "students", "", "Comma separated student ids")
	flag.StringVar(&token, "token", "", "Bearer token when auth is enabled")
	flag.IntVar(&maxNodes, "max-nodes", 0, "Search bound override (0 keeps the server default)")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "HTTP client timeout")
	flag.Parse()

	ids := splitIDs(students)
	if len(ids) == 0 {
		log.Fatal("no students given, use -students")
	}

	client := &http.Client{Timeout: timeout}
	var (
		results []comparison
		diffs   int
	)
	for _, id := range ids {
		comp := compareStudent(client, strings.TrimRight(base, "/")+prefix, token, maxNodes, id)
		if comp.Error != nil || !comp.SetsMatch {
			diffs++
		}
		results = append(results, comp)
	}

	printReport(results)
	fmt.Printf("Students with diffs: %d of %d\n", diffs, len(results))
	if diffs > 0 {
		os.Exit(1)
	}
}

func splitIDs(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func compareStudent(client *http.Client, baseURL, token string, maxNodes int, studentID string) comparison {
	comp := comparison{StudentID: studentID}

	seq, seqStatus, seqDur, err := fetch(client, baseURL, token, maxNodes, studentID, false)
	if err != nil {
		comp.Error = fmt.Errorf("sequential request failed: %w", err)
		return comp
	}
	par, parStatus, parDur, err := fetch(client, baseURL, token, maxNodes, studentID, true)
	if err != nil {
		comp.Error = fmt.Errorf("parallel request failed: %w", err)
		return comp
	}
	comp.SequentialStatus, comp.ParallelStatus = seqStatus, parStatus
	comp.DurationSeq, comp.DurationPar = seqDur, parDur

	if seqStatus != http.StatusOK || parStatus != http.StatusOK {
		comp.Error = fmt.Errorf("unexpected status sequential=%d parallel=%d", seqStatus, parStatus)
		return comp
	}
	if seq.Data.Partial != par.Data.Partial {
		return comp
	}
	comp.SetsMatch = jsonEqual(seq.Data.RecommendationSets, par.Data.RecommendationSets)
	return comp
}

func fetch(client *http.Client, baseURL, token string, maxNodes int, studentID string, parallel bool) (envelope, int, time.Duration, error) {
	var out envelope
	if client == nil {
		return out, 0, 0, errors.New("nil client")
	}
	body, err := json.Marshal(map[string]interface{}{"maxNodes": maxNodes, "parallel": parallel})
	if err != nil {
		return out, 0, 0, err
	}
	url := fmt.Sprintf("%s/students/%s/recommendations", baseURL, studentID)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return out, 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return out, 0, 0, err
	}
	defer resp.Body.Close()
	elapsed := time.Since(start)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, resp.StatusCode, elapsed, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode == http.StatusOK {
		if err := json.Unmarshal(raw, &out); err != nil {
			return out, resp.StatusCode, elapsed, fmt.Errorf("decode body: %w", err)
		}
	}
	return out, resp.StatusCode, elapsed, nil
}

func jsonEqual(a, b []byte) bool {
	if bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b)) {
		return true
	}
	var aj, bj interface{}
	if err := json.Unmarshal(a, &aj); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bj); err != nil {
		return false
	}
	return reflect.DeepEqual(aj, bj)
}

func printReport(results []comparison) {
	fmt.Println("Search Parity Report")
	fmt.Println("====================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if !res.SetsMatch {
			status = "DIFF"
		}
		fmt.Printf("[%s] student %s\n", status, res.StudentID)
		fmt.Printf("  Sequential: %d (%s)\n", res.SequentialStatus, res.DurationSeq)
		fmt.Printf("  Parallel:   %d (%s)\n", res.ParallelStatus, res.DurationPar)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
		}
	}
}

package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/psokolov/verdex/internal/model"
)

// Checker defines the interface for running a single check
type Checker interface {
	Run(ctx context.Context, content, sourceURL string) *model.Check
}

// CheckJob verifies one piece of content
type CheckJob struct {
	Input   string // One line from the batch file
	Checker Checker
}

// Execute runs the check job
func (j *CheckJob) Execute(ctx context.Context) Result {
	check := j.Checker.Run(ctx, j.Input, "")
	res := &CheckResult{
		Input: j.Input,
		Check: check,
	}
	if check.Status == model.CheckStatusFailed {
		res.Error = fmt.Errorf("check failed: %s", check.Error)
	}
	return res
}

// CheckResult represents the result of a check job
type CheckResult struct {
	Input string
	Check *model.Check
	Error error
}

// GetError returns the error from the check result
func (r *CheckResult) GetError() error {
	return r.Error
}

// BatchProcessor runs multiple checks concurrently
type BatchProcessor struct {
	checker     Checker
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(checker Checker, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		checker:     checker,
		concurrency: concurrency,
	}
}

// ProcessInputs verifies multiple inputs concurrently
func (b *BatchProcessor) ProcessInputs(ctx context.Context, inputs []string) []*CheckResult {
	if len(inputs) == 0 {
		return []*CheckResult{}
	}

	pool := NewPool(b.concurrency)
	pool.Start()

	for _, input := range inputs {
		pool.Submit(&CheckJob{
			Input:   input,
			Checker: b.checker,
		})
	}

	results := pool.Wait()

	checkResults := make([]*CheckResult, len(results))
	for i, result := range results {
		checkResults[i] = result.(*CheckResult)
	}

	return checkResults
}

// ProcessFile reads inputs from a file and verifies them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*CheckResult, error) {
	inputs, err := ReadInputsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read inputs: %w", err)
	}

	return b.ProcessInputs(ctx, inputs), nil
}

// ReadInputsFromFile reads check inputs from a file (one per line)
func ReadInputsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var inputs []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Deduplicate inputs
		if !seen[line] {
			seen[line] = true
			inputs = append(inputs, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return inputs, nil
}

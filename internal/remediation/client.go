package remediation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"github.com/regdata/register-pipeline/internal/artifacts"
	"github.com/regdata/register-pipeline/internal/types"
)

// Provider answers one remediation task with raw model text. Implementations
// must be safe for concurrent use.
type Provider interface {
	// Name identifies the provider in patch metadata.
	Name() string
	// Complete sends the prompt to the named model and returns its text.
	Complete(ctx context.Context, model, prompt string) (string, error)
	// Close releases any resources held by the provider.
	Close() error
}

// GeminiProvider implements Provider on the Gemini API.
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider dials the Gemini API.
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

// Name identifies the provider.
func (p *GeminiProvider) Name() string { return "gemini" }

// Complete runs one prompt against the named model in JSON mode.
func (p *GeminiProvider) Complete(ctx context.Context, model, prompt string) (string, error) {
	m := p.client.GenerativeModel(model)
	m.SetTemperature(0.1) // Low temperature for consistent output
	m.ResponseMIMEType = "application/json"

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text, err := extractText(resp)
	if err != nil {
		return "", err
	}
	return cleanJSONBlock(text), nil
}

// Close releases the underlying API client.
func (p *GeminiProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

// extractText pulls the concatenated text parts from the first candidate.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from model")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no text parts in model response")
	}
	return b.String(), nil
}

// cleanJSONBlock strips markdown code fences models wrap around JSON even
// when told not to.
func cleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// RunnerOptions tunes the remediation run.
type RunnerOptions struct {
	// Models is the ordered fallback chain; the first model that serves a
	// task stays preferred.
	Models []string
	// Concurrency bounds the task fan-out.
	Concurrency int
	// RequestsPerSecond is the shared provider budget across workers.
	RequestsPerSecond float64
	// Timeout bounds one provider call, all fallback attempts included
	// individually.
	Timeout time.Duration
}

func (o RunnerOptions) withDefaults() RunnerOptions {
	if len(o.Models) == 0 {
		o.Models = []string{"gemini-2.0-flash", "gemini-1.5-flash"}
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.RequestsPerSecond <= 0 {
		o.RequestsPerSecond = 2
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	return o
}

// Runner fans tasks out to a provider under a shared rate budget and
// collects validated proposals into a patch.
type Runner struct {
	provider Provider
	opts     RunnerOptions
	limiter  *rate.Limiter
	validate *validator.Validate

	mu          sync.Mutex
	modelsTried map[string]bool
	invalid     []string
	failed      []string
}

// NewRunner wires a runner around a provider.
func NewRunner(provider Provider, opts RunnerOptions) *Runner {
	opts = opts.withDefaults()
	return &Runner{
		provider:    provider,
		opts:        opts,
		limiter:     rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		validate:    validator.New(),
		modelsTried: make(map[string]bool),
	}
}

// InvalidProposals lists task IDs whose model output failed the proposal
// contract during the last run.
func (r *Runner) InvalidProposals() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.invalid...)
}

// FailedTasks lists task IDs whose whole model chain was exhausted during
// the last run.
func (r *Runner) FailedTasks() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.failed...)
}

// Run executes every task and returns the patch. Tasks are independent: a
// task whose whole model chain fails is left proposal-less and never aborts
// its siblings. An error is returned only when the failures left the batch
// without a single proposal; partial batches come back with a nil error and
// the exhausted task IDs recorded under FailedTasks.
func (r *Runner) Run(ctx context.Context, list types.TaskList) (types.RemediationPatch, error) {
	patch := types.RemediationPatch{
		PatchID:     uuid.NewString(),
		GeneratedAt: artifacts.Now(),
		Provider:    r.provider.Name(),
		TasksTotal:  len(list.Tasks),
	}
	if len(list.Tasks) == 0 {
		return patch, nil
	}

	results := make([]*types.Proposal, len(list.Tasks))
	servedBy := make([]string, len(list.Tasks))
	taskErrs := make([]error, len(list.Tasks))
	var g errgroup.Group
	g.SetLimit(r.opts.Concurrency)

	for i, task := range list.Tasks {
		i, task := i, task
		g.Go(func() error {
			prop, model, err := r.runTask(ctx, task)
			if err != nil {
				taskErrs[i] = fmt.Errorf("task %s: %w", task.TaskID, err)
				return nil
			}
			results[i], servedBy[i] = prop, model
			return nil
		})
	}
	_ = g.Wait()

	served := make(map[string]bool)
	for i, prop := range results {
		if prop == nil {
			continue
		}
		patch.Proposals = append(patch.Proposals, *prop)
		served[servedBy[i]] = true
	}

	var failed []string
	var firstErr error
	for i, taskErr := range taskErrs {
		if taskErr == nil {
			continue
		}
		failed = append(failed, list.Tasks[i].TaskID)
		if firstErr == nil {
			firstErr = taskErr
		}
		fmt.Printf("  %v\n", taskErr)
	}

	r.mu.Lock()
	r.failed = failed
	for model := range r.modelsTried {
		patch.ModelsTried = append(patch.ModelsTried, model)
	}
	r.mu.Unlock()
	sortByChain(patch.ModelsTried, r.opts.Models)
	// ModelUsed is the earliest chain entry that actually served a
	// proposal; later entries only covered fallback gaps.
	for _, model := range r.opts.Models {
		if served[model] {
			patch.ModelUsed = model
			break
		}
	}
	if firstErr != nil && len(patch.Proposals) == 0 {
		return patch, fmt.Errorf("%d of %d tasks produced no proposal: %w",
			len(failed), len(list.Tasks), firstErr)
	}
	return patch, nil
}

// runTask walks the model chain for one task. Timeouts, provider errors and
// malformed output all fall through to the next model; the error returned
// once the chain is exhausted describes the last attempt.
func (r *Runner) runTask(ctx context.Context, task types.RemediationTask) (*types.Proposal, string, error) {
	prompt := buildPrompt(task)

	var lastErr error
	invalid := false
	for _, model := range r.opts.Models {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, "", err
		}
		r.mu.Lock()
		r.modelsTried[model] = true
		r.mu.Unlock()

		callCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
		text, err := r.provider.Complete(callCtx, model, prompt)
		cancel()
		if err != nil {
			lastErr = fmt.Errorf("model %s: %w", model, err)
			continue
		}

		prop, err := r.parseProposal(task, text)
		if err != nil {
			invalid = true
			lastErr = fmt.Errorf("model %s: %w", model, err)
			fmt.Printf("  dropping invalid proposal from %s for task %s: %v\n", model, task.TaskID, err)
			continue
		}
		return prop, model, nil
	}
	if invalid {
		r.mu.Lock()
		r.invalid = append(r.invalid, task.TaskID)
		r.mu.Unlock()
	}
	return nil, "", fmt.Errorf("all models failed: %w", lastErr)
}

// parseProposal decodes and contract-checks one model response.
func (r *Runner) parseProposal(task types.RemediationTask, text string) (*types.Proposal, error) {
	var prop types.Proposal
	if err := json.Unmarshal([]byte(text), &prop); err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}
	if err := r.validate.Struct(prop); err != nil {
		return nil, fmt.Errorf("response violates proposal contract: %w", err)
	}
	if prop.TaskID != task.TaskID {
		return nil, fmt.Errorf("response references task %q", prop.TaskID)
	}
	return &prop, nil
}

// sortByChain orders models by their position in the configured chain.
func sortByChain(models []string, chain []string) {
	pos := make(map[string]int, len(chain))
	for i, m := range chain {
		pos[m] = i
	}
	for i := 1; i < len(models); i++ {
		for j := i; j > 0 && pos[models[j]] < pos[models[j-1]]; j-- {
			models[j], models[j-1] = models[j-1], models[j]
		}
	}
}

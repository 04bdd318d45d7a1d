package payroute

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/lanternpay/payroute-go/logger"
	"github.com/lanternpay/payroute-go/metrics"
	"github.com/lanternpay/payroute-go/retry"
)

// StepState is the lifecycle state of one route step during execution.
type StepState string

const (
	StepPending    StepState = "pending"
	StepSubmitted  StepState = "submitted"
	StepConfirming StepState = "confirming"
	StepConfirmed  StepState = "confirmed"
	StepFailed     StepState = "failed"
)

// StepResult is the terminal record for one step of an executed route.
type StepResult struct {
	Index  int       `json:"index"`
	Type   StepType  `json:"type"`
	State  StepState `json:"state"`
	TxHash string    `json:"txHash,omitempty"`
	Error  string    `json:"error,omitempty"`
}

// ExecutionResult reports how far a route's execution progressed. Confirmed
// steps have moved funds and are never rolled back, so the caller always
// sees exactly which steps completed: none, some, or all.
type ExecutionResult struct {
	// Settlement is the hash of the last confirmed transaction. Empty
	// when execution never confirmed a step.
	Settlement string `json:"settlement,omitempty"`

	// Steps holds one record per route step, in order.
	Steps []StepResult `json:"steps"`

	// CompletedSteps counts the confirmed prefix.
	CompletedSteps int `json:"completedSteps"`
}

// PayloadSigner turns a route step into a signed transaction payload. It is
// the boundary to the keyring collaborator; the engine never sees keys.
type PayloadSigner interface {
	SignStep(ctx context.Context, step RouteStep) ([]byte, error)
}

// RouteExecutor runs a route's steps strictly in order. Steps have data
// dependencies on their predecessors and are never parallelized; distinct
// RouteExecutor calls for different routes may run concurrently.
type RouteExecutor struct {
	catalog TokenCatalog
	quotes  QuoteGateway
	signer  PayloadSigner
	cfg     Config
	log     logger.Logger
	metrics metrics.Recorder
	now     func() time.Time

	mu        sync.RWMutex
	providers map[string]ProviderAdapter
}

// NewRouteExecutor builds an executor over the given collaborators.
// Provider adapters are registered per chain before use.
func NewRouteExecutor(catalog TokenCatalog, quotes QuoteGateway, signer PayloadSigner, opts ...Option) (*RouteExecutor, error) {
	if catalog == nil || quotes == nil || signer == nil {
		return nil, fmt.Errorf("payroute: executor requires catalog, quote gateway and signer")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("payroute: invalid config: %w", err)
	}
	return &RouteExecutor{
		catalog:   catalog,
		quotes:    quotes,
		signer:    signer,
		cfg:       o.cfg,
		log:       o.log,
		metrics:   o.metrics,
		now:       o.now,
		providers: make(map[string]ProviderAdapter),
	}, nil
}

// RegisterProvider installs the provider adapter for a chain.
func (e *RouteExecutor) RegisterProvider(chain string, provider ProviderAdapter) error {
	if _, err := ValidateNetwork(chain); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.providers[chain] = provider
	return nil
}

func (e *RouteExecutor) provider(chain string) (ProviderAdapter, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.providers[chain]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoProvider, chain)
	}
	return p, nil
}

// ExecuteRoute runs route.Steps in order and returns the settlement hash of
// the final confirmed transaction. On any step failure execution halts
// immediately; the returned ExecutionResult still reports every step's
// terminal state, because confirmed steps have already moved funds.
//
// Cancellation is honored between steps and before submission only: a step
// already submitted is awaited to its terminal state.
func (e *RouteExecutor) ExecuteRoute(ctx context.Context, route *PaymentRoute) (*ExecutionResult, error) {
	if route == nil || len(route.Steps) == 0 {
		return nil, NewRouteError(ErrCodeInvalidRequest, "route has no steps", ErrInvalidRequest)
	}

	result := &ExecutionResult{Steps: make([]StepResult, len(route.Steps))}
	for i, step := range route.Steps {
		result.Steps[i] = StepResult{Index: i, Type: step.Type, State: StepPending}
	}

	started := time.Now()
	for i, step := range route.Steps {
		if err := ctx.Err(); err != nil {
			result.Steps[i].State = StepFailed
			result.Steps[i].Error = ErrExecutionCancelled.Error()
			return result, NewRouteError(ErrCodeStepFailed, "execution cancelled before submission", ErrExecutionCancelled).
				WithDetail("step", fmt.Sprintf("%d", i))
		}

		if err := e.executeStep(ctx, route, i, step, &result.Steps[i]); err != nil {
			result.Steps[i].State = StepFailed
			result.Steps[i].Error = err.Error()
			e.metrics.IncCounter("step_failed", map[string]string{"chain": stepChain(route, step)})
			e.log.Error("route execution halted", map[string]any{
				"step":      i,
				"type":      string(step.Type),
				"completed": result.CompletedSteps,
				"error":     err.Error(),
			})
			return result, stepFailure(i, step, err).
				WithDetail("completedSteps", fmt.Sprintf("%d", result.CompletedSteps))
		}

		result.Steps[i].State = StepConfirmed
		result.Settlement = result.Steps[i].TxHash
		result.CompletedSteps++
		e.metrics.IncCounter("step_confirmed", map[string]string{"chain": stepChain(route, step)})
	}

	e.metrics.ObserveLatency("execution", time.Since(started), map[string]string{"chain": route.Blockchain})
	e.log.Info("route executed", map[string]any{
		"steps":      len(route.Steps),
		"settlement": result.Settlement,
		"elapsed":    time.Since(started).String(),
	})
	return result, nil
}

// executeStep drives one step through submit and confirmation, recording
// progress on res as it goes.
func (e *RouteExecutor) executeStep(ctx context.Context, route *PaymentRoute, index int, step RouteStep, res *StepResult) error {
	chain := stepChain(route, step)
	provider, err := e.provider(chain)
	if err != nil {
		return err
	}

	if step.Type == StepSwap {
		step, err = e.refreshStaleSwap(ctx, step)
		if err != nil {
			if errors.Is(err, ErrQuoteStale) {
				return NewRouteError(ErrCodeQuoteStale, "swap quote could not be refreshed", err)
			}
			return err
		}
	}

	payload, err := e.signer.SignStep(ctx, step)
	if err != nil {
		return fmt.Errorf("signing step %d: %w", index, err)
	}

	// Transient submission failures (nonce races, gas underpricing, RPC
	// hiccups) are retried under the configured bound; anything else
	// surfaces immediately.
	policy := retry.DefaultPolicy
	policy.MaxAttempts = e.cfg.MaxSubmitAttempts
	txHash, err := retry.Do(ctx, policy, isTransientSubmission, func(attempt int) (string, error) {
		if attempt > 0 {
			e.log.Warn("resubmitting step", map[string]any{"step": index, "attempt": attempt})
		}
		return provider.SendTransaction(ctx, chain, payload)
	})
	if err != nil {
		if errors.Is(err, ErrTransientSubmission) {
			return NewRouteError(ErrCodeTransientSubmission, "submission retries exhausted", err)
		}
		return err
	}
	res.State = StepSubmitted
	res.TxHash = txHash

	e.log.Debug("step submitted", map[string]any{"step": index, "chain": chain, "tx": txHash})

	res.State = StepConfirming
	if err := provider.WaitForConfirmation(ctx, chain, txHash); err != nil {
		return fmt.Errorf("confirming step %d: %w", index, err)
	}

	// Bridges keep moving after the source-chain transaction confirms;
	// completion means the bridge itself reports a terminal state.
	if step.Type == StepBridge {
		if err := e.awaitBridge(ctx, txHash); err != nil {
			return err
		}
	}
	return nil
}

// refreshStaleSwap re-quotes a swap whose quote exceeded QuoteMaxAge. The
// step is submitted with its original minimum output; if the fresh quote
// cannot clear that floor the step fails deterministically rather than
// submitting a trade the chain would revert.
func (e *RouteExecutor) refreshStaleSwap(ctx context.Context, step RouteStep) (RouteStep, error) {
	quotedAt, ok := dataInt64(step.Data, "quotedAt")
	if !ok || e.now().Sub(time.Unix(quotedAt, 0)) <= e.cfg.QuoteMaxAge {
		return step, nil
	}

	chain, _ := dataString(step.Data, "chain")
	fromRef, _ := dataString(step.Data, "fromToken")
	toRef, _ := dataString(step.Data, "toToken")
	amountStr, _ := dataString(step.Data, "amountIn")
	minStr, _ := dataString(step.Data, "minimumOutput")

	fromToken, err := e.catalog.Resolve(fromRef, chain)
	if err != nil {
		return step, fmt.Errorf("%w: %v", ErrQuoteStale, err)
	}
	toToken, err := e.catalog.Resolve(toRef, chain)
	if err != nil {
		return step, fmt.Errorf("%w: %v", ErrQuoteStale, err)
	}
	amount, ok := new(big.Int).SetString(amountStr, 10)
	if !ok {
		return step, fmt.Errorf("%w: bad amount %q", ErrQuoteStale, amountStr)
	}
	bound, ok := new(big.Int).SetString(minStr, 10)
	if !ok {
		return step, fmt.Errorf("%w: bad minimum %q", ErrQuoteStale, minStr)
	}

	quoteCtx, cancel := context.WithTimeout(ctx, e.cfg.GatewayTimeout)
	fresh, err := e.quotes.GetSwapQuote(quoteCtx, chain, fromToken, toToken, amount)
	cancel()
	if err != nil {
		return step, fmt.Errorf("%w: re-quote failed: %v", ErrQuoteStale, err)
	}
	if fresh.ExpectedOutput == nil {
		return step, fmt.Errorf("%w: re-quote returned no output", ErrQuoteStale)
	}
	minimum := slippageFloor(fresh.ExpectedOutput, e.cfg.SlippageBps)
	if minimum.Cmp(bound) < 0 {
		return step, fmt.Errorf("%w: fresh minimum %s below route bound %s",
			ErrSlippageExceeded, minimum, bound)
	}

	refreshed := RouteStep{Type: step.Type, Description: step.Description, Data: make(map[string]any, len(step.Data))}
	for k, v := range step.Data {
		refreshed.Data[k] = v
	}
	refreshed.Data["quotedAt"] = fresh.FetchedAt.Unix()
	e.log.Debug("stale swap re-quoted", map[string]any{"chain": chain, "from": fromRef, "to": toRef})
	return refreshed, nil
}

// awaitBridge polls the bridge status contract until the transfer reaches a
// terminal state or the bridge timeout elapses. Timeout is a step failure,
// not a process fault. The deadline and the poll cadence share the wall
// clock; mixing time sources here would let polling outlive the deadline.
func (e *RouteExecutor) awaitBridge(ctx context.Context, txHash string) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.BridgeTimeout)
	defer cancel()
	ticker := time.NewTicker(e.cfg.BridgePollInterval)
	defer ticker.Stop()

	for {
		statusCtx, statusCancel := context.WithTimeout(ctx, e.cfg.GatewayTimeout)
		status, err := e.quotes.GetBridgeStatus(statusCtx, txHash)
		statusCancel()
		if err == nil {
			switch status.Status {
			case BridgeStatusConfirmed:
				return nil
			case BridgeStatusFailed:
				return fmt.Errorf("%w: bridge transfer %s failed", ErrStepFailed, txHash)
			}
		} else {
			e.log.Debug("bridge status poll failed", map[string]any{"tx": txHash, "error": err.Error()})
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: bridge transfer %s not settled within %s", ErrStepFailed, txHash, e.cfg.BridgeTimeout)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// stepFailure keeps the step's specific error code when executeStep already
// assigned one, and classifies everything else as a plain step failure.
func stepFailure(index int, step RouteStep, err error) *RouteError {
	var rerr *RouteError
	if errors.As(err, &rerr) {
		return rerr
	}
	return NewRouteError(ErrCodeStepFailed, fmt.Sprintf("step %d (%s) failed", index, step.Type), err)
}

// isTransientSubmission classifies a submission error as retryable.
func isTransientSubmission(err error) bool {
	return errors.Is(err, ErrTransientSubmission)
}

// stepChain returns the chain a step executes on. Bridge steps submit on
// their source chain; other steps carry their chain in Data, defaulting to
// the route's source chain.
func stepChain(route *PaymentRoute, step RouteStep) string {
	if step.Type == StepBridge {
		if chain, ok := dataString(step.Data, "fromChain"); ok {
			return chain
		}
	}
	if chain, ok := dataString(step.Data, "chain"); ok {
		return chain
	}
	return route.Blockchain
}

func dataString(data map[string]any, key string) (string, bool) {
	if data == nil {
		return "", false
	}
	s, ok := data[key].(string)
	return s, ok
}

// dataInt64 reads an integer that may have round-tripped through JSON as a
// float64.
func dataInt64(data map[string]any, key string) (int64, bool) {
	if data == nil {
		return 0, false
	}
	switch v := data[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}

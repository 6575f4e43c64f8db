// Package resilience provides the fault tolerance building blocks used by feed retrieval
// and webhook delivery.
//
// The package supports:
//   - Retry classification and an explicit retry state machine for feed fetches
//   - Circuit breakers around webhook delivery (Discord, Slack)
//
// Usage Example:
//
//	m := retry.NewMachine(retry.DefaultPolicy())
//	for {
//	    resp, err := fetchOnce(ctx)
//	    d := m.Step(retry.ResultFrom(resp.StatusCode, err, resp.RetryAfter))
//	    if d.State != retry.StateBackoff {
//	        break
//	    }
//	    _ = sleeper.Sleep(ctx, d.Delay)
//	}
//
//	cb := circuitbreaker.New(circuitbreaker.WebhookConfig("discord"))
//	err := cb.Run(func() error { return postWebhook(ctx, batch) })
//	if circuitbreaker.IsRejection(err) {
//	    // channel is cooling down
//	}
package resilience

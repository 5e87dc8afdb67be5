// Package dispatch submits generated payloads to the job server and saves the
// resulting images.
package dispatch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"codexgen/internal/domain"
	"codexgen/internal/metrics"
	"codexgen/internal/storage"
)

// Transport is the job server collaborator.
type Transport interface {
	Submit(ctx context.Context, p domain.Payload) (string, error)
	Await(ctx context.Context, jobID string) error
	Artifacts(ctx context.Context, jobID string) ([]domain.Artifact, error)
	Fetch(ctx context.Context, a domain.Artifact) ([]byte, error)
}

// ImageStore persists downloaded artifacts.
type ImageStore interface {
	SaveImage(ctx context.Context, key string, data []byte, meta storage.Metadata) (string, error)
}

// Result describes one dispatched payload.
type Result struct {
	JobID    string
	Provider string
	Keys     []string
}

type Dispatcher struct {
	transport Transport
	store     ImageStore
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// New builds a Dispatcher. m may be nil.
func New(transport Transport, store ImageStore, m *metrics.Metrics, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		transport: transport,
		store:     store,
		metrics:   m,
		logger:    logger.With().Str("component", "dispatch").Logger(),
	}
}

// Run processes payloads one at a time, in order. It stops at the first
// failure and returns the results collected so far with the error.
func (d *Dispatcher) Run(ctx context.Context, payloads []domain.Payload) ([]Result, error) {
	results := make([]Result, 0, len(payloads))
	for i, p := range payloads {
		res, err := d.dispatchOne(ctx, p)
		d.metrics.ObserveDispatch(err)
		if err != nil {
			d.logger.Error().Err(err).Int("index", i).Str("provider", p.ServiceOptions.Provider).Msg("dispatch: job failed")
			// Images saved before the failure are on disk; report them too.
			if len(res.Keys) > 0 {
				results = append(results, res)
			}
			return results, fmt.Errorf("dispatch payload %d: %w", i, err)
		}
		results = append(results, res)
	}
	d.logger.Info().Int("jobs", len(results)).Msg("dispatch: all jobs completed")
	return results, nil
}

func (d *Dispatcher) dispatchOne(ctx context.Context, p domain.Payload) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	jobID, err := d.transport.Submit(ctx, p)
	if err != nil {
		return Result{}, fmt.Errorf("submit: %w", err)
	}
	res := Result{JobID: jobID, Provider: p.ServiceOptions.Provider}
	if err := d.transport.Await(ctx, jobID); err != nil {
		return res, fmt.Errorf("await %s: %w", jobID, err)
	}
	artifacts, err := d.transport.Artifacts(ctx, jobID)
	if err != nil {
		return res, fmt.Errorf("artifacts %s: %w", jobID, err)
	}
	for _, a := range artifacts {
		data, err := d.transport.Fetch(ctx, a)
		if err != nil {
			return res, fmt.Errorf("fetch %s: %w", a.Filename, err)
		}
		key, err := d.store.SaveImage(ctx, a.Key(), data, storage.Metadata{
			JobID:    jobID,
			Prompt:   p.Prompt,
			Provider: p.ServiceOptions.Provider,
			Additional: map[string]string{
				"node":      a.Node,
				"subfolder": a.Subfolder,
			},
		})
		if err != nil {
			return res, fmt.Errorf("save %s: %w", a.Filename, err)
		}
		d.metrics.ObserveImageSaved()
		res.Keys = append(res.Keys, key)
		d.logger.Debug().Str("job_id", jobID).Str("key", key).Msg("dispatch: image saved")
	}
	return res, nil
}

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codexgen/internal/domain"
	"codexgen/internal/metrics"
	"codexgen/internal/storage"
)

type fakeTransport struct {
	submitted []string
	failAwait string
	// failFetch adds a second artifact per job whose download fails.
	failFetch bool
}

func (f *fakeTransport) Submit(ctx context.Context, p domain.Payload) (string, error) {
	f.submitted = append(f.submitted, p.Prompt)
	return fmt.Sprintf("job-%d", len(f.submitted)), nil
}

func (f *fakeTransport) Await(ctx context.Context, jobID string) error {
	if jobID == f.failAwait {
		return errors.New("socket closed")
	}
	return nil
}

func (f *fakeTransport) Artifacts(ctx context.Context, jobID string) ([]domain.Artifact, error) {
	arts := []domain.Artifact{{Node: "9", Filename: jobID + ".png", Type: "output"}}
	if f.failFetch {
		arts = append(arts, domain.Artifact{Node: "10", Filename: jobID + "-b.png", Type: "output"})
	}
	return arts, nil
}

func (f *fakeTransport) Fetch(ctx context.Context, a domain.Artifact) ([]byte, error) {
	if f.failFetch && strings.HasSuffix(a.Filename, "-b.png") {
		return nil, errors.New("view: 500")
	}
	return []byte("img:" + a.Filename), nil
}

func payload(prompt string) domain.Payload {
	return domain.Payload{Prompt: prompt, ServiceOptions: domain.ServiceOptions{Provider: "leonardo"}}
}

func TestRunSavesEveryArtifact(t *testing.T) {
	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	m := metrics.New()
	d := New(&fakeTransport{}, store, m, zerolog.Nop())

	results, err := d.Run(context.Background(), []domain.Payload{payload("one"), payload("two")})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, []string{"job-2.png.output"}, results[1].Keys)

	meta, err := store.ReadMetadata("job-1.png.output")
	require.NoError(t, err)
	assert.Equal(t, "job-1", meta.JobID)
	assert.Equal(t, "one", meta.Prompt)
	assert.Equal(t, "leonardo", meta.Provider)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.JobsDispatched.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ImagesSaved))
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	tr := &fakeTransport{failAwait: "job-2"}
	d := New(tr, store, nil, zerolog.Nop())

	results, err := d.Run(context.Background(), []domain.Payload{payload("one"), payload("two"), payload("three")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dispatch payload 1")
	assert.Len(t, results, 1)
	assert.Equal(t, []string{"one", "two"}, tr.submitted)
}

func TestRunCancelled(t *testing.T) {
	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = New(&fakeTransport{}, store, nil, zerolog.Nop()).Run(ctx, []domain.Payload{payload("one")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunKeepsImagesSavedBeforeFailure(t *testing.T) {
	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	d := New(&fakeTransport{failFetch: true}, store, nil, zerolog.Nop())

	results, err := d.Run(context.Background(), []domain.Payload{payload("one"), payload("two")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dispatch payload 0")
	require.Len(t, results, 1)
	assert.Equal(t, "job-1", results[0].JobID)
	assert.Equal(t, []string{"job-1.png.output"}, results[0].Keys)

	_, err = store.ReadMetadata("job-1.png.output")
	assert.NoError(t, err)
}

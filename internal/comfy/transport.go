package comfy

import (
	"context"

	"codexgen/internal/domain"
)

// Transport adapts a Client to the dispatcher: every payload prompt is
// written into the workflow's text node before queueing.
type Transport struct {
	client     *Client
	workflow   Workflow
	promptNode string
}

func NewTransport(client *Client, workflow Workflow, promptNode string) *Transport {
	return &Transport{client: client, workflow: workflow, promptNode: promptNode}
}

func (t *Transport) Submit(ctx context.Context, p domain.Payload) (string, error) {
	if err := t.client.Connect(ctx); err != nil {
		return "", err
	}
	wf, err := t.workflow.WithPrompt(t.promptNode, p.Prompt)
	if err != nil {
		return "", err
	}
	return t.client.QueuePrompt(ctx, wf)
}

func (t *Transport) Await(ctx context.Context, jobID string) error {
	return t.client.Wait(ctx, jobID)
}

func (t *Transport) Artifacts(ctx context.Context, jobID string) ([]domain.Artifact, error) {
	return t.client.History(ctx, jobID)
}

func (t *Transport) Fetch(ctx context.Context, a domain.Artifact) ([]byte, error) {
	return t.client.View(ctx, a)
}

// Close releases the event stream.
func (t *Transport) Close() error {
	return t.client.Close()
}

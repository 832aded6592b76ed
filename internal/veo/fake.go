package veo

import (
	"context"
	"fmt"
	"sync"
)

// FakeService is a scripted Service for tests. Each Poll returns the next
// entry of Polls; once exhausted the last entry is repeated.
type FakeService struct {
	mu sync.Mutex

	SubmitOp  *Operation
	SubmitErr error
	Polls     []*Operation
	PollErr   error

	// Recorded calls.
	SubmitParams      []SubmitParams
	SubmitCredentials []string
	PollCredentials   []string
	PollNames         []string
}

var _ Service = (*FakeService)(nil)

func (f *FakeService) Submit(_ context.Context, credential string, params SubmitParams) (*Operation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SubmitParams = append(f.SubmitParams, params)
	f.SubmitCredentials = append(f.SubmitCredentials, credential)
	if f.SubmitErr != nil {
		return nil, f.SubmitErr
	}
	if f.SubmitOp == nil {
		return &Operation{Name: "operations/fake"}, nil
	}
	op := *f.SubmitOp
	return &op, nil
}

func (f *FakeService) Poll(_ context.Context, credential string, op *Operation) (*Operation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PollCredentials = append(f.PollCredentials, credential)
	if op != nil {
		f.PollNames = append(f.PollNames, op.Name)
	}
	if f.PollErr != nil {
		return nil, f.PollErr
	}
	if len(f.Polls) == 0 {
		return nil, fmt.Errorf("fake: no poll responses scripted")
	}
	i := len(f.PollCredentials) - 1
	if i >= len(f.Polls) {
		i = len(f.Polls) - 1
	}
	next := *f.Polls[i]
	return &next, nil
}

func (f *FakeService) PollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.PollCredentials)
}

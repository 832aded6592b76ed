package veo

import "context"

// Service is the remote video-generation API. The credential is passed on
// every call so implementations never hold one between calls.
type Service interface {
	Submit(ctx context.Context, credential string, params SubmitParams) (*Operation, error)
	Poll(ctx context.Context, credential string, op *Operation) (*Operation, error)
}

// CredentialSource yields the credential to use for the next remote call.
type CredentialSource interface {
	Credential(ctx context.Context) (string, error)
}

// CredentialFunc adapts a function to CredentialSource.
type CredentialFunc func(ctx context.Context) (string, error)

func (f CredentialFunc) Credential(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticCredential always returns key. Intended for tests and one-shot tools.
func StaticCredential(key string) CredentialSource {
	return CredentialFunc(func(context.Context) (string, error) {
		return key, nil
	})
}

package reconciler

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"gitlab.bluewillows.net/root/porkddns/providers/porkbun"
)

// mockResolver returns a fixed IP or error.
type mockResolver struct {
	ip    string
	err   error
	calls int
}

func (m *mockResolver) Resolve(_ context.Context) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.ip, nil
}

// updateCall records one UpdateARecord invocation.
type updateCall struct {
	site      string
	subdomain string
	body      porkbun.UpdateRequestBody
}

// mockDNSClient records calls and returns configured outcomes.
type mockDNSClient struct {
	mu sync.Mutex

	subdomains []string
	listErr    error

	rootOutcome porkbun.Outcome
	rootErr     error

	// subErrs maps a subdomain to the error its update returns.
	subErrs map[string]error

	listCalls   int
	updateCalls []updateCall
}

func (m *mockDNSClient) ListARecordSubdomains(_ context.Context, _ string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]string(nil), m.subdomains...), nil
}

func (m *mockDNSClient) UpdateARecord(_ context.Context, site, subdomain string, body porkbun.UpdateRequestBody) (porkbun.Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls = append(m.updateCalls, updateCall{site: site, subdomain: subdomain, body: body})
	if subdomain == "" {
		return m.rootOutcome, m.rootErr
	}
	if err := m.subErrs[subdomain]; err != nil {
		return porkbun.OutcomeUnchanged, err
	}
	return porkbun.OutcomeUpdated, nil
}

func (m *mockDNSClient) calls() []updateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]updateCall(nil), m.updateCalls...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testCreds = porkbun.Credentials{SecretAPIKey: "sk1_test", APIKey: "pk1_test"}

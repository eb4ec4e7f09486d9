package services

import (
	"context"
	"sync"

	"github.com/dust-tt/connectors-go/internal/core/domain"
	"github.com/dust-tt/connectors-go/internal/core/ports/driven"
)

// --- Shared mock implementations for service tests ---

// mockProviderClient implements driven.ProviderClient.
type mockProviderClient struct {
	mu sync.Mutex

	// pages maps cursor -> page. "" is the first page.
	pages map[string]*driven.ResourcePage
	// resources maps externalID -> resource for GetResource.
	resources map[string]driven.ProviderResource
	// content maps externalID -> body for FetchContent.
	content map[string]string
	// userEmails maps userID -> email for GetUserEmail.
	userEmails map[string]string

	listErr     error
	listCursors []string
	joinErr     error
	joined      []string
	posted      []postedMessage
	postErr     error
	teamID      string
	teamName    string
	validateErr error
	revoked     bool
	revokeErr   error
}

type postedMessage struct {
	channelID string
	threadTS  string
	text      string
}

func (m *mockProviderClient) ListResources(_ context.Context, cursor string) (*driven.ResourcePage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCursors = append(m.listCursors, cursor)
	if m.listErr != nil {
		return nil, m.listErr
	}
	page, ok := m.pages[cursor]
	if !ok {
		return &driven.ResourcePage{}, nil
	}
	return page, nil
}

func (m *mockProviderClient) GetResource(_ context.Context, externalID string) (*driven.ProviderResource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.resources[externalID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &res, nil
}

func (m *mockProviderClient) FetchContent(_ context.Context, externalID string, _ int64) (*driven.ResourceContent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &driven.ResourceContent{
		ExternalID: externalID,
		Title:      externalID,
		Body:       m.content[externalID],
	}, nil
}

func (m *mockProviderClient) JoinResource(_ context.Context, externalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.joinErr != nil {
		return m.joinErr
	}
	m.joined = append(m.joined, externalID)
	return nil
}

func (m *mockProviderClient) PostMessage(_ context.Context, channelID, threadTS, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.postErr != nil {
		return m.postErr
	}
	m.posted = append(m.posted, postedMessage{channelID, threadTS, text})
	return nil
}

func (m *mockProviderClient) GetUserEmail(_ context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email, ok := m.userEmails[userID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return email, nil
}

func (m *mockProviderClient) ValidateAuth(context.Context) (string, string, error) {
	if m.validateErr != nil {
		return "", "", m.validateErr
	}
	return m.teamID, m.teamName, nil
}

func (m *mockProviderClient) RevokeAuth(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.revokeErr != nil {
		return m.revokeErr
	}
	m.revoked = true
	return nil
}

// mockProviderFactory implements driven.ProviderFactory.
type mockProviderFactory struct {
	client    *mockProviderClient
	createErr error
}

func (f *mockProviderFactory) Client(context.Context, *domain.Connector) (driven.ProviderClient, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.client, nil
}

// mockSearchIndex implements driven.SearchIndex.
type mockSearchIndex struct {
	mu        sync.Mutex
	docs      map[string]driven.IndexDocument // keyed by documentID
	upsertErr error
	deleteErr error
	deleted   []string
}

func newMockSearchIndex() *mockSearchIndex {
	return &mockSearchIndex{docs: make(map[string]driven.IndexDocument)}
}

func (m *mockSearchIndex) UpsertDocument(_ context.Context, _ string, doc driven.IndexDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.docs[doc.DocumentID] = doc
	return nil
}

func (m *mockSearchIndex) DeleteDocument(_ context.Context, _ string, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.docs, documentID)
	m.deleted = append(m.deleted, documentID)
	return nil
}

func (m *mockSearchIndex) has(documentID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.docs[documentID]
	return ok
}

// mockQueue implements driven.WorkflowQueue, recording enqueues.
type mockQueue struct {
	mu        sync.Mutex
	syncs     []queuedSync
	gcs       []string
	teardowns []string
	replies   []queuedReply
}

type queuedSync struct {
	connectorID string
	scope       []string
}

type queuedReply struct {
	connectorID  string
	botMessageID string
}

func (q *mockQueue) EnqueueSync(_ context.Context, connectorID string, scope []string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.syncs = append(q.syncs, queuedSync{connectorID, scope})
	return nil
}

func (q *mockQueue) EnqueueGC(_ context.Context, connectorID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.gcs = append(q.gcs, connectorID)
	return nil
}

func (q *mockQueue) EnqueueTeardown(_ context.Context, connectorID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.teardowns = append(q.teardowns, connectorID)
	return nil
}

func (q *mockQueue) EnqueueBotReply(_ context.Context, connectorID, botMessageID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.replies = append(q.replies, queuedReply{connectorID, botMessageID})
	return nil
}

// mockBroker implements driven.CredentialBroker.
type mockBroker struct {
	mu        sync.Mutex
	token     string
	tokenErr  error
	revoked   []string
	revokeErr error
}

func (b *mockBroker) AccessToken(_ context.Context, _ string) (string, error) {
	if b.tokenErr != nil {
		return "", b.tokenErr
	}
	return b.token, nil
}

func (b *mockBroker) Revoke(_ context.Context, connectionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.revokeErr != nil {
		return b.revokeErr
	}
	b.revoked = append(b.revoked, connectionID)
	return nil
}

// mockAssistant implements driven.AssistantClient.
type mockAssistant struct {
	mu        sync.Mutex
	answer    string
	answerErr error
	calls     []string // messages received
}

func (a *mockAssistant) Answer(_ context.Context, _, conversationID, message string) (*driven.AssistantAnswer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.answerErr != nil {
		return nil, a.answerErr
	}
	a.calls = append(a.calls, message)
	convID := conversationID
	if convID == "" {
		convID = "conv-1"
	}
	return &driven.AssistantAnswer{ConversationID: convID, Text: a.answer}, nil
}

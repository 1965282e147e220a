package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/postimport/internal/domain/model"
	"github.com/ericfisherdev/postimport/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockPostSource struct {
	posts []model.Post
	err   error // Returned once posts are exhausted instead of io.EOF, when set.
	reads int
}

func (m *mockPostSource) Next(_ context.Context) (model.Post, error) {
	if m.reads < len(m.posts) {
		post := m.posts[m.reads]
		m.reads++
		return post, nil
	}
	m.reads++
	if m.err != nil {
		return model.Post{}, m.err
	}
	return model.Post{}, io.EOF
}

type createCall struct {
	token   string
	content string
}

// mockPostWriter returns errs[n] for the n-th call (1-indexed). When out is
// set, the progress written so far is captured at each call.
type mockPostWriter struct {
	calls    []createCall
	errs     map[int]error
	out      *bytes.Buffer
	progress []string
}

func (m *mockPostWriter) CreatePost(_ context.Context, token, content string) error {
	m.calls = append(m.calls, createCall{token: token, content: content})
	if m.out != nil {
		m.progress = append(m.progress, m.out.String())
	}
	return m.errs[len(m.calls)]
}

type mockHistoryStore struct {
	runs        []model.ImportRun
	submissions []model.Submission
	finished    []finishCall
	startErr    error
	recordErr   error
}

type finishCall struct {
	id        string
	status    model.RunStatus
	submitted int
	errText   string
}

func (m *mockHistoryStore) StartRun(_ context.Context, run model.ImportRun) error {
	if m.startErr != nil {
		return m.startErr
	}
	m.runs = append(m.runs, run)
	return nil
}

func (m *mockHistoryStore) RecordSubmission(_ context.Context, sub model.Submission) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	m.submissions = append(m.submissions, sub)
	return nil
}

func (m *mockHistoryStore) FinishRun(_ context.Context, id string, status model.RunStatus, submitted int, errText string) error {
	m.finished = append(m.finished, finishCall{id: id, status: status, submitted: submitted, errText: errText})
	return nil
}

func (m *mockHistoryStore) GetRun(_ context.Context, _ string) (*model.ImportRun, error) {
	return nil, nil
}

func (m *mockHistoryStore) ListRuns(_ context.Context, _ int) ([]model.ImportRun, error) {
	return m.runs, nil
}

func (m *mockHistoryStore) ListSubmissions(_ context.Context, _ string) ([]model.Submission, error) {
	return m.submissions, nil
}

// --- Helpers ---

func postsOf(contents ...string) []model.Post {
	posts := make([]model.Post, len(contents))
	for i, c := range contents {
		posts[i] = model.Post{Row: i + 1, Content: c}
	}
	return posts
}

func newTestService(writer driven.PostWriter, history driven.HistoryStore, out io.Writer) *ImportService {
	svc := NewImportService(writer, history, out)
	svc.newID = func() string { return "run-1" }
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return svc
}

// --- Tests ---

func TestRun_AllCreated(t *testing.T) {
	var out bytes.Buffer
	writer := &mockPostWriter{}
	source := &mockPostSource{posts: postsOf("first", "second", "third")}

	result, err := newTestService(writer, nil, &out).Run(context.Background(), ImportRequest{
		Source: source, SourcePath: "posts.csv", Token: "abc",
	})

	require.NoError(t, err)
	assert.Equal(t, 3, result.Submitted)
	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, []createCall{
		{token: "abc", content: "first"},
		{token: "abc", content: "second"},
		{token: "abc", content: "third"},
	}, writer.calls)
	assert.Equal(t, "Inserting post: first\nInserting post: second\nInserting post: third\n", out.String())
}

func TestRun_ProgressPrintedBeforeSubmit(t *testing.T) {
	var out bytes.Buffer
	writer := &mockPostWriter{out: &out}
	source := &mockPostSource{posts: postsOf("hello", "world")}

	_, err := newTestService(writer, nil, &out).Run(context.Background(), ImportRequest{Source: source, Token: "abc"})

	require.NoError(t, err)
	require.Len(t, writer.progress, 2)
	assert.Equal(t, "Inserting post: hello\n", writer.progress[0])
	assert.Equal(t, "Inserting post: hello\nInserting post: world\n", writer.progress[1])
}

func TestRun_EmptySource(t *testing.T) {
	var out bytes.Buffer
	writer := &mockPostWriter{}

	result, err := newTestService(writer, nil, &out).Run(context.Background(), ImportRequest{
		Source: &mockPostSource{}, Token: "abc",
	})

	require.NoError(t, err)
	assert.Equal(t, 0, result.Submitted)
	assert.Empty(t, writer.calls)
	assert.Empty(t, out.String())
}

func TestRun_StopsAtFirstFailure(t *testing.T) {
	for k := 1; k <= 4; k++ {
		t.Run(fmt.Sprintf("fail at row %d", k), func(t *testing.T) {
			statusErr := &driven.UnexpectedStatusError{StatusCode: 500, Body: "boom"}
			writer := &mockPostWriter{errs: map[int]error{k: statusErr}}
			source := &mockPostSource{posts: postsOf("a", "b", "c", "d")}

			result, err := newTestService(writer, nil, io.Discard).Run(context.Background(), ImportRequest{
				Source: source, Token: "abc",
			})

			assert.Nil(t, result)
			assert.ErrorIs(t, err, statusErr)
			assert.Len(t, writer.calls, k)
			assert.Equal(t, k, source.reads, "no rows after the failing one are read")
		})
	}
}

func TestRun_SecondPostRejected(t *testing.T) {
	var out bytes.Buffer
	writer := &mockPostWriter{errs: map[int]error{
		2: &driven.UnexpectedStatusError{StatusCode: 500, Body: "server exploded"},
	}}
	source := &mockPostSource{posts: postsOf("hello", "world")}

	_, err := newTestService(writer, nil, &out).Run(context.Background(), ImportRequest{Source: source, Token: "abc"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "server exploded")
	assert.Equal(t, "Inserting post: hello\nInserting post: world\n", out.String())
	assert.Len(t, writer.calls, 2)
}

func TestRun_SourceError(t *testing.T) {
	var out bytes.Buffer
	writer := &mockPostWriter{}
	rowErr := fmt.Errorf("row 2: %w", driven.ErrMissingContent)
	source := &mockPostSource{posts: postsOf("hello"), err: rowErr}

	_, err := newTestService(writer, nil, &out).Run(context.Background(), ImportRequest{Source: source, Token: "abc"})

	require.Error(t, err)
	assert.ErrorIs(t, err, driven.ErrMissingContent)
	assert.Len(t, writer.calls, 1, "no request is sent for the bad row")
	assert.Equal(t, "Inserting post: hello\n", out.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("stdout closed")
}

func TestRun_ProgressWriteError(t *testing.T) {
	writer := &mockPostWriter{}
	source := &mockPostSource{posts: postsOf("hello")}

	_, err := newTestService(writer, nil, failingWriter{}).Run(context.Background(), ImportRequest{Source: source, Token: "abc"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "writing progress")
	assert.Empty(t, writer.calls)
}

func TestRun_History_Success(t *testing.T) {
	history := &mockHistoryStore{}
	writer := &mockPostWriter{}
	source := &mockPostSource{posts: postsOf("hello", "world")}

	_, err := newTestService(writer, history, io.Discard).Run(context.Background(), ImportRequest{
		Source: source, SourcePath: "posts.csv", Token: "abc",
	})

	require.NoError(t, err)
	require.Len(t, history.runs, 1)
	assert.Equal(t, "run-1", history.runs[0].ID)
	assert.Equal(t, "posts.csv", history.runs[0].SourcePath)
	assert.Equal(t, model.RunStatusRunning, history.runs[0].Status)

	require.Len(t, history.submissions, 2)
	for i, sub := range history.submissions {
		assert.Equal(t, i+1, sub.Row)
		assert.Equal(t, 201, sub.StatusCode)
		assert.Equal(t, model.SubmissionCreated, sub.Outcome)
	}

	require.Len(t, history.finished, 1)
	assert.Equal(t, finishCall{id: "run-1", status: model.RunStatusSucceeded, submitted: 2}, history.finished[0])
}

func TestRun_History_Rejected(t *testing.T) {
	history := &mockHistoryStore{}
	writer := &mockPostWriter{errs: map[int]error{
		2: &driven.UnexpectedStatusError{StatusCode: 401, Body: "unauthorized"},
	}}
	source := &mockPostSource{posts: postsOf("hello", "world", "never")}

	_, err := newTestService(writer, history, io.Discard).Run(context.Background(), ImportRequest{Source: source, Token: "abc"})

	require.Error(t, err)
	require.Len(t, history.submissions, 2)
	assert.Equal(t, 401, history.submissions[1].StatusCode)
	assert.Equal(t, model.SubmissionRejected, history.submissions[1].Outcome)

	require.Len(t, history.finished, 1)
	assert.Equal(t, model.RunStatusFailed, history.finished[0].status)
	assert.Equal(t, 1, history.finished[0].submitted)
	assert.Equal(t, "failed to insert post: 401 - unauthorized", history.finished[0].errText)
}

func TestRun_History_TransportError(t *testing.T) {
	history := &mockHistoryStore{}
	writer := &mockPostWriter{errs: map[int]error{1: errors.New("connection refused")}}
	source := &mockPostSource{posts: postsOf("hello")}

	_, err := newTestService(writer, history, io.Discard).Run(context.Background(), ImportRequest{Source: source, Token: "abc"})

	require.Error(t, err)
	require.Len(t, history.submissions, 1)
	assert.Equal(t, 0, history.submissions[0].StatusCode)
	assert.Equal(t, model.SubmissionTransportError, history.submissions[0].Outcome)
}

func TestRun_History_StartFailureDoesNotAbort(t *testing.T) {
	history := &mockHistoryStore{startErr: errors.New("disk full")}
	writer := &mockPostWriter{}
	source := &mockPostSource{posts: postsOf("hello", "world")}

	result, err := newTestService(writer, history, io.Discard).Run(context.Background(), ImportRequest{Source: source, Token: "abc"})

	require.NoError(t, err)
	assert.Equal(t, 2, result.Submitted)
	assert.Empty(t, history.submissions)
	assert.Empty(t, history.finished, "ledger is disabled after StartRun fails")
}

func TestRun_History_RecordFailureDoesNotAbort(t *testing.T) {
	history := &mockHistoryStore{recordErr: errors.New("database is locked")}
	writer := &mockPostWriter{}
	source := &mockPostSource{posts: postsOf("hello", "world")}

	result, err := newTestService(writer, history, io.Discard).Run(context.Background(), ImportRequest{Source: source, Token: "abc"})

	require.NoError(t, err)
	assert.Equal(t, 2, result.Submitted)
	assert.Len(t, writer.calls, 2)
	require.Len(t, history.finished, 1)
	assert.Equal(t, model.RunStatusSucceeded, history.finished[0].status)
}

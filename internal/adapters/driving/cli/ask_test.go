package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/persona-cli/internal/core/domain"
)

func TestAskCmd_Use(t *testing.T) {
	assert.Equal(t, "ask [question...]", askCmd.Use)
}

func TestAskCmd_RequiresQuestion(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := runCommand("ask")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestAskCmd_JoinsArgsIntoQuestion(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := runCommand("ask", "what", "is", "your", "latest", "post?")

	require.NoError(t, err)
	assert.Contains(t, out, "My most recent post was about LPUs.")
	assert.Equal(t, "what is your latest post?", ts.answers.gotQuestion)
	assert.Equal(t, "", ts.answers.gotIdentity)
}

func TestAskCmd_AsFlag(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := runCommand("ask", "--as", "@jack", "hello")

	require.NoError(t, err)
	assert.Equal(t, "@jack", ts.answers.gotIdentity)
}

func TestAskCmd_JSONOutput(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.answers.answer = &domain.Answer{Text: "hi", Path: domain.AnswerPathGenerated, GroundedInDocs: true}

	out, err := runCommand("ask", "--json", "hello")

	require.NoError(t, err)
	assert.Contains(t, out, `"text": "hi"`)
	assert.Contains(t, out, `"path": "generated"`)
	assert.Contains(t, out, `"groundedInDocs": true`)
}

func TestAskCmd_VerboseShowsPath(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := runCommand("ask", "-v", "hello")

	require.NoError(t, err)
	assert.Contains(t, out, "(path: direct, grounded in docs: false)")
}

func TestAskCmd_AnswerError(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.answers.err = domain.ErrUpstreamUnavailable

	_, err := runCommand("ask", "hello")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestAskCmd_BlankQuestion(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := runCommand("ask", "   ")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "question is empty")
}

func TestAskCmd_ServiceNotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	answerService = nil

	_, err := runCommand("ask", "hello")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "answer service not configured")
}

func TestAskCmd_WrapsError(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.answers.err = errors.New("boom")

	_, err := runCommand("ask", "hello")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "answer failed: boom")
}

package translate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/khakasnews/internal/logger"
)

type fakeCompleter struct {
	reply    string
	err      error
	panicMsg string
	got      [][]Message
}

func (f *fakeCompleter) Complete(_ context.Context, messages []Message) (string, error) {
	f.got = append(f.got, messages)
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.reply, f.err
}

func TestTransform_TranslateSendsSystemThenUser(t *testing.T) {
	fc := &fakeCompleter{reply: "  Привет, мир.\n"}
	tr := NewTransformer(fc, nil, logger.Discard())

	res := tr.Transform(context.Background(), RoleTranslate, "Изеннер")
	require.False(t, res.Failed())
	assert.Equal(t, "Привет, мир.", res.Text)
	assert.Equal(t, res.Text, res.Message())

	require.Len(t, fc.got, 1)
	msgs := fc.got[0]
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, DefaultPrompts()[RoleTranslate].System, msgs[0].Content)
	assert.Equal(t, "user", msgs[1].Role)
	assert.True(t, strings.HasSuffix(msgs[1].Content, "Изеннер"))
}

func TestTransform_RewriteUsesItsOwnPrompt(t *testing.T) {
	fc := &fakeCompleter{reply: "rewritten"}
	tr := NewTransformer(fc, nil, logger.Discard())

	res := tr.Transform(context.Background(), RoleRewrite, "text")
	require.False(t, res.Failed())
	assert.Equal(t, DefaultPrompts()[RoleRewrite].System, fc.got[0][0].Content)
}

func TestTransform_ChatSendsUserOnly(t *testing.T) {
	fc := &fakeCompleter{reply: "answer"}
	tr := NewTransformer(fc, nil, logger.Discard())

	res := tr.Transform(context.Background(), RoleChat, "question?")
	require.False(t, res.Failed())
	require.Len(t, fc.got[0], 1)
	assert.Equal(t, Message{Role: "user", Content: "question?"}, fc.got[0][0])
}

func TestTransform_FailureCarriesCause(t *testing.T) {
	fc := &fakeCompleter{err: errors.New("connection refused")}
	tr := NewTransformer(fc, nil, logger.Discard())

	res := tr.Transform(context.Background(), RoleTranslate, "text")
	require.True(t, res.Failed())
	assert.Empty(t, res.Text)
	assert.True(t, strings.HasPrefix(res.Message(), ErrorPrefix))
	assert.Contains(t, res.Message(), "connection refused")
}

func TestTransform_BlankReplyIsFailure(t *testing.T) {
	fc := &fakeCompleter{reply: " \n\t"}
	tr := NewTransformer(fc, nil, logger.Discard())

	res := tr.Transform(context.Background(), RoleRewrite, "text")
	require.True(t, res.Failed())
	assert.ErrorIs(t, res.Cause, ErrEmptyCompletion)
}

func TestTransform_PanicIsContained(t *testing.T) {
	fc := &fakeCompleter{panicMsg: "boom"}
	tr := NewTransformer(fc, nil, logger.Discard())

	res := tr.Transform(context.Background(), RoleTranslate, "text")
	require.True(t, res.Failed())
	assert.Contains(t, res.Message(), "boom")
}

func TestTransform_UnknownRoleAndMissingBackend(t *testing.T) {
	res := NewTransformer(&fakeCompleter{reply: "x"}, map[Role]Prompt{}, logger.Discard()).
		Transform(context.Background(), RoleTranslate, "text")
	assert.True(t, res.Failed())

	res = NewTransformer(nil, nil, logger.Discard()).Transform(context.Background(), RoleTranslate, "text")
	assert.True(t, res.Failed())
}

func TestResult_MarkerInTextIsNotAFailure(t *testing.T) {
	res := Result{Text: "В статье цитируется: " + ErrorPrefix + "timeout"}
	assert.False(t, res.Failed())
}

package volc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scriptwizard/internal/apperr"
	"scriptwizard/internal/genclient"
)

type fakeChatModel struct {
	reply string
	err   error
	wait  bool
	got   []*schema.Message
}

func (m *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.got = input
	if m.wait {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func scriptRequest() genclient.ScriptRequest {
	return genclient.ScriptRequest{
		Brand:       "晨光咖啡",
		Topic:       "冷萃新品",
		VideoType:   "一镜到底",
		Platform:    "抖音",
		AspectRatio: "9:16",
		VisualStyle: "realistic-photo",
		Tone:        "亲切自然",
	}
}

func TestScriptWriter_RendersPromptAndReturnsContent(t *testing.T) {
	cm := &fakeChatModel{reply: "  场景1：晨光洒进咖啡馆\n"}
	w, err := NewScriptWriter(context.Background(), cm)
	require.NoError(t, err)

	script, err := w.GenerateScript(context.Background(), scriptRequest())
	require.NoError(t, err)
	assert.Equal(t, "场景1：晨光洒进咖啡馆", script)

	require.Len(t, cm.got, 2)
	assert.Equal(t, schema.System, cm.got[0].Role)
	assert.Equal(t, schema.User, cm.got[1].Role)
	assert.Contains(t, cm.got[1].Content, "品牌：晨光咖啡")
	assert.Contains(t, cm.got[1].Content, "画面比例：9:16")
	assert.Contains(t, cm.got[1].Content, "语气：亲切自然")
}

func TestScriptWriter_MissingFields(t *testing.T) {
	cm := &fakeChatModel{reply: "unused"}
	w, err := NewScriptWriter(context.Background(), cm)
	require.NoError(t, err)

	req := scriptRequest()
	req.Brand = ""
	_, err = w.GenerateScript(context.Background(), req)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.Nil(t, cm.got)
}

func TestScriptWriter_Errors(t *testing.T) {
	ctx := context.Background()

	w, err := NewScriptWriter(ctx, &fakeChatModel{reply: "   "})
	require.NoError(t, err)
	_, err = w.GenerateScript(ctx, scriptRequest())
	assert.True(t, errors.Is(err, apperr.ErrUpstreamShape))

	w, err = NewScriptWriter(ctx, &fakeChatModel{err: errors.New("rate limited")})
	require.NoError(t, err)
	_, err = w.GenerateScript(ctx, scriptRequest())
	assert.True(t, errors.Is(err, apperr.ErrUpstream))

	w, err = NewScriptWriter(ctx, &fakeChatModel{wait: true})
	require.NoError(t, err)
	tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = w.GenerateScript(tctx, scriptRequest())
	assert.True(t, errors.Is(err, apperr.ErrUpstreamTimeout))
}

func TestNewArkScriptWriter_RequiresModel(t *testing.T) {
	_, err := NewArkScriptWriter(context.Background(), "key", "", time.Second)
	assert.Error(t, err)
}

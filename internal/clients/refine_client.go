/**
 * Refine Client - LLM-backed transcript cleanup
 *
 * Sends the tagged OCR dump to an OpenAI-compatible chat completion
 * endpoint and parses the structured result. The model re-orders images
 * given out of sequence, drops duplicated messages from overlapping
 * screenshots, and resolves the partner name when the title band missed it.
 *
 * Callers treat every failure here as non-fatal: the heuristic transcript
 * is always available as a fallback.
 */

package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/chatlens/transcript-worker/internal/errors"
	"github.com/chatlens/transcript-worker/internal/logging"
)

const refineSystemPrompt = `你是一个专业的聊天记录整理助手。你的任务是将 OCR 识别的微信聊天截图文本整理成标准格式的对话。

你需要：
1. 识别对话双方：一方是"我"，另一方是聊天对方（从截图顶部标题或对话内容推断对方名称）
2. 按时间顺序重新整理对话：图片可能不是按时间顺序给的，你需要根据对话的逻辑关系判断正确顺序
3. 去除重复内容：同一条消息可能在多张截图中出现
4. 过滤无关内容：移除 UI 元素、系统提示、时间戳等非对话内容
5. 合并被截断的消息：如果一条消息被分成多行，合并成完整的一条

输出格式要求（JSON）：
{
    "other_name": "对方名称",
    "conversation": "整理后的对话文本"
}

注意：
- 每条消息格式为 "说话人：消息内容"
- 说话人只能是"我"或对方的名称
- 对话内容要保持原意，不要修改或补充
- 如果无法确定对方名称，使用"对方"作为默认值`

// RefineClient talks to an OpenAI-compatible chat completion API.
type RefineClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *logging.Logger
}

// RefineConfig carries the connection settings for the refinement endpoint.
type RefineConfig struct {
	APIKey  string
	BaseURL string // empty means the official endpoint
	Model   string
	Timeout time.Duration
}

// refineResult is the JSON shape the model is asked to produce.
type refineResult struct {
	OtherName    string `json:"other_name"`
	Conversation string `json:"conversation"`
}

func NewRefineClient(cfg RefineConfig, logger *logging.Logger) *RefineClient {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &RefineClient{
		client:  openai.NewClientWithConfig(oc),
		model:   cfg.Model,
		timeout: timeout,
		logger:  logger,
	}
}

// Refine implements pipeline.Refiner.
func (c *RefineClient) Refine(ctx context.Context, taggedDump string, detectedName string) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	nameHint := "未检测到聊天对象名称，请从内容中推断"
	if detectedName != "" {
		nameHint = "检测到的聊天对象名称：" + detectedName
	}
	userPrompt := fmt.Sprintf("请整理以下 OCR 识别的微信聊天截图内容：\n\n%s\n\n%s\n\n请按照要求整理成标准对话格式，输出 JSON。", taggedDump, nameHint)

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: refineSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0.3,
		MaxTokens:   4000,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", "", errors.NewRefinementFailedError(err)
	}
	if len(resp.Choices) == 0 {
		return "", "", errors.NewRefinementFailedError(fmt.Errorf("completion returned no choices"))
	}

	result, err := parseRefineJSON(resp.Choices[0].Message.Content)
	if err != nil {
		return "", "", errors.NewRefinementFailedError(err)
	}

	name := result.OtherName
	if name == "" {
		name = detectedName
	}

	c.logger.Info("refinement completed",
		"model", c.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"partner_name", name,
		"transcript_len", len(result.Conversation))
	return result.Conversation, name, nil
}

// parseRefineJSON tolerates markdown code fences around the JSON body, which
// some models emit even when a JSON response format was requested.
func parseRefineJSON(raw string) (*refineResult, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```json") {
		text = text[len("```json"):]
	} else if strings.HasPrefix(text, "```") {
		text = text[len("```"):]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	text = strings.TrimSpace(text)

	var result refineResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("parse completion JSON: %w", err)
	}
	return &result, nil
}

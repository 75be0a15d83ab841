package settings

import (
	"os"
	"strings"
)

// 存储中识别的设置键
const (
	KeyAIMethod           = "ai_method"
	KeyHiAgentBaseURL     = "hiagent_baseurl"
	KeyHiAgentAppID       = "hiagent_appid"
	KeyHiAgentAppKey      = "hiagent_appkey"
	KeyHiAgentUserID      = "hiagent_user_id"
	KeyOpenAIBaseURL      = "openai_baseurl"
	KeyOpenAIAPIKey       = "openai_apikey"
	KeyModel              = "model"
	KeyPromptSystem       = "prompt_system"
	KeyChinaWebberBaseURL = "chinawebber_baseurl"
	KeyPreferredLanguage  = "preferred_language"
)

// AI 方式
const (
	MethodOpenAI  = "openai"
	MethodHiAgent = "hiagent"
)

// Keys 全部识别的键，顺序固定
var Keys = []string{
	KeyAIMethod,
	KeyHiAgentBaseURL,
	KeyHiAgentAppID,
	KeyHiAgentAppKey,
	KeyHiAgentUserID,
	KeyOpenAIBaseURL,
	KeyOpenAIAPIKey,
	KeyModel,
	KeyPromptSystem,
	KeyChinaWebberBaseURL,
	KeyPreferredLanguage,
}

// DefaultSystemPrompt 默认排版提示词
const DefaultSystemPrompt = `You are a professional typesetter for a university news website. You receive the inner HTML of a rich-text editor and return the same article re-typeset as HTML.

Formatting rules:
1. Body text uses font-family "Microsoft YaHei", font-size 16px and line-height 1.75. Headings keep their level but use the same font family.
2. Every text paragraph is a <p> element with text-indent: 2em. Do not indent paragraphs that only contain media.
3. Images, videos and tables are centered in their own <p style="text-align:center"> block. Keep every src, href and alt attribute unchanged.
4. Wrap the whole result in a single root <div>. Do not output <html>, <head> or <body>.

Content rules:
5. Mask personal information: phone numbers keep the first 3 and last 4 digits, ID card numbers keep the first 6 and last 4 characters, all other characters become *.
6. Proofread the text: fix obvious typos and punctuation misuse (full-width punctuation in Chinese text), but never rewrite, shorten or extend the content.

Return only the resulting HTML, without Markdown code fences or explanations.`

// Config 一次排版使用的完整设置快照
type Config struct {
	AIMethod           string `json:"ai_method"`
	HiAgentBaseURL     string `json:"hiagent_baseurl"`
	HiAgentAppID       string `json:"hiagent_appid"`
	HiAgentAppKey      string `json:"hiagent_appkey"`
	HiAgentUserID      string `json:"hiagent_user_id"`
	OpenAIBaseURL      string `json:"openai_baseurl"`
	OpenAIAPIKey       string `json:"openai_apikey"`
	Model              string `json:"model"`
	PromptSystem       string `json:"prompt_system"`
	ChinaWebberBaseURL string `json:"chinawebber_baseurl"`
	PreferredLanguage  string `json:"preferred_language"`
}

// Defaults 返回默认设置
func Defaults() Config {
	return Config{
		AIMethod:           MethodOpenAI,
		HiAgentBaseURL:     "https://agent.ynu.edu.cn/api/proxy/api/v1",
		HiAgentAppID:       "",
		HiAgentAppKey:      "",
		HiAgentUserID:      "123",
		OpenAIBaseURL:      "https://api.openai.com/v1",
		OpenAIAPIKey:       "",
		Model:              "gpt-3.5-turbo",
		PromptSystem:       DefaultSystemPrompt,
		ChinaWebberBaseURL: "https://sites.ynu.edu.cn",
		PreferredLanguage:  DefaultLanguage(),
	}
}

// DefaultLanguage 从进程 locale 推断语言，例如 zh_CN.UTF-8 -> zh-CN
func DefaultLanguage() string {
	for _, env := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		v := os.Getenv(env)
		if v == "" || v == "C" || v == "POSIX" {
			continue
		}
		if i := strings.IndexAny(v, ".@"); i >= 0 {
			v = v[:i]
		}
		v = strings.ReplaceAll(v, "_", "-")
		if v != "" {
			return v
		}
	}
	return "en"
}

// Method 返回生效的 AI 方式，未知值回落到 openai
func (c Config) Method() string {
	if c.AIMethod == MethodHiAgent {
		return MethodHiAgent
	}
	return MethodOpenAI
}

// EditorPageURL 新闻编辑页面地址
func (c Config) EditorPageURL() string {
	return strings.TrimRight(c.ChinaWebberBaseURL, "/") + "/system/site/column/news/addnews.jsp"
}

// IsEditorPage 判断页面是否为站群新闻编辑页
func (c Config) IsEditorPage(pageURL string) bool {
	return pageURL != "" && strings.HasPrefix(pageURL, c.EditorPageURL())
}

// secretKeys 读取时需要打码的键
var secretKeys = []string{KeyHiAgentAppKey, KeyOpenAIAPIKey}

// Masked 返回隐藏密钥后的副本
func (c Config) Masked() Config {
	c.HiAgentAppKey = mask(c.HiAgentAppKey)
	c.OpenAIAPIKey = mask(c.OpenAIAPIKey)
	return c
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:3] + strings.Repeat("*", len(secret)-7) + secret[len(secret)-4:]
}

// Get 按键名取值
func (c Config) Get(key string) (string, bool) {
	switch key {
	case KeyAIMethod:
		return c.AIMethod, true
	case KeyHiAgentBaseURL:
		return c.HiAgentBaseURL, true
	case KeyHiAgentAppID:
		return c.HiAgentAppID, true
	case KeyHiAgentAppKey:
		return c.HiAgentAppKey, true
	case KeyHiAgentUserID:
		return c.HiAgentUserID, true
	case KeyOpenAIBaseURL:
		return c.OpenAIBaseURL, true
	case KeyOpenAIAPIKey:
		return c.OpenAIAPIKey, true
	case KeyModel:
		return c.Model, true
	case KeyPromptSystem:
		return c.PromptSystem, true
	case KeyChinaWebberBaseURL:
		return c.ChinaWebberBaseURL, true
	case KeyPreferredLanguage:
		return c.PreferredLanguage, true
	}
	return "", false
}

func (c *Config) set(key, value string) bool {
	switch key {
	case KeyAIMethod:
		c.AIMethod = value
	case KeyHiAgentBaseURL:
		c.HiAgentBaseURL = value
	case KeyHiAgentAppID:
		c.HiAgentAppID = value
	case KeyHiAgentAppKey:
		c.HiAgentAppKey = value
	case KeyHiAgentUserID:
		c.HiAgentUserID = value
	case KeyOpenAIBaseURL:
		c.OpenAIBaseURL = value
	case KeyOpenAIAPIKey:
		c.OpenAIAPIKey = value
	case KeyModel:
		c.Model = value
	case KeyPromptSystem:
		c.PromptSystem = value
	case KeyChinaWebberBaseURL:
		c.ChinaWebberBaseURL = value
	case KeyPreferredLanguage:
		c.PreferredLanguage = value
	default:
		return false
	}
	return true
}

// IsKnownKey 是否为识别的键
func IsKnownKey(key string) bool {
	_, ok := Defaults().Get(key)
	return ok
}
